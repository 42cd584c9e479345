package logging

import (
	"context"
	"log/slog"

	"github.com/aretw0/plotforge/pkg/domain"
)

// Hooks returns lifecycle hooks that log every engine event at debug level,
// and failures at warn.
func Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeResolved: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Node Resolved", "session_id", e.SessionID, "node_id", e.NodeID,
				"generated", e.Generated, "terminal", e.Terminal)
		},
		OnGeneration: func(ctx context.Context, e *domain.GenerationEvent) {
			if e.Err != nil {
				logger.Warn("Generation Failed", "session_id", e.SessionID, "node_id", e.NodeID,
					"outcome", e.Outcome, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("Generation", "session_id", e.SessionID, "node_id", e.NodeID,
				"outcome", e.Outcome, "duration", e.Duration)
		},
		OnRecovery: func(ctx context.Context, e *domain.RecoveryEvent) {
			logger.Warn("Dead End Recovered", "session_id", e.SessionID, "missing", e.MissingNodeID,
				"tier", e.Tier, "anchor", e.AnchorNodeID)
		},
		OnPersistenceError: func(ctx context.Context, e *domain.PersistenceEvent) {
			logger.Warn("Persistence Failed", "session_id", e.SessionID, "key", e.Key, "err", e.Err)
		},
	}
}
