package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeResolved      EventType = "node_resolved"
	EventGeneration        EventType = "generation"
	EventRecovery          EventType = "recovery"
	EventPersistenceFailed EventType = "persistence_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent is emitted after a node has been resolved into a scene.
type NodeEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	Generated bool   `json:"generated"`
	Terminal  bool   `json:"terminal"`
}

// GenerationOutcome classifies how a generation attempt ended.
type GenerationOutcome string

const (
	GenerationOK       GenerationOutcome = "ok"
	GenerationFallback GenerationOutcome = "fallback"
	// GenerationUnparsed means the call succeeded but no choice markers were found.
	GenerationUnparsed GenerationOutcome = "unparsed"
)

// GenerationEvent is emitted after each Generator call.
type GenerationEvent struct {
	EventBase
	NodeID   string            `json:"node_id"`
	Outcome  GenerationOutcome `json:"outcome"`
	Duration time.Duration     `json:"duration"`
	Err      error             `json:"-"`
}

// RecoveryTier identifies which dead-end recovery strategy was used.
type RecoveryTier string

const (
	RecoveryPrevious   RecoveryTier = "previous_node"
	RecoveryCrossroads RecoveryTier = "crossroads"
	RecoveryWelcome    RecoveryTier = "welcome"
)

// RecoveryEvent is emitted when the engine recovers from a broken graph.
type RecoveryEvent struct {
	EventBase
	MissingNodeID string       `json:"missing_node_id"`
	Tier          RecoveryTier `json:"tier"`
	AnchorNodeID  string       `json:"anchor_node_id"`
}

// PersistenceEvent is emitted when a store operation fails.
type PersistenceEvent struct {
	EventBase
	Key string `json:"key"`
	Err error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeResolved     func(context.Context, *NodeEvent)
	OnGeneration       func(context.Context, *GenerationEvent)
	OnRecovery         func(context.Context, *RecoveryEvent)
	OnPersistenceError func(context.Context, *PersistenceEvent)
}

// MergeHooks fans every event out to each non-nil callback, in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnNodeResolved != nil {
			prev := out.OnNodeResolved
			out.OnNodeResolved = func(ctx context.Context, e *NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnNodeResolved(ctx, e)
			}
		}
		if h.OnGeneration != nil {
			prev := out.OnGeneration
			out.OnGeneration = func(ctx context.Context, e *GenerationEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnGeneration(ctx, e)
			}
		}
		if h.OnRecovery != nil {
			prev := out.OnRecovery
			out.OnRecovery = func(ctx context.Context, e *RecoveryEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnRecovery(ctx, e)
			}
		}
		if h.OnPersistenceError != nil {
			prev := out.OnPersistenceError
			out.OnPersistenceError = func(ctx context.Context, e *PersistenceEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnPersistenceError(ctx, e)
			}
		}
	}
	return out
}
