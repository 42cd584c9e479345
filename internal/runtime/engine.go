package runtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/ports"
	"github.com/aretw0/plotforge/pkg/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/plotforge/internal/runtime"

// DefaultSessionID is used when no session ID is configured.
const DefaultSessionID = "default"

// Engine is the narrative state machine for a single session.
// It is not safe for concurrent use; hosts serialize calls per session.
type Engine struct {
	nodes     *repository.NodeSet
	generator ports.Generator
	store     ports.ContentStore

	session   *domain.Session
	lastScene *domain.Scene

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
	now    func() time.Time

	initialNodeID    string
	crossroadsNodeID string
	maxHistory       int
	maxHistoryLog    int
	continuation     []string
	autosave         bool
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSessionID sets the session the engine owns. Persistence keys are
// namespaced by it.
func WithSessionID(id string) EngineOption {
	return func(e *Engine) {
		if id != "" {
			e.session = domain.NewSession(id)
		}
	}
}

// WithEntryNode configures the initial node ID (default: "start").
func WithEntryNode(nodeID string) EngineOption {
	return func(e *Engine) {
		if nodeID != "" {
			e.initialNodeID = nodeID
		}
	}
}

// WithCrossroadsNode configures the ID of the synthetic recovery node.
func WithCrossroadsNode(nodeID string) EngineOption {
	return func(e *Engine) {
		if nodeID != "" {
			e.crossroadsNodeID = nodeID
		}
	}
}

// WithMaxHistoryLength bounds the in-state history and the prompt window.
func WithMaxHistoryLength(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxHistory = n
		}
	}
}

// WithMaxHistoryLog bounds the persisted history log.
func WithMaxHistoryLog(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxHistoryLog = n
		}
	}
}

// WithContinuationNodes overrides the default next-node table used by the
// parser and the crossroads recovery node.
func WithContinuationNodes(ids ...string) EngineOption {
	return func(e *Engine) {
		if len(ids) > 0 {
			e.continuation = append([]string(nil), ids...)
		}
	}
}

// WithAutosave toggles persistence after every resolved node (default: on).
func WithAutosave(enabled bool) EngineOption {
	return func(e *Engine) {
		e.autosave = enabled
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer used around generation.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// NewEngine creates a new engine with dependencies. A nil node set means the
// built-in graph, a nil store means an in-memory store. A nil generator makes
// every generative node fall back to its fallback content.
func NewEngine(nodes *repository.NodeSet, generator ports.Generator, store ports.ContentStore, opts ...EngineOption) *Engine {
	if nodes == nil {
		nodes = repository.Default()
	}
	if store == nil {
		store = memory.NewStore()
	}

	e := &Engine{
		nodes:            nodes,
		generator:        generator,
		store:            store,
		session:          domain.NewSession(DefaultSessionID),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:           otel.Tracer(tracerName),
		now:              time.Now,
		initialNodeID:    domain.DefaultInitialNodeID,
		crossroadsNodeID: domain.DefaultCrossroadsNodeID,
		maxHistory:       domain.DefaultMaxHistoryLength,
		maxHistoryLog:    domain.DefaultMaxHistoryLog,
		continuation:     domain.DefaultContinuationNodes,
		autosave:         true,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("session", e.session.ID)
	return e
}

// SessionID returns the ID of the owned session.
func (e *Engine) SessionID() string {
	return e.session.ID
}

// Session returns a deep copy of the owned session.
func (e *Engine) Session() domain.Session {
	return domain.Session{
		ID:            e.session.ID,
		CurrentNodeID: e.session.CurrentNodeID,
		State:         e.session.State.Clone(),
	}
}

// History returns a copy of the bounded in-state history.
func (e *Engine) History() []domain.HistoryEntry {
	return append([]domain.HistoryEntry{}, e.session.State.History...)
}

// TotalNodeCount returns the number of authored nodes.
func (e *Engine) TotalNodeCount() int {
	return e.nodes.Count()
}

// Nodes returns the node set the engine resolves against.
func (e *Engine) Nodes() *repository.NodeSet {
	return e.nodes
}

// InitialNodeID returns the configured entry node.
func (e *Engine) InitialNodeID() string {
	return e.initialNodeID
}

// LastScene returns a copy of the most recently produced scene, or nil.
func (e *Engine) LastScene() *domain.Scene {
	if e.lastScene == nil {
		return nil
	}
	return cloneScene(e.lastScene)
}

func (e *Engine) key(suffix string) string {
	return e.session.ID + ":" + suffix
}

func (e *Engine) emitNodeResolved(ctx context.Context, scene *domain.Scene) {
	if e.hooks.OnNodeResolved == nil {
		return
	}
	e.hooks.OnNodeResolved(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeResolved, SessionID: e.session.ID},
		NodeID:    scene.NodeID,
		Generated: scene.Generated,
		Terminal:  scene.Terminal,
	})
}

func (e *Engine) emitGeneration(ctx context.Context, nodeID string, outcome domain.GenerationOutcome, d time.Duration, err error) {
	if e.hooks.OnGeneration == nil {
		return
	}
	e.hooks.OnGeneration(ctx, &domain.GenerationEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventGeneration, SessionID: e.session.ID},
		NodeID:    nodeID,
		Outcome:   outcome,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitRecovery(ctx context.Context, missing string, tier domain.RecoveryTier, anchor string) {
	if e.hooks.OnRecovery == nil {
		return
	}
	e.hooks.OnRecovery(ctx, &domain.RecoveryEvent{
		EventBase:     domain.EventBase{Timestamp: e.now(), Type: domain.EventRecovery, SessionID: e.session.ID},
		MissingNodeID: missing,
		Tier:          tier,
		AnchorNodeID:  anchor,
	})
}

func (e *Engine) emitPersistenceError(ctx context.Context, key string, err error) {
	e.logger.WarnContext(ctx, "content store operation failed", "key", key, "err", err)
	if e.hooks.OnPersistenceError == nil {
		return
	}
	e.hooks.OnPersistenceError(ctx, &domain.PersistenceEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventPersistenceFailed, SessionID: e.session.ID},
		Key:       key,
		Err:       err,
	})
}

func cloneScene(s *domain.Scene) *domain.Scene {
	out := *s
	out.Choices = domain.CloneChoices(s.Choices)
	if out.Choices == nil {
		out.Choices = []domain.Choice{}
	}
	return &out
}
