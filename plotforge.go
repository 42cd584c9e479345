package plotforge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/plotforge/internal/runtime"
	loamAdapter "github.com/aretw0/plotforge/pkg/adapters/loam"
	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/ports"
	"github.com/aretw0/plotforge/pkg/repository"
)

// Engine is the high-level entry point for the Plotforge library.
// It wraps the internal runtime and provides a simplified API for consumers.
// An Engine owns exactly one session; use ForSession to serve several.
type Engine struct {
	runtime     *runtime.Engine
	nodes       *repository.NodeSet
	source      ports.GraphSource
	generator   ports.Generator
	store       ports.ContentStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	sessionID   string
	runtimeOpts []runtime.EngineOption
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGraphSource injects a custom GraphSource, bypassing the default Loam initialization.
func WithGraphSource(s ports.GraphSource) Option {
	return func(e *Engine) {
		e.source = s
	}
}

// WithNodeSet injects an already loaded node set.
func WithNodeSet(set *repository.NodeSet) Option {
	return func(e *Engine) {
		e.nodes = set
	}
}

// WithGenerator sets the text generator used for generative nodes.
func WithGenerator(g ports.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

// WithStore sets the content store used for persistence.
func WithStore(s ports.ContentStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithSessionID sets the session the engine owns (default: "default").
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// WithEntryNode configures the initial node ID (default: "start").
func WithEntryNode(nodeID string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithEntryNode(nodeID))
	}
}

// WithMaxHistoryLength bounds the in-state history (default: 10).
func WithMaxHistoryLength(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxHistoryLength(n))
	}
}

// WithMaxHistoryLog bounds the persisted history log (default: 50).
func WithMaxHistoryLog(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxHistoryLog(n))
	}
}

// WithContinuationNodes overrides the default next-node table for generated options.
func WithContinuationNodes(ids ...string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithContinuationNodes(ids...))
	}
}

// WithAutosave toggles persistence after every resolved node (default: on).
func WithAutosave(enabled bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithAutosave(enabled))
	}
}

// New initializes a new Plotforge Engine.
// With a non-empty repoPath and no injected source, the graph is read from a
// Loam repository at that path. An unusable graph is logged and replaced by
// the built-in story, so New only fails on an invalid path.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if eng.nodes == nil {
		if eng.source == nil && repoPath != "" {
			absPath, err := filepath.Abs(repoPath)
			if err != nil {
				return nil, fmt.Errorf("invalid path: %w", err)
			}
			eng.Name = filepath.Base(absPath)

			src, err := loamAdapter.Open(absPath)
			if err != nil {
				eng.logger.Warn("failed to open story repository", "path", absPath, "err", err)
			} else {
				eng.source = src
			}
		}

		if eng.source == nil {
			eng.nodes = repository.Default()
		} else {
			eng.nodes = repository.LoadOrDefault(context.Background(), eng.source, eng.logger)
		}
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}

	// Sessions created with ForSession must share one store.
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	eng.runtime = eng.newRuntime(eng.sessionID)
	return eng, nil
}

func (e *Engine) newRuntime(sessionID string) *runtime.Engine {
	opts := []runtime.EngineOption{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithSessionID(sessionID),
	}
	opts = append(opts, e.runtimeOpts...)
	return runtime.NewEngine(e.nodes, e.generator, e.store, opts...)
}

// ForSession returns an engine for another session that shares this engine's
// graph, generator, store and hooks.
func (e *Engine) ForSession(id string) *Engine {
	clone := *e
	clone.sessionID = id
	clone.runtime = e.newRuntime(id)
	return &clone
}

// Init restores the session from the store. It returns
// domain.ErrNoRecoverableState when a new story must be started.
func (e *Engine) Init(ctx context.Context) error {
	return e.runtime.Init(ctx)
}

// StartNewStory discards progress and returns the initial scene.
func (e *Engine) StartNewStory(ctx context.Context) *domain.Scene {
	return e.runtime.StartNewStory(ctx)
}

// ResolveNode returns the scene for a node and moves the cursor to it.
// Returns domain.ErrNodeNotFound for unknown IDs.
func (e *Engine) ResolveNode(ctx context.Context, nodeID string) (*domain.Scene, error) {
	return e.runtime.ResolveNode(ctx, nodeID)
}

// ApplyChoice takes a choice. It never fails.
func (e *Engine) ApplyChoice(ctx context.Context, choice domain.Choice) *domain.Scene {
	return e.runtime.ApplyChoice(ctx, choice)
}

// Choose takes a choice of the current scene, referenced by ID or by its
// 1-based position. Returns domain.ErrInvalidChoice when nothing matches.
func (e *Engine) Choose(ctx context.Context, ref string) (*domain.Scene, error) {
	scene := e.runtime.LastScene()
	if scene == nil {
		return nil, fmt.Errorf("%w: no active scene", domain.ErrInvalidChoice)
	}
	ref = strings.TrimSpace(ref)
	if c, ok := scene.FindChoice(ref); ok {
		return e.runtime.ApplyChoice(ctx, c), nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(scene.Choices) {
		return e.runtime.ApplyChoice(ctx, scene.Choices[n-1]), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidChoice, ref)
}

// SaveSession persists the cursor and story state.
func (e *Engine) SaveSession(ctx context.Context) error {
	return e.runtime.SaveSession(ctx)
}

// LoadSession reads the persisted session record.
func (e *Engine) LoadSession(ctx context.Context) error {
	return e.runtime.LoadSession(ctx)
}

// RestoreFromHistory rebuilds the session from the history log.
func (e *Engine) RestoreFromHistory(ctx context.Context) error {
	return e.runtime.RestoreFromHistory(ctx)
}

// Resume restores progress and resolves the restored cursor.
func (e *Engine) Resume(ctx context.Context) (*domain.Scene, error) {
	return e.runtime.Resume(ctx)
}

// Reset wipes the session and every key it owns.
func (e *Engine) Reset(ctx context.Context) error {
	return e.runtime.Reset(ctx)
}

// History returns the bounded in-state history.
func (e *Engine) History() []domain.HistoryEntry {
	return e.runtime.History()
}

// HistoryLog returns the persisted snapshots, oldest first.
func (e *Engine) HistoryLog(ctx context.Context) ([]domain.Snapshot, error) {
	return e.runtime.HistoryLog(ctx)
}

// ExportNarrative returns the accumulated prose of the current story.
func (e *Engine) ExportNarrative(ctx context.Context) (string, error) {
	return e.runtime.ExportNarrative(ctx)
}

// LastSelectedChoice returns the most recently taken choice, or nil.
func (e *Engine) LastSelectedChoice(ctx context.Context) (*domain.SelectedChoice, error) {
	return e.runtime.LastSelectedChoice(ctx)
}

// TotalNodeCount returns the number of authored nodes.
func (e *Engine) TotalNodeCount() int {
	return e.runtime.TotalNodeCount()
}

// Session returns a snapshot of the owned session.
func (e *Engine) Session() domain.Session {
	return e.runtime.Session()
}

// SessionID returns the ID of the owned session.
func (e *Engine) SessionID() string {
	return e.runtime.SessionID()
}

// LastScene returns the most recently produced scene, or nil.
func (e *Engine) LastScene() *domain.Scene {
	return e.runtime.LastScene()
}

// Nodes returns the node set the engine resolves against.
func (e *Engine) Nodes() *repository.NodeSet {
	return e.nodes
}

// InitialNodeID returns the configured entry node.
func (e *Engine) InitialNodeID() string {
	return e.runtime.InitialNodeID()
}

// Store returns the content store shared by every session of this engine.
func (e *Engine) Store() ports.ContentStore {
	return e.store
}

// Introduction returns the story introduction text.
func (e *Engine) Introduction() string {
	return e.nodes.Introduction()
}
