package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/internal/logging"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serves many story sessions over one engine template.
// Calls on the same session are serialized; different sessions run in parallel.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	base *plotforge.Engine

	mu      sync.Mutex            // Global lock for the maps
	locks   map[string]*lockEntry // Map of active locks
	engines map[string]*plotforge.Engine

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. Engines are then re-initialized
// from the store on every call, since another replica may have advanced them.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock is held (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager whose sessions share base's graph, generator and store.
func NewManager(base *plotforge.Engine, opts ...Option) *Manager {
	m := &Manager{
		base:    base,
		locks:   make(map[string]*lockEntry),
		engines: make(map[string]*plotforge.Engine),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// WithSession runs fn with the session's engine while holding its lock.
// A session with nothing persisted gets an uninitialized engine.
func (m *Manager) WithSession(ctx context.Context, sessionID string, fn func(context.Context, *plotforge.Engine) error) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: empty session id", domain.ErrSessionNotFound)
	}
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		eng, err := m.engine(ctx, sessionID)
		if err != nil {
			return err
		}
		err = fn(ctx, eng)
		m.remember(sessionID, eng)
		return err
	})
}

// engine must be called with the session lock held. Engines of sessions
// that are not started are returned but not cached.
func (m *Manager) engine(ctx context.Context, sessionID string) (*plotforge.Engine, error) {
	m.mu.Lock()
	eng, cached := m.engines[sessionID]
	m.mu.Unlock()

	if cached && m.locker == nil {
		return eng, nil
	}
	if !cached {
		eng = m.base.ForSession(sessionID)
	}

	if err := eng.Init(ctx); err != nil && !errors.Is(err, domain.ErrNoRecoverableState) {
		return nil, err
	}
	return eng, nil
}

// remember caches eng while its session is started and forgets it otherwise.
func (m *Manager) remember(sessionID string, eng *plotforge.Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if eng.Session().Started() {
		m.engines[sessionID] = eng
		return
	}
	delete(m.engines, sessionID)
}

// cached reports how many session engines are held in memory.
func (m *Manager) cached() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// Start begins a new story in the session, discarding previous progress.
func (m *Manager) Start(ctx context.Context, sessionID string) (*domain.Scene, error) {
	var scene *domain.Scene
	err := m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		scene = eng.StartNewStory(ctx)
		return nil
	})
	return scene, err
}

// Current returns the session's current scene, resolving the cursor again
// only when no scene could be rebuilt from the store.
func (m *Manager) Current(ctx context.Context, sessionID string) (*domain.Scene, error) {
	var scene *domain.Scene
	err := m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		if !eng.Session().Started() {
			return domain.ErrSessionNotFound
		}
		if scene = eng.LastScene(); scene != nil {
			return nil
		}
		var err error
		scene, err = eng.Resume(ctx)
		return err
	})
	return scene, err
}

// Choose takes a choice in the session's current scene.
func (m *Manager) Choose(ctx context.Context, sessionID, ref string) (*domain.Scene, error) {
	var scene *domain.Scene
	err := m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		if !eng.Session().Started() {
			return domain.ErrSessionNotFound
		}
		var err error
		scene, err = eng.Choose(ctx, ref)
		return err
	})
	return scene, err
}

// Resolve moves the session to nodeID directly.
func (m *Manager) Resolve(ctx context.Context, sessionID, nodeID string) (*domain.Scene, error) {
	var scene *domain.Scene
	err := m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		var err error
		scene, err = eng.ResolveNode(ctx, nodeID)
		return err
	})
	return scene, err
}

// History returns the session's persisted snapshots.
func (m *Manager) History(ctx context.Context, sessionID string) ([]domain.Snapshot, error) {
	var log []domain.Snapshot
	err := m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		if !eng.Session().Started() {
			return domain.ErrSessionNotFound
		}
		var err error
		log, err = eng.HistoryLog(ctx)
		return err
	})
	return log, err
}

// Export returns the session's accumulated narrative.
func (m *Manager) Export(ctx context.Context, sessionID string) (string, error) {
	var text string
	err := m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		if !eng.Session().Started() {
			return domain.ErrSessionNotFound
		}
		var err error
		text, err = eng.ExportNarrative(ctx)
		return err
	})
	return text, err
}

// Delete wipes the session and forgets its engine.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithSession(ctx, sessionID, func(ctx context.Context, eng *plotforge.Engine) error {
		return eng.Reset(ctx)
	})
}

// List returns the IDs of sessions with a persisted session record.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	keys, err := m.base.Store().Keys(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %w", domain.ErrPersistence, err)
	}

	suffix := ":" + domain.KeySession
	ids := []string{}
	for _, k := range keys {
		if id, ok := strings.CutSuffix(k, suffix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Base returns the engine template.
func (m *Manager) Base() *plotforge.Engine {
	return m.base
}
