package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/internal/config"
	"github.com/aretw0/plotforge/internal/gateway"
	"github.com/aretw0/plotforge/internal/logging"
	"github.com/aretw0/plotforge/internal/metrics"
	"github.com/aretw0/plotforge/pkg/adapters/file"
	loamAdapter "github.com/aretw0/plotforge/pkg/adapters/loam"
	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/adapters/redis"
	"github.com/aretw0/plotforge/pkg/adapters/sqlstore"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/persistence/middleware"
	"github.com/aretw0/plotforge/pkg/ports"
	"github.com/aretw0/plotforge/pkg/repository"
)

// App bundles everything a command needs, built once from the configuration.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Engine  *plotforge.Engine
	Store   ports.ContentStore
	// Locker is set when the store can coordinate replicas (redis).
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewApp wires logger, metrics, graph source, generator and store into an
// engine for cfg.Story.Session.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	source, err := NewGraphSource(cfg.Graph)
	if err != nil {
		return nil, err
	}
	nodes := repository.Default()
	if source != nil {
		nodes = repository.LoadOrDefault(ctx, source, logger)
	}

	generator, err := gateway.New(cfg.AI, logger)
	if err != nil {
		return nil, err
	}

	if err := app.openStore(ctx, cfg.Storage); err != nil {
		_ = app.Close()
		return nil, err
	}

	opts := []plotforge.Option{
		plotforge.WithNodeSet(nodes),
		plotforge.WithStore(app.Store),
		plotforge.WithLogger(logger),
		plotforge.WithLifecycleHooks(domain.MergeHooks(logging.Hooks(logger), app.Metrics.Hooks())),
		plotforge.WithSessionID(cfg.Story.Session),
		plotforge.WithEntryNode(cfg.Story.InitialNode),
		plotforge.WithMaxHistoryLength(cfg.Story.MaxHistoryLength),
		plotforge.WithMaxHistoryLog(cfg.Story.MaxHistoryLog),
		plotforge.WithAutosave(cfg.Story.AutoSave),
	}
	if generator != nil {
		opts = append(opts, plotforge.WithGenerator(generator))
	}
	if len(cfg.Story.ContinuationNodes) > 0 {
		opts = append(opts, plotforge.WithContinuationNodes(cfg.Story.ContinuationNodes...))
	}

	eng, err := plotforge.New("", opts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	if cfg.Graph.Path != "" {
		if abs, err := filepath.Abs(cfg.Graph.Path); err == nil {
			eng.Name = filepath.Base(abs)
		}
	}
	app.Engine = eng
	return app, nil
}

// NewGraphSource selects the graph source for cfg. A nil source means the
// built-in story.
func NewGraphSource(cfg config.GraphConfig) (ports.GraphSource, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	switch cfg.Format {
	case "json":
		return file.NewGraphSource(cfg.Path), nil
	case "loam":
		return loamAdapter.Open(cfg.Path)
	case "", "auto":
		if _, err := os.Stat(filepath.Join(cfg.Path, file.NodesFile)); err == nil {
			return file.NewGraphSource(cfg.Path), nil
		}
		if info, err := os.Stat(cfg.Path); err != nil || !info.IsDir() {
			return nil, &domain.ConfigError{Source: cfg.Path, Err: errors.New("graph path is not a directory")}
		}
		return loamAdapter.Open(cfg.Path)
	default:
		return nil, &domain.ConfigError{Source: "graph.format", Err: fmt.Errorf("unknown format %q", cfg.Format)}
	}
}

func (a *App) openStore(ctx context.Context, cfg config.StorageConfig) error {
	switch cfg.Driver {
	case "memory":
		a.Store = memory.NewStore()
	case "", "file":
		a.Store = file.NewStore(cfg.Path)
	case "redis":
		var opts []redis.Option
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return fmt.Errorf("%w: redis %s: %w", domain.ErrPersistence, cfg.RedisAddr, err)
		}
		a.Store = store
		a.Locker = redis.NewLocker(store.Client(), store.Prefix())
		a.closers = append(a.closers, store.Close)
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" && cfg.Driver == sqlstore.DriverSQLite {
			dsn = filepath.Join(cfg.Path, "plotforge.db")
			if err := os.MkdirAll(cfg.Path, 0755); err != nil {
				return fmt.Errorf("%w: create %s: %w", domain.ErrPersistence, cfg.Path, err)
			}
		}
		store, err := sqlstore.Open(ctx, cfg.Driver, dsn)
		if err != nil {
			return err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	default:
		return &domain.ConfigError{Source: "storage.driver", Err: fmt.Errorf("unknown driver %q", cfg.Driver)}
	}
	if cfg.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{ActiveKey: middleware.KeyFromString(cfg.EncryptionKey)}
		for _, k := range cfg.FallbackKeys {
			enc.FallbackKeys = append(enc.FallbackKeys, middleware.KeyFromString(k))
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return &domain.ConfigError{Source: "storage.encryption_key", Err: err}
		}
		a.Store = mw(a.Store)
	}
	a.Logger.Debug("content store ready", "driver", cfg.Driver, "encrypted", cfg.EncryptionKey != "")
	return nil
}
