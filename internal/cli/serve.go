package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/plotforge/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/plotforge/pkg/adapters/mcp"
)

const shutdownTimeout = 5 * time.Second

// Handler builds the HTTP API for the app, with metrics mounted.
func (a *App) Handler() http.Handler {
	return httpAdapter.NewHandler(a.manager(),
		httpAdapter.WithMetricsHandler(a.Metrics.Handler()),
		httpAdapter.WithLogger(a.Logger),
	)
}

// Serve runs the HTTP API on addr until ctx is cancelled.
func Serve(ctx context.Context, app *App, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("starting HTTP server", "addr", addr, "graph", app.Engine.Name, "nodes", app.Engine.TotalNodeCount())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		app.Logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		return nil
	}
}

// ServeMCP runs the MCP server on stdio, or over SSE when addr is set.
func ServeMCP(ctx context.Context, app *App, addr string) error {
	s := mcpAdapter.NewServer(app.manager(), app.Logger)
	if addr == "" {
		return s.ServeStdio()
	}
	return s.ServeSSE(ctx, addr, "http://localhost"+addr)
}
