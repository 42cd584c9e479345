package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/internal/presentation/tui"
	"github.com/aretw0/plotforge/pkg/domain"
)

// PlayOptions configures an interactive play session.
type PlayOptions struct {
	In  io.Reader
	Out io.Writer
	// Fresh discards saved progress before playing.
	Fresh bool
	// Headless suppresses the banner, introduction and markdown rendering.
	Headless bool
}

// Play runs the terminal story loop for the app's session.
func Play(ctx context.Context, app *App, opts PlayOptions) error {
	eng := app.Engine
	out := opts.Out

	if opts.Fresh {
		if err := eng.Reset(ctx); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
	}

	err := eng.Init(ctx)
	switch {
	case err == nil:
		app.Logger.Info("session resumed", "session_id", eng.SessionID(), "node", eng.Session().CurrentNodeID)
	case errors.Is(err, domain.ErrNoRecoverableState):
		app.Logger.Info("session created", "session_id", eng.SessionID())
	default:
		return fmt.Errorf("failed to init session: %w", err)
	}

	r := plotforge.NewRunner(opts.In, out)
	r.Headless = opts.Headless
	if !opts.Headless {
		tui.PrintBanner(out, plotforge.Version)
		if eng.Session().Started() {
			printSystemMessage(out, "Resuming at '%s' node...", eng.Session().CurrentNodeID)
		}
		r.Renderer = tui.NewRenderer(out)
	}

	runErr := r.Run(ctx, eng)
	if ctx.Err() != nil && runErr == nil {
		runErr = ctx.Err()
	}
	if !opts.Headless {
		if node := eng.Session().CurrentNodeID; node != "" {
			if runErr != nil && isInterrupted(runErr) {
				fmt.Fprintln(out)
				printSystemMessage(out, "Interrupted at '%s' node. Progress is saved.", node)
			} else if runErr == nil {
				printSystemMessage(out, "Stopped at '%s' node.", node)
			}
		}
	}
	return handleExecutionError(runErr)
}
