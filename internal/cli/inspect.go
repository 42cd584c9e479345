package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/plotforge/internal/config"
	"github.com/aretw0/plotforge/internal/presentation/graph"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/repository"
)

// ErrInvalidGraph is returned by Validate when the report has errors.
var ErrInvalidGraph = errors.New("graph is invalid")

// Graph prints the Mermaid flowchart of the app's graph. With a session ID
// the session's visited and current nodes are highlighted.
func Graph(ctx context.Context, app *App, sessionID string, w io.Writer) error {
	eng := app.Engine
	var overlay *graph.Overlay
	if sessionID != "" {
		s := eng.ForSession(sessionID)
		if err := s.Init(ctx); err != nil && !errors.Is(err, domain.ErrNoRecoverableState) {
			return fmt.Errorf("load session %s: %w", sessionID, err)
		}
		overlay = &graph.Overlay{CurrentNode: s.Session().CurrentNodeID}
		for _, h := range s.History() {
			overlay.VisitedNodes = append(overlay.VisitedNodes, h.NodeID)
		}
	}
	_, err := io.WriteString(w, graph.GenerateMermaid(eng.Nodes().Nodes(), eng.InitialNodeID(), overlay))
	return err
}

// Validate loads the configured graph without falling back to the built-in
// story and prints the validation report.
func Validate(ctx context.Context, cfg config.Config, w io.Writer) error {
	set := repository.Default()
	source, err := NewGraphSource(cfg.Graph)
	if err != nil {
		return err
	}
	if source != nil {
		if set, err = repository.Load(ctx, source); err != nil {
			return err
		}
	}

	report := repository.Validate(set, cfg.Story.InitialNode)
	for _, issue := range report.Issues {
		fmt.Fprintln(w, issue.String())
	}
	fmt.Fprintf(w, "%d nodes, %d reachable from '%s'\n", set.Count(), len(report.Reachable), cfg.Story.InitialNode)
	if !report.OK() {
		return fmt.Errorf("%w: %d errors", ErrInvalidGraph, len(report.Errors()))
	}
	return nil
}

