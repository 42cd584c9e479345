package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/session"
)

// SessionView is the printable summary of a stored session.
type SessionView struct {
	ID          string             `json:"id"`
	CurrentNode string             `json:"current_node"`
	Variables   map[string]float64 `json:"variables"`
	History     []string           `json:"history"`
	LastChoice  string             `json:"last_choice,omitempty"`
}

func (a *App) manager() *session.Manager {
	opts := []session.Option{session.WithLogger(a.Logger), session.WithLockTTL(a.Config.Server.LockTTL)}
	if a.Locker != nil {
		opts = append(opts, session.WithLocker(a.Locker))
	}
	return session.NewManager(a.Engine, opts...)
}

// ListSessions prints the IDs of stored sessions.
func ListSessions(ctx context.Context, app *App, w io.Writer) error {
	ids, err := app.manager().List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	fmt.Fprintln(w, "Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// ShowSession prints the cursor and state of a session as JSON.
func ShowSession(ctx context.Context, app *App, id string, w io.Writer) error {
	var view SessionView
	err := app.manager().WithSession(ctx, id, func(ctx context.Context, eng *plotforge.Engine) error {
		s := eng.Session()
		if !s.Started() {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		view = SessionView{
			ID:          s.ID,
			CurrentNode: s.CurrentNodeID,
			Variables:   s.State.Variables,
			LastChoice:  s.State.LastChoiceText,
		}
		for _, h := range eng.History() {
			view.History = append(view.History, h.NodeID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return writeJSON(w, view)
}

// SessionHistory prints the persisted snapshots of a session.
func SessionHistory(ctx context.Context, app *App, id string, w io.Writer) error {
	log, err := app.manager().History(ctx, id)
	if err != nil {
		return err
	}
	if len(log) == 0 {
		fmt.Fprintf(w, "No history for session '%s'.\n", id)
		return nil
	}
	for i, snap := range log {
		node := "-"
		if snap.CurrentNode != nil {
			node = *snap.CurrentNode
		}
		fmt.Fprintf(w, "%3d  %s  %-24s %d choices\n", i+1, snap.Timestamp.Format(time.RFC3339), node, len(snap.Choices))
	}
	return nil
}

// ExportSession writes the accumulated narrative of a session.
func ExportSession(ctx context.Context, app *App, id string, w io.Writer) error {
	text, err := app.manager().Export(ctx, id)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%w: nothing exported for %s", domain.ErrSessionNotFound, id)
	}
	_, err = io.WriteString(w, text)
	return err
}

// RemoveSessions wipes every given session, reporting each outcome.
func RemoveSessions(ctx context.Context, app *App, ids []string, w io.Writer) error {
	mgr := app.manager()
	failed := 0
	for _, id := range ids {
		if err := mgr.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions could not be removed", failed, len(ids))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
