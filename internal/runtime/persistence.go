package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
)

// sessionRecord is the persisted form of the session under "<id>:session".
type sessionRecord struct {
	CurrentNode *string            `json:"currentNode"`
	StoryState  *domain.StoryState `json:"storyState"`
	Timestamp   time.Time          `json:"timestamp"`
}

// SaveSession writes the cursor and story state, overwriting any previous record.
func (e *Engine) SaveSession(ctx context.Context) error {
	rec := sessionRecord{
		StoryState: &e.session.State,
		Timestamp:  e.now(),
	}
	if e.session.CurrentNodeID != "" {
		cursor := e.session.CurrentNodeID
		rec.CurrentNode = &cursor
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", domain.ErrPersistence, err)
	}
	if err := e.store.Set(ctx, e.key(domain.KeySession), string(data)); err != nil {
		return fmt.Errorf("%w: save session: %w", domain.ErrPersistence, err)
	}
	return nil
}

// LoadSession replaces the in-memory session with the persisted record.
// On a missing or corrupt record the session is left uninitialized and
// domain.ErrSessionNotFound or a decode error is returned. Missing sub-fields
// of a partial record are repaired with empty defaults.
func (e *Engine) LoadSession(ctx context.Context) error {
	raw, err := e.store.Get(ctx, e.key(domain.KeySession))
	if err != nil {
		e.clearSession()
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("%w: load session: %w", domain.ErrPersistence, err)
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		e.clearSession()
		return fmt.Errorf("decode session record: %w", err)
	}

	st := domain.NewStoryState()
	if rec.StoryState != nil {
		st = *rec.StoryState
		st.Repair()
	}
	e.session.State = st
	e.session.CurrentNodeID = ""
	if rec.CurrentNode != nil {
		e.session.CurrentNodeID = *rec.CurrentNode
	}
	e.lastScene = nil

	e.logger.DebugContext(ctx, "session loaded", "node_id", e.session.CurrentNodeID)
	return nil
}

func (e *Engine) clearSession() {
	e.session.State = domain.NewStoryState()
	e.session.CurrentNodeID = ""
	e.lastScene = nil
}

// Init restores progress: the session record first, the history log second.
// It returns domain.ErrNoRecoverableState when neither holds a usable cursor.
func (e *Engine) Init(ctx context.Context) error {
	err := e.LoadSession(ctx)
	if err == nil && e.resolvable(e.session.CurrentNodeID) {
		e.restoreLastScene(ctx)
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		e.logger.WarnContext(ctx, "session record unusable, trying history log", "err", err)
	}

	if rerr := e.RestoreFromHistory(ctx); rerr != nil {
		e.clearSession()
		return rerr
	}
	return nil
}

// restoreLastScene rebuilds the current scene from the newest snapshot when it
// matches the cursor, so choices can be taken without resolving again.
func (e *Engine) restoreLastScene(ctx context.Context) {
	log, err := e.HistoryLog(ctx)
	if err != nil || len(log) == 0 {
		return
	}
	snap := log[len(log)-1]
	if snap.CurrentNode == nil || *snap.CurrentNode != e.session.CurrentNodeID {
		return
	}
	e.lastScene = sceneFromSnapshot(snap)
}

func sceneFromSnapshot(snap domain.Snapshot) *domain.Scene {
	scene := &domain.Scene{
		NodeID:   *snap.CurrentNode,
		Content:  snap.Content,
		Choices:  domain.CloneChoices(snap.Choices),
		Terminal: len(snap.Choices) == 0,
	}
	if scene.Choices == nil {
		scene.Choices = []domain.Choice{}
	}
	return scene
}

// RestoreFromHistory rebuilds the session from the most recent history-log
// entry with a usable cursor, then persists the rebuilt session.
func (e *Engine) RestoreFromHistory(ctx context.Context) error {
	log, err := e.HistoryLog(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "history log unreadable", "err", err)
		return fmt.Errorf("%w: %v", domain.ErrNoRecoverableState, err)
	}

	// Synthetic nodes only survive in the session record; carry them over so a
	// crossroads cursor stays resolvable.
	synthetic := e.session.State.Synthetic

	for i := len(log) - 1; i >= 0; i-- {
		snap := log[i]
		if snap.CurrentNode == nil || *snap.CurrentNode == "" {
			continue
		}
		cursor := *snap.CurrentNode
		if !e.nodes.Has(cursor) && synthetic[cursor].ID == "" {
			continue
		}

		st := domain.NewStoryState()
		st.FrameworkInfo = e.nodes.Framework()
		st.CharacterInfo = e.nodes.Characters()
		for k, v := range snap.Variables {
			st.Variables[k] = v
		}
		for id, n := range synthetic {
			st.Synthetic[id] = n
		}
		for _, s := range log[:i+1] {
			if s.CurrentNode == nil {
				continue
			}
			st.History = append(st.History, domain.HistoryEntry{NodeID: *s.CurrentNode, Content: s.Content, Timestamp: s.Timestamp})
		}
		if over := len(st.History) - e.maxHistory; over > 0 {
			st.History = st.History[over:]
		}

		e.session.State = st
		e.session.CurrentNodeID = cursor
		e.lastScene = sceneFromSnapshot(snap)

		if err := e.SaveSession(ctx); err != nil {
			e.emitPersistenceError(ctx, e.key(domain.KeySession), err)
		}
		e.logger.InfoContext(ctx, "session restored from history log", "node_id", cursor)
		return nil
	}
	return domain.ErrNoRecoverableState
}

// Resume restores progress and resolves the restored cursor.
func (e *Engine) Resume(ctx context.Context) (*domain.Scene, error) {
	if err := e.Init(ctx); err != nil {
		return nil, err
	}
	return e.ResolveNode(ctx, e.session.CurrentNodeID)
}

// Reset wipes the session and deletes the keys it owns. Keys are deleted by
// name so sessions whose ids share a prefix are left alone.
func (e *Engine) Reset(ctx context.Context) error {
	e.clearSession()
	e.session.State.Synthetic = make(map[string]domain.Node)

	var errs []error
	for _, suffix := range ownedKeys {
		k := e.key(suffix)
		if err := e.store.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, errors.Join(errs...))
	}
	e.logger.InfoContext(ctx, "session reset", "keys", len(ownedKeys))
	return nil
}

var ownedKeys = []string{
	domain.KeySession,
	domain.KeyHistoryLog,
	domain.KeyExportedNarrative,
	domain.KeyLastSelectedChoice,
}

// HistoryLog returns the persisted snapshots, oldest first.
func (e *Engine) HistoryLog(ctx context.Context) ([]domain.Snapshot, error) {
	raw, err := e.store.Get(ctx, e.key(domain.KeyHistoryLog))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return []domain.Snapshot{}, nil
		}
		return nil, fmt.Errorf("%w: load history log: %w", domain.ErrPersistence, err)
	}
	var log []domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, fmt.Errorf("decode history log: %w", err)
	}
	if log == nil {
		log = []domain.Snapshot{}
	}
	return log, nil
}

// ExportNarrative returns the accumulated prose of the current story.
func (e *Engine) ExportNarrative(ctx context.Context) (string, error) {
	raw, err := e.store.Get(ctx, e.key(domain.KeyExportedNarrative))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: load exported narrative: %w", domain.ErrPersistence, err)
	}
	return raw, nil
}

// LastSelectedChoice returns the persisted record of the last taken choice.
func (e *Engine) LastSelectedChoice(ctx context.Context) (*domain.SelectedChoice, error) {
	raw, err := e.store.Get(ctx, e.key(domain.KeyLastSelectedChoice))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load last choice: %w", domain.ErrPersistence, err)
	}
	var sel domain.SelectedChoice
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return nil, fmt.Errorf("decode last choice: %w", err)
	}
	return &sel, nil
}

// persistScene saves the session and appends the scene to the history log and
// the exported narrative. Failures are logged, never returned.
func (e *Engine) persistScene(ctx context.Context, scene *domain.Scene) {
	if err := e.SaveSession(ctx); err != nil {
		e.emitPersistenceError(ctx, e.key(domain.KeySession), err)
	}
	if err := e.appendHistoryLog(ctx, scene); err != nil {
		e.emitPersistenceError(ctx, e.key(domain.KeyHistoryLog), err)
	}
	if err := e.appendExport(ctx, scene.Content); err != nil {
		e.emitPersistenceError(ctx, e.key(domain.KeyExportedNarrative), err)
	}
}

func (e *Engine) appendHistoryLog(ctx context.Context, scene *domain.Scene) error {
	log, err := e.HistoryLog(ctx)
	if err != nil {
		// A corrupt log is replaced rather than blocking further progress.
		e.logger.WarnContext(ctx, "discarding unreadable history log", "err", err)
		log = []domain.Snapshot{}
	}

	cursor := scene.NodeID
	vars := make(map[string]float64, len(e.session.State.Variables))
	for k, v := range e.session.State.Variables {
		vars[k] = v
	}
	log = append(log, domain.Snapshot{
		Timestamp:   e.now(),
		CurrentNode: &cursor,
		Content:     scene.Content,
		Choices:     domain.CloneChoices(scene.Choices),
		Variables:   vars,
	})
	if over := len(log) - e.maxHistoryLog; over > 0 {
		log = log[over:]
	}

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("%w: encode history log: %v", domain.ErrPersistence, err)
	}
	if err := e.store.Set(ctx, e.key(domain.KeyHistoryLog), string(data)); err != nil {
		return fmt.Errorf("%w: save history log: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (e *Engine) appendExport(ctx context.Context, content string) error {
	existing, err := e.ExportNarrative(ctx)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(existing)
	b.WriteString(content)
	b.WriteString("\n\n")
	if err := e.store.Set(ctx, e.key(domain.KeyExportedNarrative), b.String()); err != nil {
		return fmt.Errorf("%w: save exported narrative: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (e *Engine) recordSelectedChoice(ctx context.Context, choice domain.Choice) {
	data, err := json.Marshal(domain.SelectedChoice{Text: choice.Text, NextNode: choice.NextNode, Timestamp: e.now()})
	if err == nil {
		err = e.store.Set(ctx, e.key(domain.KeyLastSelectedChoice), string(data))
	}
	if err != nil {
		e.emitPersistenceError(ctx, e.key(domain.KeyLastSelectedChoice), err)
	}
}
