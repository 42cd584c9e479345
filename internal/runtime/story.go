package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/plotforge/pkg/domain"
)

const (
	welcomeContent = "Welcome to the mysterious adventure! Choose below to begin your journey..."
	apologyLine    = "The story path ran into a small problem, so let's return to an earlier decision point and carry on!"
	crossroadsBody = "You stand at a crossroads, surrounded by a mist-wrapped forest. Somewhere in the distance, something seems to be calling your name..."
)

// StartNewStory discards the current progress and resolves the initial node.
// It never fails: any error yields the welcome scene.
func (e *Engine) StartNewStory(ctx context.Context) *domain.Scene {
	e.resetState()
	e.session.CurrentNodeID = e.initialNodeID

	if err := e.store.Delete(ctx, e.key(domain.KeyExportedNarrative)); err != nil {
		e.emitPersistenceError(ctx, e.key(domain.KeyExportedNarrative), err)
	}

	scene, err := e.ResolveNode(ctx, e.initialNodeID)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to start story, showing welcome scene", "node_id", e.initialNodeID, "err", err)
		e.session.CurrentNodeID = ""
		e.emitRecovery(ctx, e.initialNodeID, domain.RecoveryWelcome, "")
		return e.welcomeScene()
	}
	e.logger.InfoContext(ctx, "story started", "node_id", e.initialNodeID)
	return scene
}

func (e *Engine) welcomeScene() *domain.Scene {
	scene := &domain.Scene{
		Content: welcomeContent,
		Choices: []domain.Choice{{
			ID:       "start_over",
			Text:     "Start over",
			NextNode: e.initialNodeID,
		}},
		Recovered: true,
	}
	e.lastScene = cloneScene(scene)
	return scene
}

// resetState wipes the session state and seeds the world info from the graph.
func (e *Engine) resetState() {
	st := domain.NewStoryState()
	st.FrameworkInfo = e.nodes.Framework()
	st.CharacterInfo = e.nodes.Characters()
	e.session.State = st
	e.session.CurrentNodeID = ""
	e.lastScene = nil
}

// ApplyChoice applies a choice's effects and moves to its target. It never
// fails: a missing target is recovered so the story never stalls and never
// restarts.
func (e *Engine) ApplyChoice(ctx context.Context, choice domain.Choice) *domain.Scene {
	e.applyEffects(choice.Effects)
	e.session.State.LastChoiceText = choice.Text
	e.recordSelectedChoice(ctx, choice)

	e.logger.DebugContext(ctx, "choice applied", "choice", choice.ID, "next_node", choice.NextNode)

	scene, err := e.ResolveNode(ctx, choice.NextNode)
	if err == nil {
		return scene
	}
	if !errors.Is(err, domain.ErrNodeNotFound) {
		e.logger.ErrorContext(ctx, "unexpected resolve failure", "next_node", choice.NextNode, "err", err)
	}
	return e.recover(ctx, choice.NextNode)
}

// recover handles a dead end. Tier 1 returns to the second-to-last visited
// node; tier 2 materializes the crossroads node.
func (e *Engine) recover(ctx context.Context, missing string) *domain.Scene {
	e.logger.WarnContext(ctx, "choice target missing, recovering", "missing_node_id", missing)

	if h := e.session.State.History; len(h) >= 2 {
		anchor := h[len(h)-2].NodeID
		// Only anchors with authored choices qualify: their scene always has
		// choices, so resolving never leaves a dead-end snapshot behind.
		if n, err := e.lookup(anchor); err == nil && len(n.Choices) > 0 {
			if scene, err := e.ResolveNode(ctx, anchor); err == nil {
				scene.Content = apologyLine + "\n\n" + scene.Content
				scene.Recovered = true
				e.lastScene = cloneScene(scene)
				e.emitRecovery(ctx, missing, domain.RecoveryPrevious, anchor)
				return scene
			}
		}
	}

	id := e.crossroadsNodeID
	e.session.State.Synthetic[id] = e.crossroadsNode(missing)

	scene, err := e.ResolveNode(ctx, id)
	if err != nil {
		// Unreachable: the node was just materialized.
		scene = &domain.Scene{NodeID: id, Content: crossroadsBody, Choices: e.crossroadsNode(missing).Choices}
	}
	scene.Recovered = true
	e.lastScene = cloneScene(scene)
	e.emitRecovery(ctx, missing, domain.RecoveryCrossroads, id)
	return scene
}

func (e *Engine) crossroadsNode(missing string) domain.Node {
	texts := []struct{ id, text string }{
		{"continue_left_path", "Go left and explore the unknown trail"},
		{"continue_right_path", "Go right and look for a familiar landmark"},
		{"explore_center", "Examine the strange symbol at the center of the crossroads"},
	}
	choices := make([]domain.Choice, 0, len(texts))
	for i, t := range texts {
		next := e.continuation[0]
		if i < len(e.continuation) {
			next = e.continuation[i]
		}
		choices = append(choices, domain.Choice{ID: t.id, Text: t.text, NextNode: next})
	}

	intro := "We hit a small obstacle on the story's path. Don't worry, the adventure continues from here!"
	if missing != "" {
		intro = fmt.Sprintf("We hit a small obstacle on the story's path (node: %s). Don't worry, the adventure continues from here!", missing)
	}
	return domain.Node{
		ID:              e.crossroadsNodeID,
		Description:     "A crossroads in the mist",
		Content:         intro + "\n\n" + crossroadsBody,
		Choices:         choices,
		FallbackContent: crossroadsBody,
		Metadata:        map[string]string{"synthetic": "true"},
	}
}
