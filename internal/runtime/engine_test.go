package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/plotforge/internal/runtime"
	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func nodeSet(t *testing.T, nodes ...domain.Node) *repository.NodeSet {
	t.Helper()
	g := &domain.Graph{
		Nodes:      map[string]domain.Node{},
		Framework:  domain.Framework{Background: "A lighthouse at the edge of the world"},
		Characters: domain.Characters{"keeper": {"name": "Odile"}},
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
	}
	set, err := repository.New(g)
	require.NoError(t, err)
	return set
}

func staticNode(id, content string, choices ...domain.Choice) domain.Node {
	if choices == nil {
		choices = []domain.Choice{}
	}
	return domain.Node{ID: id, Content: content, Choices: choices, FallbackContent: "fallback " + id}
}

func generativeNode(id string, choices ...domain.Choice) domain.Node {
	if choices == nil {
		choices = []domain.Choice{}
	}
	return domain.Node{ID: id, Description: "plot of " + id, RequiresGeneration: true, Choices: choices, FallbackContent: "fallback " + id}
}

func to(id, next string) domain.Choice {
	return domain.Choice{ID: id, Text: "go to " + next, NextNode: next}
}

// Scenario A: static start leads to a terminal end node.
func TestEngine_StaticStoryToTerminal(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t,
		staticNode("start", "You wake up.", to("c1", "end")),
		staticNode("end", "The end."),
	)
	engine := runtime.NewEngine(set, nil, nil, runtime.WithClock(fixedClock))

	scene := engine.StartNewStory(ctx)
	assert.Equal(t, "start", scene.NodeID)
	assert.Equal(t, "You wake up.", scene.Content)
	require.Len(t, scene.Choices, 1)
	assert.False(t, scene.Terminal)

	scene = engine.ApplyChoice(ctx, scene.Choices[0])
	assert.Equal(t, "The end.", scene.Content)
	assert.Empty(t, scene.Choices)
	assert.NotNil(t, scene.Choices)
	assert.True(t, scene.Terminal)
	assert.Equal(t, "end", engine.Session().CurrentNodeID)
	assert.Equal(t, 2, engine.TotalNodeCount())
}

// Scenario B: generated content is parsed into markers-free prose and choices.
func TestEngine_GeneratedNode(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t,
		staticNode("start", "Begin.", to("c1", "N")),
		generativeNode("N", to("authored", "start")),
	)
	gen := memory.NewGenerator("Text...\n[Option 1] Go left\n[Option 2] Go right")
	engine := runtime.NewEngine(set, gen, nil)

	engine.StartNewStory(ctx)
	scene, err := engine.ResolveNode(ctx, "N")
	require.NoError(t, err)

	assert.True(t, scene.Generated)
	assert.Equal(t, "Text...", scene.Content)
	require.Len(t, scene.Choices, 2)
	assert.Equal(t, "Go left", scene.Choices[0].Text)
	assert.Equal(t, "start", scene.Choices[0].NextNode)
	assert.Equal(t, "alternative_path", scene.Choices[1].NextNode)
	assert.NotContains(t, scene.Content, "[Option")

	// Generated text is session-scoped: the shared node is untouched.
	n, err := engine.Nodes().Lookup("N")
	require.NoError(t, err)
	assert.Empty(t, n.Content)
}

// Scenario C: a transport failure yields the fallback content and authored choices.
func TestEngine_GenerationFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	authored := []domain.Choice{to("a", "start"), to("b", "start")}
	set := nodeSet(t, staticNode("start", "Begin."), generativeNode("N", authored...))

	var outcomes []domain.GenerationOutcome
	hooks := domain.LifecycleHooks{
		OnGeneration: func(_ context.Context, e *domain.GenerationEvent) {
			outcomes = append(outcomes, e.Outcome)
		},
	}

	gen := memory.NewFailingGenerator(errors.New("connection refused"))
	engine := runtime.NewEngine(set, gen, nil, runtime.WithLifecycleHooks(hooks))

	scene, err := engine.ResolveNode(ctx, "N")
	require.NoError(t, err)
	assert.Equal(t, "fallback N", scene.Content)
	assert.Equal(t, authored, scene.Choices)
	assert.False(t, scene.Generated)
	assert.Equal(t, []domain.GenerationOutcome{domain.GenerationFallback}, outcomes)
}

func TestEngine_NoGeneratorFallsBack(t *testing.T) {
	set := nodeSet(t, generativeNode("N", to("a", "N")))
	engine := runtime.NewEngine(set, nil, nil)

	scene, err := engine.ResolveNode(context.Background(), "N")
	require.NoError(t, err)
	assert.Equal(t, "fallback N", scene.Content)
}

func TestEngine_GenerationTimeoutFallsBack(t *testing.T) {
	set := nodeSet(t, generativeNode("N", to("a", "N")))
	engine := runtime.NewEngine(set, memory.NewGenerator("never used"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scene, err := engine.ResolveNode(ctx, "N")
	require.NoError(t, err)
	assert.Equal(t, "fallback N", scene.Content)
}

func TestEngine_UnmarkedReplyKeepsAuthoredChoices(t *testing.T) {
	authored := []domain.Choice{to("a", "N")}
	set := nodeSet(t, generativeNode("N", authored...))
	engine := runtime.NewEngine(set, memory.NewGenerator("Just prose, no markers."), nil)

	scene, err := engine.ResolveNode(context.Background(), "N")
	require.NoError(t, err)
	assert.Equal(t, "Just prose, no markers.", scene.Content)
	assert.Equal(t, authored, scene.Choices)
	assert.True(t, scene.Generated)
}

// Scenario D: a missing target returns to the second-to-last visited node.
func TestEngine_RecoveryPreviousNode(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t,
		staticNode("start", "Start.", to("c1", "middle")),
		staticNode("middle", "Middle.", to("c2", "ghost")),
	)

	var tiers []domain.RecoveryTier
	engine := runtime.NewEngine(set, nil, nil, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnRecovery: func(_ context.Context, e *domain.RecoveryEvent) { tiers = append(tiers, e.Tier) },
	}))

	scene := engine.StartNewStory(ctx)
	scene = engine.ApplyChoice(ctx, scene.Choices[0])
	require.Equal(t, "middle", scene.NodeID)

	scene = engine.ApplyChoice(ctx, scene.Choices[0])

	assert.True(t, scene.Recovered)
	assert.Contains(t, scene.Content, "return to an earlier decision point")
	assert.Contains(t, scene.Content, "Start.")
	require.NotEmpty(t, scene.Choices)
	assert.Equal(t, "middle", scene.Choices[0].NextNode)
	assert.Equal(t, "start", engine.Session().CurrentNodeID)
	assert.Equal(t, []domain.RecoveryTier{domain.RecoveryPrevious}, tiers)
}

func TestEngine_RecoveryCrossroads(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t,
		staticNode("start", "Start.", to("c1", "ghost")),
		staticNode("strange_occurrence", "Strange."),
	)
	engine := runtime.NewEngine(set, nil, nil)

	scene := engine.StartNewStory(ctx)
	scene = engine.ApplyChoice(ctx, scene.Choices[0])

	assert.True(t, scene.Recovered)
	assert.Equal(t, domain.DefaultCrossroadsNodeID, scene.NodeID)
	assert.Contains(t, scene.Content, "ghost")
	require.Len(t, scene.Choices, 3)
	assert.Equal(t, domain.DefaultContinuationNodes[0], scene.Choices[0].NextNode)

	// The cursor names a resolvable node.
	sess := engine.Session()
	assert.Equal(t, domain.DefaultCrossroadsNodeID, sess.CurrentNodeID)
	again, err := engine.ResolveNode(ctx, sess.CurrentNodeID)
	require.NoError(t, err)
	assert.Len(t, again.Choices, 3)

	// And the story can move on from it.
	next := engine.ApplyChoice(ctx, scene.Choices[0])
	assert.Equal(t, "strange_occurrence", next.NodeID)
}

func TestEngine_RecoverySkipsTerminalAnchor(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t,
		staticNode("start", "Start.", to("c1", "ghost")),
		staticNode("end", "End."),
	)
	engine := runtime.NewEngine(set, nil, nil)

	_, err := engine.ResolveNode(ctx, "end")
	require.NoError(t, err)
	_, err = engine.ResolveNode(ctx, "start")
	require.NoError(t, err)

	scene := engine.ApplyChoice(ctx, to("x", "ghost"))
	assert.Equal(t, domain.DefaultCrossroadsNodeID, scene.NodeID)
	assert.NotEmpty(t, scene.Choices)
}

func TestEngine_RecoverySkipsAnchorWithoutAuthoredChoices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := memory.NewGenerator("Fog everywhere, no way forward.")
	set := nodeSet(t,
		staticNode("start", "Start.", to("c1", "ghost")),
		domain.Node{ID: "wander", RequiresGeneration: true, FallbackContent: "Fog.", Choices: []domain.Choice{}},
		staticNode("strange_occurrence", "Strange."),
	)
	engine := runtime.NewEngine(set, gen, store)

	_, err := engine.ResolveNode(ctx, "wander")
	require.NoError(t, err)
	_, err = engine.ResolveNode(ctx, "start")
	require.NoError(t, err)

	scene := engine.ApplyChoice(ctx, to("x", "ghost"))
	assert.Equal(t, domain.DefaultCrossroadsNodeID, scene.NodeID)
	assert.Equal(t, 1, gen.Calls(), "the anchor is not generated again")

	log, err := engine.HistoryLog(ctx)
	require.NoError(t, err)
	var visited []string
	for _, snap := range log {
		require.NotNil(t, snap.CurrentNode)
		visited = append(visited, *snap.CurrentNode)
	}
	assert.Equal(t, []string{"wander", "start", domain.DefaultCrossroadsNodeID}, visited)
}

func TestEngine_EmptyNextNodeRecovers(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t, staticNode("start", "Start.", to("c1", "start")))
	engine := runtime.NewEngine(set, nil, nil)
	engine.StartNewStory(ctx)

	scene := engine.ApplyChoice(ctx, domain.Choice{ID: "broken", Text: "broken"})
	assert.NotEmpty(t, scene.Choices)
	assert.True(t, scene.Recovered)
}

func TestEngine_DeadEndAvoidance(t *testing.T) {
	ctx := context.Background()
	engine := runtime.NewEngine(repository.Default(), memory.NewGenerator("prose\n[Option 1] a"), nil)
	engine.StartNewStory(ctx)

	for i := 0; i < 20; i++ {
		scene := engine.ApplyChoice(ctx, to("x", fmt.Sprintf("ghost_%d", i)))
		require.NotEmpty(t, scene.Choices, "iteration %d", i)
		assert.NotEqual(t, "", engine.Session().CurrentNodeID)
	}
}

func TestEngine_ResolveNodeNotFound(t *testing.T) {
	engine := runtime.NewEngine(repository.Default(), nil, nil)
	_, err := engine.ResolveNode(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestEngine_StartNewStoryWelcomeFallback(t *testing.T) {
	set := nodeSet(t, staticNode("other", "Other."))
	engine := runtime.NewEngine(set, nil, nil, runtime.WithEntryNode("missing_start"))

	scene := engine.StartNewStory(context.Background())
	assert.True(t, scene.Recovered)
	require.Len(t, scene.Choices, 1)
	assert.Equal(t, "missing_start", scene.Choices[0].NextNode)
	assert.NotEmpty(t, scene.Content)
}

func TestEngine_ValidIdsYieldContent(t *testing.T) {
	ctx := context.Background()
	set := repository.Default()
	engine := runtime.NewEngine(set, memory.NewFailingGenerator(errors.New("offline")), nil)

	for _, id := range set.IDs() {
		scene, err := engine.ResolveNode(ctx, id)
		require.NoError(t, err, id)
		assert.NotEmpty(t, scene.Content, id)
		assert.NotNil(t, scene.Choices, id)
		n, _ := set.Lookup(id)
		assert.Equal(t, n.IsTerminal(), len(scene.Choices) == 0, id)
	}
}

func TestEngine_HistoryBound(t *testing.T) {
	ctx := context.Background()
	var nodes []domain.Node
	for i := 0; i < 8; i++ {
		nodes = append(nodes, staticNode(fmt.Sprintf("n%d", i), fmt.Sprintf("content %d", i), to("next", fmt.Sprintf("n%d", i+1))))
	}
	engine := runtime.NewEngine(nodeSet(t, nodes...), nil, nil, runtime.WithMaxHistoryLength(3))

	for i := 0; i < 8; i++ {
		_, err := engine.ResolveNode(ctx, fmt.Sprintf("n%d", i))
		require.NoError(t, err)
	}

	h := engine.History()
	require.Len(t, h, 3)
	assert.Equal(t, "n5", h[0].NodeID)
	assert.Equal(t, "n6", h[1].NodeID)
	assert.Equal(t, "n7", h[2].NodeID)
}

func TestEngine_EffectsAccumulate(t *testing.T) {
	ctx := context.Background()
	c := domain.Choice{ID: "brave", Text: "Be brave", NextNode: "start", Effects: map[string]float64{"courage": 1.5}}
	engine := runtime.NewEngine(nodeSet(t, staticNode("start", "Start.", c)), nil, nil)
	engine.StartNewStory(ctx)

	engine.ApplyChoice(ctx, c)
	engine.ApplyChoice(ctx, c)

	sess := engine.Session()
	assert.Equal(t, 3.0, sess.State.Variables["courage"])
	assert.Equal(t, "Be brave", sess.State.LastChoiceText)

	sel, err := engine.LastSelectedChoice(ctx)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, "Be brave", sel.Text)
	assert.Equal(t, "start", sel.NextNode)
}

func TestEngine_ChoiceConditions(t *testing.T) {
	ctx := context.Background()
	gain := domain.Choice{ID: "gain", Text: "Train", NextNode: "hub", Effects: map[string]float64{"courage": 1}}
	set := nodeSet(t,
		staticNode("hub", "The hub.",
			gain,
			domain.Choice{ID: "door", Text: "Open the door", NextNode: "hub", Condition: "courage >= 2"},
		),
		staticNode("locked", "Locked.",
			domain.Choice{ID: "never", Text: "Never", NextNode: "hub", Condition: "courage > 100"},
		),
	)
	engine := runtime.NewEngine(set, nil, nil, runtime.WithEntryNode("hub"))

	scene := engine.StartNewStory(ctx)
	assert.Len(t, scene.Choices, 1)

	scene = engine.ApplyChoice(ctx, gain)
	assert.Len(t, scene.Choices, 1)

	scene = engine.ApplyChoice(ctx, gain)
	assert.Len(t, scene.Choices, 2)

	// Filtering never hides every choice of a non-terminal node.
	scene, err := engine.ResolveNode(ctx, "locked")
	require.NoError(t, err)
	assert.Len(t, scene.Choices, 1)
	assert.False(t, scene.Terminal)
}

func TestEngine_PromptCarriesContext(t *testing.T) {
	ctx := context.Background()
	set := nodeSet(t,
		staticNode("start", "The lamp is lit.", domain.Choice{ID: "climb", Text: "Climb the stairs", NextNode: "N"}),
		generativeNode("N"),
	)
	gen := memory.NewGenerator("The stairs creak.\n[Option 1] Keep going")
	engine := runtime.NewEngine(set, gen, nil)

	scene := engine.StartNewStory(ctx)
	engine.ApplyChoice(ctx, scene.Choices[0])

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	p := prompts[0]
	assert.Contains(t, p, "A lighthouse at the edge of the world")
	assert.Contains(t, p, `- keeper: {"name":"Odile"}`)
	assert.Contains(t, p, "Current plot: plot of N")
	assert.Contains(t, p, "The reader just chose: Climb the stairs")
	assert.Contains(t, p, "1. The lamp is lit....")
	assert.Contains(t, p, "[Option 3] option text")
}

func TestEngine_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var resolved []string
	hooks := domain.LifecycleHooks{
		OnNodeResolved: func(_ context.Context, e *domain.NodeEvent) {
			resolved = append(resolved, e.NodeID)
		},
	}
	set := nodeSet(t, staticNode("start", "s", to("c", "end")), staticNode("end", "e"))
	engine := runtime.NewEngine(set, nil, nil, runtime.WithLifecycleHooks(hooks))

	scene := engine.StartNewStory(ctx)
	engine.ApplyChoice(ctx, scene.Choices[0])

	assert.Equal(t, []string{"start", "end"}, resolved)
}
