package loam_test

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/plotforge/internal/testutils"
	plotloam "github.com/aretw0/plotforge/pkg/adapters/loam"
	"github.com/aretw0/plotforge/pkg/domain"
	contract "github.com/aretw0/plotforge/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSource(t *testing.T, files map[string]string) *plotloam.GraphSource {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))
	testutils.WriteFiles(t, dir, files)
	return plotloam.New(loam.NewTypedRepository[plotloam.NodeMetadata](repo))
}

func TestGraphSource_Contract(t *testing.T) {
	contract.GraphSourceContractTest(t, newSource(t, testutils.LighthouseStory), map[string]string{
		"start":     "The lighthouse keeper is gone.",
		"lamp_room": "",
		"village":   "",
	})
}

func TestGraphSource_Mapping(t *testing.T) {
	g, err := newSource(t, testutils.LighthouseStory).LoadGraph(context.Background())
	require.NoError(t, err)

	start := g.Nodes["start"]
	require.Len(t, start.Choices, 2)
	assert.Equal(t, "lamp_room", start.Choices[0].NextNode)
	assert.Equal(t, "village", start.Choices[1].NextNode, "extensions in targets are trimmed")
	assert.Equal(t, 1.0, start.Choices[0].Effects["courage"])
	assert.Equal(t, "The lighthouse is dark.", start.FallbackContent)

	lamp := g.Nodes["lamp_room"]
	assert.True(t, lamp.RequiresGeneration)
	assert.Equal(t, "The lamp room at the top of the tower", lamp.Description)

	assert.Empty(t, g.Nodes["village"].Choices)

	assert.Equal(t, "A storm coast", g.Framework.Background)
	assert.Equal(t, "quiet", g.Framework.Tone)
	assert.Equal(t, "Oona", g.Characters["keeper"]["name"])
	assert.Equal(t, "Welcome to the coast.", g.Introduction)

	_, isNode := g.Nodes["_world"]
	assert.False(t, isNode, "world document must not become a node")
}

func TestGraphSource_DetectsCollisions(t *testing.T) {
	source := newSource(t, map[string]string{
		"foo.md": `---
id: foo
fallback: a
---
Explicit ID`,
		"foo.json": `{"id": "foo", "fallback": "b"}`,
	})

	_, err := source.LoadGraph(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestGraphSource_Empty(t *testing.T) {
	contract.BrokenSourceContractTest(t, newSource(t, nil))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, testutils.LighthouseStory)

	source, err := plotloam.Open(dir)
	require.NoError(t, err)

	g, err := source.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
}
