package plotforge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/internal/testutils"
	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) LoadGraph(context.Context) (*domain.Graph, error) {
	return nil, &domain.ConfigError{Source: "broken", Err: errors.New("unreadable")}
}

func TestNew_BuiltInStory(t *testing.T) {
	eng, err := plotforge.New("")
	require.NoError(t, err)

	assert.Equal(t, repository.Default().Count(), eng.TotalNodeCount())
	assert.Equal(t, "start", eng.InitialNodeID())
	assert.Equal(t, repository.DefaultIntroduction, eng.Introduction())
	assert.False(t, eng.Session().Started())
	assert.Nil(t, eng.LastScene())
}

func TestNew_LoamRepository(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, testutils.LighthouseStory)

	eng, err := plotforge.New(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, eng.TotalNodeCount())
	assert.Equal(t, "Welcome to the coast.", eng.Introduction())
	assert.NotEmpty(t, eng.Name)

	scene := eng.StartNewStory(context.Background())
	assert.Equal(t, "start", scene.NodeID)
	assert.Equal(t, "The lighthouse keeper is gone.", scene.Content)
}

func TestNew_BrokenSourceFallsBack(t *testing.T) {
	eng, err := plotforge.New("", plotforge.WithGraphSource(failingSource{}))
	require.NoError(t, err)
	assert.Equal(t, repository.Default().Count(), eng.TotalNodeCount())
}

func TestEngine_ChooseByIDAndOrdinal(t *testing.T) {
	eng, err := plotforge.New("")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.Choose(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrInvalidChoice, "no active scene yet")

	eng.StartNewStory(ctx)
	scene, err := eng.Choose(ctx, "put_back")
	require.NoError(t, err)
	assert.Equal(t, "alternative_path", scene.NodeID)

	scene, err = eng.Choose(ctx, " 2 ")
	require.NoError(t, err)
	assert.Equal(t, "normal_life", scene.NodeID)
	assert.Equal(t, 1.0, eng.Session().State.Variables["relief"])

	_, err = eng.Choose(ctx, "0")
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)
	_, err = eng.Choose(ctx, "fly")
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)

	last, err := eng.LastSelectedChoice(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "normal_life", last.NextNode)
}

func TestEngine_ForSessionSharesStore(t *testing.T) {
	store := memory.NewStore()
	base, err := plotforge.New("", plotforge.WithStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	a := base.ForSession("a")
	a.StartNewStory(ctx)
	_, err = a.Choose(ctx, "read_more")
	require.NoError(t, err)

	b := base.ForSession("b")
	assert.ErrorIs(t, b.Init(ctx), domain.ErrNoRecoverableState)

	reloaded := base.ForSession("a")
	require.NoError(t, reloaded.Init(ctx))
	assert.Equal(t, "strange_occurrence", reloaded.Session().CurrentNodeID)
	assert.Equal(t, "a", reloaded.SessionID())

	keys, err := store.Keys(ctx, "a:")
	require.NoError(t, err)
	assert.Contains(t, keys, "a:"+domain.KeySession)
}

func TestEngine_ResetClearsProgress(t *testing.T) {
	eng, err := plotforge.New("", plotforge.WithSessionID("solo"))
	require.NoError(t, err)
	ctx := context.Background()

	eng.StartNewStory(ctx)
	require.NoError(t, eng.Reset(ctx))

	assert.False(t, eng.Session().Started())
	text, err := eng.ExportNarrative(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)
	log, err := eng.HistoryLog(ctx)
	require.NoError(t, err)
	assert.Empty(t, log)
}
