package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/plotforge"
	"github.com/aretw0/plotforge/pkg/adapters/memory"
	"github.com/aretw0/plotforge/pkg/adapters/redis"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/repository"
	"github.com/aretw0/plotforge/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBase(t *testing.T, opts ...plotforge.Option) *plotforge.Engine {
	t.Helper()
	set, err := repository.New(&domain.Graph{Nodes: map[string]domain.Node{
		"start": {ID: "start", Content: "A fork in the road.", FallbackContent: "fork", Choices: []domain.Choice{
			{ID: "left", Text: "Go left", NextNode: "left", Effects: map[string]float64{"steps": 1}},
		}},
		"left": {ID: "left", Content: "The left path.", FallbackContent: "left", Choices: []domain.Choice{
			{ID: "back", Text: "Go back", NextNode: "start", Effects: map[string]float64{"steps": 1}},
		}},
	}})
	require.NoError(t, err)

	eng, err := plotforge.New("", append([]plotforge.Option{plotforge.WithNodeSet(set)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func TestManager_StartChooseCurrent(t *testing.T) {
	mgr := session.NewManager(newBase(t))
	ctx := context.Background()

	scene, err := mgr.Start(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "start", scene.NodeID)

	scene, err = mgr.Choose(ctx, "alice", "left")
	require.NoError(t, err)
	assert.Equal(t, "left", scene.NodeID)

	current, err := mgr.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "left", current.NodeID)

	_, err = mgr.Choose(ctx, "alice", "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)
}

func TestManager_UnknownSession(t *testing.T) {
	mgr := session.NewManager(newBase(t))
	ctx := context.Background()

	_, err := mgr.Current(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = mgr.Choose(ctx, "ghost", "1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = mgr.Current(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	mgr := session.NewManager(newBase(t))
	ctx := context.Background()

	_, err := mgr.Start(ctx, "a")
	require.NoError(t, err)
	_, err = mgr.Start(ctx, "b")
	require.NoError(t, err)
	_, err = mgr.Choose(ctx, "a", "1")
	require.NoError(t, err)

	a, err := mgr.Current(ctx, "a")
	require.NoError(t, err)
	b, err := mgr.Current(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "left", a.NodeID)
	assert.Equal(t, "start", b.NodeID)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestManager_ConcurrentChoicesAreSerialized(t *testing.T) {
	mgr := session.NewManager(newBase(t))
	ctx := context.Background()
	_, err := mgr.Start(ctx, "race")
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Choose(ctx, "race", "1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var steps float64
	require.NoError(t, mgr.WithSession(ctx, "race", func(ctx context.Context, eng *plotforge.Engine) error {
		steps = eng.Session().State.Variables["steps"]
		return nil
	}))
	assert.Equal(t, float64(n), steps, "no choice may be lost")
}

func TestManager_DeleteAndHistory(t *testing.T) {
	mgr := session.NewManager(newBase(t))
	ctx := context.Background()

	_, err := mgr.Start(ctx, "s")
	require.NoError(t, err)
	_, err = mgr.Choose(ctx, "s", "1")
	require.NoError(t, err)

	log, err := mgr.History(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, log, 2)

	text, err := mgr.Export(ctx, "s")
	require.NoError(t, err)
	assert.Contains(t, text, "The left path.")

	require.NoError(t, mgr.Delete(ctx, "s"))
	_, err = mgr.Current(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_ResumesFromSharedStore(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	first := session.NewManager(newBase(t, plotforge.WithStore(store)))
	_, err := first.Start(ctx, "s")
	require.NoError(t, err)
	_, err = first.Choose(ctx, "s", "1")
	require.NoError(t, err)

	second := session.NewManager(newBase(t, plotforge.WithStore(store)))
	scene, err := second.Current(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "left", scene.NodeID)
}

func TestManager_DistributedLockReloadsState(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	replicaA := session.NewManager(newBase(t, plotforge.WithStore(store)), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	replicaB := session.NewManager(newBase(t, plotforge.WithStore(store)), session.WithLocker(locker), session.WithLockTTL(5*time.Second))

	_, err := replicaA.Start(ctx, "shared")
	require.NoError(t, err)
	_, err = replicaB.Current(ctx, "shared")
	require.NoError(t, err)

	_, err = replicaA.Choose(ctx, "shared", "1")
	require.NoError(t, err)

	scene, err := replicaB.Current(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "left", scene.NodeID, "replica B must see replica A's move")
	assert.False(t, mr.Exists("test:lock:shared"), "lock released after each call")
}
