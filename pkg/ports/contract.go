package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContentStoreContract runs a suite of tests to verify that a ContentStore
// implementation adheres to the defined interface contract.
func RunContentStoreContract(t *testing.T, store ContentStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + ":"

	t.Run("Set and Get", func(t *testing.T) {
		key := prefix + "session"
		value := `{"currentNode":"start","storyState":{"variables":{"courage":1}}}`

		require.NoError(t, store.Set(ctx, key, value), "Set should not return error")

		got, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, value, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "exported-narrative-text"
		require.NoError(t, store.Set(ctx, key, "first"))
		require.NoError(t, store.Set(ctx, key, "second"))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("Unicode and special characters", func(t *testing.T) {
		key := prefix + "last-selected-choice/选项"
		value := "走向左边的小路\n[Option 1] \"quoted\""
		require.NoError(t, store.Set(ctx, key, value))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "to-delete"
		require.NoError(t, store.Set(ctx, key, "x"))

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Delete should return ErrKeyNotFound")

		assert.NoError(t, store.Delete(ctx, key), "Deleting a missing key should be a no-op")
	})

	t.Run("Keys", func(t *testing.T) {
		other := "other-" + prefix
		require.NoError(t, store.Set(ctx, prefix+"k1", "1"))
		require.NoError(t, store.Set(ctx, prefix+"k2", "2"))
		require.NoError(t, store.Set(ctx, other+"k3", "3"))
		defer func() {
			_ = store.Delete(ctx, other+"k3")
		}()

		keys, err := store.Keys(ctx, prefix)
		require.NoError(t, err)
		assert.Contains(t, keys, prefix+"k1")
		assert.Contains(t, keys, prefix+"k2")
		assert.NotContains(t, keys, other+"k3")
		assert.IsNonDecreasing(t, keys)
	})
}
