package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResponseCacheContract verifies that a ResponseCache implementation
// honours the interface contract.
func RunResponseCacheContract(t *testing.T, cache ResponseCache) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "GET /api/orders", []byte(`[1,2]`), time.Minute))

		got, ok, err := cache.Get(ctx, "GET /api/orders")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `[1,2]`, string(got))
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalidate Keys", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))

		n, err := cache.Invalidate(ctx, "a", "b", "never-set")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, ok, _ := cache.Get(ctx, "a")
		assert.False(t, ok, "a should be gone")
	})

	t.Run("Invalidate Prefix", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "users:1", []byte("x"), 0))
		require.NoError(t, cache.Set(ctx, "users:2", []byte("y"), 0))
		require.NoError(t, cache.Set(ctx, "orders:1", []byte("z"), 0))

		n, err := cache.InvalidatePrefix(ctx, "users:")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, ok, _ := cache.Get(ctx, "orders:1")
		assert.True(t, ok, "other prefixes survive")
	})

	t.Run("Invalidate Nothing", func(t *testing.T) {
		n, err := cache.Invalidate(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
