package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/openportal/pkg/adapters/redis"
	"github.com/aretw0/openportal/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ResponseCache = (*redis.Cache)(nil)

func newCache(t *testing.T, opts ...redis.Option) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	cache := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisCache_Contract(t *testing.T) {
	cache, _ := newCache(t)
	ports.RunResponseCacheContract(t, cache)
}

func TestRedisCache_TTL_Expiration(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "GET /users", []byte("[]"), time.Second))
	_, ok, err := cache.Get(ctx, "GET /users")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = cache.Get(ctx, "GET /users")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire")
}

func TestRedisCache_Prefix(t *testing.T) {
	cache, mr := newCache(t, redis.WithPrefix("app:"), redis.WithScanCount(1))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "users:1", []byte("x"), 0))
	assert.True(t, mr.Exists("app:users:1"))

	// Foreign keys outside the cache namespace are never touched.
	require.NoError(t, mr.Set("users:9", "foreign"))

	for _, k := range []string{"users:2", "users:3", "users:4"} {
		require.NoError(t, cache.Set(ctx, k, []byte("y"), 0))
	}
	n, err := cache.InvalidatePrefix(ctx, "users:")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, mr.Exists("users:9"))
}

func TestRedisCache_GlobCharactersInPrefix(t *testing.T) {
	cache, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q*1", []byte("a"), 0))
	require.NoError(t, cache.Set(ctx, "qx1", []byte("b"), 0))

	n, err := cache.InvalidatePrefix(ctx, "q*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, _ := cache.Get(ctx, "qx1")
	assert.True(t, ok)
}

func TestRedisCache_Ping(t *testing.T) {
	cache, _ := newCache(t)
	require.NoError(t, cache.Ping(context.Background()))
}
