package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	key, err := cache.BuildKey(ctx, "overview", "user-1", "3months")
	require.NoError(t, err)

	var miss Overview
	hit, err := cache.Get(ctx, key, &miss)
	require.NoError(t, err)
	assert.False(t, hit)

	stored := Overview{Period: "3months", Metrics: Metrics{TotalRevenue: 42}}
	require.NoError(t, cache.Set(ctx, key, stored))

	var loaded Overview
	hit, err = cache.Get(ctx, key, &loaded)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stored, loaded)
}

func TestCacheBumpOrphansOldKeys(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	key, err := cache.BuildKey(ctx, "overview", "user-1", "3months")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, key, Overview{Period: "3months"}))

	require.NoError(t, cache.Bump(ctx))

	newKey, err := cache.BuildKey(ctx, "overview", "user-1", "3months")
	require.NoError(t, err)
	assert.NotEqual(t, key, newKey)

	var loaded Overview
	hit, err := cache.Get(ctx, newKey, &loaded)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheNilClientIsNoOp(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(nil, time.Minute)

	key, err := cache.BuildKey(ctx, "overview", "user-1", "3months")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, key, Overview{}))

	var loaded Overview
	hit, err := cache.Get(ctx, key, &loaded)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, cache.Bump(ctx))
}
