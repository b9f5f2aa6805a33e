package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionCache(t *testing.T) (*miniredis.Miniredis, SessionCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, NewRedisSessionCache(rc, "test:", time.Hour)
}

type cachedSummary struct {
	ID         uint `json:"id"`
	Dispatched int  `json:"dispatched"`
}

func TestSessionCache_LatestSession(t *testing.T) {
	mr, cache := setupSessionCache(t)
	ctx := context.Background()

	var out cachedSummary
	found, err := cache.LoadLatestSession(ctx, 1, "call", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.SaveLatestSession(ctx, 1, "call", cachedSummary{ID: 5, Dispatched: 10}))
	assert.True(t, mr.Exists("test:dispatch:last_session:1:call"))
	assert.Equal(t, time.Hour, mr.TTL("test:dispatch:last_session:1:call"))

	found, err = cache.LoadLatestSession(ctx, 1, "call", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedSummary{ID: 5, Dispatched: 10}, out)

	found, err = cache.LoadLatestSession(ctx, 2, "call", &out)
	require.NoError(t, err)
	assert.False(t, found)

	mr.FastForward(2 * time.Hour)
	found, err = cache.LoadLatestSession(ctx, 1, "call", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionCache_AcquireLock(t *testing.T) {
	mr, cache := setupSessionCache(t)
	ctx := context.Background()

	release, ok, err := cache.AcquireLock(ctx, "drain:1:2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = cache.AcquireLock(ctx, "drain:1:2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire the lock")

	release()
	assert.False(t, mr.Exists("test:lock:drain:1:2"))

	release2, ok, err := cache.AcquireLock(ctx, "drain:1:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestSessionCache_Unavailable(t *testing.T) {
	mr, cache := setupSessionCache(t)
	mr.Close()

	_, _, err := cache.AcquireLock(context.Background(), "drain:1:2", time.Minute)
	assert.Error(t, err)
}
