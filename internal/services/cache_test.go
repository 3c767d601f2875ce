package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheFallback(t *testing.T) {
	cache := NewCacheService(nil, 50*time.Millisecond, testLogger())
	ctx := context.Background()

	_, err := cache.Get(ctx, "entity:missing")
	assert.Error(t, err)

	require.NoError(t, cache.Set(ctx, "entity:E10281132020-8", `{"ok":true}`))

	value, err := cache.Get(ctx, "entity:E10281132020-8")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, value)

	// Entries expire after the TTL.
	time.Sleep(60 * time.Millisecond)
	_, err = cache.Get(ctx, "entity:E10281132020-8")
	assert.Error(t, err)
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	cache := NewCacheService(nil, time.Minute, testLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "entity:a", "1"))
	require.NoError(t, cache.Set(ctx, "entity:b", "2"))

	require.NoError(t, cache.Delete(ctx, "entity:a"))
	_, err := cache.Get(ctx, "entity:a")
	assert.Error(t, err)

	require.NoError(t, cache.Clear(ctx))
	_, err = cache.Get(ctx, "entity:b")
	assert.Error(t, err)
}

func TestCleanupRoutineReapsExpiredEntries(t *testing.T) {
	cache := NewCacheService(nil, 10*time.Millisecond, testLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "entity:a", "1"))
	require.NoError(t, cache.Set(ctx, "entity:b", "2"))

	cache.StartCleanupRoutine(5 * time.Millisecond)
	defer cache.StopCleanupRoutine()

	// Expired entries are removed by the background routine, not just
	// lazily on read.
	assert.Eventually(t, func() bool {
		cache.memMutex.RLock()
		defer cache.memMutex.RUnlock()
		return len(cache.memCache) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestStopCleanupRoutineIsIdempotent(t *testing.T) {
	cache := NewCacheService(nil, time.Minute, testLogger())
	cache.StartCleanupRoutine(time.Millisecond)

	cache.StopCleanupRoutine()
	assert.NotPanics(t, func() { cache.StopCleanupRoutine() })
}

func TestCacheStatsWithoutRedis(t *testing.T) {
	cache := NewCacheService(nil, time.Minute, testLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "entity:a", "1"))

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)

	redisStats, ok := stats["redis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, redisStats["available"])

	memStats, ok := stats["memory"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, memStats["size"])
}
