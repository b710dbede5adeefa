package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/address-tagger/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func result(raw, version string) *models.TagResult {
	return &models.TagResult{Raw: raw, GazetteerVersion: version}
}

func TestCacheService_GetSet(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(time.Hour)

	_, found, err := cs.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cs.Set(ctx, "k", result("a", "v1")))
	got, found, err := cs.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", got.Raw)

	stats, err := cs.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalHits)
	assert.Equal(t, int64(1), stats.TotalMiss)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCacheService_Expiry(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(10 * time.Millisecond)

	require.NoError(t, cs.Set(ctx, "k", result("a", "v1")))
	time.Sleep(30 * time.Millisecond)

	ok, err := cs.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := cs.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, cs.Size())
}

func TestCacheService_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(0)

	require.NoError(t, cs.Set(ctx, "k", result("a", "v1")))
	cs.CleanupExpired()
	assert.Equal(t, 1, cs.Size())
}

func TestCacheService_InvalidateByGazetteerVersion(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(time.Hour)

	require.NoError(t, cs.Set(ctx, "old", result("a", "v1")))
	require.NoError(t, cs.Set(ctx, "new", result("b", "v2")))

	require.NoError(t, cs.InvalidateByGazetteerVersion(ctx, "v2"))

	_, found, _ := cs.Get(ctx, "old")
	assert.False(t, found)
	_, found, _ = cs.Get(ctx, "new")
	assert.True(t, found)
}

func TestCacheService_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	cs := NewCacheService(time.Hour)

	require.NoError(t, cs.Set(ctx, "a", result("a", "v")))
	require.NoError(t, cs.Set(ctx, "b", result("b", "v")))

	require.NoError(t, cs.Delete(ctx, "a"))
	assert.Equal(t, 1, cs.Size())

	require.NoError(t, cs.Clear(ctx))
	assert.Equal(t, 0, cs.Size())
}

func TestCacheService_CleanupWorkerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cs := NewCacheService(5 * time.Millisecond)
	require.NoError(t, cs.Set(ctx, "k", result("a", "v")))

	cs.StartCleanupWorker(ctx, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return cs.Size() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

type failingCache struct {
	*CacheService
}

var errCacheDown = errors.New("cache down")

func (f failingCache) Get(context.Context, string) (*models.TagResult, bool, error) {
	return nil, false, errCacheDown
}

func (f failingCache) Set(context.Context, string, *models.TagResult) error {
	return errCacheDown
}

func TestHybridCache_PromotesL2Hits(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewCacheService(time.Hour), NewCacheService(time.Hour)
	h := NewHybridCacheService(l1, l2, zap.NewNop())

	require.NoError(t, l2.Set(ctx, "k", result("a", "v1")))

	got, found, err := h.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", got.Raw)

	assert.Eventually(t, func() bool {
		ok, _ := l1.Exists(ctx, "k")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestHybridCache_SetWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewCacheService(time.Hour), NewCacheService(time.Hour)
	h := NewHybridCacheService(l1, l2, zap.NewNop())

	require.NoError(t, h.Set(ctx, "k", result("a", "v1")))
	assert.Equal(t, 1, l1.Size())
	assert.Equal(t, 1, l2.Size())

	require.NoError(t, h.InvalidateByGazetteerVersion(ctx, "v2"))
	assert.Equal(t, 0, l1.Size())
	assert.Equal(t, 0, l2.Size())
}

func TestHybridCache_L1FailureFallsBackToL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewCacheService(time.Hour)
	h := NewHybridCacheService(failingCache{NewCacheService(time.Hour)}, l2, zap.NewNop())

	require.NoError(t, h.Set(ctx, "k", result("a", "v1")), "one healthy tier is enough")

	got, found, err := h.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", got.Raw)
}

func TestHybridCache_SetFailsWhenBothTiersFail(t *testing.T) {
	h := NewHybridCacheService(
		failingCache{NewCacheService(time.Hour)},
		failingCache{NewCacheService(time.Hour)},
		zap.NewNop())

	err := h.Set(context.Background(), "k", result("a", "v1"))
	assert.ErrorIs(t, err, errCacheDown)
}

func TestNewRedisCacheService_BadURL(t *testing.T) {
	_, err := NewRedisCacheService("not-a-url", time.Hour, zap.NewNop())
	assert.ErrorContains(t, err, "parse redis url")
}

func TestHybridCache_GetL1Stats(t *testing.T) {
	h := NewHybridCacheService(NewCacheService(time.Hour), NewCacheService(time.Hour), zap.NewNop())
	assert.Nil(t, h.GetL1Stats())

	h = NewHybridCacheService(NewCacheService(time.Hour), tieredCache{NewCacheService(time.Hour)}, zap.NewNop())
	assert.Equal(t, map[string]interface{}{"l1_size": 0}, h.GetL1Stats())
}
