package services

import (
	"context"
	"testing"
	"time"

	"github.com/address-tagger/app/models"
	"github.com/address-tagger/app/requests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdminService_GetSystemStats(t *testing.T) {
	ctx := context.Background()
	as := newTestAddressService(t, ruleTagger{}, NewCacheService(time.Hour))
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	_, _, err := as.TagAddress(ctx, sampleAddress, requests.TagOptions{UseCache: true})
	require.NoError(t, err)

	stats, err := admin.GetSystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Tag.Tagged)
	require.NotNil(t, stats.Cache)
	assert.Equal(t, int64(1), stats.Cache.TotalItems)
	assert.Contains(t, stats.MemoryUsage, "alloc_mb")
	assert.Positive(t, stats.Goroutines)
}

func TestAdminService_InvalidateCache(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(time.Hour)
	as := newTestAddressService(t, ruleTagger{}, cache)
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	require.NoError(t, cache.Set(ctx, "stale", result("x", "old")))
	_, _, err := as.TagAddress(ctx, sampleAddress, requests.TagOptions{UseCache: true})
	require.NoError(t, err)
	require.Equal(t, 2, cache.Size())

	kept, err := admin.InvalidateCache(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, as.gazetteer.Version(), kept)
	assert.Equal(t, 1, cache.Size())

	_, err = admin.InvalidateCache(ctx, "", true)
	require.NoError(t, err)
	assert.Zero(t, cache.Size())
}

func TestAdminService_InvalidateWithoutCache(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	_, err := admin.InvalidateCache(context.Background(), "", false)
	assert.Error(t, err)
}

func TestAdminService_SeedSearchIndex(t *testing.T) {
	idx := &fakeIndex{}
	gz := newTestGazetteer(t, idx)
	admin := NewAdminService(nil, newTestAddressService(t, ruleTagger{}, nil), gz, zap.NewNop())

	res, err := admin.SeedSearchIndex(context.Background(), 100, true)
	require.NoError(t, err)
	assert.Equal(t, 5, res.DocumentsIndexed)
	assert.True(t, res.IndexesBuilt)
}

// tieredCache is an in-memory cache that also reports an L1 tier.
type tieredCache struct {
	*CacheService
}

func (t tieredCache) GetL1Stats() map[string]interface{} {
	return map[string]interface{}{"l1_size": t.Size()}
}

func TestAdminService_GetSystemStats_L1(t *testing.T) {
	ctx := context.Background()
	cache := tieredCache{NewCacheService(time.Hour)}
	as := newTestAddressService(t, ruleTagger{}, NewHybridCacheService(NewCacheService(time.Hour), cache, zap.NewNop()))
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	_, _, err := as.TagAddress(ctx, sampleAddress, requests.TagOptions{UseCache: true})
	require.NoError(t, err)

	stats, err := admin.GetSystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"l1_size": 1}, stats.CacheL1)
}

func TestAdminService_GetSystemStats_NoL1(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, NewCacheService(time.Hour))
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	stats, err := admin.GetSystemStats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.CacheL1)
}

func TestAdminService_InvalidateAddress(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(time.Hour)
	as := newTestAddressService(t, ruleTagger{}, cache)
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	_, _, err := as.TagAddress(ctx, sampleAddress, requests.TagOptions{UseCache: true})
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "other", result("x", as.gazetteer.Version())))

	entry, err := admin.LookupCacheEntry(ctx, sampleAddress)
	require.NoError(t, err)
	assert.Equal(t, models.RawFingerprint(sampleAddress), entry.Key)
	assert.True(t, entry.Exists)
	assert.Positive(t, entry.TTL)
	assert.LessOrEqual(t, entry.TTL, time.Hour)

	key, err := admin.InvalidateAddress(ctx, sampleAddress)
	require.NoError(t, err)
	assert.Equal(t, models.RawFingerprint(sampleAddress), key)
	assert.Equal(t, 1, cache.Size(), "only the named address is dropped")

	entry, err = admin.LookupCacheEntry(ctx, sampleAddress)
	require.NoError(t, err)
	assert.False(t, entry.Exists)
	assert.Zero(t, entry.TTL)
}

func TestAdminService_CacheEntryWithoutCache(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)
	admin := NewAdminService(nil, as, as.gazetteer, zap.NewNop())

	_, err := admin.InvalidateAddress(context.Background(), sampleAddress)
	assert.ErrorIs(t, err, errCacheDisabled)
	_, err = admin.LookupCacheEntry(context.Background(), sampleAddress)
	assert.ErrorIs(t, err, errCacheDisabled)
}
