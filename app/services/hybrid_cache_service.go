package services

import (
	"context"
	"errors"
	"time"

	"github.com/address-tagger/app/models"
	"go.uber.org/zap"
)

// HybridCacheService layers a fast L1 (Redis) over a persistent L2 (MongoDB).
type HybridCacheService struct {
	l1     ICacheService
	l2     ICacheService
	logger *zap.Logger
}

var _ ICacheService = (*HybridCacheService)(nil)

// NewHybridCacheService layers l1 in front of l2.
func NewHybridCacheService(l1, l2 ICacheService, logger *zap.Logger) *HybridCacheService {
	return &HybridCacheService{l1: l1, l2: l2, logger: logger}
}

// Get checks L1 first and promotes L2 hits back into L1 in the background.
// An L1 error falls through to L2.
func (hcs *HybridCacheService) Get(ctx context.Context, key string) (*models.TagResult, bool, error) {
	result, found, err := hcs.l1.Get(ctx, key)
	if err != nil {
		hcs.logger.Warn("L1 cache failed, falling back to L2", zap.Error(err))
	} else if found {
		hcs.logger.Debug("L1 cache hit", zap.String("key", key))
		return result, true, nil
	}

	result, found, err = hcs.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := hcs.l1.Set(bgCtx, key, result); err != nil {
			hcs.logger.Warn("Failed to promote L2 entry to L1", zap.Error(err), zap.String("key", key))
		}
	}()

	hcs.logger.Debug("L2 cache hit", zap.String("key", key))
	return result, true, nil
}

// both runs fn against the two tiers concurrently and joins their errors.
func (hcs *HybridCacheService) both(fn func(ICacheService) error) error {
	errCh := make(chan error, 2)
	for _, c := range []ICacheService{hcs.l1, hcs.l2} {
		go func(c ICacheService) { errCh <- fn(c) }(c)
	}
	return errors.Join(<-errCh, <-errCh)
}

// Set writes both tiers concurrently and fails only when both do.
func (hcs *HybridCacheService) Set(ctx context.Context, key string, result *models.TagResult) error {
	errCh := make(chan error, 2)
	for _, c := range []ICacheService{hcs.l1, hcs.l2} {
		go func(c ICacheService) { errCh <- c.Set(ctx, key, result) }(c)
	}

	e1, e2 := <-errCh, <-errCh
	if e1 != nil && e2 != nil {
		return errors.Join(e1, e2)
	}
	if err := errors.Join(e1, e2); err != nil {
		hcs.logger.Warn("Cache set failed on one tier", zap.Error(err), zap.String("key", key))
	}
	return nil
}

func (hcs *HybridCacheService) Delete(ctx context.Context, key string) error {
	return hcs.both(func(c ICacheService) error { return c.Delete(ctx, key) })
}

func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	return hcs.both(func(c ICacheService) error { return c.Clear(ctx) })
}

func (hcs *HybridCacheService) InvalidateByGazetteerVersion(ctx context.Context, gazetteerVersion string) error {
	return hcs.both(func(c ICacheService) error {
		return c.InvalidateByGazetteerVersion(ctx, gazetteerVersion)
	})
}

// GetStats sums hit counters from both tiers; the item count is L2's, which
// holds every entry.
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	s1, err := hcs.l1.GetStats(ctx)
	if err != nil {
		hcs.logger.Warn("Failed to read L1 stats", zap.Error(err))
		s1 = &CacheStats{}
	}
	s2, err := hcs.l2.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	hits := s1.TotalHits + s2.TotalHits
	misses := s2.TotalMiss
	return &CacheStats{
		HitRate:    hitRate(hits, misses),
		TotalHits:  hits,
		TotalMiss:  misses,
		TotalItems: s2.TotalItems,
	}, nil
}

func (hcs *HybridCacheService) Exists(ctx context.Context, key string) (bool, error) {
	if ok, err := hcs.l1.Exists(ctx, key); err == nil && ok {
		return true, nil
	}
	return hcs.l2.Exists(ctx, key)
}

func (hcs *HybridCacheService) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return hcs.l1.GetTTL(ctx, key)
}

// GetL1Stats reports the in-process tier of whichever layer has one, or nil.
func (hcs *HybridCacheService) GetL1Stats() map[string]interface{} {
	for _, tier := range []ICacheService{hcs.l1, hcs.l2} {
		if r, ok := tier.(L1Reporter); ok {
			return r.GetL1Stats()
		}
	}
	return nil
}

func (hcs *HybridCacheService) Close() error {
	return errors.Join(hcs.l1.Close(), hcs.l2.Close())
}
