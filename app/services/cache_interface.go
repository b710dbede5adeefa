package services

import (
	"context"
	"time"

	"github.com/address-tagger/app/models"
)

// CacheStats summarizes cache usage.
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

func hitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

// ICacheService caches tag results keyed by models.RawFingerprint.
type ICacheService interface {
	Get(ctx context.Context, key string) (*models.TagResult, bool, error)
	Set(ctx context.Context, key string, result *models.TagResult) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// InvalidateByGazetteerVersion drops every entry built against a
	// gazetteer version other than the given one.
	InvalidateByGazetteerVersion(ctx context.Context, gazetteerVersion string) error

	GetStats(ctx context.Context) (*CacheStats, error)
	Exists(ctx context.Context, key string) (bool, error)
	GetTTL(ctx context.Context, key string) (time.Duration, error)
	Close() error
}

// L1Reporter is implemented by caches that keep an in-process tier.
type L1Reporter interface {
	GetL1Stats() map[string]interface{}
}
