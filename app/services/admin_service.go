package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/address-tagger/app/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AdminService backs the /v1/admin endpoints.
type AdminService struct {
	db        *mongo.Database
	addresses *AddressService
	gazetteer *GazetteerService
	logger    *zap.Logger
}

// SystemStats is a point-in-time snapshot of the service.
type SystemStats struct {
	Tag           TagStats
	Cache         *CacheStats
	CacheL1       map[string]interface{}
	Uptime        time.Duration
	MemoryUsage   map[string]interface{}
	Goroutines    int
	DatabaseStats DatabaseStats
}

// DatabaseStats counts the MongoDB collections.
type DatabaseStats struct {
	GazetteerDocs int64 `json:"gazetteer_docs"`
	AddressCache  int64 `json:"address_cache"`
}

// SeedResult describes one Meilisearch seeding run.
type SeedResult struct {
	DocumentsIndexed int
	IndexesBuilt     bool
	ProcessingTime   time.Duration
}

var errCacheDisabled = errors.New("result cache is disabled")

// NewAdminService creates an AdminService. db may be nil when MongoDB is not
// configured.
func NewAdminService(db *mongo.Database, addresses *AddressService, gz *GazetteerService, logger *zap.Logger) *AdminService {
	return &AdminService{
		db:        db,
		addresses: addresses,
		gazetteer: gz,
		logger:    logger,
	}
}

// GetSystemStats collects tagging, cache, runtime and database figures.
func (as *AdminService) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &SystemStats{
		Tag:        as.addresses.GetStats(),
		Uptime:     time.Since(as.addresses.GetStartTime()),
		Goroutines: runtime.NumGoroutine(),
		MemoryUsage: map[string]interface{}{
			"alloc_mb":       bToMb(m.Alloc),
			"total_alloc_mb": bToMb(m.TotalAlloc),
			"sys_mb":         bToMb(m.Sys),
			"num_gc":         m.NumGC,
		},
	}

	if cache := as.addresses.Cache(); cache != nil {
		cs, err := cache.GetStats(ctx)
		if err != nil {
			as.logger.Warn("Failed to read cache stats", zap.Error(err))
		} else {
			stats.Cache = cs
		}
		if r, ok := cache.(L1Reporter); ok {
			stats.CacheL1 = r.GetL1Stats()
		}
	}

	if as.db != nil {
		dbStats, err := as.getDatabaseStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("database stats: %w", err)
		}
		stats.DatabaseStats = *dbStats
	}
	return stats, nil
}

func (as *AdminService) getDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	count, err := as.db.Collection("gazetteer").CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.GazetteerDocs = count

	count, err = as.db.Collection("address_cache").CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.AddressCache = count

	return stats, nil
}

// InvalidateCache drops cached results. With all set every entry goes;
// otherwise entries built against another gazetteer version than version
// (default: the loaded one) are removed.
func (as *AdminService) InvalidateCache(ctx context.Context, version string, all bool) (string, error) {
	cache := as.addresses.Cache()
	if cache == nil {
		return "", errCacheDisabled
	}

	if all {
		if err := cache.Clear(ctx); err != nil {
			return "", fmt.Errorf("clear cache: %w", err)
		}
		as.logger.Info("Cleared result cache")
		return "", nil
	}

	if version == "" {
		version = as.gazetteer.Version()
	}
	if err := cache.InvalidateByGazetteerVersion(ctx, version); err != nil {
		return "", fmt.Errorf("invalidate cache: %w", err)
	}
	as.logger.Info("Invalidated result cache", zap.String("kept_version", version))
	return version, nil
}

// SeedSearchIndex pushes the gazetteer into Meilisearch.
func (as *AdminService) SeedSearchIndex(ctx context.Context, batchSize int, rebuild bool) (*SeedResult, error) {
	start := time.Now()
	n, err := as.gazetteer.SeedSearchIndex(ctx, batchSize, rebuild)
	if err != nil {
		return nil, err
	}
	return &SeedResult{
		DocumentsIndexed: n,
		IndexesBuilt:     rebuild,
		ProcessingTime:   time.Since(start),
	}, nil
}

// CacheEntry describes the cached result for one address.
type CacheEntry struct {
	Key    string
	Exists bool
	TTL    time.Duration
}

// InvalidateAddress removes the cached result for a single address.
func (as *AdminService) InvalidateAddress(ctx context.Context, address string) (string, error) {
	cache := as.addresses.Cache()
	if cache == nil {
		return "", errCacheDisabled
	}
	key := models.RawFingerprint(address)
	if err := cache.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("delete cache entry: %w", err)
	}
	as.logger.Info("Invalidated cached address", zap.String("key", key))
	return key, nil
}

// LookupCacheEntry reports whether address has a cached result and how long
// it has left.
func (as *AdminService) LookupCacheEntry(ctx context.Context, address string) (*CacheEntry, error) {
	cache := as.addresses.Cache()
	if cache == nil {
		return nil, errCacheDisabled
	}
	entry := &CacheEntry{Key: models.RawFingerprint(address)}
	ok, err := cache.Exists(ctx, entry.Key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	entry.Exists = ok
	if ok {
		if entry.TTL, err = cache.GetTTL(ctx, entry.Key); err != nil {
			return nil, fmt.Errorf("cache ttl: %w", err)
		}
	}
	return entry, nil
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
