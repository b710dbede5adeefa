package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/address-tagger/app/config"
	"github.com/address-tagger/app/services"
	"github.com/address-tagger/internal/search"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NewSearchIndex connects to Meilisearch when suggestions are configured to
// use it. It returns nil, nil otherwise.
func NewSearchIndex(cfg config.ParserCfg, s Settings, logger *zap.Logger) (*search.GazetteerSearcher, error) {
	if !cfg.Suggest.UseMeili || s.MeiliURL == "" {
		return nil, nil
	}
	return search.NewGazetteerSearcher(search.SearchConfig{
		Host:          s.MeiliURL,
		APIKey:        s.MeiliKey,
		IndexName:     search.DefaultIndex,
		Timeout:       30 * time.Second,
		MaxCandidates: cfg.Suggest.Limit,
	}, logger)
}

// NewCache picks the result cache: Redis + MongoDB when both are configured,
// either one alone, or the in-memory cache. It returns nil when caching is
// disabled.
func NewCache(ctx context.Context, cfg config.ParserCfg, s Settings, mongoDB *mongo.Database, version string, logger *zap.Logger) (services.ICacheService, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	ttl := cfg.ResultTTL()

	var redisCache *services.RedisCacheService
	if s.RedisURL != "" {
		rc, err := services.NewRedisCacheService(s.RedisURL, ttl, logger)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		redisCache = rc
	}

	var mongoCache *services.MongoCacheService
	if mongoDB != nil {
		mc, err := services.NewMongoCacheService(mongoDB, s.L1Size, ttl, logger)
		if err != nil {
			return nil, fmt.Errorf("mongo cache: %w", err)
		}
		if err := mc.WarmUp(ctx, version, s.L1Size/2); err != nil {
			logger.Warn("Failed to warm up cache", zap.Error(err))
		}
		mongoCache = mc
	}

	switch {
	case redisCache != nil && mongoCache != nil:
		logger.Info("Using hybrid result cache (Redis L1 + MongoDB L2)")
		return services.NewHybridCacheService(redisCache, mongoCache, logger), nil
	case redisCache != nil:
		logger.Info("Using Redis result cache")
		return redisCache, nil
	case mongoCache != nil:
		logger.Info("Using MongoDB result cache")
		return mongoCache, nil
	}

	logger.Info("Using in-memory result cache")
	mem := services.NewCacheService(ttl)
	mem.StartCleanupWorker(ctx, 10*time.Minute)
	return mem, nil
}
