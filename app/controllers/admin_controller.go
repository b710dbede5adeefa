package controllers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/address-tagger/app/requests"
	"github.com/address-tagger/app/responses"
	"github.com/address-tagger/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminController serves the /v1/admin endpoints.
type AdminController struct {
	adminService     *services.AdminService
	addressService   *services.AddressService
	gazetteerService *services.GazetteerService
	logger           *zap.Logger
}

// NewAdminController creates an AdminController.
func NewAdminController(adminService *services.AdminService, addressService *services.AddressService, gazetteerService *services.GazetteerService, logger *zap.Logger) *AdminController {
	return &AdminController{
		adminService:     adminService,
		addressService:   addressService,
		gazetteerService: gazetteerService,
		logger:           logger,
	}
}

// GetStats reports tagging, cache and runtime statistics.
func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Failed to collect system stats", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "STATS_ERROR", err.Error())
		return
	}

	resp := responses.SystemStatsResponse{
		TotalTagged:      stats.Tag.Tagged,
		TotalFailed:      stats.Tag.Failed,
		AvgProcessingMs:  stats.Tag.AvgProcessingMs,
		ModelLoaded:      ac.addressService.ModelLoaded(),
		GazetteerVersion: ac.gazetteerService.Version(),
		Gazetteer:        ac.gazetteerService.Stats(),
		SystemInfo: responses.SystemInfo{
			Version:     Version,
			Environment: environment(),
			Uptime:      stats.Uptime.Round(time.Second).String(),
			MemoryUsage: stats.MemoryUsage,
			Goroutines:  stats.Goroutines,
		},
		DatabaseStats: responses.DatabaseStats{
			GazetteerDocs: stats.DatabaseStats.GazetteerDocs,
			AddressCache:  stats.DatabaseStats.AddressCache,
		},
	}
	if stats.Cache != nil {
		resp.CacheHitRate = stats.Cache.HitRate
	}
	resp.CacheL1 = stats.CacheL1
	c.JSON(http.StatusOK, resp)
}

// InvalidateCache drops one address, every entry, or entries built against
// another gazetteer version.
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	var req requests.InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	if req.Address != "" {
		key, err := ac.adminService.InvalidateAddress(c.Request.Context(), req.Address)
		if err != nil {
			ac.logger.Error("Failed to invalidate cached address", zap.Error(err))
			errorJSON(c, http.StatusInternalServerError, "CACHE_ERROR", err.Error())
			return
		}
		c.JSON(http.StatusOK, responses.SuccessResponse{
			Success:   true,
			Message:   "Cache entry invalidated",
			Data:      gin.H{"key": key},
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	kept, err := ac.adminService.InvalidateCache(c.Request.Context(), req.GazetteerVersion, req.All)
	if err != nil {
		ac.logger.Error("Failed to invalidate cache", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "CACHE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Cache invalidated",
		Data:      gin.H{"kept_gazetteer_version": kept, "all": req.All},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// CacheEntry reports whether ?address= has a cached result.
func (ac *AdminController) CacheEntry(c *gin.Context) {
	address, ok := c.GetQuery("address")
	if !ok {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: address is required")
		return
	}

	entry, err := ac.adminService.LookupCacheEntry(c.Request.Context(), address)
	if err != nil {
		ac.logger.Error("Failed to look up cache entry", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "CACHE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, responses.CacheEntryResponse{
		Key:        entry.Key,
		Exists:     entry.Exists,
		TTLSeconds: int64(entry.TTL.Seconds()),
	})
}

// SeedSearch pushes the gazetteer into Meilisearch.
func (ac *AdminController) SeedSearch(c *gin.Context) {
	var req requests.SeedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	res, err := ac.adminService.SeedSearchIndex(c.Request.Context(), req.BatchSize, req.RebuildIndexes)
	if err != nil {
		ac.logger.Error("Failed to seed Meilisearch", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "SEED_ERROR", "Failed to seed Meilisearch: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SeedSearchResponse{
		DocumentsIndexed: res.DocumentsIndexed,
		IndexesBuilt:     res.IndexesBuilt,
		ProcessingTimeMs: res.ProcessingTime.Milliseconds(),
		Message:          "Meilisearch seeding completed",
	})
}

func environment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "development"
}
