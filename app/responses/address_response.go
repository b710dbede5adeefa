package responses

import (
	"github.com/address-tagger/app/models"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/phonetic"
)

// TagAddressResponse is returned by POST /v1/addresses/tag.
type TagAddressResponse struct {
	Result           *models.TagResult `json:"result"`
	CacheHit         bool              `json:"cache_hit"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// ParseAddressResponse lists every token with its label.
type ParseAddressResponse struct {
	Raw              string               `json:"raw"`
	Tokens           []models.TaggedToken `json:"tokens"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
}

// FeaturesResponse exposes the feature sequence for one address.
type FeaturesResponse struct {
	Raw       string             `json:"raw"`
	Tokens    []string           `json:"tokens"`
	Features  []*features.Vector `json:"features"`
	Flattened [][]string         `json:"flattened"`
}

// BatchTagResponse acknowledges a batch job.
type BatchTagResponse struct {
	JobID            string `json:"job_id"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	TotalAddresses   int    `json:"total_addresses"`
	Message          string `json:"message"`
}

// JobStatusResponse reports job progress.
type JobStatusResponse struct {
	JobID              string  `json:"job_id"`
	Status             string  `json:"status"`
	Progress           float64 `json:"progress"` // 0.0 - 1.0
	Processed          int     `json:"processed"`
	Failed             int     `json:"failed"`
	Total              int     `json:"total"`
	EstimatedRemaining int     `json:"estimated_remaining"` // seconds
	Message            string  `json:"message"`
}

// JobStatus constants
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// ClassifyResponse is the gazetteer lookup for one name.
type ClassifyResponse struct {
	Name             string              `json:"name"`
	Exact            *gazetteer.Category `json:"exact"`
	Phonetic         *gazetteer.Category `json:"phonetic"`
	Codes            phonetic.Codes      `json:"codes"`
	GazetteerVersion string              `json:"gazetteer_version"`
}

// SuggestResponse lists names close to the query.
type SuggestResponse struct {
	Query       string                 `json:"query"`
	Source      string                 `json:"source"` // "meilisearch" or "memory"
	Suggestions []gazetteer.Suggestion `json:"suggestions"`
}

// SeedSearchResponse response seed Meilisearch
type SeedSearchResponse struct {
	DocumentsIndexed int    `json:"documents_indexed"`
	IndexesBuilt     bool   `json:"indexes_built"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Message          string `json:"message"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error     string      `json:"error"`             // error code
	Message   string      `json:"message"`           // human readable message
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// SuccessResponse is the generic success envelope.
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// HealthCheckResponse is returned by the health endpoints.
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// SystemStatsResponse is returned by GET /v1/admin/stats.
type SystemStatsResponse struct {
	CacheHitRate     float64                `json:"cache_hit_rate"`
	CacheL1          map[string]interface{} `json:"cache_l1,omitempty"`
	TotalTagged      int64                  `json:"total_tagged"`
	TotalFailed      int64                  `json:"total_failed"`
	AvgProcessingMs  float64                `json:"avg_processing_time_ms"`
	ModelLoaded      bool                   `json:"model_loaded"`
	GazetteerVersion string                 `json:"gazetteer_version"`
	Gazetteer        *gazetteer.Stats       `json:"gazetteer,omitempty"`
	SystemInfo       SystemInfo             `json:"system_info"`
	DatabaseStats    DatabaseStats          `json:"database_stats"`
}

// CacheEntryResponse describes the cached result for one address.
type CacheEntryResponse struct {
	Key        string `json:"key"`
	Exists     bool   `json:"exists"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// SystemInfo describes the running process.
type SystemInfo struct {
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	MemoryUsage map[string]interface{} `json:"memory_usage"`
	Goroutines  int                    `json:"goroutines"`
}

// DatabaseStats counts the MongoDB collections.
type DatabaseStats struct {
	GazetteerDocs int64 `json:"gazetteer_docs"`
	AddressCache  int64 `json:"address_cache"`
}
