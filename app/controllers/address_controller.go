package controllers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/address-tagger/app/config"
	"github.com/address-tagger/app/requests"
	"github.com/address-tagger/app/responses"
	"github.com/address-tagger/app/services"
	"github.com/address-tagger/helpers/utils"
	"github.com/address-tagger/internal/parser"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by health and index endpoints.
const Version = "1.0.0"

// AddressController serves the tagging, parsing and batch job endpoints.
type AddressController struct {
	addressService *services.AddressService
	maxBatch       int
	logger         *zap.Logger
}

func NewAddressController(addressService *services.AddressService, maxBatch int, logger *zap.Logger) *AddressController {
	if maxBatch <= 0 {
		maxBatch = config.Default().MaxBatch
	}
	return &AddressController{
		addressService: addressService,
		maxBatch:       maxBatch,
		logger:         logger,
	}
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// taggingError maps pipeline errors onto HTTP responses.
func (ac *AddressController) taggingError(c *gin.Context, err error) {
	if errors.Is(err, parser.ErrModelUnavailable) {
		errorJSON(c, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", err.Error())
		return
	}
	ac.logger.Error("Tagging failed", zap.Error(err))
	errorJSON(c, http.StatusInternalServerError, "TAG_ERROR", "Failed to tag address: "+err.Error())
}

// bindAddress decodes a TagAddressRequest. An empty address is valid input;
// only a missing field is rejected.
func bindAddress(c *gin.Context) (requests.TagAddressRequest, bool) {
	var req requests.TagAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return req, false
	}
	if req.Address == nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: address is required")
		return req, false
	}
	return req, true
}

// TagAddress tags one address.
func (ac *AddressController) TagAddress(c *gin.Context) {
	req, ok := bindAddress(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.RequestTimeout())
	defer cancel()

	startTime := time.Now()
	result, hit, err := ac.addressService.TagAddress(ctx, req.Raw(), req.Options)
	if err != nil {
		ac.taggingError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.TagAddressResponse{
		Result:           result,
		CacheHit:         hit,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// ParseAddress returns every token with its label.
func (ac *AddressController) ParseAddress(c *gin.Context) {
	req, ok := bindAddress(c)
	if !ok {
		return
	}

	startTime := time.Now()
	tokens, err := ac.addressService.ParseTokens(req.Raw())
	if err != nil {
		ac.taggingError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.ParseAddressResponse{
		Raw:              req.Raw(),
		Tokens:           tokens,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// Features returns the feature vectors of an address. It works without a model.
func (ac *AddressController) Features(c *gin.Context) {
	req, ok := bindAddress(c)
	if !ok {
		return
	}

	set := ac.addressService.Features(req.Raw())
	c.JSON(http.StatusOK, responses.FeaturesResponse{
		Raw:       req.Raw(),
		Tokens:    set.Tokens,
		Features:  set.Vectors,
		Flattened: set.Flattened,
	})
}

// BatchTag starts an asynchronous tagging job.
func (ac *AddressController) BatchTag(c *gin.Context) {
	var req requests.BatchTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request: "+err.Error())
		return
	}

	if len(req.Addresses) > ac.maxBatch {
		errorJSON(c, http.StatusBadRequest, "TOO_MANY_ADDRESSES", fmt.Sprintf("At most %d addresses per job", ac.maxBatch))
		return
	}
	if !ac.addressService.ModelLoaded() {
		ac.taggingError(c, parser.ErrModelUnavailable)
		return
	}

	jobID := utils.GenerateJobID()
	estimatedTime := ac.addressService.EstimateBatchProcessingTime(len(req.Addresses))
	ac.addressService.SubmitBatchJob(jobID, req.Addresses, req.Options)

	c.JSON(http.StatusAccepted, responses.BatchTagResponse{
		JobID:            jobID,
		EstimatedSeconds: estimatedTime,
		TotalAddresses:   len(req.Addresses),
		Message:          "Job accepted",
	})
}

// GetJobStatus reports job progress.
func (ac *AddressController) GetJobStatus(c *gin.Context) {
	jobID := c.Param("jobID")

	status, err := ac.addressService.GetJobStatus(jobID)
	if err != nil {
		errorJSON(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.JobStatusResponse{
		JobID:              jobID,
		Status:             status.Status,
		Progress:           status.Progress,
		Processed:          status.Processed,
		Failed:             status.Failed,
		Total:              status.Total,
		EstimatedRemaining: status.EstimatedRemaining,
		Message:            status.Message,
	})
}

// GetJobResults returns job results as JSON, or streams NDJSON (optionally gzipped).
func (ac *AddressController) GetJobResults(c *gin.Context) {
	jobID := c.Param("jobID")

	results, err := ac.addressService.GetJobResults(jobID)
	switch {
	case errors.Is(err, services.ErrResultsNotReady):
		errorJSON(c, http.StatusConflict, "JOB_NOT_FINISHED", err.Error())
		return
	case err != nil:
		errorJSON(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}

	if c.Query("format") == "ndjson" {
		ac.streamNDJSONResults(c, jobID, c.Query("gzip") == "1")
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Job results",
		Data:      results,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HealthCheck reports uptime and dependency status.
func (ac *AddressController) HealthCheck(c *gin.Context) {
	uptime := time.Since(ac.addressService.GetStartTime())

	model := "loaded"
	if !ac.addressService.ModelLoaded() {
		model = "missing"
	}
	cache := "disabled"
	if ac.addressService.Cache() != nil {
		cache = "enabled"
	}

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    uptime.String(),
		Version:   Version,
		Services: map[string]string{
			"tagger_model": model,
			"cache":        cache,
		},
	})
}

// Ready reports 503 until a tagger model is loaded.
func (ac *AddressController) Ready(c *gin.Context) {
	if !ac.addressService.ModelLoaded() {
		errorJSON(c, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", parser.ErrModelUnavailable.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (ac *AddressController) streamNDJSONResults(c *gin.Context, jobID string, gzipEnabled bool) {
	stream, err := ac.addressService.GetJobResultsStream(c.Request.Context(), jobID)
	if err != nil {
		errorJSON(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	var writer gin.ResponseWriter = c.Writer
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
		gzWriter := gzip.NewWriter(c.Writer)
		defer gzWriter.Close()
		writer = &gzipResponseWriter{ResponseWriter: c.Writer, gzWriter: gzWriter}
	}
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(writer)
	for item := range stream {
		if err := encoder.Encode(item); err != nil {
			ac.logger.Error("Failed to encode NDJSON", zap.Error(err))
			break
		}
		writer.Flush()
	}
}

// gzipResponseWriter routes writes through a gzip writer.
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzWriter.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.gzWriter.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	w.gzWriter.Flush()
	w.ResponseWriter.Flush()
}
