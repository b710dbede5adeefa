package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/address-tagger/app/models"
	"github.com/address-tagger/app/requests"
	"github.com/address-tagger/internal/external"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/parser"
	"go.uber.org/zap"
)

// Errors returned for unknown jobs.
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrResultsNotReady = errors.New("job results are not ready")
)

// Job states.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// AddressService tags addresses and runs batch jobs.
type AddressService struct {
	parser       *parser.AddressParser
	gazetteer    *GazetteerService
	cache        ICacheService
	useLibpostal bool
	logger       *zap.Logger
	startTime    time.Time

	tagged     atomic.Int64
	failed     atomic.Int64
	totalNanos atomic.Int64

	mu         sync.RWMutex
	jobs       map[string]*JobStatus
	jobResults map[string][]*BatchItem
}

// JobStatus tracks one batch job.
type JobStatus struct {
	JobID              string
	Status             string
	Progress           float64
	Processed          int
	Failed             int
	Total              int
	EstimatedRemaining int
	Message            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BatchItem is one line of batch output. Error is set instead of Components
// when the address could not be tagged.
type BatchItem struct {
	Raw        string               `json:"raw"`
	Components models.ParsedAddress `json:"components"`
	Error      string               `json:"error,omitempty"`
}

// AddressServiceOptions carries the optional collaborators.
type AddressServiceOptions struct {
	Cache        ICacheService
	UseLibpostal bool
}

// NewAddressService creates an AddressService. cache may be nil.
func NewAddressService(p *parser.AddressParser, gz *GazetteerService, opts AddressServiceOptions, logger *zap.Logger) *AddressService {
	return &AddressService{
		parser:       p,
		gazetteer:    gz,
		cache:        opts.Cache,
		useLibpostal: opts.UseLibpostal,
		logger:       logger,
		startTime:    time.Now(),
		jobs:         make(map[string]*JobStatus),
		jobResults:   make(map[string][]*BatchItem),
	}
}

// ModelLoaded reports whether tagging is possible.
func (as *AddressService) ModelLoaded() bool {
	return as.parser.Ready()
}

func (as *AddressService) gazetteerVersion() string {
	if as.gazetteer == nil {
		return ""
	}
	return as.gazetteer.Version()
}

// TagAddress tags raw and reports whether the result came from the cache.
// Cached results always carry tokens; they are stripped from the returned
// copy unless requested.
func (as *AddressService) TagAddress(ctx context.Context, raw string, opts requests.TagOptions) (*models.TagResult, bool, error) {
	start := time.Now()
	key := models.RawFingerprint(raw)
	version := as.gazetteerVersion()

	if opts.UseCache && as.cache != nil {
		cached, found, err := as.cache.Get(ctx, key)
		if err != nil {
			as.logger.Warn("Cache get failed", zap.Error(err))
		} else if found && cached.GazetteerVersion == version {
			return present(cached, opts), true, nil
		}
	}

	tagged, err := as.parser.Parse(raw)
	if err != nil {
		as.failed.Add(1)
		return nil, false, err
	}

	result := &models.TagResult{
		Raw:              raw,
		Components:       parser.Aggregate(tagged),
		Tokens:           tagged,
		GazetteerVersion: version,
	}
	if as.useLibpostal {
		lp, err := external.ExtractWithLibpostal(raw)
		if err != nil {
			as.logger.Warn("libpostal extraction failed", zap.Error(err))
		} else {
			result.Libpostal = lp.Components
		}
	}

	as.tagged.Add(1)
	as.totalNanos.Add(int64(time.Since(start)))

	if opts.UseCache && as.cache != nil {
		if err := as.cache.Set(ctx, key, result); err != nil {
			as.logger.Warn("Cache set failed", zap.Error(err))
		}
	}
	return present(result, opts), false, nil
}

func present(r *models.TagResult, opts requests.TagOptions) *models.TagResult {
	out := *r
	if !opts.IncludeTokens {
		out.Tokens = nil
	}
	return &out
}

// ParseTokens returns every token with its label.
func (as *AddressService) ParseTokens(raw string) ([]models.TaggedToken, error) {
	return as.parser.Parse(raw)
}

// FeatureSet is the feature sequence of one address.
type FeatureSet struct {
	Tokens    []string
	Vectors   []*features.Vector
	Flattened [][]string
}

// Features exposes what the tagger sees for raw. It works without a model.
func (as *AddressService) Features(raw string) FeatureSet {
	tokens, vectors := as.parser.Features(raw)

	set := FeatureSet{
		Tokens:    make([]string, len(tokens)),
		Vectors:   vectors,
		Flattened: make([][]string, len(vectors)),
	}
	for i, t := range tokens {
		set.Tokens[i] = t.Text
	}
	for i, v := range vectors {
		set.Flattened[i] = features.Names(features.Flatten(v))
	}
	return set
}

// EstimateBatchProcessingTime estimates a batch duration in seconds.
func (as *AddressService) EstimateBatchProcessingTime(addressCount int) int {
	perAddress := time.Millisecond
	if n := as.tagged.Load(); n > 0 {
		perAddress = time.Duration(as.totalNanos.Load() / n)
	}
	seconds := int((time.Duration(addressCount) * perAddress).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// SubmitBatchJob registers a job and tags addresses in the background.
func (as *AddressService) SubmitBatchJob(jobID string, addresses []string, opts requests.TagOptions) *JobStatus {
	now := time.Now()
	job := &JobStatus{
		JobID:     jobID,
		Status:    JobPending,
		Total:     len(addresses),
		Message:   "Queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	as.mu.Lock()
	as.jobs[jobID] = job
	as.mu.Unlock()

	go as.ProcessBatchJob(context.Background(), jobID, addresses, opts)

	snapshot := *job
	return &snapshot
}

// ProcessBatchJob runs a queued job. A missing model fails the whole job.
func (as *AddressService) ProcessBatchJob(ctx context.Context, jobID string, addresses []string, opts requests.TagOptions) {
	as.updateJob(jobID, func(job *JobStatus) {
		job.Status = JobRunning
		job.Message = "Processing"
	})

	results := make([]*BatchItem, 0, len(addresses))
	started := time.Now()

	for i, address := range addresses {
		if err := ctx.Err(); err != nil {
			as.failJob(jobID, err)
			return
		}

		item := &BatchItem{Raw: address}
		result, _, err := as.TagAddress(ctx, address, opts)
		if errors.Is(err, parser.ErrModelUnavailable) {
			as.failJob(jobID, err)
			return
		}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Components = result.Components
		}
		results = append(results, item)

		as.updateJob(jobID, func(job *JobStatus) {
			job.Processed = i + 1
			if item.Error != "" {
				job.Failed++
			}
			job.Progress = float64(i+1) / float64(len(addresses))
			perItem := time.Since(started) / time.Duration(i+1)
			job.EstimatedRemaining = int((perItem * time.Duration(len(addresses)-i-1)).Seconds())
		})
	}

	as.mu.Lock()
	as.jobResults[jobID] = results
	if job, ok := as.jobs[jobID]; ok {
		job.Status = JobDone
		job.Progress = 1
		job.EstimatedRemaining = 0
		job.Message = "Completed"
		job.UpdatedAt = time.Now()
	}
	as.mu.Unlock()

	as.logger.Info("Batch job completed",
		zap.String("job_id", jobID),
		zap.Int("total_addresses", len(addresses)),
		zap.Duration("elapsed", time.Since(started)))
}

func (as *AddressService) updateJob(jobID string, fn func(job *JobStatus)) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if job, ok := as.jobs[jobID]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}

func (as *AddressService) failJob(jobID string, err error) {
	as.updateJob(jobID, func(job *JobStatus) {
		job.Status = JobFailed
		job.Message = err.Error()
	})
	as.logger.Error("Batch job failed", zap.String("job_id", jobID), zap.Error(err))
}

// GetJobStatus returns a snapshot of the job state.
func (as *AddressService) GetJobStatus(jobID string) (*JobStatus, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	job, exists := as.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// GetJobResults returns a finished job's results.
func (as *AddressService) GetJobResults(jobID string) ([]*BatchItem, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	if _, exists := as.jobs[jobID]; !exists {
		return nil, ErrJobNotFound
	}
	results, exists := as.jobResults[jobID]
	if !exists {
		return nil, ErrResultsNotReady
	}
	return results, nil
}

// GetJobResultsStream returns a finished job's results on a channel.
func (as *AddressService) GetJobResultsStream(ctx context.Context, jobID string) (<-chan *BatchItem, error) {
	results, err := as.GetJobResults(jobID)
	if err != nil {
		return nil, err
	}

	ch := make(chan *BatchItem, 100)
	go func() {
		defer close(ch)
		for _, r := range results {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// BatchSummary counts the outcome of ProcessBatch.
type BatchSummary struct {
	Processed int
	Failed    int
}

// ProcessBatch tags inputs in order and writes one NDJSON line per address to
// w. It stops at the first write error or when ctx is cancelled.
func (as *AddressService) ProcessBatch(ctx context.Context, inputs []string, w io.Writer) (BatchSummary, error) {
	var summary BatchSummary
	enc := json.NewEncoder(w)

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item := BatchItem{Raw: input}
		result, _, err := as.TagAddress(ctx, input, requests.TagOptions{UseCache: true})
		if errors.Is(err, parser.ErrModelUnavailable) {
			return summary, err
		}
		if err != nil {
			as.logger.Warn("Failed to tag address in batch",
				zap.Int("index", i),
				zap.String("address", input),
				zap.Error(err))
			item.Error = err.Error()
			summary.Failed++
		} else {
			item.Components = result.Components
		}

		if err := enc.Encode(item); err != nil {
			return summary, fmt.Errorf("write result %d: %w", i, err)
		}
		summary.Processed++
	}

	as.logger.Info("Completed batch processing",
		zap.Int("total", len(inputs)),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// GetStartTime returns when the service was created.
func (as *AddressService) GetStartTime() time.Time {
	return as.startTime
}

// TagStats counts tagging calls since start.
type TagStats struct {
	Tagged          int64
	Failed          int64
	AvgProcessingMs float64
}

// GetStats returns tagging counters.
func (as *AddressService) GetStats() TagStats {
	st := TagStats{Tagged: as.tagged.Load(), Failed: as.failed.Load()}
	if st.Tagged > 0 {
		st.AvgProcessingMs = float64(as.totalNanos.Load()) / float64(st.Tagged) / float64(time.Millisecond)
	}
	return st
}

// Cache returns the result cache, or nil.
func (as *AddressService) Cache() ICacheService {
	return as.cache
}
