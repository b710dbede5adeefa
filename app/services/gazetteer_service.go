package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/address-tagger/app/models"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/phonetic"
	"github.com/address-tagger/internal/search"
	"go.uber.org/zap"
)

// ErrSuggestUnavailable is returned when neither Meilisearch nor an in-memory
// gazetteer can answer suggestions.
var ErrSuggestUnavailable = errors.New("gazetteer suggestions need meilisearch or the memory backend")

// Suggestion sources.
const (
	SuggestSourceMeili  = "meilisearch"
	SuggestSourceMemory = "memory"
)

// SearchIndex is the subset of search.GazetteerSearcher used by the service.
type SearchIndex interface {
	BuildIndexes() error
	SeedData(docs []models.GazetteerName, batchSize int) (int, error)
	Suggest(query string, categories []gazetteer.Category, limit int) ([]gazetteer.Suggestion, error)
}

// Classification is the gazetteer view of one name.
type Classification struct {
	Name     string
	Exact    *gazetteer.Category
	Phonetic *gazetteer.Category
	Codes    phonetic.Codes
}

// GazetteerService exposes lookups against the loaded gazetteer.
type GazetteerService struct {
	classifier features.Classifier
	memory     *gazetteer.MemoryStore
	source     gazetteer.Source
	encoder    *phonetic.Encoder
	index      SearchIndex
	version    string
	limit      int
	logger     *zap.Logger
}

// GazetteerOptions carries the optional parts of a GazetteerService.
type GazetteerOptions struct {
	// Memory is nil when lookups go to Postgres.
	Memory *gazetteer.MemoryStore
	// Source is re-read to seed the search index when Memory is nil.
	Source       gazetteer.Source
	Index        SearchIndex
	Encoder      *phonetic.Encoder
	SuggestLimit int
}

// NewGazetteerService creates a GazetteerService.
func NewGazetteerService(classifier features.Classifier, version string, opts GazetteerOptions, logger *zap.Logger) *GazetteerService {
	if opts.Encoder == nil {
		opts.Encoder = phonetic.NewEncoder()
	}
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = 10
	}
	return &GazetteerService{
		classifier: classifier,
		memory:     opts.Memory,
		source:     opts.Source,
		encoder:    opts.Encoder,
		index:      opts.Index,
		version:    version,
		limit:      opts.SuggestLimit,
		logger:     logger,
	}
}

// Version is the fingerprint of the loaded gazetteer.
func (gs *GazetteerService) Version() string {
	return gs.version
}

// Classify runs the exact and phonetic lookups the feature extractor uses.
func (gs *GazetteerService) Classify(name string) Classification {
	out := Classification{Name: name, Codes: gs.encoder.Encode(name)}
	if gs.classifier == nil {
		return out
	}
	if c, ok := gs.classifier.ClassifyExact(name); ok {
		out.Exact = &c
	}
	if c, ok := gs.classifier.ClassifyPhonetic(name); ok {
		out.Phonetic = &c
	}
	return out
}

// Suggest returns near matches for query. Meilisearch is used when
// configured; a failing index falls back to the in-memory ranking.
func (gs *GazetteerService) Suggest(query string, categories []gazetteer.Category, limit int) ([]gazetteer.Suggestion, string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, "", errors.New("query must not be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = gs.limit
	}

	if gs.index != nil {
		got, err := gs.index.Suggest(query, categories, limit)
		if err == nil {
			return got, SuggestSourceMeili, nil
		}
		gs.logger.Warn("Meilisearch suggest failed, fallback memory", zap.Error(err))
	}
	if gs.memory == nil {
		return nil, "", ErrSuggestUnavailable
	}

	fetch := limit
	if len(categories) > 0 {
		fetch = gs.memory.Stats().Total
	}
	all := gs.memory.Suggest(query, fetch)
	got := make([]gazetteer.Suggestion, 0, limit)
	for _, s := range all {
		if len(categories) > 0 && !containsCategory(categories, s.Category) {
			continue
		}
		got = append(got, s)
		if len(got) == limit {
			break
		}
	}
	return got, SuggestSourceMemory, nil
}

func containsCategory(cs []gazetteer.Category, c gazetteer.Category) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

// Stats returns per-category counts, or nil for the sql backend.
func (gs *GazetteerService) Stats() *gazetteer.Stats {
	if gs.memory == nil {
		return nil
	}
	st := gs.memory.Stats()
	return &st
}

// Entries returns the loaded entries, re-reading the source when the store
// is not held in memory.
func (gs *GazetteerService) Entries(ctx context.Context) ([]gazetteer.Entry, error) {
	if gs.memory != nil {
		return gs.memory.Entries(), nil
	}
	if gs.source == nil {
		return nil, errors.New("no gazetteer source to read entries from")
	}
	return gs.source.Load(ctx)
}

// SeedSearchIndex pushes every gazetteer entry into Meilisearch.
func (gs *GazetteerService) SeedSearchIndex(ctx context.Context, batchSize int, rebuild bool) (int, error) {
	if gs.index == nil {
		return 0, errors.New("meilisearch is not configured")
	}

	if rebuild {
		if err := gs.index.BuildIndexes(); err != nil {
			return 0, fmt.Errorf("build meilisearch indexes: %w", err)
		}
	}

	entries, err := gs.Entries(ctx)
	if err != nil {
		return 0, err
	}
	docs := search.Documents(entries, gs.encoder)

	n, err := gs.index.SeedData(docs, batchSize)
	if err != nil {
		return n, fmt.Errorf("seed meilisearch: %w", err)
	}
	gs.logger.Info("Seeded Meilisearch from gazetteer",
		zap.Int("entries", len(entries)),
		zap.Int("documents", n),
		zap.String("gazetteer_version", gs.version))
	return n, nil
}
