package search

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/address-tagger/app/models"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/phonetic"
	"github.com/agnivade/levenshtein"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

// DefaultIndex is the Meilisearch index holding gazetteer names.
const DefaultIndex = "gazetteer_names"

// GazetteerSearcher searches gazetteer names in Meilisearch.
type GazetteerSearcher struct {
	client    meilisearch.ServiceManager
	logger    *zap.Logger
	indexName string
	timeout   time.Duration
}

// SearchConfig configures the Meilisearch client.
type SearchConfig struct {
	Host          string
	APIKey        string
	IndexName     string
	Timeout       time.Duration
	MaxCandidates int
}

// NewGazetteerSearcher connects to Meilisearch and checks its health.
func NewGazetteerSearcher(config SearchConfig, logger *zap.Logger) (*GazetteerSearcher, error) {
	if config.Host == "" {
		return nil, errors.New("meilisearch host is empty")
	}
	if config.IndexName == "" {
		config.IndexName = DefaultIndex
	}

	client := meilisearch.New(config.Host, meilisearch.WithAPIKey(config.APIKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("connect meilisearch: %w", err)
	}

	return &GazetteerSearcher{
		client:    client,
		logger:    logger,
		indexName: config.IndexName,
		timeout:   config.Timeout,
	}, nil
}

// BuildIndexes applies the index settings used by Suggest.
func (gs *GazetteerSearcher) BuildIndexes() error {
	index := gs.client.Index(gs.indexName)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"name"},
		FilterableAttributes: []string{"category", "metaphone1", "metaphone2"},
		SortableAttributes:   []string{"name"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		Synonyms: map[string][]string{
			"hyd":  {"hyderabad"},
			"secb": {"secunderabad"},
			"blr":  {"bengaluru", "bangalore"},
		},
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  4,
				TwoTypos: 8,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configure index %s: %w", gs.indexName, err)
	}

	gs.logger.Info("Configured Meilisearch index",
		zap.String("index", gs.indexName),
		zap.Int64("task_uid", task.TaskUID))
	return nil
}

// Documents converts entries into search documents. Names are stored as
// given; ids are stable across reloads.
func Documents(entries []gazetteer.Entry, encoder *phonetic.Encoder) []models.GazetteerName {
	if encoder == nil {
		encoder = phonetic.NewEncoder()
	}
	seen := make(map[string]bool, len(entries))
	docs := make([]models.GazetteerName, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" || !e.Category.Valid() {
			continue
		}
		id := documentID(e.Category, name)
		if seen[id] {
			continue
		}
		seen[id] = true

		codes := encoder.Encode(name)
		docs = append(docs, models.GazetteerName{
			ID:         id,
			Name:       name,
			Category:   string(e.Category),
			Metaphone1: codes.Primary,
			Metaphone2: codes.Secondary,
		})
	}
	return docs
}

func documentID(c gazetteer.Category, name string) string {
	sum := sha1.Sum([]byte(string(c) + "\t" + strings.ToUpper(name)))
	return string(c) + "-" + hex.EncodeToString(sum[:8])
}

// SeedData adds documents in batches of batchSize.
func (gs *GazetteerSearcher) SeedData(docs []models.GazetteerName, batchSize int) (int, error) {
	if len(docs) == 0 {
		return 0, errors.New("no gazetteer documents to seed")
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	index := gs.client.Index(gs.indexName)
	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		task, err := index.AddDocuments(docs[i:end], "id")
		if err != nil {
			return i, fmt.Errorf("add documents %d-%d: %w", i, end, err)
		}
		gs.logger.Info("Added gazetteer batch",
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}

	gs.logger.Info("Seeded gazetteer index", zap.Int("total_documents", len(docs)))
	return len(docs), nil
}

// Suggest returns names matching query, optionally restricted to categories.
func (gs *GazetteerSearcher) Suggest(query string, categories []gazetteer.Category, limit int) ([]gazetteer.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	result, err := gs.client.Index(gs.indexName).Search(query, &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Filter: FilterCategories(categories),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", gs.indexName, err)
	}
	return parseSuggestions(result.Hits, query, phonetic.NewEncoder()), nil
}

// parseSuggestions maps raw hits to suggestions. Meilisearch ranks hits; when
// no _rankingScore is returned the score decays with the hit position.
func parseSuggestions(hits []interface{}, query string, encoder *phonetic.Encoder) []gazetteer.Suggestion {
	upper := strings.ToUpper(query)
	codes := encoder.Encode(query)

	out := make([]gazetteer.Suggestion, 0, len(hits))
	for i, hit := range hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		name := hitString(hitMap, "name")
		category, err := gazetteer.ParseCategory(hitString(hitMap, "category"))
		if name == "" || err != nil {
			continue
		}

		score := 1.0 / float64(i+1)
		if rankingScore, ok := hitMap["_rankingScore"].(float64); ok {
			score = rankingScore
		}

		m1, m2 := hitString(hitMap, "metaphone1"), hitString(hitMap, "metaphone2")
		out = append(out, gazetteer.Suggestion{
			Name:     name,
			Category: category,
			Score:    score,
			Distance: levenshtein.ComputeDistance(upper, strings.ToUpper(name)),
			Phonetic: codes.Primary != "" && (codes.Primary == m1 || codes.Primary == m2 ||
				(codes.Secondary != "" && (codes.Secondary == m1 || codes.Secondary == m2))),
		})
	}
	return out
}
