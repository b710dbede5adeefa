// Package gazetteer holds the reference list of known Indian place names
// (states, cities, mandals, districts, villages) and answers two read-only
// questions about a token: is it exactly a known name, and does it sound like one.
//
// Stores are built once during startup and never mutated afterwards, so a
// single store can be shared by any number of concurrent requests.
package gazetteer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/address-tagger/internal/phonetic"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned when the gazetteer backing store cannot be
// read at startup. It is a configuration error: the service must not start.
var ErrStoreUnavailable = errors.New("gazetteer store unavailable")

// Entry is one canonical place name.
type Entry struct {
	Name     string   `json:"name" bson:"name"`
	Category Category `json:"category" bson:"category"`
}

// Source produces the full entry list during the offline load phase.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

type indexedEntry struct {
	Entry
	upper string
	codes phonetic.Codes
}

// MemoryStore keeps exact-name and phonetic-code indices per category in memory.
type MemoryStore struct {
	priority []Category
	rank     map[Category]int
	encoder  *phonetic.Encoder

	exact  map[Category]map[string]struct{}
	sounds map[Category]map[string]struct{}

	entries     []indexedEntry
	skipped     int
	fingerprint string
}

// NewMemoryStore builds the indices from entries. Entries with an unknown
// category or a blank name are skipped and counted in Stats.
func NewMemoryStore(entries []Entry, priority []Category, encoder *phonetic.Encoder) (*MemoryStore, error) {
	if len(priority) == 0 {
		return nil, errors.New("gazetteer priority must list at least one category")
	}
	if encoder == nil {
		encoder = phonetic.NewEncoder()
	}

	s := &MemoryStore{
		priority: append([]Category(nil), priority...),
		rank:     make(map[Category]int, len(priority)),
		encoder:  encoder,
		exact:    make(map[Category]map[string]struct{}, len(AllCategories)),
		sounds:   make(map[Category]map[string]struct{}, len(AllCategories)),
		entries:  make([]indexedEntry, 0, len(entries)),
	}
	for i, c := range priority {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown gazetteer category %q in priority", c)
		}
		s.rank[c] = i
	}
	for _, c := range AllCategories {
		s.exact[c] = make(map[string]struct{})
		s.sounds[c] = make(map[string]struct{})
	}

	for _, e := range entries {
		upper := upperKey(e.Name)
		if strings.TrimSpace(upper) == "" || !e.Category.Valid() {
			s.skipped++
			continue
		}

		codes := encoder.Encode(e.Name)
		s.exact[e.Category][upper] = struct{}{}
		codes.Each(func(code string) {
			s.sounds[e.Category][code] = struct{}{}
		})
		s.entries = append(s.entries, indexedEntry{Entry: e, upper: upper, codes: codes})
	}

	s.fingerprint = fingerprint(s.entries)
	return s, nil
}

// Load reads every entry from src and builds a MemoryStore. Any source error
// is reported as ErrStoreUnavailable.
func Load(ctx context.Context, src Source, priority []Category, encoder *phonetic.Encoder, logger *zap.Logger) (*MemoryStore, error) {
	entries, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	store, err := NewMemoryStore(entries, priority, encoder)
	if err != nil {
		return nil, err
	}

	stats := store.Stats()
	if stats.Total == 0 {
		logger.Warn("Gazetteer is empty, every lookup will miss")
	}
	if stats.Skipped > 0 {
		logger.Warn("Skipped invalid gazetteer entries", zap.Int("skipped", stats.Skipped))
	}
	logger.Info("Gazetteer loaded",
		zap.Int("total", stats.Total),
		zap.Any("by_category", stats.ByCategory),
		zap.Strings("priority", priorityStrings(store.priority)),
		zap.String("fingerprint", store.fingerprint))

	return store, nil
}

// ClassifyExact returns the highest-priority category whose exact index
// contains the uppercased name.
func (s *MemoryStore) ClassifyExact(name string) (Category, bool) {
	key := upperKey(name)
	if key == "" {
		return "", false
	}
	for _, c := range s.priority {
		if _, ok := s.exact[c][key]; ok {
			return c, true
		}
	}
	return "", false
}

// ClassifyPhonetic encodes name and returns the highest-priority category
// whose phonetic index contains either code.
func (s *MemoryStore) ClassifyPhonetic(name string) (Category, bool) {
	codes := s.encoder.Encode(name)
	if codes.Empty() {
		return "", false
	}
	for _, c := range s.priority {
		idx := s.sounds[c]
		if _, ok := idx[codes.Primary]; ok && codes.Primary != "" {
			return c, true
		}
		if _, ok := idx[codes.Secondary]; ok && codes.Secondary != "" {
			return c, true
		}
	}
	return "", false
}

// Codes exposes the encoder used by the store's phonetic index.
func (s *MemoryStore) Codes(name string) phonetic.Codes {
	return s.encoder.Encode(name)
}

// Priority returns a copy of the category tie-break order.
func (s *MemoryStore) Priority() []Category {
	return append([]Category(nil), s.priority...)
}

// Fingerprint identifies the loaded entry set; it changes whenever any name or
// category changes and is used as the gazetteer version.
func (s *MemoryStore) Fingerprint() string {
	return s.fingerprint
}

// Stats summarizes the store contents.
type Stats struct {
	Total      int              `json:"total"`
	Skipped    int              `json:"skipped"`
	ByCategory map[Category]int `json:"by_category"`
}

// Stats returns entry counts per category.
func (s *MemoryStore) Stats() Stats {
	st := Stats{
		Total:      len(s.entries),
		Skipped:    s.skipped,
		ByCategory: make(map[Category]int, len(AllCategories)),
	}
	for _, c := range AllCategories {
		st.ByCategory[c] = len(s.exact[c])
	}
	return st
}

// Entries returns a copy of the loaded entries in load order.
func (s *MemoryStore) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Entry
	}
	return out
}

// upperKey is the lookup key for name. Whitespace is significant: callers
// pass tokens that the tokenizer has already trimmed.
func upperKey(name string) string {
	return strings.ToUpper(name)
}

func fingerprint(entries []indexedEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = string(e.Category) + "\t" + e.upper
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil))
}
