package gazetteer

import (
	"sort"
	"strings"

	"github.com/address-tagger/internal/phonetic"
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

const (
	minSuggestScore = 0.75
	phoneticBonus   = 0.1
)

// Suggestion is a ranked near match for a name.
type Suggestion struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
	Distance int      `json:"distance"`
	Phonetic bool     `json:"phonetic"`
}

// Suggest ranks gazetteer entries by Jaro-Winkler similarity to name, boosting
// entries that share a phonetic code. Ties are broken by edit distance and
// then by category priority.
func (s *MemoryStore) Suggest(name string, limit int) []Suggestion {
	query := upperKey(name)
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	codes := s.encoder.Encode(name)
	var out []Suggestion
	for _, e := range s.entries {
		phon := sharesCode(codes.Primary, e.codes) || sharesCode(codes.Secondary, e.codes)

		score := smetrics.JaroWinkler(query, e.upper, 0.7, 4)
		if phon {
			score += phoneticBonus
		}
		if score > 1 {
			score = 1
		}
		if score < minSuggestScore {
			continue
		}

		out = append(out, Suggestion{
			Name:     e.Name,
			Category: e.Category,
			Score:    score,
			Distance: levenshtein.ComputeDistance(query, e.upper),
			Phonetic: phon,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		ra, rb := s.rankOf(a.Category), s.rankOf(b.Category)
		if ra != rb {
			return ra < rb
		}
		return a.Name < b.Name
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) rankOf(c Category) int {
	if r, ok := s.rank[c]; ok {
		return r
	}
	return len(s.rank)
}

func sharesCode(code string, codes phonetic.Codes) bool {
	return code != "" && (code == codes.Primary || code == codes.Secondary)
}
