// Package search indexes the gazetteer in Meilisearch for typo-tolerant
// name suggestions.
package search

import (
	"fmt"
	"strings"

	"github.com/address-tagger/internal/gazetteer"
)

// FilterCategory creates a filter on one category.
func FilterCategory(c gazetteer.Category) string {
	return fmt.Sprintf("category = %q", string(c))
}

// FilterCategories creates an OR filter over categories; empty input means no filter.
func FilterCategories(cs []gazetteer.Category) string {
	if len(cs) == 0 {
		return ""
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = FilterCategory(c)
	}
	return strings.Join(parts, " OR ")
}

func hitString(hit map[string]interface{}, key string) string {
	if v, ok := hit[key].(string); ok {
		return v
	}
	return ""
}
