package gazetteer

import (
	"fmt"
	"strings"
)

// Category is the administrative class of a gazetteer entry.
type Category string

const (
	State    Category = "state"
	City     Category = "city"
	Mandal   Category = "mandal"
	District Category = "district"
	Village  Category = "village"
)

// AllCategories lists every category in default priority order.
var AllCategories = []Category{State, City, Mandal, District, Village}

// DefaultPriority is the tie-break order used when a name is known in more
// than one category: the first category in the list that contains the name wins.
func DefaultPriority() []Category {
	out := make([]Category, len(AllCategories))
	copy(out, AllCategories)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case State, City, Mandal, District, Village:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts a category name in any case, plus the plural table
// names used by older gazetteer dumps ("States", "Cities", ...).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "state", "states", "states_uts":
		return State, nil
	case "city", "cities":
		return City, nil
	case "mandal", "mandals":
		return Mandal, nil
	case "district", "districts":
		return District, nil
	case "village", "villages":
		return Village, nil
	}
	return "", fmt.Errorf("unknown gazetteer category %q", s)
}

// ParsePriority validates an ordered category list. An empty list yields
// DefaultPriority.
func ParsePriority(names []string) ([]Category, error) {
	if len(names) == 0 {
		return DefaultPriority(), nil
	}

	seen := make(map[Category]bool, len(names))
	out := make([]Category, 0, len(names))
	for _, name := range names {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			return nil, fmt.Errorf("category %q listed twice in priority", c)
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

func priorityStrings(priority []Category) []string {
	out := make([]string, len(priority))
	for i, c := range priority {
		out[i] = string(c)
	}
	return out
}
