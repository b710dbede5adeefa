package features

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/street_types.yaml
var streetTypesYAML []byte

// StreetTypes is the closed set of lowercase street-type words.
type StreetTypes map[string]struct{}

type streetTypesFile struct {
	StreetTypes []string `yaml:"street_types"`
}

// LoadStreetTypes parses a YAML document with a street_types list.
func LoadStreetTypes(data []byte) (StreetTypes, error) {
	var file streetTypesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse street types: %w", err)
	}
	if len(file.StreetTypes) == 0 {
		return nil, fmt.Errorf("parse street types: list is empty")
	}

	set := make(StreetTypes, len(file.StreetTypes))
	for _, word := range file.StreetTypes {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			set[word] = struct{}{}
		}
	}
	return set, nil
}

var (
	defaultStreetsOnce sync.Once
	defaultStreets     StreetTypes
)

// DefaultStreetTypes returns the embedded street-type list.
func DefaultStreetTypes() StreetTypes {
	defaultStreetsOnce.Do(func() {
		set, err := LoadStreetTypes(streetTypesYAML)
		if err != nil {
			panic(err)
		}
		defaultStreets = set
	})
	return defaultStreets
}

// Match reports whether the last space-delimited word of token, lowercased,
// is a street type. A trailing space leaves an empty last word, which never
// matches.
func (s StreetTypes) Match(token string) bool {
	last := token
	if i := strings.LastIndexByte(token, ' '); i >= 0 {
		last = token[i+1:]
	}
	_, ok := s[strings.ToLower(last)]
	return ok
}
