package models

import (
	"fmt"
	"strings"
)

// Label is an address component class assigned by the tagger.
type Label string

const (
	LabelState    Label = "state"
	LabelDistrict Label = "district"
	LabelMandal   Label = "mandal"
	LabelCity     Label = "city"
	LabelVillage  Label = "village"
	LabelPin      Label = "pin"
	LabelLocality Label = "locality"
	LabelStreet   Label = "street"
	LabelLandmark Label = "landmark"
	LabelNumber   Label = "number"
)

// AllLabels is the closed label set.
var AllLabels = []Label{
	LabelState, LabelDistrict, LabelMandal, LabelCity, LabelVillage,
	LabelPin, LabelLocality, LabelStreet, LabelLandmark, LabelNumber,
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	for _, known := range AllLabels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string { return string(l) }

// ParseLabel accepts a label name in any case.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown label %q", s)
	}
	return l, nil
}

// LabelStrings returns AllLabels as plain strings.
func LabelStrings() []string {
	out := make([]string, len(AllLabels))
	for i, l := range AllLabels {
		out[i] = string(l)
	}
	return out
}
