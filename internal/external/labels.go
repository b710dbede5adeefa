// Package external adapts third-party address parsers for side-by-side
// comparison with the CRF tagger.
package external

import (
	"errors"
	"strings"

	"github.com/address-tagger/app/models"
)

// ErrLibpostalUnavailable is returned when the binary was built without the
// libpostal tag.
var ErrLibpostalUnavailable = errors.New("libpostal support requires a build with -tags libpostal and libpostal installed")

// Component is one raw libpostal (label, value) pair.
type Component struct {
	Label string
	Value string
}

// Result is a libpostal parse mapped onto the tagger's labels.
type Result struct {
	Expanded   string            `json:"expanded"`
	Components map[string]string `json:"components"`
	Unmapped   map[string]string `json:"unmapped,omitempty"`
	// Coverage is the share of expanded words that ended up in a component.
	Coverage float64 `json:"coverage"`
}

var libpostalLabels = map[string]models.Label{
	"house_number":   models.LabelNumber,
	"unit":           models.LabelNumber,
	"road":           models.LabelStreet,
	"house":          models.LabelLandmark,
	"near":           models.LabelLandmark,
	"po_box":         models.LabelNumber,
	"suburb":         models.LabelLocality,
	"city_district":  models.LabelLocality,
	"city":           models.LabelCity,
	"state_district": models.LabelDistrict,
	"island":         models.LabelVillage,
	"state":          models.LabelState,
	"postcode":       models.LabelPin,
}

// MapLabel returns the tagger label for a libpostal label.
func MapLabel(libpostal string) (models.Label, bool) {
	l, ok := libpostalLabels[libpostal]
	return l, ok
}

func mapComponents(expanded string, comps []Component) Result {
	res := Result{Expanded: expanded, Components: map[string]string{}}
	covered := 0
	for _, c := range comps {
		covered += len(strings.Fields(c.Value))
		l, ok := MapLabel(c.Label)
		if !ok {
			if res.Unmapped == nil {
				res.Unmapped = map[string]string{}
			}
			res.Unmapped[c.Label] = join(res.Unmapped[c.Label], c.Value)
			continue
		}
		res.Components[string(l)] = join(res.Components[string(l)], c.Value)
	}
	if total := len(strings.Fields(expanded)); total > 0 {
		res.Coverage = float64(covered) / float64(total)
	}
	return res
}

func join(prev, next string) string {
	if prev == "" {
		return next
	}
	return prev + " " + next
}
