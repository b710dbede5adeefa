package external

import (
	"testing"

	"github.com/address-tagger/app/models"
	"github.com/stretchr/testify/assert"
)

func TestMapComponents(t *testing.T) {
	res := mapComponents("12 mg road near clock tower hyderabad telangana 500001 india", []Component{
		{Label: "house_number", Value: "12"},
		{Label: "road", Value: "mg road"},
		{Label: "near", Value: "near clock tower"},
		{Label: "city", Value: "hyderabad"},
		{Label: "state", Value: "telangana"},
		{Label: "postcode", Value: "500001"},
		{Label: "country", Value: "india"},
	})

	assert.Equal(t, map[string]string{
		"number":   "12",
		"street":   "mg road",
		"landmark": "near clock tower",
		"city":     "hyderabad",
		"state":    "telangana",
		"pin":      "500001",
	}, res.Components)
	assert.Equal(t, map[string]string{"country": "india"}, res.Unmapped)
	assert.InDelta(t, 1.0, res.Coverage, 1e-9)
}

func TestMapComponents_JoinsRepeatedLabels(t *testing.T) {
	res := mapComponents("flat 3 12 mg road", []Component{
		{Label: "unit", Value: "flat 3"},
		{Label: "house_number", Value: "12"},
	})
	assert.Equal(t, "flat 3 12", res.Components["number"])
	assert.InDelta(t, 0.6, res.Coverage, 1e-9)
	assert.Nil(t, res.Unmapped)
}

func TestMapLabel(t *testing.T) {
	l, ok := MapLabel("state_district")
	assert.True(t, ok)
	assert.Equal(t, models.LabelDistrict, l)

	_, ok = MapLabel("country")
	assert.False(t, ok)
}
