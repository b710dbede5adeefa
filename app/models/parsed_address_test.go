package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedAddress_JSONKeepsOrder(t *testing.T) {
	p := ParsedAddress{Components: []Component{
		{Label: LabelNumber, Value: "12"},
		{Label: LabelStreet, Value: "Main St"},
		{Label: LabelCity, Value: "Springfield"},
	}}

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"number":"12","street":"Main St","city":"Springfield"}`, string(b))

	var back ParsedAddress
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p, back)
	assert.Equal(t, []Label{LabelNumber, LabelStreet, LabelCity}, back.Labels())

	v, ok := back.Get(LabelStreet)
	assert.True(t, ok)
	assert.Equal(t, "Main St", v)
	_, ok = back.Get(LabelPin)
	assert.False(t, ok)
}

func TestParsedAddress_EmptyIsObject(t *testing.T) {
	b, err := json.Marshal(ParsedAddress{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))

	var p ParsedAddress
	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, 0, p.Len())

	assert.Error(t, json.Unmarshal([]byte(`["city"]`), &p))
}

func TestTagResult_JSONRoundTrip(t *testing.T) {
	in := TagResult{
		Raw: "MG Road, Hyderabad",
		Components: ParsedAddress{Components: []Component{
			{Label: LabelStreet, Value: "MG Road"},
			{Label: LabelCity, Value: "Hyderabad"},
		}},
		GazetteerVersion: "sha256:abc",
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	var out TagResult
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel(" Landmark ")
	require.NoError(t, err)
	assert.Equal(t, LabelLandmark, l)

	_, err = ParseLabel("country")
	assert.Error(t, err)
	assert.Len(t, LabelStrings(), 10)
}

func TestAddressCache(t *testing.T) {
	ac := NewAddressCache("k", TagResult{Raw: "x", GazetteerVersion: "v1"})
	assert.True(t, ac.IsValidGazetteerVersion("v1"))
	assert.False(t, ac.IsValidGazetteerVersion("v2"))
	assert.False(t, ac.IsExpired(0))
	assert.False(t, ac.IsExpired(time.Hour))

	ac.CreatedAt = time.Now().Add(-2 * time.Hour)
	assert.True(t, ac.IsExpired(time.Hour))

	ac.UpdateAccess()
	assert.Equal(t, 2, ac.AccessCount)

	assert.NotEqual(t, RawFingerprint("Hyderabad"), RawFingerprint("hyderabad"))
	assert.Len(t, RawFingerprint(""), 32)
}
