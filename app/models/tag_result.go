package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// TagResult is the response for one tagged address.
type TagResult struct {
	Raw              string            `json:"raw" bson:"raw"`
	Components       ParsedAddress     `json:"components" bson:"components"`
	Tokens           []TaggedToken     `json:"tokens,omitempty" bson:"tokens,omitempty"`
	GazetteerVersion string            `json:"gazetteer_version" bson:"gazetteer_version"`
	Libpostal        map[string]string `json:"libpostal,omitempty" bson:"libpostal,omitempty"`
}

// RawFingerprint is the cache key for a raw address. The input is hashed as
// is: token texts are returned verbatim, so case and spacing matter.
func RawFingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}
