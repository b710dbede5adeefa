package models

// GazetteerName is the search document indexed in Meilisearch for one
// gazetteer entry.
type GazetteerName struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	Category   string `json:"category" bson:"category"`
	Metaphone1 string `json:"metaphone1" bson:"metaphone1"`
	Metaphone2 string `json:"metaphone2,omitempty" bson:"metaphone2,omitempty"`
}
