package requests

// TagAddressRequest carries one raw address. Address is a pointer so that an
// empty string is accepted and only a missing field is rejected.
type TagAddressRequest struct {
	Address *string    `json:"address"` // raw address, parts separated by ", "
	Options TagOptions `json:"options,omitempty"`
}

// Raw returns the address text; a missing field reads as "".
func (r TagAddressRequest) Raw() string {
	if r.Address == nil {
		return ""
	}
	return *r.Address
}

// TagOptions controls caching and response shape.
type TagOptions struct {
	UseCache      bool `json:"use_cache,omitempty"`
	IncludeTokens bool `json:"include_tokens,omitempty"` // include per-token labels
}

// BatchTagRequest submits addresses for an asynchronous job.
type BatchTagRequest struct {
	Addresses []string   `json:"addresses" binding:"required,min=1,max=20000"`
	Options   TagOptions `json:"options,omitempty"`
}

// InvalidateCacheRequest drops cached results. Address drops the entry for one
// raw address; otherwise an empty GazetteerVersion means the currently loaded one.
type InvalidateCacheRequest struct {
	Address          string `json:"address,omitempty"`
	GazetteerVersion string `json:"gazetteer_version,omitempty"`
	All              bool   `json:"all,omitempty"`
}

// SeedSearchRequest configures a Meilisearch reseed.
type SeedSearchRequest struct {
	BatchSize      int  `json:"batch_size,omitempty"`
	RebuildIndexes bool `json:"rebuild_indexes,omitempty"`
}
