package services

import (
	"testing"

	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/parser"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ruleTagger labels digits as pin, gazetteer hits by category and the rest
// as street.
type ruleTagger struct{}

func (ruleTagger) Tag(seq []*features.Vector) ([]string, error) {
	out := make([]string, len(seq))
	for i, v := range seq {
		out[i] = "street"
		if val, ok := v.Get(features.KeyIsDigit); ok {
			if b, _ := val.Bool(); b {
				out[i] = "pin"
				continue
			}
		}
		if val, ok := v.Get(features.KeySoundsLike); ok {
			if s, ok := val.Str(); ok {
				out[i] = s
			}
		}
	}
	return out, nil
}

func newTestStore(t *testing.T) *gazetteer.MemoryStore {
	t.Helper()
	store, err := gazetteer.NewMemoryStore([]gazetteer.Entry{
		{Name: "Telangana", Category: gazetteer.State},
		{Name: "Hyderabad", Category: gazetteer.City},
		{Name: "Hyderabad", Category: gazetteer.District},
		{Name: "Warangal", Category: gazetteer.District},
		{Name: "Kukatpally", Category: gazetteer.Mandal},
	}, gazetteer.DefaultPriority(), nil)
	require.NoError(t, err)
	return store
}

func newTestGazetteer(t *testing.T, index SearchIndex) *GazetteerService {
	t.Helper()
	store := newTestStore(t)
	return NewGazetteerService(store, store.Fingerprint(), GazetteerOptions{
		Memory: store,
		Index:  index,
	}, zap.NewNop())
}

// newTestAddressService wires a parser over the test gazetteer. A nil tagger
// leaves the service without a model.
func newTestAddressService(t *testing.T, tagger parser.Tagger, cache ICacheService) *AddressService {
	t.Helper()
	gz := newTestGazetteer(t, nil)
	p := parser.New(features.NewExtractor(gz.classifier), tagger, zap.NewNop())
	return NewAddressService(p, gz, AddressServiceOptions{Cache: cache}, zap.NewNop())
}
