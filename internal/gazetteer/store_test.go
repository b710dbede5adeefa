package gazetteer

import (
	"context"
	"errors"
	"testing"

	"github.com/address-tagger/internal/phonetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testEntries = []Entry{
	{Name: "Telangana", Category: State},
	{Name: "Hyderabad", Category: City},
	{Name: "Hyderabad", Category: District},
	{Name: "Warangal", Category: District},
	{Name: "Kukatpally", Category: Mandal},
	{Name: "Madhapur", Category: Village},
}

func newTestStore(t *testing.T, priority []Category) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore(testEntries, priority, phonetic.NewEncoder())
	require.NoError(t, err)
	return store
}

func TestMemoryStore_ClassifyExact(t *testing.T) {
	store := newTestStore(t, DefaultPriority())

	testCases := []struct {
		name  string
		input string
		want  Category
		found bool
	}{
		{"state", "Telangana", State, true},
		{"lowercase input", "warangal", District, true},
		{"city beats district", "HYDERABAD", City, true},
		{"mandal", "Kukatpally", Mandal, true},
		{"village", "madhapur", Village, true},
		{"miss", "Gotham", "", false},
		{"empty", "", "", false},
		{"surrounding whitespace is significant", "Hyderabad ", "", false},
		{"blank", "  ", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := store.ClassifyExact(tc.input)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMemoryStore_PriorityIsConfigurable(t *testing.T) {
	store := newTestStore(t, []Category{District, City, State, Mandal, Village})

	got, ok := store.ClassifyExact("Hyderabad")
	require.True(t, ok)
	assert.Equal(t, District, got)

	got, ok = store.ClassifyPhonetic("Hyderbad")
	require.True(t, ok)
	assert.Equal(t, District, got)
}

func TestMemoryStore_CategoryOutsidePriorityNeverMatches(t *testing.T) {
	store := newTestStore(t, []Category{State})

	_, ok := store.ClassifyExact("Warangal")
	assert.False(t, ok)
}

func TestMemoryStore_ClassifyPhonetic(t *testing.T) {
	store := newTestStore(t, DefaultPriority())

	got, ok := store.ClassifyPhonetic("Hyderbad")
	require.True(t, ok)
	assert.Equal(t, City, got)

	got, ok = store.ClassifyPhonetic("Hyderabad")
	require.True(t, ok)
	assert.Equal(t, City, got)

	_, ok = store.ClassifyPhonetic("Mumbai")
	assert.False(t, ok)

	_, ok = store.ClassifyPhonetic("500032")
	assert.False(t, ok, "digits have no phonetic code and must not match")
}

func TestMemoryStore_SkipsInvalidEntries(t *testing.T) {
	entries := append([]Entry{
		{Name: "  ", Category: City},
		{Name: "Atlantis", Category: Category("continent")},
	}, testEntries...)

	store, err := NewMemoryStore(entries, DefaultPriority(), nil)
	require.NoError(t, err)

	stats := store.Stats()
	assert.Equal(t, len(testEntries), stats.Total)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, stats.ByCategory[District])
	assert.Equal(t, 1, stats.ByCategory[City])
}

func TestNewMemoryStore_RejectsBadPriority(t *testing.T) {
	_, err := NewMemoryStore(testEntries, nil, nil)
	assert.Error(t, err)

	_, err = NewMemoryStore(testEntries, []Category{"country"}, nil)
	assert.Error(t, err)
}

func TestMemoryStore_Fingerprint(t *testing.T) {
	a := newTestStore(t, DefaultPriority())

	reversed := make([]Entry, len(testEntries))
	for i, e := range testEntries {
		reversed[len(testEntries)-1-i] = e
	}
	b, err := NewMemoryStore(reversed, DefaultPriority(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "fingerprint must not depend on load order")

	c, err := NewMemoryStore(append(testEntries, Entry{Name: "Guntur", Category: District}), DefaultPriority(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestMemoryStore_Suggest(t *testing.T) {
	store := newTestStore(t, DefaultPriority())

	got := store.Suggest("Hyderbad", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "Hyderabad", got[0].Name)
	assert.Equal(t, City, got[0].Category, "priority breaks the tie between identical names")
	assert.True(t, got[0].Phonetic)
	assert.Equal(t, 1, got[0].Distance)
	assert.LessOrEqual(t, len(got), 3)

	assert.Empty(t, store.Suggest("", 5))
}

type failingSource struct{}

func (failingSource) Load(context.Context) ([]Entry, error) {
	return nil, errors.New("connection refused")
}

type staticSource []Entry

func (s staticSource) Load(context.Context) ([]Entry, error) { return s, nil }

func TestLoad(t *testing.T) {
	logger := zap.NewNop()

	_, err := Load(context.Background(), failingSource{}, DefaultPriority(), nil, logger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))

	store, err := Load(context.Background(), staticSource(testEntries), DefaultPriority(), nil, logger)
	require.NoError(t, err)
	assert.Equal(t, len(testEntries), store.Stats().Total)
	assert.Len(t, store.Entries(), len(testEntries))
}

func TestParsePriority(t *testing.T) {
	got, err := ParsePriority(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority(), got)

	got, err = ParsePriority([]string{"Villages", "state"})
	require.NoError(t, err)
	assert.Equal(t, []Category{Village, State}, got)

	_, err = ParsePriority([]string{"state", "States"})
	assert.Error(t, err)

	_, err = ParsePriority([]string{"taluk"})
	assert.Error(t, err)
}
