package features

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/phonetic"
	"github.com/address-tagger/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	exact         map[string]gazetteer.Category
	phonetic      map[string]gazetteer.Category
	phoneticCalls []string
}

func (f *fakeClassifier) ClassifyExact(name string) (gazetteer.Category, bool) {
	c, ok := f.exact[strings.ToUpper(name)]
	return c, ok
}

func (f *fakeClassifier) ClassifyPhonetic(name string) (gazetteer.Category, bool) {
	f.phoneticCalls = append(f.phoneticCalls, name)
	c, ok := f.phonetic[strings.ToUpper(name)]
	return c, ok
}

func newFake() *fakeClassifier {
	return &fakeClassifier{
		exact: map[string]gazetteer.Category{
			"HYDERABAD": gazetteer.City,
			"TELANGANA": gazetteer.State,
		},
		phonetic: map[string]gazetteer.Category{
			"HYDERBAD": gazetteer.City,
		},
	}
}

func str(t *testing.T, v *Vector, key string) string {
	t.Helper()
	val, ok := v.Get(key)
	require.True(t, ok, "missing key %s", key)
	s, ok := val.Str()
	require.True(t, ok, "key %s is %s, not string", key, val.Kind())
	return s
}

func flag(t *testing.T, v *Vector, key string) bool {
	t.Helper()
	val, ok := v.Get(key)
	require.True(t, ok, "missing key %s", key)
	b, ok := val.Bool()
	require.True(t, ok, "key %s is %s, not bool", key, val.Kind())
	return b
}

func nested(t *testing.T, v *Vector, key string) *Vector {
	t.Helper()
	val, ok := v.Get(key)
	require.True(t, ok, "missing key %s", key)
	inner, ok := val.Vector()
	require.True(t, ok)
	return inner
}

func TestTokenFeatures(t *testing.T) {
	e := NewExtractor(newFake())

	v := e.TokenFeatures("Banjara Hills Road")
	n, ok := mustInt(v, KeyLen)
	require.True(t, ok)
	assert.Equal(t, 18, n)
	assert.False(t, flag(t, v, KeyHeirarchy))
	assert.False(t, flag(t, v, KeySoundsLike))
	assert.True(t, flag(t, v, KeyStreet))
	assert.False(t, flag(t, v, KeyIsDigit))
	assert.False(t, flag(t, v, KeyContainsDigits))
	assert.Equal(t, []string{KeyLen, KeyHeirarchy, KeySoundsLike, KeyStreet, KeyIsDigit, KeyContainsDigits}, v.Keys())
}

func mustInt(v *Vector, key string) (int, bool) {
	val, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	return val.Int()
}

func TestTokenFeatures_Digits(t *testing.T) {
	e := NewExtractor(nil)

	pin := e.TokenFeatures("500032")
	assert.True(t, flag(t, pin, KeyIsDigit))
	assert.True(t, flag(t, pin, KeyContainsDigits))

	house := e.TokenFeatures("12-5-34")
	assert.False(t, flag(t, house, KeyIsDigit))
	assert.True(t, flag(t, house, KeyContainsDigits))
}

func TestTokenFeatures_StreetUsesLastWordOnly(t *testing.T) {
	e := NewExtractor(nil)

	testCases := []struct {
		token string
		want  bool
	}{
		{"MG Road", true},
		{"Tank Bund RD", true},
		{"Nehru Street", true},
		{"Road No 12", false},
		{"Street Market", false},
		{"Jubilee Hills ", false},
		{"ave", true},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			assert.Equal(t, tc.want, flag(t, e.TokenFeatures(tc.token), KeyStreet))
		})
	}
}

func TestTokenFeatures_ExactMatchSkipsPhonetic(t *testing.T) {
	fake := newFake()
	e := NewExtractor(fake)

	v := e.TokenFeatures("Hyderabad")
	assert.Equal(t, "city", str(t, v, KeyHeirarchy))
	assert.Equal(t, "city", str(t, v, KeySoundsLike))
	assert.Empty(t, fake.phoneticCalls)

	v = e.TokenFeatures("Hyderbad")
	assert.False(t, flag(t, v, KeyHeirarchy))
	assert.Equal(t, "city", str(t, v, KeySoundsLike))
	assert.Equal(t, []string{"Hyderbad"}, fake.phoneticCalls)
}

func TestTokenFeatures_PhoneticWithRealStore(t *testing.T) {
	store, err := gazetteer.NewMemoryStore([]gazetteer.Entry{
		{Name: "Hyderabad", Category: gazetteer.City},
		{Name: "Telangana", Category: gazetteer.State},
	}, gazetteer.DefaultPriority(), phonetic.NewEncoder())
	require.NoError(t, err)
	e := NewExtractor(store)

	canonical := e.TokenFeatures("Hyderabad")
	misspelt := e.TokenFeatures("Hyderbad")
	assert.Equal(t, str(t, canonical, KeySoundsLike), str(t, misspelt, KeySoundsLike))
	assert.Equal(t, "city", str(t, misspelt, KeySoundsLike))
}

func TestTokens2Features_Alignment(t *testing.T) {
	e := NewExtractor(newFake())

	for _, raw := range []string{
		"Hyderabad",
		"Madhapur, Hyderabad",
		"12-5-34, Vijayapuri Colony, Tarnaka, Hyderabad, Telangana, 500017",
	} {
		tokens := tokenizer.Tokenize(raw)
		seq := e.Tokens2Features(tokens)
		assert.Len(t, seq, len(tokens), raw)
		for i, tok := range tokens {
			n, _ := mustInt(seq[i], KeyLen)
			assert.Equal(t, len([]rune(tok.Text)), n)
		}
	}

	assert.Empty(t, e.Tokens2Features(nil))
}

func TestTokens2Features_Singleton(t *testing.T) {
	e := NewExtractor(newFake())

	seq := e.Tokens2Features(tokenizer.Tokenize("Hyderabad"))
	require.Len(t, seq, 1)
	assert.True(t, flag(t, seq[0], KeySingleton))
	assert.False(t, seq[0].Has(KeyPrevious))
	assert.False(t, seq[0].Has(KeyNext))
	assert.False(t, seq[0].Has(KeyStart))
	assert.False(t, seq[0].Has(KeyEnd))
}

func TestTokens2Features_Boundaries(t *testing.T) {
	e := NewExtractor(newFake())

	seq := e.Tokens2Features(tokenizer.Tokenize("Plot 7, Madhapur, Hyderabad, Telangana"))
	require.Len(t, seq, 4)

	assert.True(t, flag(t, seq[0], KeyStart))
	assert.False(t, seq[0].Has(KeyEnd))
	assert.False(t, seq[0].Has(KeyPrevious))
	assert.True(t, flag(t, seq[3], KeyEnd))
	assert.False(t, seq[3].Has(KeyNext))

	assert.True(t, flag(t, nested(t, seq[1], KeyPrevious), KeyStart))
	assert.True(t, flag(t, nested(t, seq[2], KeyNext), KeyEnd))

	// Inner copies carry only the neighbour's own features.
	assert.False(t, nested(t, seq[2], KeyPrevious).Has(KeyStart))
	assert.False(t, nested(t, seq[1], KeyNext).Has(KeyEnd))
	assert.False(t, nested(t, seq[1], KeyNext).Has(KeyNext))
	assert.False(t, nested(t, seq[2], KeyPrevious).Has(KeyPrevious))
	assert.False(t, seq[1].Has(KeySingleton))
}

func TestTokens2Features_TwoTokens(t *testing.T) {
	e := NewExtractor(newFake())

	seq := e.Tokens2Features(tokenizer.Tokenize("Hyderabad, Telangana"))
	require.Len(t, seq, 2)

	assert.True(t, flag(t, nested(t, seq[1], KeyPrevious), KeyStart))
	assert.True(t, flag(t, nested(t, seq[0], KeyNext), KeyEnd))
	assert.Equal(t, "state", str(t, nested(t, seq[0], KeyNext), KeyHeirarchy))
	assert.Equal(t, "city", str(t, nested(t, seq[1], KeyPrevious), KeyHeirarchy))
}

func TestTokens2Features_NeighbourCopiesAreIndependent(t *testing.T) {
	e := NewExtractor(newFake())

	seq := e.Tokens2Features(tokenizer.Tokenize("Madhapur, Hyderabad, Telangana"))
	require.Len(t, seq, 3)

	nested(t, seq[0], KeyNext).Set(KeyLen, Int(-1))
	n, _ := mustInt(seq[1], KeyLen)
	assert.Equal(t, 9, n)
	n, _ = mustInt(nested(t, seq[2], KeyPrevious), KeyLen)
	assert.Equal(t, 9, n)
}

func TestVector_MarshalJSONKeepsOrder(t *testing.T) {
	e := NewExtractor(newFake())
	seq := e.Tokens2Features(tokenizer.Tokenize("Hyderabad, 500032"))

	b, err := json.Marshal(seq[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `{"len":6,"heirarchy":false,"soundslike":false,"street":false,"isdigit":true`))
	assert.Contains(t, string(b), `"previous":{"len":9,"heirarchy":"city","soundslike":"city"`)
	assert.True(t, strings.HasSuffix(string(b), `"rawstring.end":true}`))
}
