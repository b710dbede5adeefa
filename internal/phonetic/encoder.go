// Package phonetic maps place names to Double Metaphone code pairs.
//
// The same Encoder must be used to build a gazetteer's phonetic index and to
// query it; codes produced by different encoders are not comparable.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Codes is the (primary, secondary) Double Metaphone pair of a name.
// Secondary is empty when the name has no distinct alternate pronunciation.
type Codes struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Empty reports whether neither code carries information.
func (c Codes) Empty() bool {
	return c.Primary == "" && c.Secondary == ""
}

// Each calls fn for every non-empty code, primary first.
func (c Codes) Each(fn func(code string)) {
	if c.Primary != "" {
		fn(c.Primary)
	}
	if c.Secondary != "" {
		fn(c.Secondary)
	}
}

// Encoder computes phonetic codes. The zero value is ready to use and safe for
// concurrent use.
type Encoder struct{}

// NewEncoder returns the shared encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode returns the Double Metaphone codes of name.
//
// Input is NFC-normalized and transliterated to ASCII first so that Devanagari,
// Telugu or accented Latin spellings of a place encode the same way as their
// romanized form.
func (e *Encoder) Encode(name string) Codes {
	folded := Fold(name)
	if folded == "" {
		return Codes{}
	}

	primary, secondary := matchr.DoubleMetaphone(folded)
	if secondary == primary {
		secondary = ""
	}
	return Codes{Primary: primary, Secondary: secondary}
}

// Fold reduces name to uppercase ASCII letters separated by single spaces.
func Fold(name string) string {
	s := norm.NFC.String(name)
	s = unidecode.Unidecode(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
