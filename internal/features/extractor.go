// Package features turns address tokens into the feature vectors consumed by
// the sequence tagger.
//
// Every token gets the same fixed key set. Adjacent tokens see each other
// through the "previous" and "next" keys, which hold copies of the
// neighbour's own features taken before boundary markers are applied.
package features

import (
	"unicode"
	"unicode/utf8"

	"github.com/address-tagger/internal/gazetteer"
	"github.com/address-tagger/internal/tokenizer"
)

// Feature keys.
const (
	KeyLen            = "len"
	KeyHeirarchy      = "heirarchy"
	KeySoundsLike     = "soundslike"
	KeyStreet         = "street"
	KeyIsDigit        = "isdigit"
	KeyContainsDigits = "containsdigits"
	KeyPrevious       = "previous"
	KeyNext           = "next"
	KeyStart          = "rawstring.start"
	KeyEnd            = "rawstring.end"
	KeySingleton      = "singleton"
)

// Classifier answers gazetteer membership questions for a token.
type Classifier interface {
	ClassifyExact(name string) (gazetteer.Category, bool)
	ClassifyPhonetic(name string) (gazetteer.Category, bool)
}

// Extractor computes feature vectors. It holds no per-request state and can
// be shared across goroutines when its Classifier can.
type Extractor struct {
	gazetteer Classifier
	streets   StreetTypes
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStreetTypes replaces the embedded street-type list.
func WithStreetTypes(s StreetTypes) Option {
	return func(e *Extractor) { e.streets = s }
}

// NewExtractor returns an extractor backed by c. A nil classifier makes every
// gazetteer lookup miss.
func NewExtractor(c Classifier, opts ...Option) *Extractor {
	e := &Extractor{gazetteer: c}
	for _, opt := range opts {
		opt(e)
	}
	if e.streets == nil {
		e.streets = DefaultStreetTypes()
	}
	return e
}

// TokenFeatures computes the per-token features. The phonetic lookup only
// runs when the exact lookup misses; otherwise soundslike repeats heirarchy.
func (e *Extractor) TokenFeatures(token string) *Vector {
	v := NewVector()

	heirarchy, exact := e.classifyExact(token)
	soundslike := heirarchy
	if !exact {
		soundslike = e.classifyPhonetic(token)
	}

	v.Set(KeyLen, Int(utf8.RuneCountInString(token)))
	v.Set(KeyHeirarchy, heirarchy)
	v.Set(KeySoundsLike, soundslike)
	v.Set(KeyStreet, Bool(e.streets.Match(token)))
	v.Set(KeyIsDigit, Bool(isDigit(token)))
	v.Set(KeyContainsDigits, Bool(containsDigit(token)))
	return v
}

// Tokens2Features returns one vector per token, in token order.
func (e *Extractor) Tokens2Features(tokens []tokenizer.Token) []*Vector {
	if len(tokens) == 0 {
		return []*Vector{}
	}

	seq := make([]*Vector, 0, len(tokens))
	seq = append(seq, e.TokenFeatures(tokens[0].Text))
	previous := seq[0].Clone()

	for _, tok := range tokens[1:] {
		features := e.TokenFeatures(tok.Text)
		current := features.Clone()

		seq[len(seq)-1].Set(KeyNext, Nested(current))
		features.Set(KeyPrevious, Nested(previous))

		seq = append(seq, features)
		previous = current.Clone()
	}

	if len(seq) == 1 {
		seq[0].Set(KeySingleton, Bool(true))
		return seq
	}

	seq[0].Set(KeyStart, Bool(true))
	seq[len(seq)-1].Set(KeyEnd, Bool(true))
	// The neighbour copies were taken before the markers above, patch them too.
	if prev, ok := nestedAt(seq[1], KeyPrevious); ok {
		prev.Set(KeyStart, Bool(true))
	}
	if next, ok := nestedAt(seq[len(seq)-2], KeyNext); ok {
		next.Set(KeyEnd, Bool(true))
	}
	return seq
}

// Strings is a convenience wrapper around Tokens2Features for plain texts.
func (e *Extractor) Strings(texts []string) []*Vector {
	tokens := make([]tokenizer.Token, len(texts))
	for i, t := range texts {
		tokens[i] = tokenizer.Token{Text: t, Position: i}
	}
	return e.Tokens2Features(tokens)
}

func (e *Extractor) classifyExact(token string) (Value, bool) {
	if e.gazetteer == nil {
		return Bool(false), false
	}
	if c, ok := e.gazetteer.ClassifyExact(token); ok {
		return String(string(c)), true
	}
	return Bool(false), false
}

func (e *Extractor) classifyPhonetic(token string) Value {
	if e.gazetteer == nil {
		return Bool(false)
	}
	if c, ok := e.gazetteer.ClassifyPhonetic(token); ok {
		return String(string(c))
	}
	return Bool(false)
}

func nestedAt(v *Vector, key string) (*Vector, bool) {
	val, ok := v.Get(key)
	if !ok {
		return nil, false
	}
	return val.Vector()
}

func isDigit(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
