// Package tokenizer splits raw address strings into candidate tokens.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Separator is the canonical delimiter between address parts.
const Separator = ", "

// Token is one address part. Position is the index in the filtered sequence.
type Token struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// Tokenize splits raw on Separator and drops parts of one character or less.
// Parts are not trimmed; "Main St ,Hyd" stays a single token.
func Tokenize(raw string) []Token {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, Separator)
	tokens := make([]Token, 0, len(parts))
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= 1 {
			continue
		}
		tokens = append(tokens, Token{Text: part, Position: len(tokens)})
	}
	return tokens
}

// TokenizeBytes decodes b with Decode and tokenizes the result.
func TokenizeBytes(b []byte) []Token {
	return Tokenize(Decode(b))
}

// Decode returns b as text. Valid UTF-8 is returned unchanged; anything else is
// read as ISO-8859-1 so every byte maps to some rune and decoding never fails.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}

// Texts returns the token texts in order.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
