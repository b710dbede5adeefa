// Package parser wires tokenization, feature extraction and the sequence
// tagger into the address tagging pipeline.
package parser

import (
	"errors"
	"fmt"

	"github.com/address-tagger/app/models"
	"github.com/address-tagger/internal/features"
	"github.com/address-tagger/internal/tokenizer"
	"go.uber.org/zap"
)

// ErrModelUnavailable is returned by Parse and Tag when no tagger model was
// loaded. It is a startup configuration problem, not a property of the input.
var ErrModelUnavailable = errors.New("missing tagger model: train a CRF model on labelled addresses, " +
	"export it as JSON and set MODEL_PATH (or model_path in config/parser.yaml) to the file before using parse or tag")

// ErrLabelMismatch is returned when the tagger output is not aligned with the
// token sequence.
var ErrLabelMismatch = errors.New("tagger returned a label sequence that does not match the tokens")

// Tagger labels a feature sequence, one label per vector.
type Tagger interface {
	Tag(seq []*features.Vector) ([]string, error)
}

// AddressParser runs the pipeline. It keeps no per-request state.
type AddressParser struct {
	extractor *features.Extractor
	tagger    Tagger
	logger    *zap.Logger
}

// New builds a parser. tagger may be nil, in which case Parse and Tag report
// ErrModelUnavailable while Features keeps working.
func New(extractor *features.Extractor, tagger Tagger, logger *zap.Logger) *AddressParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = features.NewExtractor(nil)
	}
	return &AddressParser{extractor: extractor, tagger: tagger, logger: logger}
}

// Ready reports whether a tagger model is loaded.
func (p *AddressParser) Ready() bool {
	return p.tagger != nil
}

// Features tokenizes raw and returns the tokens with their feature vectors.
func (p *AddressParser) Features(raw string) ([]tokenizer.Token, []*features.Vector) {
	tokens := tokenizer.Tokenize(raw)
	return tokens, p.extractor.Tokens2Features(tokens)
}

// Parse returns every token of raw with its label. Input without usable
// tokens yields an empty slice and the tagger is not called.
func (p *AddressParser) Parse(raw string) ([]models.TaggedToken, error) {
	if p.tagger == nil {
		return nil, ErrModelUnavailable
	}

	tokens := tokenizer.Tokenize(raw)
	if len(tokens) == 0 {
		return []models.TaggedToken{}, nil
	}

	seq := p.extractor.Tokens2Features(tokens)
	labels, err := p.tagger.Tag(seq)
	if err != nil {
		return nil, fmt.Errorf("tag %d tokens: %w", len(tokens), err)
	}
	if len(labels) != len(tokens) {
		p.logger.Error("Tagger output misaligned",
			zap.Int("tokens", len(tokens)),
			zap.Int("labels", len(labels)))
		return nil, fmt.Errorf("%w: %d tokens, %d labels", ErrLabelMismatch, len(tokens), len(labels))
	}

	tagged := make([]models.TaggedToken, len(tokens))
	for i, tok := range tokens {
		label, err := models.ParseLabel(labels[i])
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		tagged[i] = models.TaggedToken{Token: tok.Text, Label: label}
	}
	return tagged, nil
}

// Tag parses raw and folds the tagged tokens into components.
func (p *AddressParser) Tag(raw string) (models.ParsedAddress, error) {
	tagged, err := p.Parse(raw)
	if err != nil {
		return models.ParsedAddress{}, err
	}
	return Aggregate(tagged), nil
}
