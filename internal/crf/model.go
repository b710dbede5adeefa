// Package crf runs linear-chain CRF inference over feature vectors.
//
// Models are trained elsewhere and stored as JSON:
//
//	{
//	  "labels":     {"to_str": ["city", "state", ...]},
//	  "attributes": {"to_str": ["len", "heirarchy:city", ...]},
//	  "num_labels": 10,
//	  "weights":    [...]
//	}
//
// Weight layout is state features first (attrID*numLabels + labelID) followed
// by the numLabels x numLabels transition matrix (from*numLabels + to).
package crf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrInvalidModel reports a model file that cannot be used for tagging.
var ErrInvalidModel = errors.New("invalid crf model")

// Alphabet maps between strings and dense integer IDs.
type Alphabet struct {
	ToID  map[string]int `json:"to_id,omitempty"`
	ToStr []string       `json:"to_str"`
}

func NewAlphabet() *Alphabet {
	return &Alphabet{ToID: make(map[string]int)}
}

// Add returns the ID of s, adding it when missing.
func (a *Alphabet) Add(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	id := len(a.ToStr)
	a.ToID[s] = id
	a.ToStr = append(a.ToStr, s)
	return id
}

// Get returns the ID of s, or -1.
func (a *Alphabet) Get(s string) int {
	if id, ok := a.ToID[s]; ok {
		return id
	}
	return -1
}

func (a *Alphabet) Size() int { return len(a.ToStr) }

// reindex rebuilds ToID from ToStr, which is the authoritative field on disk.
func (a *Alphabet) reindex() error {
	a.ToID = make(map[string]int, len(a.ToStr))
	for i, s := range a.ToStr {
		if _, dup := a.ToID[s]; dup {
			return fmt.Errorf("duplicate entry %q", s)
		}
		a.ToID[s] = i
	}
	return nil
}

// Model holds CRF parameters.
type Model struct {
	Labels     *Alphabet `json:"labels"`
	Attributes *Alphabet `json:"attributes"`
	Weights    []float64 `json:"weights"`
	NumLabels  int       `json:"num_labels"`
}

func NewModel() *Model {
	return &Model{Labels: NewAlphabet(), Attributes: NewAlphabet()}
}

// TransOffset is where transition weights start.
func (m *Model) TransOffset() int {
	return m.Attributes.Size() * m.NumLabels
}

func (m *Model) NumWeights() int {
	return m.TransOffset() + m.NumLabels*m.NumLabels
}

func (m *Model) StateFeatureIndex(attrID, labelID int) int {
	return attrID*m.NumLabels + labelID
}

func (m *Model) TransFeatureIndex(from, to int) int {
	return m.TransOffset() + from*m.NumLabels + to
}

// Validate checks internal consistency and, when allowed is non-empty, that
// every model label is in allowed.
func (m *Model) Validate(allowed []string) error {
	if m.Labels == nil || m.Attributes == nil {
		return fmt.Errorf("%w: missing label or attribute alphabet", ErrInvalidModel)
	}
	if err := m.Labels.reindex(); err != nil {
		return fmt.Errorf("%w: labels: %v", ErrInvalidModel, err)
	}
	if err := m.Attributes.reindex(); err != nil {
		return fmt.Errorf("%w: attributes: %v", ErrInvalidModel, err)
	}
	if m.NumLabels == 0 {
		m.NumLabels = m.Labels.Size()
	}
	if m.NumLabels == 0 || m.NumLabels != m.Labels.Size() {
		return fmt.Errorf("%w: num_labels %d does not match %d labels", ErrInvalidModel, m.NumLabels, m.Labels.Size())
	}
	if len(m.Weights) != m.NumWeights() {
		return fmt.Errorf("%w: expected %d weights, got %d", ErrInvalidModel, m.NumWeights(), len(m.Weights))
	}

	if len(allowed) > 0 {
		known := make(map[string]bool, len(allowed))
		for _, l := range allowed {
			known[l] = true
		}
		for _, l := range m.Labels.ToStr {
			if !known[l] {
				return fmt.Errorf("%w: unknown label %q", ErrInvalidModel, l)
			}
		}
	}
	return nil
}

// Decode reads a JSON model from r and validates it.
func Decode(r io.Reader, allowed []string) (*Model, error) {
	m := NewModel()
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := m.Validate(allowed); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads and validates the model at path.
func Load(path string, allowed []string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crf model: %w", err)
	}
	defer f.Close()

	m, err := Decode(f, allowed)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// Encode writes m as JSON. ToID is omitted since Decode rebuilds it.
func (m *Model) Encode(w io.Writer) error {
	out := struct {
		Labels     Alphabet  `json:"labels"`
		Attributes Alphabet  `json:"attributes"`
		Weights    []float64 `json:"weights"`
		NumLabels  int       `json:"num_labels"`
	}{
		Labels:     Alphabet{ToStr: m.Labels.ToStr},
		Attributes: Alphabet{ToStr: m.Attributes.ToStr},
		Weights:    m.Weights,
		NumLabels:  m.NumLabels,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
