package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TaggedToken is one token with the label assigned to it.
type TaggedToken struct {
	Token string `json:"token" bson:"token"`
	Label Label  `json:"label" bson:"label"`
}

// Component is one assembled address part.
type Component struct {
	Label Label  `json:"label" bson:"label"`
	Value string `json:"value" bson:"value"`
}

// ParsedAddress maps labels to component text. Components are kept in the
// order their label first appeared; each label occurs at most once.
type ParsedAddress struct {
	Components []Component `bson:"components"`
}

// Get returns the value for label, if present.
func (p ParsedAddress) Get(l Label) (string, bool) {
	for _, c := range p.Components {
		if c.Label == l {
			return c.Value, true
		}
	}
	return "", false
}

func (p ParsedAddress) Len() int { return len(p.Components) }

// Labels returns the labels in first-occurrence order.
func (p ParsedAddress) Labels() []Label {
	out := make([]Label, len(p.Components))
	for i, c := range p.Components {
		out[i] = c.Label
	}
	return out
}

// Map returns the components as a plain map; order is lost.
func (p ParsedAddress) Map() map[string]string {
	out := make(map[string]string, len(p.Components))
	for _, c := range p.Components {
		out[string(c.Label)] = c.Value
	}
	return out
}

// MarshalJSON writes an object whose key order is the component order.
func (p ParsedAddress) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range p.Components {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(c.Label))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order.
func (p *ParsedAddress) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		p.Components = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parsed address: expected object, got %v", tok)
	}

	p.Components = p.Components[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("parsed address %q: %w", key, err)
		}
		p.Components = append(p.Components, Component{Label: Label(key), Value: value})
	}
	_, err = dec.Token()
	return err
}
