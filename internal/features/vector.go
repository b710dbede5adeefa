package features

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies which field of a Value is set.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindString
	KindVector
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a feature value: a boolean, an integer, a string, or a nested vector.
// The zero Value is invalid.
type Value struct {
	kind Kind
	b    bool
	i    int
	s    string
	v    *Vector
}

func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(n int) Value       { return Value{kind: KindInt, i: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }

// Nested wraps v. The vector is not copied.
func Nested(v *Vector) Value { return Value{kind: KindVector, v: v} }

func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload; ok is false for other kinds.
func (v Value) Bool() (b bool, ok bool) { return v.b, v.kind == KindBool }

func (v Value) Int() (int, bool) { return v.i, v.kind == KindInt }

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Vector() (*Vector, bool) { return v.v, v.kind == KindVector && v.v != nil }

// Truthy reports whether the value counts as set: true, non-zero, non-empty or
// a nested vector.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindString:
		return v.s != ""
	case KindVector:
		return v.v != nil
	}
	return false
}

func (v Value) clone() Value {
	if v.kind == KindVector && v.v != nil {
		return Nested(v.v.Clone())
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindString:
		return json.Marshal(v.s)
	case KindVector:
		if v.v == nil {
			return []byte("null"), nil
		}
		return v.v.MarshalJSON()
	}
	return nil, fmt.Errorf("features: cannot marshal invalid value")
}

// Field is one named feature.
type Field struct {
	Key   string
	Value Value
}

// Vector is an ordered set of named features. Keys are unique; Set on an
// existing key replaces the value in place.
type Vector struct {
	fields []Field
}

func NewVector() *Vector {
	return &Vector{fields: make([]Field, 0, 8)}
}

func (v *Vector) index(key string) int {
	for i := range v.fields {
		if v.fields[i].Key == key {
			return i
		}
	}
	return -1
}

// Set stores val under key.
func (v *Vector) Set(key string, val Value) {
	if i := v.index(key); i >= 0 {
		v.fields[i].Value = val
		return
	}
	v.fields = append(v.fields, Field{Key: key, Value: val})
}

func (v *Vector) Get(key string) (Value, bool) {
	if i := v.index(key); i >= 0 {
		return v.fields[i].Value, true
	}
	return Value{}, false
}

func (v *Vector) Has(key string) bool { return v.index(key) >= 0 }

// Delete removes key if present.
func (v *Vector) Delete(key string) {
	if i := v.index(key); i >= 0 {
		v.fields = append(v.fields[:i], v.fields[i+1:]...)
	}
}

func (v *Vector) Len() int { return len(v.fields) }

func (v *Vector) Keys() []string {
	keys := make([]string, len(v.fields))
	for i, f := range v.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the fields in insertion order. The slice is a copy; nested
// vectors are shared.
func (v *Vector) Fields() []Field {
	return append([]Field(nil), v.fields...)
}

// Clone returns a deep copy; nested vectors are copied too.
func (v *Vector) Clone() *Vector {
	out := &Vector{fields: make([]Field, len(v.fields))}
	for i, f := range v.fields {
		out.fields[i] = Field{Key: f.Key, Value: f.Value.clone()}
	}
	return out
}

// MarshalJSON writes the vector as an object with keys in insertion order.
func (v *Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
