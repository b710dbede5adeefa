package features

import "strconv"

// Attribute is one weighted attribute as seen by a CRF model.
type Attribute struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Flatten converts v into CRFsuite-style attributes, in field order:
//
//	bool   -> key = 1 or 0
//	int    -> key = n
//	string -> "key:value" = 1
//	vector -> each inner attribute prefixed with "key:"
func Flatten(v *Vector) []Attribute {
	return flattenInto(nil, "", v)
}

// FlattenSequence flattens every vector of seq.
func FlattenSequence(seq []*Vector) [][]Attribute {
	out := make([][]Attribute, len(seq))
	for i, v := range seq {
		out[i] = Flatten(v)
	}
	return out
}

func flattenInto(dst []Attribute, prefix string, v *Vector) []Attribute {
	if v == nil {
		return dst
	}
	for _, f := range v.fields {
		name := prefix + f.Key
		switch f.Value.kind {
		case KindBool:
			w := 0.0
			if f.Value.b {
				w = 1
			}
			dst = append(dst, Attribute{Name: name, Value: w})
		case KindInt:
			dst = append(dst, Attribute{Name: name, Value: float64(f.Value.i)})
		case KindString:
			dst = append(dst, Attribute{Name: name + ":" + f.Value.s, Value: 1})
		case KindVector:
			dst = flattenInto(dst, name+":", f.Value.v)
		}
	}
	return dst
}

// Names returns the attribute names of attrs, formatted as name=value when the
// weight is not 1. Used for debugging output.
func Names(attrs []Attribute) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		if a.Value == 1 {
			out[i] = a.Name
			continue
		}
		out[i] = a.Name + "=" + strconv.FormatFloat(a.Value, 'g', -1, 64)
	}
	return out
}
