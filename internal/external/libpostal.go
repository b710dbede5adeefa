//go:build libpostal

package external

import (
	"github.com/openvenues/gopostal/expand"
	"github.com/openvenues/gopostal/parser"
)

// Available reports whether the libpostal bindings were compiled in.
func Available() bool { return true }

// ExtractWithLibpostal parses raw with libpostal after its first expansion and
// maps the components onto the tagger's label set. Repeated labels are joined
// with a space in libpostal's order.
func ExtractWithLibpostal(raw string) (Result, error) {
	opts := expand.DefaultOptions()
	opts.Languages = []string{"en"}
	best := raw
	if exps := expand.ExpandAddress(raw, opts); len(exps) > 0 {
		best = exps[0]
	}

	comps := parser.ParseAddress(best)
	pairs := make([]Component, 0, len(comps))
	for _, c := range comps {
		pairs = append(pairs, Component{Label: c.Label, Value: c.Value})
	}
	return mapComponents(best, pairs), nil
}
