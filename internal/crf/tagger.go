package crf

import (
	"math"

	"github.com/address-tagger/internal/features"
)

// Tagger decodes the most likely label sequence with Viterbi. It only reads
// the model and is safe for concurrent use.
type Tagger struct {
	model *Model
	trans [][]float64
}

func NewTagger(m *Model) *Tagger {
	return &Tagger{model: m, trans: m.transScores()}
}

// Labels returns the model's label set.
func (t *Tagger) Labels() []string {
	return append([]string(nil), t.model.Labels.ToStr...)
}

// Tag returns one label per feature vector.
func (t *Tagger) Tag(seq []*features.Vector) ([]string, error) {
	return t.TagAttributes(features.FlattenSequence(seq)), nil
}

// TagAttributes runs Viterbi over pre-flattened attributes.
func (t *Tagger) TagAttributes(seq [][]features.Attribute) []string {
	n := len(seq)
	if n == 0 {
		return []string{}
	}
	numLabels := t.model.NumLabels
	state := t.model.stateScores(seq)

	score := make([][]float64, n)
	back := make([][]int, n)
	score[0] = state[0]
	for i := 1; i < n; i++ {
		score[i] = make([]float64, numLabels)
		back[i] = make([]int, numLabels)
		for y := 0; y < numLabels; y++ {
			best, arg := math.Inf(-1), 0
			for prev := 0; prev < numLabels; prev++ {
				s := score[i-1][prev] + t.trans[prev][y]
				if s > best {
					best, arg = s, prev
				}
			}
			score[i][y] = best + state[i][y]
			back[i][y] = arg
		}
	}

	last, best := 0, math.Inf(-1)
	for y := 0; y < numLabels; y++ {
		if score[n-1][y] > best {
			best, last = score[n-1][y], y
		}
	}

	path := make([]int, n)
	path[n-1] = last
	for i := n - 1; i > 0; i-- {
		path[i-1] = back[i][path[i]]
	}

	labels := make([]string, n)
	for i, y := range path {
		labels[i] = t.model.Labels.ToStr[y]
	}
	return labels
}

func (m *Model) stateScores(seq [][]features.Attribute) [][]float64 {
	scores := make([][]float64, len(seq))
	for i, attrs := range seq {
		scores[i] = make([]float64, m.NumLabels)
		for _, a := range attrs {
			id := m.Attributes.Get(a.Name)
			if id < 0 || a.Value == 0 {
				continue
			}
			for y := 0; y < m.NumLabels; y++ {
				scores[i][y] += m.Weights[m.StateFeatureIndex(id, y)] * a.Value
			}
		}
	}
	return scores
}

func (m *Model) transScores() [][]float64 {
	trans := make([][]float64, m.NumLabels)
	for from := range trans {
		trans[from] = make([]float64, m.NumLabels)
		for to := range trans[from] {
			trans[from][to] = m.Weights[m.TransFeatureIndex(from, to)]
		}
	}
	return trans
}
