package parser

import (
	"strings"

	"github.com/address-tagger/app/models"
)

const componentCutset = " ,;"

// Aggregate groups tokens by label. Labels keep the order of their first
// occurrence; tokens sharing a label are joined with a single space in input
// order even when other labels sit between them.
func Aggregate(tagged []models.TaggedToken) models.ParsedAddress {
	index := make(map[models.Label]int)
	var parts [][]string
	var labels []models.Label

	for _, t := range tagged {
		i, ok := index[t.Label]
		if !ok {
			i = len(labels)
			index[t.Label] = i
			labels = append(labels, t.Label)
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], t.Token)
	}

	out := models.ParsedAddress{Components: make([]models.Component, len(labels))}
	for i, l := range labels {
		out.Components[i] = models.Component{
			Label: l,
			Value: strings.Trim(strings.Join(parts[i], " "), componentCutset),
		}
	}
	return out
}
