package core

import (
	"cmp"
	"slices"
)

// Facet is one distinct value of a field with the number of rows holding it.
type Facet struct {
	Value any    `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Facets returns the distinct values of field with counts, evaluated against
// every filter except the field's own so the breakdown shows what selecting a
// different value would yield. Facets are ordered by descending count, then
// by value; absent values are counted under a nil Value.
func Facets(rows []Row, field string, cfg FilterConfig) []Facet {
	others := cfg
	if _, ok := cfg.Filters[field]; ok {
		others.Filters = make(map[string]FilterValue, len(cfg.Filters)-1)
		for f, fv := range cfg.Filters {
			if f != field {
				others.Filters[f] = fv
			}
		}
	}

	index := make(map[string]int)
	var out []Facet
	for _, r := range rows {
		if !Matches(r, others) {
			continue
		}
		v := r.Value(field)
		if IsEmpty(v) {
			v = nil
		}
		key := ValueKey(v)
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, Facet{Value: v, Label: ToText(v), Count: 1})
	}

	kind := cfg.Kinds[field]
	slices.SortStableFunc(out, func(a, b Facet) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return CompareValues(a.Value, b.Value, SortAsc, kind)
	})
	return out
}
