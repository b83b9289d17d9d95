package rowsio

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// InferColumns builds one sortable, filterable column per field. The filter
// kind comes from kinds when present (case-insensitive), else number when
// every value is numeric, date when every value is a date string, and text
// otherwise.
func InferColumns(ds Dataset, kinds map[string]string) ([]core.Column, error) {
	for field := range kinds {
		if !slices.Contains(ds.Fields, field) {
			return nil, fmt.Errorf("kind for %s: no such field in rows", field)
		}
	}

	cols := make([]core.Column, 0, len(ds.Fields))
	for _, field := range ds.Fields {
		col := core.Column{Field: field, Sortable: true, Filterable: true, FilterKind: DetectKind(ds.Rows, field)}
		if k, ok := kinds[field]; ok {
			kind, err := ParseKind(k)
			if err != nil {
				return nil, fmt.Errorf("kind for %s: %w", field, err)
			}
			col.FilterKind = kind
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// ParseKind parses a filter kind name.
func ParseKind(s string) (core.FilterKind, error) {
	kind := core.FilterKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case core.FilterText, core.FilterNumber, core.FilterDate, core.FilterSet:
		return kind, nil
	}
	return "", fmt.Errorf("unknown kind %q: must be text, number, date or set", s)
}

// DetectKind infers the filter kind of field from its non-empty values.
func DetectKind(rows []core.Row, field string) core.FilterKind {
	numbers, dates, values := true, true, 0
	for _, r := range rows {
		v := r.Value(field)
		if core.IsEmpty(v) {
			continue
		}
		values++
		if _, ok := v.(float64); !ok {
			numbers = false
		}
		if s, ok := v.(string); !ok {
			dates = false
		} else if _, ok := core.ToDate(s); !ok {
			dates = false
		}
	}
	switch {
	case values == 0:
		return core.FilterText
	case numbers:
		return core.FilterNumber
	case dates:
		return core.FilterDate
	}
	return core.FilterText
}
