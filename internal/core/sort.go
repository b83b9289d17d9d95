package core

import (
	"slices"
	"strings"
	"time"
)

// SortRows returns a stably sorted copy of rows. Keys are compared in order,
// falling through on equality; full ties keep their input order. Keys with no
// direction are skipped. Absent values sort after all present values in both
// directions. kinds optionally declares which fields are numeric or dates.
func SortRows(rows []Row, specs []SortSpec, kinds map[string]FilterKind) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	keys := activeSortKeys(specs)
	if len(keys) == 0 {
		return out
	}

	slices.SortStableFunc(out, func(a, b Row) int {
		return compareRows(a, b, keys, kinds)
	})
	return out
}

func activeSortKeys(specs []SortSpec) []SortSpec {
	keys := make([]SortSpec, 0, len(specs))
	for _, s := range specs {
		if s.Field == "" || (s.Direction != SortAsc && s.Direction != SortDesc) {
			continue
		}
		keys = append(keys, s)
	}
	return keys
}

func compareRows(a, b Row, keys []SortSpec, kinds map[string]FilterKind) int {
	for _, k := range keys {
		if c := CompareValues(a.Value(k.Field), b.Value(k.Field), k.Direction, kinds[k.Field]); c != 0 {
			return c
		}
	}
	return 0
}

// CompareValues orders two field values for direction dir. nil and blank
// values always sort last regardless of direction.
func CompareValues(a, b any, dir SortDirection, kind FilterKind) int {
	aEmpty, bEmpty := IsEmpty(a), IsEmpty(b)
	switch {
	case aEmpty && bEmpty:
		return 0
	case aEmpty:
		return 1
	case bEmpty:
		return -1
	}

	c := compareDefined(a, b, kind)
	if dir == SortDesc {
		return -c
	}
	return c
}

func compareDefined(a, b any, kind FilterKind) int {
	if kind == FilterNumber || (isNumberType(a) && isNumberType(b)) {
		x, xok := ToNumber(a)
		y, yok := ToNumber(b)
		switch {
		case xok && yok:
			return cmpFloat(x, y)
		case xok:
			return -1
		case yok:
			return 1
		}
	}
	if kind == FilterDate || isTime(a) && isTime(b) {
		x, xok := ToDate(a)
		y, yok := ToDate(b)
		if kind != FilterDate {
			// full precision for two timestamps
			x, y = a.(time.Time), b.(time.Time)
		}
		switch {
		case xok && yok:
			return x.Compare(y)
		case xok:
			return -1
		case yok:
			return 1
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(strings.ToLower(ToText(a)), strings.ToLower(ToText(b)))
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
