package core

// types.go defines rows, columns and the aggregate vocabulary shared by every
// engine.

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Row is one record of the dataset. ID is unique and stable across
// recomputation; Fields holds heterogeneous values (string, number, bool,
// time.Time, nil). A field missing from Fields is treated as absent.
type Row struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Get returns the value of a field and whether it is present.
func (r Row) Get(field string) (any, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Value returns the value of a field, or nil when absent.
func (r Row) Value(field string) any {
	return r.Fields[field]
}

// with returns a copy of the row with field set to v.
func (r Row) with(field string, v any) Row {
	fields := make(map[string]any, len(r.Fields)+1)
	for k, val := range r.Fields {
		fields[k] = val
	}
	fields[field] = v
	return Row{ID: r.ID, Fields: fields}
}

// FilterKind selects how a column's filter is evaluated.
type FilterKind string

const (
	FilterText   FilterKind = "text"
	FilterNumber FilterKind = "number"
	FilterDate   FilterKind = "date"
	FilterSet    FilterKind = "set"
)

// Column describes a grid column. Width and pin side are configuration and
// live in the grid state; Width here is only the initial value.
type Column struct {
	Field      string     `json:"field"`
	HeaderName string     `json:"headerName,omitempty"`
	Width      float64    `json:"width,omitempty"`
	Sortable   bool       `json:"sortable"`
	Filterable bool       `json:"filterable"`
	Pinnable   bool       `json:"pinnable"`
	FilterKind FilterKind `json:"filterKind,omitempty"`
}

// DefaultColumnWidth is used when a column declares no width.
const DefaultColumnWidth = 150

// DisplayName returns the header name, deriving one from the field name
// ("unit_price" -> "Unit Price") when none is set.
func (c Column) DisplayName() string {
	if c.HeaderName != "" {
		return c.HeaderName
	}
	words := strings.FieldsFunc(c.Field, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// Kind returns the column's filter kind, defaulting to text.
func (c Column) Kind() FilterKind {
	if c.FilterKind == "" {
		return FilterText
	}
	return c.FilterKind
}

// SortDirection is the direction of a sort key. The empty direction removes
// a key's influence without removing it from the configuration.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
	SortNone SortDirection = ""
)

// SortSpec represents a single sort column and direction.
type SortSpec struct {
	Field     string        `json:"field" yaml:"field"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// AggregateFunc names an aggregation.
type AggregateFunc string

const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggTotal AggregateFunc = "total" // alias of sum
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
)

// AggregateConfig requests one aggregate over one field.
type AggregateConfig struct {
	Field string        `json:"field" yaml:"field"`
	Func  AggregateFunc `json:"func" yaml:"func"`
}

// ColumnAggregation holds aggregated values for a single field over a leaf set.
// Numeric aggregates are nil when no leaf carried a usable number or when the
// aggregate was not requested. Count is always the leaf row count.
type ColumnAggregation struct {
	Field   string   `json:"field"`
	Sum     *float64 `json:"sum,omitempty"`
	Avg     *float64 `json:"avg,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Count   int64    `json:"count"`
	Numeric int64    `json:"numeric"` // leaves whose value coerced to a number
}

// Value returns the aggregate for fn, or nil when absent.
func (a *ColumnAggregation) Value(fn AggregateFunc) *float64 {
	if a == nil {
		return nil
	}
	switch fn {
	case AggCount:
		c := float64(a.Count)
		return &c
	case AggSum, AggTotal:
		return a.Sum
	case AggAvg:
		return a.Avg
	case AggMin:
		return a.Min
	case AggMax:
		return a.Max
	}
	return nil
}

// Aggregations maps field names to their aggregation results.
type Aggregations map[string]*ColumnAggregation

// CellRef addresses one cell by row id and field.
type CellRef struct {
	RowID string `json:"rowId"`
	Field string `json:"field"`
}

// PinSide is the side a column or row is pinned to.
type PinSide string

const (
	PinNone   PinSide = ""
	PinLeft   PinSide = "left"
	PinRight  PinSide = "right"
	PinTop    PinSide = "top"
	PinBottom PinSide = "bottom"
)
