package core

// state.go defines the configuration snapshot.
//
// GridState is a value. Its maps and slices are never mutated after a snapshot
// is published: transitions clone exactly the collections they change and
// share the rest with the previous snapshot. Accessors return copies so callers
// cannot reach back into a published snapshot.

import (
	"maps"
	"slices"
)

// Default limits applied by NewGridState.
const (
	DefaultPageSize      = 100
	DefaultMaxPinnedRows = 5
)

// DragState is an in-progress row drag.
type DragState struct {
	RowID       string `json:"rowId"`
	SourceIndex int    `json:"sourceIndex"`
	TargetIndex int    `json:"targetIndex"`
}

// Overlay is the loading / no-rows overlay shown over the grid body.
type Overlay struct {
	Loading bool   `json:"loading"`
	NoRows  bool   `json:"noRows"`
	Message string `json:"message,omitempty"`
}

// GridState is one immutable configuration snapshot.
type GridState struct {
	columns []Column // initial definitions, used by ResetColumns

	sort        []SortSpec
	filters     map[string]FilterValue
	quickFilter string

	page     int
	pageSize int
	rowCount int

	selected map[string]bool
	anchor   int

	editing   *CellRef
	editValue any
	focus     *CellRef

	order       []string
	widths      map[string]float64
	pinnedLeft  []string
	pinnedRight []string
	hidden      map[string]bool

	groupBy        []string
	expandedGroups map[string]bool
	expandedNodes  map[string]bool
	loadingNodes   map[string]bool

	drag *DragState

	pinnedTop       []string
	pinnedBottom    []string
	maxPinnedTop    int
	maxPinnedBottom int

	overlay Overlay
}

// NewGridState creates the initial snapshot for columns.
func NewGridState(columns []Column, pageSize int) GridState {
	if pageSize < 0 {
		pageSize = DefaultPageSize
	}
	s := GridState{
		columns:         slices.Clone(columns),
		pageSize:        pageSize,
		anchor:          -1,
		maxPinnedTop:    DefaultMaxPinnedRows,
		maxPinnedBottom: DefaultMaxPinnedRows,
	}
	s.order, s.widths = initialLayout(columns)
	return s
}

func initialLayout(columns []Column) ([]string, map[string]float64) {
	order := make([]string, 0, len(columns))
	widths := make(map[string]float64, len(columns))
	for _, c := range columns {
		order = append(order, c.Field)
		if c.Width > 0 {
			widths[c.Field] = c.Width
		}
	}
	return order, widths
}

// Columns returns the column definitions the state was created with.
func (s GridState) Columns() []Column { return slices.Clone(s.columns) }

// Column returns the definition of field.
func (s GridState) Column(field string) (Column, bool) {
	for _, c := range s.columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// Kinds returns the declared filter kind of every column.
func (s GridState) Kinds() map[string]FilterKind {
	kinds := make(map[string]FilterKind, len(s.columns))
	for _, c := range s.columns {
		kinds[c.Field] = c.Kind()
	}
	return kinds
}

func (s GridState) Sort() []SortSpec                { return slices.Clone(s.sort) }
func (s GridState) Filters() map[string]FilterValue { return maps.Clone(s.filters) }
func (s GridState) QuickFilter() string             { return s.quickFilter }

// Filter returns the filter configured for field.
func (s GridState) Filter(field string) (FilterValue, bool) {
	fv, ok := s.filters[field]
	return fv, ok
}

// FilterConfig returns the slice of state the filter engine reads. The quick
// filter searches every filterable, visible column.
func (s GridState) FilterConfig() FilterConfig {
	var quick []string
	for _, c := range s.columns {
		if c.Filterable && !s.hidden[c.Field] {
			quick = append(quick, c.Field)
		}
	}
	return FilterConfig{
		Filters:     s.filters,
		Kinds:       s.Kinds(),
		QuickFilter: s.quickFilter,
		QuickFields: quick,
	}
}

func (s GridState) Page() int     { return s.page }
func (s GridState) PageSize() int { return s.pageSize }
func (s GridState) RowCount() int { return s.rowCount }

// PageCount returns the number of pages for the current row count.
func (s GridState) PageCount() int { return PageCount(s.rowCount, s.pageSize) }

// IsSelected reports whether the row is selected.
func (s GridState) IsSelected(id string) bool { return s.selected[id] }

// Selected returns the selected row ids, sorted.
func (s GridState) Selected() []string {
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SelectionAnchor returns the display index of the last selected row, or -1.
func (s GridState) SelectionAnchor() int { return s.anchor }

// Editing returns the cell in edit mode and its pending value.
func (s GridState) Editing() (CellRef, any, bool) {
	if s.editing == nil {
		return CellRef{}, nil, false
	}
	return *s.editing, s.editValue, true
}

// Focus returns the focused cell.
func (s GridState) Focus() (CellRef, bool) {
	if s.focus == nil {
		return CellRef{}, false
	}
	return *s.focus, true
}

func (s GridState) ColumnOrder() []string            { return slices.Clone(s.order) }
func (s GridState) ColumnWidths() map[string]float64 { return maps.Clone(s.widths) }
func (s GridState) PinnedLeft() []string             { return slices.Clone(s.pinnedLeft) }
func (s GridState) PinnedRight() []string            { return slices.Clone(s.pinnedRight) }
func (s GridState) IsHidden(field string) bool       { return s.hidden[field] }

// Hidden returns the hidden column fields in column order.
func (s GridState) Hidden() []string {
	var out []string
	for _, f := range s.order {
		if s.hidden[f] {
			out = append(out, f)
		}
	}
	return out
}

// ColumnWidth returns the configured width of field.
func (s GridState) ColumnWidth(field string) float64 {
	if w, ok := s.widths[field]; ok && w > 0 {
		return w
	}
	return DefaultColumnWidth
}

// ColumnPin returns the side field is pinned to.
func (s GridState) ColumnPin(field string) PinSide {
	switch {
	case slices.Contains(s.pinnedLeft, field):
		return PinLeft
	case slices.Contains(s.pinnedRight, field):
		return PinRight
	}
	return PinNone
}

// VisibleColumns returns the visible fields in render order: pinned left,
// center, pinned right.
func (s GridState) VisibleColumns() []string {
	l := s.Layout()
	out := make([]string, 0, len(l.Left)+len(l.Center)+len(l.Right))
	for _, region := range [][]ColumnSlot{l.Left, l.Center, l.Right} {
		for _, slot := range region {
			out = append(out, slot.Field)
		}
	}
	return out
}

// Layout places the visible columns into pinned and center regions.
func (s GridState) Layout() ColumnLayout {
	return LayoutColumns(s.order, s.widths, s.pinnedLeft, s.pinnedRight, s.hidden)
}

func (s GridState) GroupBy() []string { return slices.Clone(s.groupBy) }

// IsGroupExpanded reports the expansion flag of a group key.
func (s GridState) IsGroupExpanded(key string) bool { return s.expandedGroups[key] }

// ExpandedGroups returns the group expansion map.
func (s GridState) ExpandedGroups() map[string]bool { return maps.Clone(s.expandedGroups) }

// IsNodeExpanded reports the expansion flag of a tree node.
func (s GridState) IsNodeExpanded(id string) bool { return s.expandedNodes[id] }

// ExpandedNodes returns the tree expansion map.
func (s GridState) ExpandedNodes() map[string]bool { return maps.Clone(s.expandedNodes) }

// IsNodeLoading reports whether a lazy load is pending for the node.
func (s GridState) IsNodeLoading(id string) bool { return s.loadingNodes[id] }

// Drag returns the in-progress row drag.
func (s GridState) Drag() (DragState, bool) {
	if s.drag == nil {
		return DragState{}, false
	}
	return *s.drag, true
}

func (s GridState) PinnedTop() []string    { return slices.Clone(s.pinnedTop) }
func (s GridState) PinnedBottom() []string { return slices.Clone(s.pinnedBottom) }

// RowPin returns the side a row is pinned to.
func (s GridState) RowPin(id string) PinSide {
	switch {
	case slices.Contains(s.pinnedTop, id):
		return PinTop
	case slices.Contains(s.pinnedBottom, id):
		return PinBottom
	}
	return PinNone
}

// PinLimits returns the maximum pinned top and bottom row counts.
func (s GridState) PinLimits() (top, bottom int) { return s.maxPinnedTop, s.maxPinnedBottom }

func (s GridState) Overlay() Overlay { return s.overlay }

// with* helpers return clones of a collection with one change applied.

func withFlag(m map[string]bool, key string, on bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	if on {
		out[key] = true
	} else {
		delete(out, key)
	}
	return out
}

func withoutString(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func moveString(list []string, v string, to int) []string {
	out := withoutString(list, v)
	to = clampInt(to, 0, len(out))
	return slices.Insert(out, to, v)
}
