package core

// transitions.go holds every named transition of the configuration store.
//
// A transition takes the current snapshot by value and returns the next one.
// It either succeeds completely or returns an error, in which case the store
// keeps the previous snapshot. Collections are cloned before modification.
//
// Filter, quick-filter and sort changes reset the page to 0.

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrNoEditInProgress is returned by CommitEdit and UpdateEditValue when no
	// cell is in edit mode.
	ErrNoEditInProgress = errors.New("no cell is being edited")

	// ErrPinLimit is returned when pinning a row would exceed the configured
	// maximum for that side.
	ErrPinLimit = errors.New("pinned row limit reached")

	// ErrUnknownColumn is returned for column operations on a field that is
	// not part of the grid.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidTransition is returned for malformed payloads.
	ErrInvalidTransition = errors.New("invalid transition")
)

// Transition is a named, typed change to the configuration snapshot.
type Transition interface {
	Name() string
	apply(s GridState) (GridState, error)
}

func requireColumn(s GridState, field string) error {
	if !slices.Contains(s.order, field) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, field)
	}
	return nil
}

// --- sort ---

// SetSort replaces the sort model.
type SetSort struct{ Specs []SortSpec }

func (SetSort) Name() string { return "setSort" }
func (t SetSort) apply(s GridState) (GridState, error) {
	s.sort = slices.Clone(t.Specs)
	s.page = 0
	return s, nil
}

// ToggleSort cycles field through asc, desc and none. With Multi the field is
// added to the existing keys instead of replacing them.
type ToggleSort struct {
	Field string
	Multi bool
}

func (ToggleSort) Name() string { return "toggleSort" }
func (t ToggleSort) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	if c, ok := s.Column(t.Field); ok && !c.Sortable {
		return s, fmt.Errorf("%w: column %q is not sortable", ErrInvalidTransition, t.Field)
	}

	next := SortAsc
	idx := slices.IndexFunc(s.sort, func(sp SortSpec) bool { return sp.Field == t.Field })
	if idx >= 0 {
		switch s.sort[idx].Direction {
		case SortAsc:
			next = SortDesc
		case SortDesc:
			next = SortNone
		}
	}

	var specs []SortSpec
	if t.Multi {
		specs = slices.Clone(s.sort)
		if idx >= 0 {
			specs = slices.Delete(specs, idx, idx+1)
		}
	}
	if next != SortNone {
		specs = append(specs, SortSpec{Field: t.Field, Direction: next})
	}
	s.sort = specs
	s.page = 0
	return s, nil
}

// ClearSort removes every sort key.
type ClearSort struct{}

func (ClearSort) Name() string { return "clearSort" }
func (ClearSort) apply(s GridState) (GridState, error) {
	s.sort = nil
	s.page = 0
	return s, nil
}

// --- filter ---

// SetFilter sets the single filter of one field. A nil Value clears it.
type SetFilter struct {
	Field string
	Value FilterValue
}

func (SetFilter) Name() string { return "setFilter" }
func (t SetFilter) apply(s GridState) (GridState, error) {
	if t.Value == nil {
		return ClearFilter{Field: t.Field}.apply(s)
	}
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	filters := maps.Clone(s.filters)
	if filters == nil {
		filters = make(map[string]FilterValue, 1)
	}
	filters[t.Field] = t.Value
	s.filters = filters
	s.page = 0
	return s, nil
}

// ClearFilter removes one field's filter.
type ClearFilter struct{ Field string }

func (ClearFilter) Name() string { return "clearFilter" }
func (t ClearFilter) apply(s GridState) (GridState, error) {
	if _, ok := s.filters[t.Field]; !ok {
		return s, nil
	}
	filters := maps.Clone(s.filters)
	delete(filters, t.Field)
	s.filters = filters
	s.page = 0
	return s, nil
}

// ClearAllFilters removes every field filter and the quick filter.
type ClearAllFilters struct{}

func (ClearAllFilters) Name() string { return "clearAllFilters" }
func (ClearAllFilters) apply(s GridState) (GridState, error) {
	s.filters = nil
	s.quickFilter = ""
	s.page = 0
	return s, nil
}

// SetFilterModel replaces every field filter at once.
type SetFilterModel struct{ Filters map[string]FilterValue }

func (SetFilterModel) Name() string { return "setFilterModel" }
func (t SetFilterModel) apply(s GridState) (GridState, error) {
	for field := range t.Filters {
		if err := requireColumn(s, field); err != nil {
			return s, err
		}
	}
	s.filters = maps.Clone(t.Filters)
	s.page = 0
	return s, nil
}

// SetQuickFilter sets the global search term.
type SetQuickFilter struct{ Term string }

func (SetQuickFilter) Name() string { return "setQuickFilter" }
func (t SetQuickFilter) apply(s GridState) (GridState, error) {
	s.quickFilter = t.Term
	s.page = 0
	return s, nil
}

// --- pagination ---

// SetPage moves to a page, clamped to the valid range.
type SetPage struct{ Page int }

func (SetPage) Name() string { return "setPage" }
func (t SetPage) apply(s GridState) (GridState, error) {
	s.page = ClampPage(t.Page, s.rowCount, s.pageSize)
	return s, nil
}

// SetPageSize changes the page size. Zero disables paging.
type SetPageSize struct{ Size int }

func (SetPageSize) Name() string { return "setPageSize" }
func (t SetPageSize) apply(s GridState) (GridState, error) {
	if t.Size < 0 {
		return s, fmt.Errorf("%w: page size %d", ErrInvalidTransition, t.Size)
	}
	s.pageSize = t.Size
	s.page = ClampPage(s.page, s.rowCount, s.pageSize)
	return s, nil
}

// SetRowCount records the number of paginated rows and re-clamps the page.
type SetRowCount struct{ Count int }

func (SetRowCount) Name() string { return "setRowCount" }
func (t SetRowCount) apply(s GridState) (GridState, error) {
	if t.Count < 0 {
		t.Count = 0
	}
	s.rowCount = t.Count
	s.page = ClampPage(s.page, s.rowCount, s.pageSize)
	return s, nil
}

// --- selection ---

// ToggleRowSelection flips one row's selection and remembers its display
// index as the range anchor.
type ToggleRowSelection struct {
	ID    string
	Index int
}

func (ToggleRowSelection) Name() string { return "toggleRowSelection" }
func (t ToggleRowSelection) apply(s GridState) (GridState, error) {
	s.selected = withFlag(s.selected, t.ID, !s.selected[t.ID])
	s.anchor = t.Index
	return s, nil
}

// SelectRange selects the rows between the anchor and Index (inclusive) out
// of the display-ordered IDs. Without an anchor only Index is selected.
type SelectRange struct {
	IDs   []string
	Index int
}

func (SelectRange) Name() string { return "selectRange" }
func (t SelectRange) apply(s GridState) (GridState, error) {
	if t.Index < 0 || t.Index >= len(t.IDs) {
		return s, fmt.Errorf("%w: range index %d out of %d rows", ErrInvalidTransition, t.Index, len(t.IDs))
	}
	from, to := s.anchor, t.Index
	if from < 0 || from >= len(t.IDs) {
		from = to
	}
	if from > to {
		from, to = to, from
	}
	selected := maps.Clone(s.selected)
	if selected == nil {
		selected = make(map[string]bool, to-from+1)
	}
	for _, id := range t.IDs[from : to+1] {
		selected[id] = true
	}
	s.selected = selected
	s.anchor = t.Index
	return s, nil
}

// SelectAll selects every given row.
type SelectAll struct{ IDs []string }

func (SelectAll) Name() string { return "selectAll" }
func (t SelectAll) apply(s GridState) (GridState, error) {
	selected := make(map[string]bool, len(t.IDs))
	for _, id := range t.IDs {
		selected[id] = true
	}
	s.selected = selected
	return s, nil
}

// SetSelection replaces the selection.
type SetSelection struct{ IDs []string }

func (SetSelection) Name() string { return "setSelection" }
func (t SetSelection) apply(s GridState) (GridState, error) {
	s, _ = SelectAll(t).apply(s)
	s.anchor = -1
	return s, nil
}

// ClearSelection deselects every row and forgets the anchor.
type ClearSelection struct{}

func (ClearSelection) Name() string { return "clearSelection" }
func (ClearSelection) apply(s GridState) (GridState, error) {
	s.selected = nil
	s.anchor = -1
	return s, nil
}

// --- editing ---

// StartEdit puts one cell into edit mode, replacing any other edit.
type StartEdit struct {
	Cell  CellRef
	Value any
}

func (StartEdit) Name() string { return "startEdit" }
func (t StartEdit) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Cell.Field); err != nil {
		return s, err
	}
	cell := t.Cell
	s.editing = &cell
	s.editValue = t.Value
	return s, nil
}

// UpdateEditValue changes the pending value of the cell being edited.
type UpdateEditValue struct{ Value any }

func (UpdateEditValue) Name() string { return "updateEditValue" }
func (t UpdateEditValue) apply(s GridState) (GridState, error) {
	if s.editing == nil {
		return s, ErrNoEditInProgress
	}
	s.editValue = t.Value
	return s, nil
}

// CommitEdit leaves edit mode. The caller writes the value to the row.
type CommitEdit struct{}

func (CommitEdit) Name() string { return "commitEdit" }
func (CommitEdit) apply(s GridState) (GridState, error) {
	if s.editing == nil {
		return s, ErrNoEditInProgress
	}
	s.editing, s.editValue = nil, nil
	return s, nil
}

// CancelEdit leaves edit mode discarding the pending value.
type CancelEdit struct{}

func (CancelEdit) Name() string { return "cancelEdit" }
func (CancelEdit) apply(s GridState) (GridState, error) {
	s.editing, s.editValue = nil, nil
	return s, nil
}

// --- focus ---

// SetFocus focuses one cell.
type SetFocus struct{ Cell CellRef }

func (SetFocus) Name() string { return "setFocus" }
func (t SetFocus) apply(s GridState) (GridState, error) {
	cell := t.Cell
	s.focus = &cell
	return s, nil
}

// ClearFocus removes the focus cursor.
type ClearFocus struct{}

func (ClearFocus) Name() string { return "clearFocus" }
func (ClearFocus) apply(s GridState) (GridState, error) {
	s.focus = nil
	return s, nil
}

// --- column layout ---

// MoveColumn moves a column to index within the column order.
type MoveColumn struct {
	Field   string
	ToIndex int
}

func (MoveColumn) Name() string { return "moveColumn" }
func (t MoveColumn) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	s.order = moveString(s.order, t.Field, t.ToIndex)
	return s, nil
}

// SetColumnOrder replaces the column order. It must be a permutation of the
// current fields.
type SetColumnOrder struct{ Order []string }

func (SetColumnOrder) Name() string { return "setColumnOrder" }
func (t SetColumnOrder) apply(s GridState) (GridState, error) {
	if len(t.Order) != len(s.order) {
		return s, fmt.Errorf("%w: column order has %d fields, want %d", ErrInvalidTransition, len(t.Order), len(s.order))
	}
	seen := make(map[string]bool, len(t.Order))
	for _, f := range t.Order {
		if err := requireColumn(s, f); err != nil {
			return s, err
		}
		if seen[f] {
			return s, fmt.Errorf("%w: column %q listed twice", ErrInvalidTransition, f)
		}
		seen[f] = true
	}
	s.order = slices.Clone(t.Order)
	return s, nil
}

// ResizeColumn sets a column's width.
type ResizeColumn struct {
	Field string
	Width float64
}

func (ResizeColumn) Name() string { return "resizeColumn" }
func (t ResizeColumn) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	if t.Width <= 0 {
		return s, fmt.Errorf("%w: width %v", ErrInvalidTransition, t.Width)
	}
	widths := maps.Clone(s.widths)
	if widths == nil {
		widths = make(map[string]float64, 1)
	}
	widths[t.Field] = t.Width
	s.widths = widths
	return s, nil
}

// PinColumn pins a column to the left or right, appending it to that side's
// pin order. PinNone unpins.
type PinColumn struct {
	Field string
	Side  PinSide
}

func (PinColumn) Name() string { return "pinColumn" }
func (t PinColumn) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	if c, ok := s.Column(t.Field); ok && !c.Pinnable && t.Side != PinNone {
		return s, fmt.Errorf("%w: column %q is not pinnable", ErrInvalidTransition, t.Field)
	}
	left := withoutString(s.pinnedLeft, t.Field)
	right := withoutString(s.pinnedRight, t.Field)
	switch t.Side {
	case PinLeft:
		left = append(left, t.Field)
	case PinRight:
		right = append(right, t.Field)
	case PinNone:
	default:
		return s, fmt.Errorf("%w: column pin side %q", ErrInvalidTransition, t.Side)
	}
	s.pinnedLeft, s.pinnedRight = left, right
	return s, nil
}

// SetColumnVisible hides or shows a column.
type SetColumnVisible struct {
	Field   string
	Visible bool
}

func (SetColumnVisible) Name() string { return "setColumnVisible" }
func (t SetColumnVisible) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	s.hidden = withFlag(s.hidden, t.Field, !t.Visible)
	return s, nil
}

// ResetColumns restores the initial order and widths and clears pins and
// hidden columns.
type ResetColumns struct{}

func (ResetColumns) Name() string { return "resetColumns" }
func (ResetColumns) apply(s GridState) (GridState, error) {
	s.order, s.widths = initialLayout(s.columns)
	s.pinnedLeft, s.pinnedRight, s.hidden = nil, nil, nil
	return s, nil
}

// ApplyColumnState restores a saved column layout. Fields that no longer
// exist are dropped; fields missing from Order keep their relative position
// at the end.
type ApplyColumnState struct {
	Order       []string
	Widths      map[string]float64
	PinnedLeft  []string
	PinnedRight []string
	Hidden      []string
}

func (ApplyColumnState) Name() string { return "applyColumnState" }
func (t ApplyColumnState) apply(s GridState) (GridState, error) {
	known := func(f string) bool { return slices.Contains(s.order, f) }

	order := make([]string, 0, len(s.order))
	for _, f := range t.Order {
		if known(f) && !slices.Contains(order, f) {
			order = append(order, f)
		}
	}
	for _, f := range s.order {
		if !slices.Contains(order, f) {
			order = append(order, f)
		}
	}

	widths := maps.Clone(s.widths)
	if widths == nil {
		widths = make(map[string]float64, len(t.Widths))
	}
	for f, w := range t.Widths {
		if known(f) && w > 0 {
			widths[f] = w
		}
	}

	filterKnown := func(list []string) []string {
		var out []string
		for _, f := range list {
			if known(f) && !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
		return out
	}
	hidden := make(map[string]bool, len(t.Hidden))
	for _, f := range filterKnown(t.Hidden) {
		hidden[f] = true
	}

	s.order, s.widths = order, widths
	s.pinnedLeft = filterKnown(t.PinnedLeft)
	s.pinnedRight = filterKnown(withoutAll(t.PinnedRight, s.pinnedLeft))
	s.hidden = hidden
	return s, nil
}

func withoutAll(list, remove []string) []string {
	var out []string
	for _, f := range list {
		if !slices.Contains(remove, f) {
			out = append(out, f)
		}
	}
	return out
}

// --- grouping ---

// AddGroupField appends a group-by level. Adding a field already grouped is a
// no-op.
type AddGroupField struct{ Field string }

func (AddGroupField) Name() string { return "addGroupField" }
func (t AddGroupField) apply(s GridState) (GridState, error) {
	if err := requireColumn(s, t.Field); err != nil {
		return s, err
	}
	if slices.Contains(s.groupBy, t.Field) {
		return s, nil
	}
	s.groupBy = append(slices.Clone(s.groupBy), t.Field)
	s.page = 0
	return s, nil
}

// RemoveGroupField removes a group-by level.
type RemoveGroupField struct{ Field string }

func (RemoveGroupField) Name() string { return "removeGroupField" }
func (t RemoveGroupField) apply(s GridState) (GridState, error) {
	if !slices.Contains(s.groupBy, t.Field) {
		return s, nil
	}
	s.groupBy = withoutString(s.groupBy, t.Field)
	s.page = 0
	return s, nil
}

// MoveGroupField moves a grouped field to another level.
type MoveGroupField struct {
	Field   string
	ToIndex int
}

func (MoveGroupField) Name() string { return "moveGroupField" }
func (t MoveGroupField) apply(s GridState) (GridState, error) {
	if !slices.Contains(s.groupBy, t.Field) {
		return s, fmt.Errorf("%w: %q is not grouped", ErrInvalidTransition, t.Field)
	}
	s.groupBy = moveString(s.groupBy, t.Field, t.ToIndex)
	return s, nil
}

// SetGroupBy replaces the group-by field list.
type SetGroupBy struct{ Fields []string }

func (SetGroupBy) Name() string { return "setGroupBy" }
func (t SetGroupBy) apply(s GridState) (GridState, error) {
	var fields []string
	for _, f := range t.Fields {
		if err := requireColumn(s, f); err != nil {
			return s, err
		}
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	s.groupBy = fields
	s.page = 0
	return s, nil
}

// ClearGrouping removes every group-by level. Expansion state is kept.
type ClearGrouping struct{}

func (ClearGrouping) Name() string { return "clearGrouping" }
func (ClearGrouping) apply(s GridState) (GridState, error) {
	s.groupBy = nil
	s.page = 0
	return s, nil
}

// ToggleGroup flips the expansion of one group key.
type ToggleGroup struct{ Key string }

func (ToggleGroup) Name() string { return "toggleGroup" }
func (t ToggleGroup) apply(s GridState) (GridState, error) {
	s.expandedGroups = withFlag(s.expandedGroups, t.Key, !s.expandedGroups[t.Key])
	return s, nil
}

// SetGroupsExpanded sets the expansion of the given group keys.
type SetGroupsExpanded struct {
	Keys     []string
	Expanded bool
}

func (SetGroupsExpanded) Name() string { return "setGroupsExpanded" }
func (t SetGroupsExpanded) apply(s GridState) (GridState, error) {
	m := maps.Clone(s.expandedGroups)
	if m == nil {
		m = make(map[string]bool, len(t.Keys))
	}
	for _, k := range t.Keys {
		if t.Expanded {
			m[k] = true
		} else {
			delete(m, k)
		}
	}
	s.expandedGroups = m
	return s, nil
}

// CollapseAllGroups clears the group expansion map.
type CollapseAllGroups struct{}

func (CollapseAllGroups) Name() string { return "collapseAllGroups" }
func (CollapseAllGroups) apply(s GridState) (GridState, error) {
	s.expandedGroups = nil
	return s, nil
}

// --- tree ---

// ToggleNode flips the expansion of one tree node.
type ToggleNode struct{ ID string }

func (ToggleNode) Name() string { return "toggleNode" }
func (t ToggleNode) apply(s GridState) (GridState, error) {
	open := !s.expandedNodes[t.ID]
	s.expandedNodes = withFlag(s.expandedNodes, t.ID, open)
	if !open && s.loadingNodes[t.ID] {
		s.loadingNodes = withFlag(s.loadingNodes, t.ID, false)
	}
	return s, nil
}

// SetNodeExpanded sets the expansion of one tree node.
type SetNodeExpanded struct {
	ID       string
	Expanded bool
}

func (SetNodeExpanded) Name() string { return "setNodeExpanded" }
func (t SetNodeExpanded) apply(s GridState) (GridState, error) {
	if s.expandedNodes[t.ID] == t.Expanded {
		return s, nil
	}
	return ToggleNode{ID: t.ID}.apply(s)
}

// ExpandAllNodes expands every given node.
type ExpandAllNodes struct{ IDs []string }

func (ExpandAllNodes) Name() string { return "expandAllNodes" }
func (t ExpandAllNodes) apply(s GridState) (GridState, error) {
	m := maps.Clone(s.expandedNodes)
	if m == nil {
		m = make(map[string]bool, len(t.IDs))
	}
	for _, id := range t.IDs {
		m[id] = true
	}
	s.expandedNodes = m
	return s, nil
}

// CollapseAllNodes clears the tree expansion map.
type CollapseAllNodes struct{}

func (CollapseAllNodes) Name() string { return "collapseAllNodes" }
func (CollapseAllNodes) apply(s GridState) (GridState, error) {
	s.expandedNodes = nil
	s.loadingNodes = nil
	return s, nil
}

// SetExpandedNodes replaces the tree expansion map.
type SetExpandedNodes struct{ Expanded map[string]bool }

func (SetExpandedNodes) Name() string { return "setExpandedNodes" }
func (t SetExpandedNodes) apply(s GridState) (GridState, error) {
	m := make(map[string]bool, len(t.Expanded))
	for id, open := range t.Expanded {
		if open {
			m[id] = true
		}
	}
	s.expandedNodes = m
	return s, nil
}

// SetNodeLoading marks a lazy load as pending or settled.
type SetNodeLoading struct {
	ID      string
	Loading bool
}

func (SetNodeLoading) Name() string { return "setNodeLoading" }
func (t SetNodeLoading) apply(s GridState) (GridState, error) {
	s.loadingNodes = withFlag(s.loadingNodes, t.ID, t.Loading)
	return s, nil
}

// --- drag ---

// StartDrag begins a row drag from SourceIndex.
type StartDrag struct {
	RowID       string
	SourceIndex int
}

func (StartDrag) Name() string { return "startDrag" }
func (t StartDrag) apply(s GridState) (GridState, error) {
	s.drag = &DragState{RowID: t.RowID, SourceIndex: t.SourceIndex, TargetIndex: t.SourceIndex}
	return s, nil
}

// UpdateDrag moves the live drop target.
type UpdateDrag struct{ TargetIndex int }

func (UpdateDrag) Name() string { return "updateDrag" }
func (t UpdateDrag) apply(s GridState) (GridState, error) {
	if s.drag == nil {
		return s, fmt.Errorf("%w: no drag in progress", ErrInvalidTransition)
	}
	d := *s.drag
	d.TargetIndex = t.TargetIndex
	s.drag = &d
	return s, nil
}

// EndDrag finishes or cancels the drag.
type EndDrag struct{}

func (EndDrag) Name() string { return "endDrag" }
func (EndDrag) apply(s GridState) (GridState, error) {
	s.drag = nil
	return s, nil
}

// --- row pinning ---

// PinRow pins a row to the top or bottom. A row is pinned to at most one side.
type PinRow struct {
	ID   string
	Side PinSide
}

func (PinRow) Name() string { return "pinRow" }
func (t PinRow) apply(s GridState) (GridState, error) {
	top := withoutString(s.pinnedTop, t.ID)
	bottom := withoutString(s.pinnedBottom, t.ID)
	switch t.Side {
	case PinTop:
		if len(top) >= s.maxPinnedTop {
			return s, fmt.Errorf("%w: top allows %d", ErrPinLimit, s.maxPinnedTop)
		}
		top = append(top, t.ID)
	case PinBottom:
		if len(bottom) >= s.maxPinnedBottom {
			return s, fmt.Errorf("%w: bottom allows %d", ErrPinLimit, s.maxPinnedBottom)
		}
		bottom = append(bottom, t.ID)
	case PinNone:
	default:
		return s, fmt.Errorf("%w: row pin side %q", ErrInvalidTransition, t.Side)
	}
	s.pinnedTop, s.pinnedBottom = top, bottom
	return s, nil
}

// UnpinRow removes a row from both pinned lists.
type UnpinRow struct{ ID string }

func (UnpinRow) Name() string { return "unpinRow" }
func (t UnpinRow) apply(s GridState) (GridState, error) {
	return PinRow{ID: t.ID, Side: PinNone}.apply(s)
}

// SetPinLimits changes the maximum pinned row counts. Rows beyond a lower
// limit are unpinned from the end of the list.
type SetPinLimits struct{ Top, Bottom int }

func (SetPinLimits) Name() string { return "setPinLimits" }
func (t SetPinLimits) apply(s GridState) (GridState, error) {
	if t.Top < 0 || t.Bottom < 0 {
		return s, fmt.Errorf("%w: negative pin limit", ErrInvalidTransition)
	}
	s.maxPinnedTop, s.maxPinnedBottom = t.Top, t.Bottom
	if len(s.pinnedTop) > t.Top {
		s.pinnedTop = slices.Clone(s.pinnedTop[:t.Top])
	}
	if len(s.pinnedBottom) > t.Bottom {
		s.pinnedBottom = slices.Clone(s.pinnedBottom[:t.Bottom])
	}
	return s, nil
}

// --- overlays ---

// SetOverlay replaces the overlay state.
type SetOverlay struct{ Overlay Overlay }

func (SetOverlay) Name() string { return "setOverlay" }
func (t SetOverlay) apply(s GridState) (GridState, error) {
	s.overlay = t.Overlay
	return s, nil
}

// --- dataset ---

// ResetData is applied when the dataset is replaced: selection, edit, focus,
// drag, expansion, pinned rows and the page are cleared. Column layout, sort,
// filters and grouping survive.
type ResetData struct{ RowCount int }

func (ResetData) Name() string { return "resetData" }
func (t ResetData) apply(s GridState) (GridState, error) {
	s.selected, s.anchor = nil, -1
	s.editing, s.editValue, s.focus = nil, nil, nil
	s.drag = nil
	s.expandedGroups, s.expandedNodes, s.loadingNodes = nil, nil, nil
	s.pinnedTop, s.pinnedBottom = nil, nil
	s.rowCount = t.RowCount
	s.page = 0
	return s, nil
}
