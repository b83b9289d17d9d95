package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// SetRows replaces the dataset. Selection, edit, focus, drag, expansion and
// pinned rows are reset; pending lazy loads are discarded. Rows that cannot
// form a tree leave the grid unchanged.
func (g *Grid) SetRows(rows []Row) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()

	if err := g.commitRowsLocked(slices.Clone(rows)); err != nil {
		return err
	}
	g.loads.reset()
	g.heights.Reset()
	if err := g.dispatch(ResetData{}); err != nil {
		return err
	}
	g.logger.Info("dataset replaced", "rows", len(rows))
	_, err := g.viewLocked()
	return err
}

// AddRows appends rows. Fails without changes if an id already exists.
func (g *Grid) AddRows(rows ...Row) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	return g.addRowsLocked(rows)
}

func (g *Grid) addRowsLocked(rows []Row) error {
	idx := g.index()
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if _, dup := idx[r.ID]; dup || seen[r.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateRow, r.ID)
		}
		seen[r.ID] = true
	}
	if err := g.commitRowsLocked(append(slices.Clone(g.rows), rows...)); err != nil {
		return err
	}
	g.queue(EventDataChanged, "addRows", len(rows))
	return nil
}

// commitRowsLocked installs rows and recomputes the view. If the view cannot
// be built, for example because the rows form a parent cycle, the previous
// rows are restored and the error returned. Caller must hold g.mu.
func (g *Grid) commitRowsLocked(rows []Row) error {
	before := g.rows
	g.rows = rows
	g.touchData()
	if _, err := g.viewLocked(); err != nil {
		g.rows = before
		g.touchData()
		_, _ = g.viewLocked()
		return err
	}
	return nil
}

// UpdateRow merges fields into the row with id.
func (g *Grid) UpdateRow(id string, fields map[string]any) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()

	i, ok := g.index()[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRow, id)
	}
	r := g.rows[i]
	merged := maps.Clone(r.Fields)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)

	rows := slices.Clone(g.rows)
	rows[i] = Row{ID: r.ID, Fields: merged}
	if err := g.commitRowsLocked(rows); err != nil {
		return err
	}
	g.queue(EventDataChanged, "updateRow", id)
	return nil
}

// RemoveRows deletes rows by id and drops them from selection and pins.
// Unknown ids are ignored.
func (g *Grid) RemoveRows(ids ...string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	rows := make([]Row, 0, len(g.rows))
	for _, r := range g.rows {
		if !drop[r.ID] {
			rows = append(rows, r)
		}
	}
	if len(rows) == len(g.rows) {
		return nil
	}
	g.rows = rows
	g.touchData()

	st := g.store.Snapshot()
	var keep []string
	for _, id := range st.Selected() {
		if !drop[id] {
			keep = append(keep, id)
		}
	}
	ts := []Transition{SetSelection{IDs: keep}}
	for _, id := range ids {
		if st.RowPin(id) != PinNone {
			ts = append(ts, UnpinRow{ID: id})
		}
		g.heights.Invalidate(id)
	}
	if err := g.dispatchAll(ts...); err != nil {
		return err
	}
	g.queue(EventDataChanged, "removeRows", len(ids))
	_, err := g.viewLocked()
	return err
}

// GetRow returns the row with id.
func (g *Grid) GetRow(id string) (Row, bool) {
	if !g.lock() {
		return Row{}, false
	}
	defer g.unlock()
	i, ok := g.index()[id]
	if !ok {
		return Row{}, false
	}
	return g.rows[i], true
}

// Rows returns every row in input order.
func (g *Grid) Rows() []Row {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	return slices.Clone(g.rows)
}

// RowCount returns the size of the dataset.
func (g *Grid) RowCount() int {
	if !g.lock() {
		return 0
	}
	defer g.unlock()
	return len(g.rows)
}

// View runs the pipeline and returns the derived views.
func (g *Grid) View() (View, error) {
	if !g.lock() {
		return View{}, nil
	}
	defer g.unlock()
	return g.viewLocked()
}

// FilteredRows returns the rows passing the filter, in sorted order.
func (g *Grid) FilteredRows() []Row {
	v, _ := g.View()
	return slices.Clone(v.Filtered)
}

// DisplayedRows returns the full flattened display sequence.
func (g *Grid) DisplayedRows() []DisplayRow {
	v, _ := g.View()
	return slices.Clone(v.Display)
}

// DisplayedRowCount returns the length of the display sequence.
func (g *Grid) DisplayedRowCount() int {
	v, _ := g.View()
	return len(v.Display)
}

// DisplayedRowAt returns the display row at index.
func (g *Grid) DisplayedRowAt(index int) (DisplayRow, bool) {
	v, _ := g.View()
	if index < 0 || index >= len(v.Display) {
		return DisplayRow{}, false
	}
	return v.Display[index], true
}

// ForEachFiltered calls fn for every filtered row until fn returns false.
func (g *Grid) ForEachFiltered(fn func(Row) bool) {
	for _, r := range g.FilteredRows() {
		if !fn(r) {
			return
		}
	}
}

// Totals returns the aggregates over every filtered row.
func (g *Grid) Totals() Aggregations {
	v, _ := g.View()
	return v.Totals
}

// Facets returns the value breakdown of field under every other filter.
func (g *Grid) Facets(field string) []Facet {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	return Facets(g.rows, field, g.store.Snapshot().FilterConfig())
}

// Refresh drops every memoized view and recomputes.
func (g *Grid) Refresh() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	g.pipeline.Invalidate()
	g.window.valid = false
	_, err := g.viewLocked()
	return err
}

// RefreshCells announces that the given rows' cells should be redrawn. With
// no ids every visible row is meant.
func (g *Grid) RefreshCells(ids ...string) {
	if !g.lock() {
		return
	}
	defer g.unlock()
	g.queue(EventCellsRefreshed, "", slices.Clone(ids))
}

// --- remote mode ---

// HasDataSource reports whether the grid reads from a remote source.
func (g *Grid) HasDataSource() bool { return g.remote != nil }

// FetchRows returns remote rows [start, end) under the current sort and
// filter model. The stored row count follows the remote total.
func (g *Grid) FetchRows(ctx context.Context, start, end int) ([]Row, error) {
	if g.remote == nil {
		return nil, ErrNoDataSource
	}
	if g.IsDestroyed() {
		return nil, nil
	}
	st := g.State()
	g.remote.SetModel(st.sort, st.filters, st.quickFilter)

	rows, err := g.remote.Rows(ctx, start, end)
	if err != nil {
		if errors.Is(err, ErrStaleBlock) {
			g.logger.Debug("remote rows superseded", "start", start, "end", end)
		}
		return nil, err
	}
	if total, ok := g.remote.TotalCount(); ok && total != st.RowCount() {
		_ = g.Dispatch(SetRowCount{Count: total})
	}
	return rows, nil
}

// FetchPage returns the rows of the current page from the remote source.
func (g *Grid) FetchPage(ctx context.Context) ([]Row, error) {
	st := g.State()
	start, end := 0, g.opts.Remote.BlockSize
	if size := st.PageSize(); size > 0 {
		start, end = st.Page()*size, (st.Page()+1)*size
	}
	if end <= start {
		end = start + DefaultBlockSize
	}
	return g.FetchRows(ctx, start, end)
}

// FetchWindow returns the remote rows of the current viewport window.
func (g *Grid) FetchWindow(ctx context.Context) ([]Row, Range, error) {
	if g.remote == nil {
		return nil, Range{}, ErrNoDataSource
	}
	st := g.State()
	total := st.RowCount()
	if _, known := g.remote.TotalCount(); !known {
		total = g.remote.BlockSize()
	}
	vp := g.Viewport()
	r := ComputeVisibleRowRange(vp.ScrollTop, vp.Height, FixedHeights(total, g.opts.RowHeight), g.opts.RowOverscan)
	rows, err := g.FetchRows(ctx, r.Start, r.End)
	return rows, r, err
}

// PurgeRemoteCache drops every cached remote block.
func (g *Grid) PurgeRemoteCache() {
	if g.remote != nil && !g.IsDestroyed() {
		g.remote.Purge()
	}
}

// RemoteStatus returns the fetch limiter state, if remote.
func (g *Grid) RemoteStatus() (FetchLimiterStatus, bool) {
	if g.remote == nil {
		return FetchLimiterStatus{}, false
	}
	return g.remote.Limiter().Status(), true
}
