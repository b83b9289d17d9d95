package core

import "slices"

// FocusMove is a keyboard-style focus movement.
type FocusMove string

const (
	FocusUp          FocusMove = "up"
	FocusDown        FocusMove = "down"
	FocusLeft        FocusMove = "left"
	FocusRight       FocusMove = "right"
	FocusFirstRow    FocusMove = "firstRow"
	FocusLastRow     FocusMove = "lastRow"
	FocusFirstColumn FocusMove = "firstColumn"
	FocusLastColumn  FocusMove = "lastColumn"
)

// Viewport returns the last applied viewport.
func (g *Grid) Viewport() Viewport {
	if !g.lock() {
		return Viewport{}
	}
	defer g.unlock()
	return g.viewport
}

// SetViewport submits a scroll or resize. Submissions are throttled; the
// latest one within an interval wins.
func (g *Grid) SetViewport(vp Viewport) {
	if g.IsDestroyed() {
		return
	}
	g.throttle.Do(vp)
}

// ApplyViewport sets the viewport immediately, bypassing the scroll throttle.
// Hosts that receive discrete viewport requests use it instead of SetViewport.
func (g *Grid) ApplyViewport(vp Viewport) {
	g.applyViewport(vp)
}

// OnScroll submits a scroll position keeping the current viewport size.
func (g *Grid) OnScroll(scrollTop, scrollLeft float64) {
	vp := g.Viewport()
	vp.ScrollTop, vp.ScrollLeft = scrollTop, scrollLeft
	g.SetViewport(vp)
}

// OnResize submits a container size keeping the scroll position.
func (g *Grid) OnResize(width, height float64) {
	vp := g.Viewport()
	vp.Width, vp.Height = width, height
	g.SetViewport(vp)
}

// applyViewport is the throttled sink of SetViewport.
func (g *Grid) applyViewport(vp Viewport) {
	if !g.lock() {
		return
	}
	defer g.unlock()
	g.setViewportLocked(vp)
}

func (g *Grid) setViewportLocked(vp Viewport) {
	if vp.ScrollTop < 0 {
		vp.ScrollTop = 0
	}
	if vp.ScrollLeft < 0 {
		vp.ScrollLeft = 0
	}
	if vp == g.viewport {
		return
	}
	g.viewport = vp
	g.queue(EventViewportChanged, "", vp)
}

// Window returns the rows and columns to materialize for the current
// viewport. Row ranges index the page body (View.Page.Rows); pinned rows
// are always rendered in addition.
func (g *Grid) Window() (Window, error) {
	if !g.lock() {
		return Window{}, nil
	}
	defer g.unlock()
	w, _, err := g.windowLocked()
	return w, err
}

// windowLocked recomputes the window only when the viewport, the column
// layout or the page body changed. Row heights are rebuilt only when the body
// or a measured height changed, never for a scroll.
func (g *Grid) windowLocked() (Window, RowHeights, error) {
	v, err := g.viewLocked()
	if err != nil {
		return Window{}, RowHeights{}, err
	}
	st := g.store.Snapshot()
	layout := st.Layout()

	body := bodyKey{
		heightsVer: g.heights.Version(),
		displayGen: g.pipeline.DisplayGeneration(),
		page:       v.Page.Page,
		pageSize:   v.Page.PageSize,
		bodyLen:    len(v.Page.Rows),
	}
	m := &g.window
	sameBody := m.valid && m.body == body &&
		slices.Equal(m.pinnedTop, st.pinnedTop) &&
		slices.Equal(m.pinnedBottom, st.pinnedBottom)
	if sameBody && m.vp == g.viewport && layoutEqual(m.layout, layout) {
		return m.result, m.heights, nil
	}

	heights := m.heights
	if !sameBody {
		heights = g.bodyHeights(v.Page.Rows)
	}
	w := ComputeWindow(g.viewport, heights, layout, g.opts.RowOverscan, g.opts.ColumnOverscan)
	*m = windowMemo{
		valid:        true,
		body:         body,
		pinnedTop:    st.pinnedTop,
		pinnedBottom: st.pinnedBottom,
		vp:           g.viewport,
		layout:       layout,
		heights:      heights,
		result:       w,
	}
	return w, heights, nil
}

func (g *Grid) bodyHeights(rows []DisplayRow) RowHeights {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return g.heights.Heights(ids, g.opts.RowHeight)
}

func layoutEqual(a, b ColumnLayout) bool {
	return slices.Equal(a.Left, b.Left) && slices.Equal(a.Center, b.Center) && slices.Equal(a.Right, b.Right)
}

// VisibleRows returns the rows to render now: pinned top, the windowed part
// of the page body, pinned bottom.
func (g *Grid) VisibleRows() ([]DisplayRow, error) {
	if !g.lock() {
		return nil, nil
	}
	defer g.unlock()
	w, _, err := g.windowLocked()
	if err != nil {
		return nil, err
	}
	v, _ := g.viewLocked()
	out := make([]DisplayRow, 0, len(v.Page.Top)+w.Rows.Len()+len(v.Page.Bottom))
	out = append(out, v.Page.Top...)
	out = append(out, v.Page.Rows[w.Rows.Start:w.Rows.End]...)
	return append(out, v.Page.Bottom...), nil
}

// SetRowHeight records the measured height of a row.
func (g *Grid) SetRowHeight(id string, height float64) {
	if g.IsDestroyed() || height <= 0 {
		return
	}
	g.heights.Set(id, height)
}

// ResetRowHeights forgets the measured height of ids, or of every row when
// none are given.
func (g *Grid) ResetRowHeights(ids ...string) {
	if g.IsDestroyed() {
		return
	}
	if len(ids) == 0 {
		g.heights.Reset()
		return
	}
	for _, id := range ids {
		g.heights.Invalidate(id)
	}
}

// EnsureIndexVisible scrolls vertically so the page body row at index is
// inside the viewport and returns the resulting scroll offset.
func (g *Grid) EnsureIndexVisible(index int) (float64, error) {
	if !g.lock() {
		return 0, nil
	}
	defer g.unlock()
	_, heights, err := g.windowLocked()
	if err != nil {
		return 0, err
	}
	vp := g.viewport
	vp.ScrollTop = ScrollTopFor(index, vp.ScrollTop, vp.Height, heights)
	g.setViewportLocked(vp)
	return vp.ScrollTop, nil
}

// EnsureRowVisible scrolls to the row with id when it is on the current page.
func (g *Grid) EnsureRowVisible(id string) (float64, bool, error) {
	i := g.indexOnPage(id)
	if i < 0 {
		return g.Viewport().ScrollTop, false, nil
	}
	top, err := g.EnsureIndexVisible(i)
	return top, err == nil, err
}

// EnsureColumnVisible scrolls horizontally so field is inside the center
// viewport. Pinned columns are always visible.
func (g *Grid) EnsureColumnVisible(field string) float64 {
	if !g.lock() {
		return 0
	}
	defer g.unlock()
	l := g.store.Snapshot().Layout()
	vp := g.viewport
	i := slices.IndexFunc(l.Center, func(c ColumnSlot) bool { return c.Field == field })
	if i < 0 {
		return vp.ScrollLeft
	}
	width := vp.Width - PinnedWidth(l.Left) - PinnedWidth(l.Right)
	if width < 0 {
		width = 0
	}
	vp.ScrollLeft = ScrollTopFor(i, vp.ScrollLeft, width, l.CenterWidths())
	g.setViewportLocked(vp)
	return vp.ScrollLeft
}

// indexOnPage returns the body index of id on the current page, or -1.
func (g *Grid) indexOnPage(id string) int {
	v, err := g.View()
	if err != nil {
		return -1
	}
	return slices.IndexFunc(v.Page.Rows, func(r DisplayRow) bool { return r.ID == id })
}

// --- focus ---

// SetFocusedCell moves the focus cursor.
func (g *Grid) SetFocusedCell(rowID, field string) error {
	return g.Dispatch(SetFocus{Cell: CellRef{RowID: rowID, Field: field}})
}

func (g *Grid) ClearFocus() error { return g.Dispatch(ClearFocus{}) }

// FocusedCell returns the focus cursor.
func (g *Grid) FocusedCell() (CellRef, bool) {
	return g.State().Focus()
}

// MoveFocus moves the focus cursor over the rendered rows and visible
// columns. Without focus the first cell is focused. Movement stops at the
// edges. The new cell is scrolled into view.
func (g *Grid) MoveFocus(move FocusMove) (CellRef, error) {
	if !g.lock() {
		return CellRef{}, nil
	}
	defer g.unlock()

	v, err := g.viewLocked()
	if err != nil {
		return CellRef{}, err
	}
	st := g.store.Snapshot()
	rows := v.Page.All()
	cols := st.VisibleColumns()
	if len(rows) == 0 || len(cols) == 0 {
		return CellRef{}, nil
	}

	r, c := 0, 0
	if f, ok := st.Focus(); ok {
		r = max(slices.IndexFunc(rows, func(d DisplayRow) bool { return d.ID == f.RowID }), 0)
		c = max(slices.Index(cols, f.Field), 0)
		switch move {
		case FocusUp:
			r--
		case FocusDown:
			r++
		case FocusLeft:
			c--
		case FocusRight:
			c++
		case FocusFirstRow:
			r = 0
		case FocusLastRow:
			r = len(rows) - 1
		case FocusFirstColumn:
			c = 0
		case FocusLastColumn:
			c = len(cols) - 1
		}
	}
	r = clampInt(r, 0, len(rows)-1)
	c = clampInt(c, 0, len(cols)-1)

	cell := CellRef{RowID: rows[r].ID, Field: cols[c]}
	if err := g.dispatch(SetFocus{Cell: cell}); err != nil {
		return CellRef{}, err
	}

	if body := r - len(v.Page.Top); body >= 0 && body < len(v.Page.Rows) {
		vp := g.viewport
		vp.ScrollTop = ScrollTopFor(body, vp.ScrollTop, vp.Height, g.bodyHeights(v.Page.Rows))
		g.setViewportLocked(vp)
	}
	return cell, nil
}
