package core

// window.go implements row and column virtualization.
//
// Rows: with a uniform height the first visible index is
// floor(scrollTop/height). With measured heights a prefix-sum array is
// binary-searched for the first row whose bottom edge passes scrollTop.
// Both ranges are widened by overscan and clamped to [0, count).
//
// Columns: pinned-left and pinned-right columns are always rendered and never
// virtualized. The remaining center columns are windowed the same way as rows
// using horizontal scroll and width prefix sums.

import (
	"math"
	"sort"
	"sync"
)

// Range is a half-open index range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether i falls inside the range.
func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

// RowHeights models the vertical layout of a row sequence: either a uniform
// height or per-row heights backed by prefix sums.
type RowHeights struct {
	count  int
	fixed  float64
	prefix []float64 // prefix[i] = bottom edge of row i
}

// FixedHeights models count rows of uniform height h.
func FixedHeights(count int, h float64) RowHeights {
	return RowHeights{count: count, fixed: h}
}

// VariableHeights models rows with the given heights.
func VariableHeights(heights []float64) RowHeights {
	prefix := make([]float64, len(heights))
	var sum float64
	for i, h := range heights {
		sum += h
		prefix[i] = sum
	}
	return RowHeights{count: len(heights), prefix: prefix}
}

// Count returns the number of rows.
func (h RowHeights) Count() int { return h.count }

// Offset returns the top edge of row i.
func (h RowHeights) Offset(i int) float64 {
	if i <= 0 {
		return 0
	}
	if h.prefix == nil {
		return float64(i) * h.fixed
	}
	if i > h.count {
		i = h.count
	}
	return h.prefix[i-1]
}

// Height returns the height of row i.
func (h RowHeights) Height(i int) float64 {
	if i < 0 || i >= h.count {
		return 0
	}
	if h.prefix == nil {
		return h.fixed
	}
	return h.Offset(i+1) - h.Offset(i)
}

// Total returns the height of all rows.
func (h RowHeights) Total() float64 { return h.Offset(h.count) }

// IndexAt returns the index of the row containing y: the first row whose
// bottom edge exceeds y. Returns Count() when y is past the end.
func (h RowHeights) IndexAt(y float64) int {
	if y < 0 {
		return 0
	}
	if h.prefix == nil {
		if h.fixed <= 0 {
			return 0
		}
		idx := int(math.Floor(y / h.fixed))
		if idx > h.count {
			return h.count
		}
		return idx
	}
	return sort.Search(h.count, func(i int) bool { return h.prefix[i] > y })
}

// ComputeVisibleRowRange returns the rows to materialize for a viewport of
// viewportHeight scrolled to scrollTop, widened by overscan on both ends.
func ComputeVisibleRowRange(scrollTop, viewportHeight float64, heights RowHeights, overscan int) Range {
	n := heights.Count()
	if n == 0 {
		return Range{}
	}
	if overscan < 0 {
		overscan = 0
	}
	if scrollTop < 0 {
		scrollTop = 0
	}

	first := heights.IndexAt(scrollTop)
	last := first
	if viewportHeight > 0 {
		last = heights.IndexAt(scrollTop + viewportHeight - 1e-9)
	}

	start := clampInt(first-overscan, 0, n)
	end := clampInt(last+1+overscan, 0, n)
	if start > end {
		start = end
	}
	return Range{Start: start, End: end}
}

// ScrollTopFor returns the scroll offset that brings row i into a viewport of
// viewportHeight currently at scrollTop, or scrollTop when already visible.
func ScrollTopFor(i int, scrollTop, viewportHeight float64, heights RowHeights) float64 {
	if i < 0 || i >= heights.Count() {
		return scrollTop
	}
	top := heights.Offset(i)
	bottom := top + heights.Height(i)
	switch {
	case top < scrollTop:
		return top
	case bottom > scrollTop+viewportHeight:
		return bottom - viewportHeight
	}
	return scrollTop
}

// HeightCache remembers measured row heights by row id so rows already
// measured are not laid out again.
type HeightCache struct {
	mu       sync.RWMutex
	measured map[string]float64
	version  uint64
}

// NewHeightCache creates an empty cache.
func NewHeightCache() *HeightCache {
	return &HeightCache{measured: make(map[string]float64)}
}

// Set records the measured height of a row. Returns true if it changed.
func (c *HeightCache) Set(id string, h float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.measured[id]; ok && old == h {
		return false
	}
	c.measured[id] = h
	c.version++
	return true
}

// Get returns the measured height of a row.
func (c *HeightCache) Get(id string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.measured[id]
	return h, ok
}

// Invalidate forgets one row's measurement.
func (c *HeightCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.measured[id]; ok {
		delete(c.measured, id)
		c.version++
	}
}

// Reset forgets every measurement.
func (c *HeightCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.measured) > 0 {
		c.measured = make(map[string]float64)
		c.version++
	}
}

// Version changes whenever a measurement changes.
func (c *HeightCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Heights lays out ids using measured heights and estimate for unmeasured
// rows. Without any measurement the uniform model is used.
func (c *HeightCache) Heights(ids []string, estimate float64) RowHeights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.measured) == 0 {
		return FixedHeights(len(ids), estimate)
	}
	hs := make([]float64, len(ids))
	for i, id := range ids {
		if h, ok := c.measured[id]; ok {
			hs[i] = h
		} else {
			hs[i] = estimate
		}
	}
	return VariableHeights(hs)
}

// ColumnSlot is a laid-out column. Offset is measured from the left edge for
// left-pinned and center columns, and from the right edge for right-pinned.
type ColumnSlot struct {
	Field  string  `json:"field"`
	Width  float64 `json:"width"`
	Offset float64 `json:"offset"`
	Pinned PinSide `json:"pinned,omitempty"`
}

// ColumnLayout splits the visible columns into pinned and center regions.
type ColumnLayout struct {
	Left   []ColumnSlot `json:"left"`
	Center []ColumnSlot `json:"center"`
	Right  []ColumnSlot `json:"right"`
}

// LayoutColumns places the visible columns of order. Pinned columns are taken
// out of the center and laid out in pin order on their side.
func LayoutColumns(order []string, widths map[string]float64, pinnedLeft, pinnedRight []string, hidden map[string]bool) ColumnLayout {
	width := func(f string) float64 {
		if w, ok := widths[f]; ok && w > 0 {
			return w
		}
		return DefaultColumnWidth
	}
	known := make(map[string]bool, len(order))
	for _, f := range order {
		known[f] = true
	}
	pinned := make(map[string]bool, len(pinnedLeft)+len(pinnedRight))

	var l ColumnLayout
	place := func(fields []string, side PinSide) []ColumnSlot {
		var out []ColumnSlot
		var off float64
		for _, f := range fields {
			if !known[f] || hidden[f] || pinned[f] {
				continue
			}
			pinned[f] = true
			w := width(f)
			out = append(out, ColumnSlot{Field: f, Width: w, Offset: off, Pinned: side})
			off += w
		}
		return out
	}
	l.Left = place(pinnedLeft, PinLeft)
	l.Right = place(pinnedRight, PinRight)

	var off float64
	for _, f := range order {
		if hidden[f] || pinned[f] {
			continue
		}
		w := width(f)
		l.Center = append(l.Center, ColumnSlot{Field: f, Width: w, Offset: off})
		off += w
	}
	return l
}

// PinnedWidth returns the total width of the slots.
func PinnedWidth(slots []ColumnSlot) float64 {
	var w float64
	for _, s := range slots {
		w += s.Width
	}
	return w
}

// CenterWidths returns the width layout of the center columns.
func (l ColumnLayout) CenterWidths() RowHeights {
	ws := make([]float64, len(l.Center))
	for i, s := range l.Center {
		ws[i] = s.Width
	}
	return VariableHeights(ws)
}

// ComputeVisibleColumnRange returns the center columns to materialize for a
// container of containerWidth scrolled horizontally to scrollLeft. Pinned
// widths are subtracted from the container before windowing.
func (l ColumnLayout) ComputeVisibleColumnRange(scrollLeft, containerWidth float64, overscan int) Range {
	viewport := containerWidth - PinnedWidth(l.Left) - PinnedWidth(l.Right)
	if viewport < 0 {
		viewport = 0
	}
	return ComputeVisibleRowRange(scrollLeft, viewport, l.CenterWidths(), overscan)
}

// Viewport is the scroll position and size of the grid body.
type Viewport struct {
	ScrollTop  float64 `json:"scrollTop"`
	ScrollLeft float64 `json:"scrollLeft"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Window is the minimal set of rows and columns to materialize.
type Window struct {
	Rows        Range        `json:"rows"`
	Columns     Range        `json:"columns"`
	Left        []ColumnSlot `json:"left"`
	Center      []ColumnSlot `json:"center"`
	Right       []ColumnSlot `json:"right"`
	OffsetTop   float64      `json:"offsetTop"`
	TotalHeight float64      `json:"totalHeight"`
	TotalWidth  float64      `json:"totalWidth"`
}

// ComputeWindow combines row and column windowing for one viewport.
func ComputeWindow(vp Viewport, heights RowHeights, layout ColumnLayout, rowOverscan, colOverscan int) Window {
	rows := ComputeVisibleRowRange(vp.ScrollTop, vp.Height, heights, rowOverscan)
	cols := layout.ComputeVisibleColumnRange(vp.ScrollLeft, vp.Width, colOverscan)
	centerWidth := layout.CenterWidths().Total()
	return Window{
		Rows:        rows,
		Columns:     cols,
		Left:        layout.Left,
		Center:      layout.Center[cols.Start:cols.End],
		Right:       layout.Right,
		OffsetTop:   heights.Offset(rows.Start),
		TotalHeight: heights.Total(),
		TotalWidth:  PinnedWidth(layout.Left) + centerWidth + PinnedWidth(layout.Right),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
