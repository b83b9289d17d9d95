package core

// Columns returns the column definitions.
func (g *Grid) Columns() []Column {
	return g.State().Columns()
}

// Column returns the definition of field.
func (g *Grid) Column(field string) (Column, bool) {
	return g.State().Column(field)
}

// VisibleColumns returns the visible fields in render order.
func (g *Grid) VisibleColumns() []string {
	return g.State().VisibleColumns()
}

// ColumnLayout returns the pinned and center column regions.
func (g *Grid) ColumnLayout() ColumnLayout {
	return g.State().Layout()
}

func (g *Grid) MoveColumn(field string, toIndex int) error {
	return g.Dispatch(MoveColumn{Field: field, ToIndex: toIndex})
}

func (g *Grid) SetColumnOrder(order []string) error {
	return g.Dispatch(SetColumnOrder{Order: order})
}

func (g *Grid) ResizeColumn(field string, width float64) error {
	return g.Dispatch(ResizeColumn{Field: field, Width: width})
}

// PinColumn pins field to PinLeft or PinRight.
func (g *Grid) PinColumn(field string, side PinSide) error {
	return g.Dispatch(PinColumn{Field: field, Side: side})
}

func (g *Grid) UnpinColumn(field string) error {
	return g.Dispatch(PinColumn{Field: field, Side: PinNone})
}

func (g *Grid) SetColumnVisible(field string, visible bool) error {
	return g.Dispatch(SetColumnVisible{Field: field, Visible: visible})
}

func (g *Grid) HideColumn(field string) error { return g.SetColumnVisible(field, false) }
func (g *Grid) ShowColumn(field string) error { return g.SetColumnVisible(field, true) }

// ResetColumns restores the initial column layout.
func (g *Grid) ResetColumns() error {
	return g.Dispatch(ResetColumns{})
}

// ColumnState returns the current column layout in saveable form.
func (g *Grid) ColumnState() ColumnPreset {
	return PresetOf(g.State()).Columns
}

// ApplyColumnState restores a saved column layout.
func (g *Grid) ApplyColumnState(c ColumnPreset) error {
	return g.Dispatch(ApplyColumnState{
		Order:       c.Order,
		Widths:      c.Widths,
		PinnedLeft:  c.PinnedLeft,
		PinnedRight: c.PinnedRight,
		Hidden:      c.Hidden,
	})
}

// SizeColumnsToFit scales the center columns so all visible columns fill
// width. Pinned columns keep their width.
func (g *Grid) SizeColumnsToFit(width float64) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()

	l := g.store.Snapshot().Layout()
	available := width - PinnedWidth(l.Left) - PinnedWidth(l.Right)
	current := PinnedWidth(l.Center)
	if available <= 0 || current <= 0 {
		return nil
	}
	scale := available / current
	ts := make([]Transition, 0, len(l.Center))
	for _, c := range l.Center {
		ts = append(ts, ResizeColumn{Field: c.Field, Width: c.Width * scale})
	}
	return g.dispatchAll(ts...)
}
