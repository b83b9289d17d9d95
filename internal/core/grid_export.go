package core

// ExportOptions selects what ExportData includes.
type ExportOptions struct {
	// Fields overrides the exported columns; default is the visible columns in
	// render order.
	Fields       []string
	OnlySelected bool
	// AllRows exports every filtered row instead of the current page.
	AllRows bool
}

// ExportTable is tabular export data. Encoding is left to the caller.
type ExportTable struct {
	Fields []string   `json:"fields"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ExportData returns the displayed data rows as text cells. Group rows are
// skipped; tree nodes are exported in display order.
func (g *Grid) ExportData(opts ExportOptions) (ExportTable, error) {
	if !g.lock() {
		return ExportTable{}, nil
	}
	defer g.unlock()

	v, err := g.viewLocked()
	if err != nil {
		return ExportTable{}, err
	}
	st := g.store.Snapshot()

	fields := opts.Fields
	if len(fields) == 0 {
		fields = st.VisibleColumns()
	}
	header := make([]string, len(fields))
	for i, f := range fields {
		if c, ok := st.Column(f); ok {
			header[i] = c.DisplayName()
		} else {
			header[i] = f
		}
	}

	source := v.Page.All()
	if opts.AllRows {
		source = v.Display
	}
	out := ExportTable{Fields: fields, Header: header}
	for _, r := range source {
		if r.Kind == RowGroup {
			continue
		}
		if opts.OnlySelected && !st.IsSelected(r.ID) {
			continue
		}
		cells := make([]string, len(fields))
		for i, f := range fields {
			cells[i] = ToText(r.Row.Value(f))
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}

// --- overlays ---

func (g *Grid) ShowLoadingOverlay(message string) error {
	return g.Dispatch(SetOverlay{Overlay: Overlay{Loading: true, Message: message}})
}

func (g *Grid) ShowNoRowsOverlay(message string) error {
	return g.Dispatch(SetOverlay{Overlay: Overlay{NoRows: true, Message: message}})
}

func (g *Grid) HideOverlay() error { return g.Dispatch(SetOverlay{}) }

// Overlay returns the current overlay. NoRows is also reported when the
// filtered data is empty and no loading overlay is shown.
func (g *Grid) Overlay() Overlay {
	if !g.lock() {
		return Overlay{}
	}
	defer g.unlock()
	o := g.store.Snapshot().Overlay()
	if !o.Loading && !o.NoRows && g.remote == nil {
		if v, err := g.viewLocked(); err == nil && len(v.Display) == 0 {
			o.NoRows = true
		}
	}
	return o
}
