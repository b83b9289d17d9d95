package core

// --- sort ---

// SetSort replaces the sort model.
func (g *Grid) SetSort(specs ...SortSpec) error {
	return g.Dispatch(SetSort{Specs: specs})
}

// ToggleSort cycles field through ascending, descending and unsorted.
func (g *Grid) ToggleSort(field string, multi bool) error {
	return g.Dispatch(ToggleSort{Field: field, Multi: multi})
}

func (g *Grid) ClearSort() error { return g.Dispatch(ClearSort{}) }

func (g *Grid) Sort() []SortSpec { return g.State().Sort() }

// --- filter ---

// SetFilter sets the filter of one field; nil clears it.
func (g *Grid) SetFilter(field string, fv FilterValue) error {
	return g.Dispatch(SetFilter{Field: field, Value: fv})
}

func (g *Grid) ClearFilter(field string) error {
	return g.Dispatch(ClearFilter{Field: field})
}

func (g *Grid) ClearAllFilters() error { return g.Dispatch(ClearAllFilters{}) }

// Filter returns the filter of field.
func (g *Grid) Filter(field string) (FilterValue, bool) {
	return g.State().Filter(field)
}

// FilterModel returns every field filter in wire shape.
func (g *Grid) FilterModel() map[string]FilterSpec {
	return PresetOf(g.State()).Filters
}

// SetFilterModel replaces every field filter from wire shapes.
func (g *Grid) SetFilterModel(model map[string]FilterSpec) error {
	filters := make(map[string]FilterValue, len(model))
	for field, spec := range model {
		filters[field] = spec.Filter()
	}
	return g.Dispatch(SetFilterModel{Filters: filters})
}

// IsAnyFilterActive reports whether any field filter constrains rows or a
// quick filter is set.
func (g *Grid) IsAnyFilterActive() bool {
	st := g.State()
	if st.QuickFilter() != "" {
		return true
	}
	kinds := st.Kinds()
	for field, fv := range st.filters {
		if IsFilterActive(fv, kinds[field]) {
			return true
		}
	}
	return false
}

// IsColumnFiltered reports whether field has an active filter.
func (g *Grid) IsColumnFiltered(field string) bool {
	st := g.State()
	fv, ok := st.Filter(field)
	if !ok {
		return false
	}
	c, _ := st.Column(field)
	return IsFilterActive(fv, c.Kind())
}

// SetQuickFilter sets the global search term.
func (g *Grid) SetQuickFilter(term string) error {
	return g.Dispatch(SetQuickFilter{Term: term})
}

func (g *Grid) QuickFilter() string { return g.State().QuickFilter() }
