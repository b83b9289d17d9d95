package core

import "slices"

// SelectRow selects one row and makes it the range anchor.
func (g *Grid) SelectRow(id string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	if g.store.Snapshot().IsSelected(id) {
		return nil
	}
	return g.dispatch(ToggleRowSelection{ID: id, Index: g.displayIndexLocked(id)})
}

// DeselectRow deselects one row.
func (g *Grid) DeselectRow(id string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	if !g.store.Snapshot().IsSelected(id) {
		return nil
	}
	return g.dispatch(ToggleRowSelection{ID: id, Index: g.displayIndexLocked(id)})
}

// ToggleRowSelection flips one row's selection.
func (g *Grid) ToggleRowSelection(id string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	return g.dispatch(ToggleRowSelection{ID: id, Index: g.displayIndexLocked(id)})
}

// SelectRangeTo selects every data row between the anchor and id in display
// order.
func (g *Grid) SelectRangeTo(id string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	ids := g.displayIDsLocked()
	i := slices.Index(ids, id)
	if i < 0 {
		return ErrUnknownRow
	}
	return g.dispatch(SelectRange{IDs: ids, Index: i})
}

// SelectAll selects every row of the dataset.
func (g *Grid) SelectAll() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	ids := make([]string, len(g.rows))
	for i, r := range g.rows {
		ids[i] = r.ID
	}
	return g.dispatch(SelectAll{IDs: ids})
}

// SelectAllFiltered selects every row passing the filter.
func (g *Grid) SelectAllFiltered() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	v, err := g.viewLocked()
	if err != nil {
		return err
	}
	ids := make([]string, len(v.Filtered))
	for i, r := range v.Filtered {
		ids[i] = r.ID
	}
	return g.dispatch(SelectAll{IDs: ids})
}

// SetSelectedRows replaces the selection.
func (g *Grid) SetSelectedRows(ids ...string) error {
	return g.Dispatch(SetSelection{IDs: ids})
}

func (g *Grid) DeselectAll() error { return g.Dispatch(ClearSelection{}) }

// SelectedIDs returns the selected row ids, sorted.
func (g *Grid) SelectedIDs() []string { return g.State().Selected() }

// SelectedRows returns the selected rows in dataset order.
func (g *Grid) SelectedRows() []Row {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	st := g.store.Snapshot()
	var out []Row
	for _, r := range g.rows {
		if st.IsSelected(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

func (g *Grid) IsRowSelected(id string) bool { return g.State().IsSelected(id) }

// displayIDsLocked returns the ids of the data rows in display order.
func (g *Grid) displayIDsLocked() []string {
	v, err := g.viewLocked()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(v.Display))
	for _, r := range v.Display {
		if r.Kind != RowGroup {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (g *Grid) displayIndexLocked(id string) int {
	return slices.Index(g.displayIDsLocked(), id)
}
