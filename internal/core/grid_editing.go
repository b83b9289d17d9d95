package core

import (
	"fmt"
	"maps"
	"slices"
)

// CellEdit is the payload of EventCellEditCommitted.
type CellEdit struct {
	Cell     CellRef `json:"cell"`
	OldValue any     `json:"oldValue"`
	NewValue any     `json:"newValue"`
}

// StartEditing puts a cell into edit mode with the row's current value.
// Any other edit in progress is cancelled.
func (g *Grid) StartEditing(rowID, field string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	i, ok := g.index()[rowID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRow, rowID)
	}
	return g.dispatch(StartEdit{
		Cell:  CellRef{RowID: rowID, Field: field},
		Value: g.rows[i].Value(field),
	})
}

// SetEditValue changes the pending value of the cell being edited.
func (g *Grid) SetEditValue(v any) error {
	return g.Dispatch(UpdateEditValue{Value: v})
}

// EditingCell returns the cell in edit mode and its pending value.
func (g *Grid) EditingCell() (CellRef, any, bool) {
	return g.State().Editing()
}

func (g *Grid) IsEditing() bool {
	_, _, ok := g.EditingCell()
	return ok
}

// CommitEdit writes the pending value to the row and leaves edit mode.
func (g *Grid) CommitEdit() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()

	cell, value, ok := g.store.Snapshot().Editing()
	if !ok {
		return ErrNoEditInProgress
	}
	i, exists := g.index()[cell.RowID]
	if !exists {
		// the row went away while editing
		_ = g.dispatch(CancelEdit{})
		return fmt.Errorf("%w: %q", ErrUnknownRow, cell.RowID)
	}
	if err := g.dispatch(CommitEdit{}); err != nil {
		return err
	}

	old := g.rows[i].Value(cell.Field)
	rows := slices.Clone(g.rows)
	fields := maps.Clone(rows[i].Fields)
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields[cell.Field] = value
	rows[i] = Row{ID: rows[i].ID, Fields: fields}
	g.rows = rows
	g.touchData()

	g.queue(EventCellEditCommitted, "commitEdit", CellEdit{Cell: cell, OldValue: old, NewValue: value})
	g.logger.Debug("cell edited", "row", cell.RowID, "field", cell.Field)
	_, err := g.viewLocked()
	return err
}

// CancelEdit leaves edit mode discarding the pending value.
func (g *Grid) CancelEdit() error {
	return g.Dispatch(CancelEdit{})
}
