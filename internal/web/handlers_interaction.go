package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// handleViewport applies a viewport and answers with the resulting window.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var vp core.Viewport
	if err := s.decodeJSON(w, r, &vp); err != nil {
		s.respondError(w, r, err)
		return
	}
	g := gridFrom(r)
	g.ApplyViewport(vp)
	s.writeWindow(w, r, g)
}

// =============================================================================
// Selection
// =============================================================================

type selectionRequest struct {
	IDs []string `json:"ids"`
	// Mode is set (default), add, remove, toggle or range. Range extends the
	// selection from the anchor to the first id.
	Mode string `json:"mode"`
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body selectionRequest) error {
		each := func(fn func(string) error) error {
			for _, id := range body.IDs {
				if err := fn(id); err != nil {
					return err
				}
			}
			return nil
		}
		switch body.Mode {
		case "", "set":
			return g.SetSelectedRows(body.IDs...)
		case "add":
			return each(g.SelectRow)
		case "remove":
			return each(g.DeselectRow)
		case "toggle":
			return each(g.ToggleRowSelection)
		case "range":
			if len(body.IDs) == 0 {
				return fmt.Errorf("%w: range selection needs an id", errBadRequest)
			}
			return g.SelectRangeTo(body.IDs[0])
		}
		return fmt.Errorf("%w: unknown selection mode %q", errBadRequest, body.Mode)
	})
}

// handleSelectAll selects every row, or only the rows passing the filter
// with ?filtered=true.
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error {
		if parseBoolParam(r, "filtered") {
			return g.SelectAllFiltered()
		}
		return g.SelectAll()
	})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.DeselectAll() })
}

// =============================================================================
// Focus and editing
// =============================================================================

type cellRequest struct {
	RowID string `json:"rowId"`
	Field string `json:"field"`
}

type focusResponse struct {
	Focused bool         `json:"focused"`
	Cell    core.CellRef `json:"cell"`
}

func (s *Server) handleSetFocus(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body cellRequest) error {
		if body.RowID == "" && body.Field == "" {
			return g.ClearFocus()
		}
		return g.SetFocusedCell(body.RowID, body.Field)
	})
}

func (s *Server) handleMoveFocus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Move core.FocusMove `json:"move"`
	}
	if err := s.decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	g := gridFrom(r)
	cell, err := g.MoveFocus(body.Move)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	_, focused := g.FocusedCell()
	writeJSON(w, focusResponse{Focused: focused, Cell: cell})
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body cellRequest) error {
		return g.StartEditing(body.RowID, body.Field)
	})
}

func (s *Server) handleEditValue(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Value any `json:"value"`
	}) error {
		return g.SetEditValue(body.Value)
	})
}

func (s *Server) handleCommitEdit(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.CommitEdit() })
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.CancelEdit() })
}
