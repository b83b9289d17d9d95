package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// =============================================================================
// Sort and filter
// =============================================================================

func (s *Server) handleSetSort(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Sort []core.SortSpec `json:"sort"`
	}) error {
		if len(body.Sort) == 0 {
			return g.ClearSort()
		}
		return g.SetSort(body.Sort...)
	})
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Field string `json:"field"`
		Multi bool   `json:"multi"`
	}) error {
		return g.ToggleSort(body.Field, body.Multi)
	})
}

func (s *Server) handleSetFilterModel(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, model map[string]core.FilterSpec) error {
		return g.SetFilterModel(model)
	})
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, spec core.FilterSpec) error {
		return g.SetFilter(chi.URLParam(r, "field"), spec.Filter())
	})
}

func (s *Server) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.ClearFilter(chi.URLParam(r, "field")) })
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.ClearAllFilters() })
}

func (s *Server) handleQuickFilter(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Term string `json:"term"`
	}) error {
		return g.SetQuickFilter(body.Term)
	})
}

// =============================================================================
// Pagination
// =============================================================================

type paginationRequest struct {
	Page     *int `json:"page"`
	PageSize *int `json:"pageSize"`
	// Action is one of first, previous, next, last.
	Action string `json:"action"`
}

func (s *Server) handlePagination(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body paginationRequest) error {
		if body.PageSize != nil {
			if err := g.SetPageSize(*body.PageSize); err != nil {
				return err
			}
		}
		if body.Page != nil {
			if err := g.SetPage(*body.Page); err != nil {
				return err
			}
		}
		switch body.Action {
		case "":
			return nil
		case "first":
			return g.FirstPage()
		case "previous":
			return g.PreviousPage()
		case "next":
			return g.NextPage()
		case "last":
			return g.LastPage()
		}
		return fmt.Errorf("%w: unknown page action %q", errBadRequest, body.Action)
	})
}

// =============================================================================
// Grouping and tree
// =============================================================================

func (s *Server) handleGroupBy(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Fields []string `json:"fields"`
	}) error {
		if len(body.Fields) == 0 {
			return g.ClearGrouping()
		}
		return g.SetGroupBy(body.Fields...)
	})
}

func (s *Server) handleToggleGroup(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Key      string `json:"key"`
		Expanded *bool  `json:"expanded"`
	}) error {
		if body.Expanded != nil {
			return g.SetGroupExpanded(body.Key, *body.Expanded)
		}
		return g.ToggleGroup(body.Key)
	})
}

func (s *Server) handleExpandAllGroups(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.ExpandAllGroups() })
}

func (s *Server) handleCollapseAllGroups(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.CollapseAllGroups() })
}

type expandResponse struct {
	gridResponse
	Node     string `json:"node"`
	Loading  bool   `json:"loading"`
	Children int    `json:"children"`
}

// handleExpandNode expands a tree node. A lazy load is awaited unless
// ?wait=false, in which case it continues in the background under the
// remote fetch timeout and the response reports loading: true.
func (s *Server) handleExpandNode(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	id := chi.URLParam(r, "nodeID")
	wait := r.URL.Query().Get("wait") != "false"

	ctx := r.Context()
	cancel := context.CancelFunc(func() {})
	if !wait {
		ctx = context.WithoutCancel(ctx)
	}
	if s.cfg.Remote.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Remote.FetchTimeout)
	}

	ch, err := g.ExpandNode(ctx, id)
	if err != nil {
		cancel()
		s.respondError(w, r, err)
		return
	}
	resp := expandResponse{Node: id}
	switch {
	case ch == nil:
		cancel()
	case !wait:
		go func() {
			<-ch
			cancel()
		}()
		resp.Loading = true
	default:
		defer cancel()
		select {
		case res := <-ch:
			if res.Err != nil {
				s.respondError(w, r, res.Err)
				return
			}
			resp.Children = res.Children
		case <-r.Context().Done():
			s.respondError(w, r, r.Context().Err())
			return
		}
	}
	resp.gridResponse = summarize(g)
	writeJSON(w, resp)
}

func (s *Server) handleCollapseNode(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.CollapseNode(chi.URLParam(r, "nodeID")) })
}

// =============================================================================
// Columns and overlay
// =============================================================================

type columnRequest struct {
	Width   *float64      `json:"width"`
	Pinned  *core.PinSide `json:"pinned"`
	Visible *bool         `json:"visible"`
	Index   *int          `json:"index"`
}

func (s *Server) handleUpdateColumn(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body columnRequest) error {
		field := chi.URLParam(r, "field")
		if body.Width != nil {
			if err := g.ResizeColumn(field, *body.Width); err != nil {
				return err
			}
		}
		if body.Pinned != nil {
			var err error
			if *body.Pinned == core.PinNone {
				err = g.UnpinColumn(field)
			} else {
				err = g.PinColumn(field, *body.Pinned)
			}
			if err != nil {
				return err
			}
		}
		if body.Visible != nil {
			if err := g.SetColumnVisible(field, *body.Visible); err != nil {
				return err
			}
		}
		if body.Index != nil {
			return g.MoveColumn(field, *body.Index)
		}
		return nil
	})
}

func (s *Server) handleColumnOrder(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Order []string `json:"order"`
	}) error {
		return g.SetColumnOrder(body.Order)
	})
}

// handleResetColumns restores the initial column layout, or sizes columns to
// fill ?fitWidth= when given.
func (s *Server) handleResetColumns(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error {
		if width, ok := parseFloatParam(r, "fitWidth"); ok {
			return g.SizeColumnsToFit(width)
		}
		return g.ResetColumns()
	})
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body core.Overlay) error {
		switch {
		case body.Loading:
			return g.ShowLoadingOverlay(body.Message)
		case body.NoRows:
			return g.ShowNoRowsOverlay(body.Message)
		}
		return g.HideOverlay()
	})
}
