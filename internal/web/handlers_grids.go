package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/logging"
	"github.com/JonMunkholm/gridcore/internal/rowsio"
)

// createGridRequest is the body of POST /api/grids.
type createGridRequest struct {
	ID         string                 `json:"id"`
	Columns    []core.Column          `json:"columns"`
	Rows       []core.Row             `json:"rows"`
	PageSize   *int                   `json:"pageSize"`
	Aggregates []core.AggregateConfig `json:"aggregates"`
	Tree       *core.TreeOptions      `json:"tree"`

	// Remote serves rows from the server's data source instead of Rows.
	Remote bool `json:"remote"`

	// PresetKey scopes saved presets; it defaults to the grid id.
	PresetKey string `json:"presetKey"`
	AutoSave  bool   `json:"autoSave"`

	// Restore applies the most recently saved preset, if any.
	Restore bool `json:"restore"`
}

func (s *Server) gridOptions(req createGridRequest) (core.Options, error) {
	if len(req.Columns) == 0 {
		return core.Options{}, fmt.Errorf("%w: at least one column is required", errBadRequest)
	}
	gc := s.cfg.Grid
	opts := core.Options{
		ID:              req.ID,
		Columns:         req.Columns,
		Rows:            req.Rows,
		PageSize:        gc.PageSize,
		RowHeight:       gc.RowHeight,
		RowOverscan:     gc.RowOverscan,
		ColumnOverscan:  gc.ColumnOverscan,
		ScrollThrottle:  gc.ScrollThrottle,
		MaxPinnedTop:    gc.MaxPinnedTop,
		MaxPinnedBottom: gc.MaxPinnedBottom,
		Aggregates:      req.Aggregates,
		Tree:            req.Tree,
		Presets:         s.presets,
		PresetKey:       req.PresetKey,
		AutoSave:        req.AutoSave && s.presets != nil,
		AutoSaveDelay:   s.cfg.Presets.AutoSaveDelay,
		Logger:          s.logger,
	}
	if req.PageSize != nil {
		opts.PageSize = *req.PageSize
	}
	if req.Tree != nil {
		opts.Loader = s.loader
	}
	if req.Remote {
		if s.source == nil {
			return core.Options{}, core.ErrNoDataSource
		}
		opts.Rows = nil
		opts.DataSource = s.source
		opts.Remote = core.RemoteOptions{
			BlockSize:     s.cfg.Remote.BlockSize,
			MaxBlocks:     s.cfg.Remote.MaxBlocks,
			MaxConcurrent: s.cfg.Remote.MaxConcurrent,
		}
	}
	return opts, nil
}

// handleCreateGrid opens a new grid session.
func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	var req createGridRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.openSession(w, r, req)
}

// handleImportGrid opens a grid session from a CSV or JSON rows document,
// inferring its columns. Query parameters: id, idField (default "id"),
// pageSize, presetKey, and repeatable kind=field:kind overrides.
func (s *Server) handleImportGrid(w http.ResponseWriter, r *http.Request) {
	format, err := rowsio.FormatForContentType(r.Header.Get("Content-Type"))
	if err != nil {
		s.respondErrorStatus(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusUnsupportedMediaType)
		return
	}
	if s.cfg.Server.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	}

	q := r.URL.Query()
	idField := q.Get("idField")
	if idField == "" {
		idField = "id"
	}
	ds, err := rowsio.Read(r.Body, format, rowsio.Options{IDField: idField})
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	kinds := make(map[string]string)
	for _, kv := range q["kind"] {
		field, kind, ok := strings.Cut(kv, ":")
		if !ok {
			s.respondError(w, r, fmt.Errorf("%w: kind %q must be field:kind", errBadRequest, kv))
			return
		}
		kinds[field] = kind
	}
	cols, err := rowsio.InferColumns(ds, kinds)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	req := createGridRequest{
		ID:        q.Get("id"),
		Columns:   cols,
		Rows:      ds.Rows,
		PresetKey: q.Get("presetKey"),
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, r, fmt.Errorf("%w: pageSize %q", errBadRequest, v))
			return
		}
		req.PageSize = &n
	}
	s.openSession(w, r, req)
}

// openSession creates the grid described by req and registers it.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request, req createGridRequest) {
	opts, err := s.gridOptions(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := core.NewGrid(opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.sessions.Add(g); err != nil {
		g.Destroy()
		s.respondError(w, r, err)
		return
	}

	logger := logging.WithFields(r.Context(), "grid_id", g.ID())
	if req.Restore && g.HasPresetStore() {
		if _, err := g.LoadPreset(r.Context(), ""); err != nil && !errors.Is(err, core.ErrPresetNotFound) {
			logger.Warn("restore preset failed", "error", err)
		}
	}
	logger.Info("grid session created", "rows", g.RowCount(), "remote", req.Remote)

	w.Header().Set("Location", "/api/grids/"+g.ID())
	writeJSONStatus(w, http.StatusCreated, summarize(g))
}

func (s *Server) handleListGrids(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.sessions.List())
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, summarize(gridFrom(r)))
}

// handleDeleteGrid destroys a session, flushing a pending auto-save first.
func (s *Server) handleDeleteGrid(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	if err := g.FlushAutoSave(r.Context()); err != nil {
		logging.WithFields(r.Context(), "grid_id", g.ID()).Warn("flush auto-save failed", "error", err)
	}
	if err := s.sessions.Remove(g.ID()); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Rows
// =============================================================================

type rowsRequest struct {
	Rows []core.Row `json:"rows"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleSetRows(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body rowsRequest) error {
		return g.SetRows(body.Rows)
	})
}

func (s *Server) handleAddRows(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body rowsRequest) error {
		return g.AddRows(body.Rows...)
	})
}

func (s *Server) handleRemoveRows(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body idsRequest) error {
		return g.RemoveRows(body.IDs...)
	})
}

func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	row, ok := gridFrom(r).GetRow(chi.URLParam(r, "rowID"))
	if !ok {
		s.respondError(w, r, core.ErrUnknownRow)
		return
	}
	writeJSON(w, row)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Fields map[string]any `json:"fields"`
	}) error {
		return g.UpdateRow(chi.URLParam(r, "rowID"), body.Fields)
	})
}

func (s *Server) handlePinRow(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, body struct {
		Side core.PinSide `json:"side"`
	}) error {
		id := chi.URLParam(r, "rowID")
		if body.Side == core.PinNone {
			return g.UnpinRow(id)
		}
		return g.PinRow(id, body.Side)
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(g *core.Grid) error { return g.Refresh() })
}
