package web

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/logging"
	"github.com/JonMunkholm/gridcore/internal/web/templates"
)

type pageResponse struct {
	Info   core.PageInfo     `json:"info"`
	Top    []core.DisplayRow `json:"top"`
	Rows   []core.DisplayRow `json:"rows"`
	Bottom []core.DisplayRow `json:"bottom"`
}

// handlePage returns the current page with pinned rows.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	v, err := g.View()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, pageResponse{
		Info:   g.PageInfo(),
		Top:    nonNil(v.Page.Top),
		Rows:   nonNil(v.Page.Rows),
		Bottom: nonNil(v.Page.Bottom),
	})
}

type windowResponse struct {
	Viewport core.Viewport     `json:"viewport"`
	Window   core.Window       `json:"window"`
	Rows     []core.DisplayRow `json:"rows"`
}

// handleWindow returns the rows and columns to render. Viewport query
// parameters (scrollTop, scrollLeft, width, height), when present, are
// applied first.
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	vp := g.Viewport()
	changed := false
	for name, dst := range map[string]*float64{
		"scrollTop":  &vp.ScrollTop,
		"scrollLeft": &vp.ScrollLeft,
		"width":      &vp.Width,
		"height":     &vp.Height,
	} {
		if f, ok := parseFloatParam(r, name); ok {
			*dst = f
			changed = true
		}
	}
	if changed {
		g.ApplyViewport(vp)
	}
	s.writeWindow(w, r, g)
}

func (s *Server) writeWindow(w http.ResponseWriter, r *http.Request, g *core.Grid) {
	win, err := g.Window()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rows, err := g.VisibleRows()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, windowResponse{Viewport: g.Viewport(), Window: win, Rows: nonNil(rows)})
}

type remoteResponse struct {
	Range core.Range `json:"range"`
	Rows  []core.Row `json:"rows"`
}

// handleRemoteRows fetches rows through the remote block cache: the explicit
// [start, end) range, or the current window when no range is given.
func (s *Server) handleRemoteRows(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	ctx := r.Context()
	if s.cfg.Remote.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Remote.FetchTimeout)
		defer cancel()
	}

	if r.URL.Query().Has("start") || r.URL.Query().Has("end") {
		start := parseIntParam(r, "start", 0)
		end := parseIntParam(r, "end", start+s.cfg.Remote.BlockSize)
		rows, err := g.FetchRows(ctx, start, end)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, remoteResponse{Range: core.Range{Start: start, End: start + len(rows)}, Rows: nonNil(rows)})
		return
	}

	rows, rng, err := g.FetchWindow(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, remoteResponse{Range: rng, Rows: nonNil(rows)})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals := gridFrom(r).Totals()
	if totals == nil {
		totals = core.Aggregations{}
	}
	writeJSON(w, totals)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	field := chi.URLParam(r, "field")
	if _, ok := g.Column(field); !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownColumn, field))
		return
	}
	writeJSON(w, nonNil(g.Facets(field)))
}

// handleExportCSV streams the grid as CSV. Query parameters: fields
// (comma-separated), all (every filtered row instead of the current page),
// selected (only selected rows).
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	table, err := g.ExportData(core.ExportOptions{
		Fields:       parseListParam(r, "fields"),
		AllRows:      parseBoolParam(r, "all"),
		OnlySelected: parseBoolParam(r, "selected"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="grid-%s.csv"`, g.ID()))

	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		logging.FromContext(r.Context()).Error("csv export failed", "error", err)
		return
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		logging.FromContext(r.Context()).Error("csv export failed", "error", err)
	}
}

// handlePreview renders the current page as HTML. HTMX requests get only
// the table fragment.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	g := gridFrom(r)
	params, err := previewParams(g)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		_ = templates.GridTable(params).Render(r.Context(), w)
		return
	}
	_ = templates.GridPage(params).Render(r.Context(), w)
}

func previewParams(g *core.Grid) (templates.GridParams, error) {
	v, err := g.View()
	if err != nil {
		return templates.GridParams{}, err
	}

	sorts := make(map[string]string)
	for _, spec := range g.Sort() {
		if spec.Direction != core.SortNone {
			sorts[spec.Field] = string(spec.Direction)
		}
	}

	layout := g.ColumnLayout()
	var slots []core.ColumnSlot
	slots = append(slots, layout.Left...)
	slots = append(slots, layout.Center...)
	slots = append(slots, layout.Right...)

	cols := make([]templates.ColumnView, 0, len(slots))
	defs := make([]core.Column, 0, len(slots))
	for _, slot := range slots {
		c, _ := g.Column(slot.Field)
		defs = append(defs, c)
		cols = append(cols, templates.ColumnView{
			Field:  slot.Field,
			Header: c.DisplayName(),
			Width:  slot.Width,
			Sort:   sorts[slot.Field],
			Pinned: string(slot.Pinned),
		})
	}

	toView := func(rows []core.DisplayRow) []templates.RowView {
		out := make([]templates.RowView, len(rows))
		for i, dr := range rows {
			out[i] = rowView(g, dr, defs)
		}
		return out
	}

	info := g.PageInfo()
	params := templates.GridParams{
		GridID:      g.ID(),
		Columns:     cols,
		Top:         toView(v.Page.Top),
		Rows:        toView(v.Page.Rows),
		Bottom:      toView(v.Page.Bottom),
		Page:        info.Page,
		TotalPages:  info.TotalPages,
		TotalRows:   info.TotalRows,
		QuickFilter: g.QuickFilter(),
	}
	switch ov := g.Overlay(); {
	case ov.Message != "":
		params.Overlay = ov.Message
	case ov.Loading:
		params.Overlay = "Loading..."
	case ov.NoRows:
		params.Overlay = "No rows"
	}
	return params, nil
}

func rowView(g *core.Grid, dr core.DisplayRow, cols []core.Column) templates.RowView {
	rv := templates.RowView{
		ID:       dr.ID,
		Kind:     dr.Kind.String(),
		Level:    dr.Level,
		Expanded: dr.Expanded,
		Pinned:   string(dr.Pinned),
	}
	if dr.Group != nil {
		rv.Label = fmt.Sprintf("%s: %s (%d)", dr.Group.Field, core.ToText(dr.Group.Value), dr.Group.LeafCount)
		return rv
	}
	rv.Selected = g.IsRowSelected(dr.Row.ID)
	renderer := g.Renderer()
	rv.Cells = make([]templates.Cell, len(cols))
	for i, c := range cols {
		var v any
		if renderer != nil {
			v = renderer.RenderCell(dr.Row, c)
		} else {
			v = dr.Row.Value(c.Field)
		}
		rv.Cells[i] = templates.Cell{Field: c.Field, Text: core.ToText(v)}
	}
	return rv
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
