package web

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// decodeJSON reads a JSON body of at most MaxBodySize bytes into v. Unknown
// fields are rejected so typos in configuration are not silently ignored.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if s.cfg.Server.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// parseIntParam parses an integer query parameter with a default value.
// Negative values fall back to the default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseFloatParam parses a float query parameter, reporting whether it was set.
func parseFloatParam(r *http.Request, name string) (float64, bool) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseBoolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// parseListParam splits a comma-separated query parameter.
func parseListParam(r *http.Request, name string) []string {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// gridResponse summarizes a grid after a request.
type gridResponse struct {
	ID       string        `json:"id"`
	Version  uint64        `json:"version"`
	Rows     int           `json:"rows"`
	Config   core.Preset   `json:"config"`
	Page     core.PageInfo `json:"page"`
	Selected []string      `json:"selected"`
	Overlay  core.Overlay  `json:"overlay"`
	Tree     bool          `json:"tree"`
	Remote   bool          `json:"remote"`
}

func summarize(g *core.Grid) gridResponse {
	selected := g.SelectedIDs()
	if selected == nil {
		selected = []string{}
	}
	return gridResponse{
		ID:       g.ID(),
		Version:  g.Version(),
		Rows:     g.RowCount(),
		Config:   g.CurrentPreset(),
		Page:     g.PageInfo(),
		Selected: selected,
		Overlay:  g.Overlay(),
		Tree:     g.IsTreeMode(),
		Remote:   g.HasDataSource(),
	}
}

// mutate runs fn against the request's grid and answers with the grid
// summary, or with the mapped error.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(g *core.Grid) error) {
	g := gridFrom(r)
	if err := fn(g); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, summarize(g))
}

// mutateWith decodes a JSON body into T before running fn.
func mutateWith[T any](s *Server, w http.ResponseWriter, r *http.Request, fn func(g *core.Grid, body T) error) {
	var body T
	if err := s.decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.mutate(w, r, func(g *core.Grid) error { return fn(g, body) })
}
