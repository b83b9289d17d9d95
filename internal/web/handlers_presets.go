package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/logging"
)

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := gridFrom(r).ListPresets(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, nonNil(presets))
}

// handleSavePreset saves the current configuration under an optional name.
func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := s.decodeJSON(w, r, &body); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	g := gridFrom(r)
	p, err := g.SavePreset(r.Context(), body.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "grid_id", g.ID(), "preset", p.ID).Info("preset saved")
	writeJSONStatus(w, http.StatusCreated, p)
}

// handleLoadPreset applies a stored preset. The id "latest" loads the most
// recently saved one.
func (s *Server) handleLoadPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "presetID")
	if id == "latest" {
		id = ""
	}
	s.mutate(w, r, func(g *core.Grid) error {
		_, err := g.LoadPreset(r.Context(), id)
		return err
	})
}

// handleApplyPreset applies a preset sent in the body without storing it.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	mutateWith(s, w, r, func(g *core.Grid, p core.Preset) error {
		return g.ApplyPreset(p)
	})
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := gridFrom(r).DeletePreset(r.Context(), chi.URLParam(r, "presetID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
