package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gridcore/internal/core"
)

type gridKey struct{}

// gridCtx resolves the {gridID} URL parameter to an open grid and stores it
// in the request context.
func (s *Server) gridCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "gridID"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), gridKey{}, sess.Grid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// gridFrom returns the grid stored by gridCtx.
func gridFrom(r *http.Request) *core.Grid {
	g, _ := r.Context().Value(gridKey{}).(*core.Grid)
	return g
}
