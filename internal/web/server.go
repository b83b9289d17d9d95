// Package web provides the HTTP server and handlers that host grid sessions.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/gridcore/internal/config"
	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/web/middleware"
)

// Deps are the collaborators shared by every grid the server creates.
type Deps struct {
	Sessions *Sessions

	// Presets backs SavePreset/LoadPreset; nil disables presets.
	Presets core.PresetStore

	// Source serves grids created with "remote": true; nil disables remote mode.
	Source core.DataSource

	// Loader fetches lazily loaded tree children; nil disables lazy loading.
	Loader core.NodeLoader

	Logger *slog.Logger
}

// Server is the HTTP server for grid sessions.
type Server struct {
	cfg      config.Config
	sessions *Sessions
	presets  core.PresetStore
	source   core.DataSource
	loader   core.NodeLoader
	logger   *slog.Logger

	router  *chi.Mux
	limiter *rateLimiter
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessions(cfg.Sessions, deps.Logger)
	}
	s := &Server{
		cfg:      cfg,
		sessions: deps.Sessions,
		presets:  deps.Presets,
		source:   deps.Source,
		loader:   deps.Loader,
		logger:   deps.Logger,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	// 600 requests per minute per client: scrolling issues many window calls
	s.limiter = newRateLimiter(600, time.Minute)
	s.router.Use(s.limiter.middleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// HTML preview
	s.router.With(s.gridCtx).Get("/grids/{gridID}", s.handlePreview)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/grids", s.handleListGrids)
		r.Post("/grids", s.handleCreateGrid)
		r.Post("/imports", s.handleImportGrid)

		r.Route("/grids/{gridID}", func(r chi.Router) {
			r.Use(s.gridCtx)

			r.Get("/", s.handleGetGrid)
			r.Delete("/", s.handleDeleteGrid)

			// Data
			r.Put("/rows", s.handleSetRows)
			r.Post("/rows", s.handleAddRows)
			r.Delete("/rows", s.handleRemoveRows)
			r.Get("/rows/{rowID}", s.handleGetRow)
			r.Patch("/rows/{rowID}", s.handleUpdateRow)
			r.Put("/rows/{rowID}/pin", s.handlePinRow)
			r.Post("/refresh", s.handleRefresh)

			// Derived views
			r.Get("/page", s.handlePage)
			r.Get("/window", s.handleWindow)
			r.Get("/remote", s.handleRemoteRows)
			r.Get("/totals", s.handleTotals)
			r.Get("/facets/{field}", s.handleFacets)
			r.Get("/export.csv", s.handleExportCSV)

			// Configuration
			r.Put("/sort", s.handleSetSort)
			r.Post("/sort/toggle", s.handleToggleSort)
			r.Put("/filters", s.handleSetFilterModel)
			r.Put("/filters/{field}", s.handleSetFilter)
			r.Delete("/filters/{field}", s.handleClearFilter)
			r.Delete("/filters", s.handleClearFilters)
			r.Put("/quick-filter", s.handleQuickFilter)
			r.Put("/pagination", s.handlePagination)
			r.Put("/group-by", s.handleGroupBy)
			r.Post("/groups/toggle", s.handleToggleGroup)
			r.Post("/groups/expand-all", s.handleExpandAllGroups)
			r.Post("/groups/collapse-all", s.handleCollapseAllGroups)
			r.Post("/nodes/{nodeID}/expand", s.handleExpandNode)
			r.Post("/nodes/{nodeID}/collapse", s.handleCollapseNode)
			r.Patch("/columns/{field}", s.handleUpdateColumn)
			r.Put("/columns/order", s.handleColumnOrder)
			r.Post("/columns/reset", s.handleResetColumns)
			r.Put("/overlay", s.handleOverlay)

			// Interaction
			r.Put("/viewport", s.handleViewport)
			r.Put("/selection", s.handleSetSelection)
			r.Post("/selection/all", s.handleSelectAll)
			r.Delete("/selection", s.handleClearSelection)
			r.Put("/focus", s.handleSetFocus)
			r.Post("/focus/move", s.handleMoveFocus)
			r.Post("/edit", s.handleStartEdit)
			r.Put("/edit", s.handleEditValue)
			r.Post("/edit/commit", s.handleCommitEdit)
			r.Delete("/edit", s.handleCancelEdit)

			// Presets
			r.Get("/presets", s.handleListPresets)
			r.Post("/presets", s.handleSavePreset)
			r.Post("/presets/apply", s.handleApplyPreset)
			r.Post("/presets/{presetID}/load", s.handleLoadPreset)
			r.Delete("/presets/{presetID}", s.handleDeletePreset)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and destroys every open grid.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.stop()
	defer s.sessions.Close()
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a fixed-window rate limiter per client address.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stopped.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by client address.
// It runs after TrustedRealIP, so RemoteAddr is already the client's.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r.RemoteAddr)) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var errRateLimited = errors.New("rate limit exceeded")

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
