package web

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/gridcore/internal/config"
	"github.com/JonMunkholm/gridcore/internal/core"
)

// ErrSessionNotFound is returned for a grid id that is not open.
var ErrSessionNotFound = errors.New("grid session not found")

// ErrSessionExists is returned when a grid id is already open.
var ErrSessionExists = errors.New("grid session already exists")

// ErrTooManySessions is returned when MaxSessions grids are already open.
var ErrTooManySessions = errors.New("too many open grid sessions")

// Session is one open grid.
type Session struct {
	Grid      *core.Grid
	CreatedAt time.Time
	lastUsed  time.Time
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
	Rows      int       `json:"rows"`
	Version   uint64    `json:"version"`
}

// Sessions is the registry of open grids. Sessions idle for longer than the
// configured TTL are destroyed by a cron-scheduled sweep.
type Sessions struct {
	cfg    config.SessionConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	cron     *cron.Cron
}

// NewSessions creates an empty registry. Call Start to begin sweeping.
func NewSessions(cfg config.SessionConfig, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start schedules the idle sweep.
func (s *Sessions) Start() error {
	if s.cfg.IdleTTL <= 0 || s.cfg.SweepSchedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.SweepSchedule, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("schedule session sweep %q: %w", s.cfg.SweepSchedule, err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	s.logger.Info("session sweeper started", "schedule", s.cfg.SweepSchedule, "idle_ttl", s.cfg.IdleTTL)
	return nil
}

// Add registers g. It fails when the id is taken or the registry is full.
func (s *Sessions) Add(g *core.Grid) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[g.ID()]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, g.ID())
	}
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}
	now := s.now()
	sess := &Session{Grid: g, CreatedAt: now, lastUsed: now}
	s.sessions[g.ID()] = sess
	return sess, nil
}

// Get returns the session and marks it used.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastUsed = s.now()
	return sess, nil
}

// Remove destroys and forgets a session.
func (s *Sessions) Remove(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Grid.Destroy()
	return nil
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// List describes the open sessions, oldest first.
func (s *Sessions) List() []SessionInfo {
	s.mu.Lock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	grids := make([]*core.Grid, 0, len(s.sessions))
	for id, sess := range s.sessions {
		infos = append(infos, SessionInfo{ID: id, CreatedAt: sess.CreatedAt, LastUsed: sess.lastUsed})
		grids = append(grids, sess.Grid)
	}
	s.mu.Unlock()

	for i, g := range grids {
		infos[i].Rows = g.RowCount()
		infos[i].Version = g.Version()
	}
	slices.SortFunc(infos, func(a, b SessionInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// Sweep destroys sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Sessions) Sweep() int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Grid.Destroy()
	}
	if len(expired) > 0 {
		s.logger.Info("idle sessions swept", "removed", len(expired))
	}
	return len(expired)
}

// Close stops the sweeper and destroys every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, sess := range all {
		sess.Grid.Destroy()
	}
}
