package core

import (
	"log/slog"
	"sync"
)

// StoreListener is called after every successful transition with the new
// snapshot and the transition that produced it.
type StoreListener func(state GridState, t Transition)

// Store holds the one authoritative configuration snapshot.
type Store struct {
	mu        sync.RWMutex
	state     GridState
	version   uint64
	listeners map[int]StoreListener
	nextID    int
	logger    *slog.Logger
}

// NewStore creates a store holding initial.
func NewStore(initial GridState, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		state:     initial,
		listeners: make(map[int]StoreListener),
		logger:    logger,
	}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() GridState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version increases with every applied transition.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Dispatch applies t atomically. On error the snapshot is unchanged.
func (s *Store) Dispatch(t Transition) (GridState, error) {
	s.mu.Lock()
	next, err := t.apply(s.state)
	if err != nil {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("transition rejected", "transition", t.Name(), "error", err)
		return state, err
	}
	s.state = next
	s.version++
	version := s.version
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.logger.Debug("transition", "transition", t.Name(), "version", version)
	for _, fn := range listeners {
		fn(next, t)
	}
	return next, nil
}

// Replace swaps the whole snapshot, used at mount and when the grid is
// re-initialized with new columns.
func (s *Store) Replace(state GridState) {
	s.mu.Lock()
	s.state = state
	s.version++
	s.mu.Unlock()
}

// Subscribe registers fn for every applied transition and returns a function
// that removes it.
func (s *Store) Subscribe(fn StoreListener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// snapshotListeners copies the listeners in registration order.
// Caller must hold s.mu.
func (s *Store) snapshotListeners() []StoreListener {
	out := make([]StoreListener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
