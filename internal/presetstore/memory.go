package presetstore

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// MemoryStore keeps presets in process memory. Presets are stored encoded so
// callers never share maps or slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, key string, p core.Preset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = prepare(p, s.now())
	data, err := encode(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.data[key]
	if !ok {
		byID = make(map[string][]byte)
		s.data[key] = byID
	}
	byID[p.ID] = data
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, key, id string) (core.Preset, error) {
	if id == "" {
		ps, err := s.List(ctx, key)
		if err != nil {
			return core.Preset{}, err
		}
		if len(ps) == 0 {
			return core.Preset{}, notFound(key, id)
		}
		return ps[0], nil
	}

	s.mu.RLock()
	data, ok := s.data[key][id]
	s.mu.RUnlock()
	if !ok {
		return core.Preset{}, notFound(key, id)
	}
	return decode(data)
}

func (s *MemoryStore) Delete(ctx context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key][id]; !ok {
		return notFound(key, id)
	}
	delete(s.data[key], id)
	if len(s.data[key]) == 0 {
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, key string) ([]core.Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Preset, 0, len(s.data[key]))
	for _, data := range s.data[key] {
		p, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sortRecent(out)
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
