package presetstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/JonMunkholm/gridcore/internal/core"
)

const (
	fileFormatVersion = 1
	lockTimeout       = 3 * time.Second
	lockRetry         = 50 * time.Millisecond
)

// fileData is the on-disk layout: presets grouped by grid key, then id.
type fileData struct {
	Version   int                                   `json:"version"`
	UpdatedAt time.Time                             `json:"updatedAt"`
	Presets   map[string]map[string]json.RawMessage `json:"presets"`
}

// FileStore keeps every preset in one JSON file guarded by an flock(2) lock
// file, so several processes may share it. While Watch runs, reads are served
// from a cache that is dropped whenever the file changes on disk.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	now    func() time.Time

	// io serializes file access within the process; flock covers other processes
	io sync.Mutex

	mu       sync.Mutex
	cache    *fileData
	cacheGen uint64
	watching bool
}

// NewFileStore returns a store backed by path. The file and its directory are
// created on first save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   filepath.Clean(path),
		lock:   flock.New(path + ".lock"),
		logger: logger.With("preset_file", path),
		now:    time.Now,
	}
}

func (s *FileStore) Save(ctx context.Context, key string, p core.Preset) error {
	p = prepare(p, s.now())
	data, err := encode(p)
	if err != nil {
		return err
	}
	return s.update(ctx, func(d *fileData) error {
		if d.Presets[key] == nil {
			d.Presets[key] = make(map[string]json.RawMessage)
		}
		d.Presets[key][p.ID] = data
		return nil
	})
}

func (s *FileStore) Load(ctx context.Context, key, id string) (core.Preset, error) {
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
	d, err := s.read(ctx)
	if err != nil {
		return core.Preset{}, err
	}
	raw, ok := d.Presets[key][id]
	if !ok {
		return core.Preset{}, notFound(key, id)
	}
	return decode(raw)
}

func (s *FileStore) Delete(ctx context.Context, key, id string) error {
	return s.update(ctx, func(d *fileData) error {
		if _, ok := d.Presets[key][id]; !ok {
			return notFound(key, id)
		}
		delete(d.Presets[key], id)
		if len(d.Presets[key]) == 0 {
			delete(d.Presets, key)
		}
		return nil
	})
}

func (s *FileStore) List(ctx context.Context, key string) ([]core.Preset, error) {
	d, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Preset, 0, len(d.Presets[key]))
	for _, raw := range d.Presets[key] {
		p, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sortRecent(out)
	return out, nil
}

// Close removes the lock file.
func (s *FileStore) Close() error {
	_ = s.lock.Close()
	if err := os.Remove(s.path + ".lock"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Watch drops the read cache and calls onChange whenever the preset file is
// written, created, renamed or removed, until ctx is done. It returns once
// the watcher is installed.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preset directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// fsnotify watches directories; the file itself is replaced on every save
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.mu.Lock()
	s.watching = true
	s.invalidateLocked()
	s.mu.Unlock()

	go func() {
		defer watcher.Close()
		defer func() {
			s.mu.Lock()
			s.watching = false
			s.invalidateLocked()
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				s.mu.Lock()
				s.invalidateLocked()
				s.mu.Unlock()
				s.logger.Debug("preset file changed", "op", event.Op.String())
				if onChange != nil {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("preset watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *FileStore) read(ctx context.Context) (*fileData, error) {
	s.mu.Lock()
	if s.cache != nil {
		d := s.cache
		s.mu.Unlock()
		return d, nil
	}
	gen := s.cacheGen
	s.mu.Unlock()

	s.io.Lock()
	defer s.io.Unlock()
	if err := s.acquire(ctx, s.lock.TryRLockContext); err != nil {
		return nil, err
	}
	d, err := s.load()
	_ = s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.watching && s.cacheGen == gen {
		s.cache = d
	}
	s.mu.Unlock()
	return d, nil
}

func (s *FileStore) invalidateLocked() {
	s.cache = nil
	s.cacheGen++
}

// update applies fn to the file contents under the exclusive lock and
// writes the result atomically.
func (s *FileStore) update(ctx context.Context, fn func(*fileData) error) error {
	s.io.Lock()
	defer s.io.Unlock()
	if err := s.acquire(ctx, s.lock.TryLockContext); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	d, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.write(d); err != nil {
		return err
	}

	s.mu.Lock()
	s.invalidateLocked()
	s.mu.Unlock()
	return nil
}

func (s *FileStore) acquire(ctx context.Context, try func(context.Context, time.Duration) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preset directory: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := try(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("acquire preset lock: %w", err)
	}
	if !locked {
		return errors.New("could not acquire preset lock")
	}
	return nil
}

// load reads the file. Caller must hold the file lock.
func (s *FileStore) load() (*fileData, error) {
	empty := &fileData{Version: fileFormatVersion, Presets: make(map[string]map[string]json.RawMessage)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	if len(data) == 0 {
		return empty, nil
	}

	var d fileData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse preset file: %w", err)
	}
	if d.Version > fileFormatVersion {
		return nil, fmt.Errorf("preset file version %d is newer than supported %d", d.Version, fileFormatVersion)
	}
	if d.Presets == nil {
		d.Presets = empty.Presets
	}
	return &d, nil
}

// write replaces the file via a temp file and rename. Caller must hold the
// exclusive file lock.
func (s *FileStore) write(d *fileData) error {
	d.Version = fileFormatVersion
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace preset file: %w", err)
	}
	return nil
}
