// Package presetstore implements the grid's persistence collaborator.
//
// Every backend stores a preset as its JSON encoding under a grid key and a
// preset id. Save assigns a uuid when the id is empty and stamps UpdatedAt
// when it is zero. List returns the most recently updated preset first, and
// Load with an empty id returns that same preset.
package presetstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/gridcore/internal/config"
	"github.com/JonMunkholm/gridcore/internal/core"
)

// Store is a core.PresetStore that holds resources.
type Store interface {
	core.PresetStore
	Close() error
}

// Open builds the backend selected by cfg.
func Open(ctx context.Context, cfg config.PresetConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path, logger), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown preset backend %q", cfg.Backend)
}

// prepare fills in the id and timestamp of a preset about to be saved.
func prepare(p core.Preset, now time.Time) core.Preset {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p
}

func encode(p core.Preset) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode preset %s: %w", p.ID, err)
	}
	return data, nil
}

func decode(data []byte) (core.Preset, error) {
	var p core.Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	return p, nil
}

// sortRecent orders presets newest first; ties fall back to id.
func sortRecent(ps []core.Preset) {
	slices.SortStableFunc(ps, func(a, b core.Preset) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func notFound(key, id string) error {
	if id == "" {
		return fmt.Errorf("%w: no presets for %q", core.ErrPresetNotFound, key)
	}
	return fmt.Errorf("%w: %q in %q", core.ErrPresetNotFound, id, key)
}
