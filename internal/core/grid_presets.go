package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNoPresetStore is returned by preset operations when no persistence
// collaborator is configured.
var ErrNoPresetStore = errors.New("no preset store configured")

// HasPresetStore reports whether presets can be saved.
func (g *Grid) HasPresetStore() bool { return g.opts.Presets != nil }

// CurrentPreset captures the current configuration without saving it.
func (g *Grid) CurrentPreset() Preset {
	return PresetOf(g.State())
}

// SavePreset saves the current configuration under a new id.
func (g *Grid) SavePreset(ctx context.Context, name string) (Preset, error) {
	if g.opts.Presets == nil {
		return Preset{}, ErrNoPresetStore
	}
	if g.IsDestroyed() {
		return Preset{}, nil
	}
	p := g.CurrentPreset()
	p.ID = uuid.NewString()
	p.Name = name
	p.UpdatedAt = time.Now().UTC()
	if err := g.opts.Presets.Save(ctx, g.opts.PresetKey, p); err != nil {
		g.logger.Error("failed to save preset", "preset", p.ID, "error", err)
		return Preset{}, err
	}
	g.logger.Info("preset saved", "preset", p.ID, "name", name)
	g.events.emit(Event{Type: EventPresetSaved, GridID: g.id, Payload: p})
	return p, nil
}

// LoadPreset restores a saved preset. An empty id loads the most recent one.
func (g *Grid) LoadPreset(ctx context.Context, id string) (Preset, error) {
	if g.opts.Presets == nil {
		return Preset{}, ErrNoPresetStore
	}
	if g.IsDestroyed() {
		return Preset{}, nil
	}
	p, err := g.opts.Presets.Load(ctx, g.opts.PresetKey, id)
	if err != nil {
		if !errors.Is(err, ErrPresetNotFound) {
			g.logger.Error("failed to load preset", "preset", id, "error", err)
		}
		return Preset{}, err
	}
	if err := g.ApplyPreset(p); err != nil {
		return Preset{}, err
	}
	g.logger.Info("preset loaded", "preset", p.ID)
	return p, nil
}

// ApplyPreset restores p atomically.
func (g *Grid) ApplyPreset(p Preset) error {
	return g.Dispatch(LoadPreset(p))
}

// DeletePreset removes a saved preset.
func (g *Grid) DeletePreset(ctx context.Context, id string) error {
	if g.opts.Presets == nil {
		return ErrNoPresetStore
	}
	if g.IsDestroyed() {
		return nil
	}
	return g.opts.Presets.Delete(ctx, g.opts.PresetKey, id)
}

// ListPresets returns the saved presets of this grid.
func (g *Grid) ListPresets(ctx context.Context) ([]Preset, error) {
	if g.opts.Presets == nil {
		return nil, ErrNoPresetStore
	}
	if g.IsDestroyed() {
		return nil, nil
	}
	return g.opts.Presets.List(ctx, g.opts.PresetKey)
}

// FlushAutoSave writes a pending auto-save now.
func (g *Grid) FlushAutoSave(ctx context.Context) error {
	if g.saver == nil || g.IsDestroyed() {
		return nil
	}
	return g.saver.Flush(ctx)
}

// AutoSavePending reports whether an auto-save is waiting to run.
func (g *Grid) AutoSavePending() bool {
	return g.saver != nil && g.saver.Pending()
}
