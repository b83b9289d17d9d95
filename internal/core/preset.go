package core

// preset.go projects the configuration snapshot into a serializable preset
// and saves presets in the background.
//
// Auto-save is debounced: each Schedule restarts the delay. When the delay
// elapses the save runs with its own context. A newer Schedule cancels both
// the pending timer and any save still in flight, so an older configuration
// can never be written after a newer one.

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// ErrPresetNotFound is returned by preset stores for unknown keys or ids.
var ErrPresetNotFound = errors.New("preset not found")

// ColumnPreset is the saved column layout.
type ColumnPreset struct {
	Order       []string           `json:"order,omitempty" yaml:"order,omitempty"`
	Widths      map[string]float64 `json:"widths,omitempty" yaml:"widths,omitempty"`
	PinnedLeft  []string           `json:"pinnedLeft,omitempty" yaml:"pinnedLeft,omitempty"`
	PinnedRight []string           `json:"pinnedRight,omitempty" yaml:"pinnedRight,omitempty"`
	Hidden      []string           `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// Preset is the serializable projection of a grid configuration.
type Preset struct {
	ID          string                `json:"id" yaml:"id"`
	Name        string                `json:"name,omitempty" yaml:"name,omitempty"`
	Columns     ColumnPreset          `json:"columns" yaml:"columns"`
	Sort        []SortSpec            `json:"sort,omitempty" yaml:"sort,omitempty"`
	Filters     map[string]FilterSpec `json:"filters,omitempty" yaml:"filters,omitempty"`
	QuickFilter string                `json:"quickFilter,omitempty" yaml:"quickFilter,omitempty"`
	PageSize    int                   `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	GroupBy     []string              `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	UpdatedAt   time.Time             `json:"updatedAt" yaml:"updatedAt"`
}

// PresetStore is the persistence collaborator. key scopes presets to one
// grid; Load with an empty id returns the most recently saved preset.
type PresetStore interface {
	Save(ctx context.Context, key string, p Preset) error
	Load(ctx context.Context, key, id string) (Preset, error)
	Delete(ctx context.Context, key, id string) error
	List(ctx context.Context, key string) ([]Preset, error)
}

// PresetOf captures the persistable parts of s.
func PresetOf(s GridState) Preset {
	var filters map[string]FilterSpec
	if len(s.filters) > 0 {
		filters = make(map[string]FilterSpec, len(s.filters))
		for field, fv := range s.filters {
			filters[field] = SpecOf(fv)
		}
	}
	return Preset{
		Columns: ColumnPreset{
			Order:       slices.Clone(s.order),
			Widths:      maps.Clone(s.widths),
			PinnedLeft:  slices.Clone(s.pinnedLeft),
			PinnedRight: slices.Clone(s.pinnedRight),
			Hidden:      s.Hidden(),
		},
		Sort:        slices.Clone(s.sort),
		Filters:     filters,
		QuickFilter: s.quickFilter,
		PageSize:    s.pageSize,
		GroupBy:     slices.Clone(s.groupBy),
	}
}

// Transitions returns the transitions that restore p onto a snapshot. Filters
// and group fields naming columns that no longer exist are dropped.
func (p Preset) Transitions(s GridState) []Transition {
	filters := make(map[string]FilterValue, len(p.Filters))
	for field, spec := range p.Filters {
		if slices.Contains(s.order, field) {
			filters[field] = spec.Filter()
		}
	}
	var groupBy []string
	for _, f := range p.GroupBy {
		if slices.Contains(s.order, f) {
			groupBy = append(groupBy, f)
		}
	}

	ts := []Transition{
		ApplyColumnState{
			Order:       p.Columns.Order,
			Widths:      p.Columns.Widths,
			PinnedLeft:  p.Columns.PinnedLeft,
			PinnedRight: p.Columns.PinnedRight,
			Hidden:      p.Columns.Hidden,
		},
		SetSort{Specs: p.Sort},
		SetFilterModel{Filters: filters},
		SetQuickFilter{Term: p.QuickFilter},
		SetGroupBy{Fields: groupBy},
	}
	if p.PageSize > 0 {
		ts = append(ts, SetPageSize{Size: p.PageSize})
	}
	return ts
}

// ApplyPreset applies p to s in one step. It fails without changing s if any
// transition fails.
func ApplyPreset(s GridState, p Preset) (GridState, error) {
	for _, t := range p.Transitions(s) {
		next, err := t.apply(s)
		if err != nil {
			return s, err
		}
		s = next
	}
	return s, nil
}

// applyPreset adapts ApplyPreset to the Transition interface so a preset
// restore is dispatched as a single atomic transition.
type applyPreset struct{ preset Preset }

func (applyPreset) Name() string { return "applyPreset" }
func (t applyPreset) apply(s GridState) (GridState, error) {
	return ApplyPreset(s, t.preset)
}

// LoadPreset returns the transition that restores p.
func LoadPreset(p Preset) Transition { return applyPreset{preset: p} }

// DefaultAutoSaveDelay is the debounce delay for auto-save.
const DefaultAutoSaveDelay = 500 * time.Millisecond

// AutoSaver debounces preset saves for one grid key.
type AutoSaver struct {
	store   PresetStore
	key     string
	delay   time.Duration
	logger  *slog.Logger
	onSaved func(Preset, error)

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	pending *Preset
	stopped bool
	wg      sync.WaitGroup
}

// NewAutoSaver creates an auto-saver. onSaved, if not nil, is called after
// every save that was not superseded.
func NewAutoSaver(store PresetStore, key string, delay time.Duration, logger *slog.Logger, onSaved func(Preset, error)) *AutoSaver {
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoSaver{store: store, key: key, delay: delay, logger: logger, onSaved: onSaved}
}

// Schedule queues p for saving after the debounce delay, superseding any
// pending or in-flight save.
func (a *AutoSaver) Schedule(p Preset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.supersedeLocked()
	gen := a.gen
	a.pending = &p
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

// supersedeLocked stops the timer and cancels the in-flight save.
// Caller must hold a.mu.
func (a *AutoSaver) supersedeLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *AutoSaver) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.pending == nil || a.stopped {
		a.mu.Unlock()
		return
	}
	p := *a.pending
	a.pending = nil
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	a.mu.Unlock()

	defer a.wg.Done()
	a.save(ctx, gen, p)
}

func (a *AutoSaver) save(ctx context.Context, gen uint64, p Preset) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	err := a.store.Save(ctx, a.key, p)

	a.mu.Lock()
	current := gen == a.gen
	if current && a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()

	if !current {
		a.logger.Debug("auto-save superseded", "key", a.key, "preset_id", p.ID)
		return
	}
	if err != nil {
		a.logger.Error("auto-save failed", "key", a.key, "preset_id", p.ID, "error", err)
	} else {
		a.logger.Info("preset auto-saved", "key", a.key, "preset_id", p.ID)
	}
	if a.onSaved != nil {
		a.onSaved(p, err)
	}
}

// Flush saves the pending preset immediately, if any, and waits for it.
func (a *AutoSaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.pending == nil || a.stopped {
		a.mu.Unlock()
		a.wg.Wait()
		return nil
	}
	a.supersedeLocked()
	gen := a.gen
	p := *a.pending
	a.pending = nil
	saveCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	err := a.store.Save(saveCtx, a.key, p)
	cancel()

	a.mu.Lock()
	current := gen == a.gen
	a.mu.Unlock()
	if current && a.onSaved != nil {
		a.onSaved(p, err)
	}
	return err
}

// Pending reports whether a save is waiting for the debounce delay.
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

// Stop cancels pending and in-flight saves and waits for running saves to
// return. Further Schedule calls are ignored.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.supersedeLocked()
	a.pending = nil
	a.mu.Unlock()
	a.wg.Wait()
}
