package core

// grid.go is the control facade: the only externally callable surface of
// the engine. Operations dispatch named transitions to the Store or read
// derived views from the Pipeline; the configuration itself lives only in
// the Store.
//
// Every exported method takes the grid lock. Events raised while the lock is
// held are queued and delivered after it is released. After Destroy every
// method is a no-op returning zero values.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateRow is returned when rows with an id already present are added.
var ErrDuplicateRow = errors.New("duplicate row id")

// ErrUnknownRow is returned for operations on a row id that does not exist.
var ErrUnknownRow = errors.New("unknown row")

// ErrUnknownNode is returned for tree operations on a node that does not exist.
var ErrUnknownNode = errors.New("unknown tree node")

// CellRenderer is the cell rendering collaborator. The engine never calls it;
// it is held so hosts can reach it through the facade.
type CellRenderer interface {
	RenderCell(row Row, col Column) any
}

// CellRendererFunc adapts a function to CellRenderer.
type CellRendererFunc func(row Row, col Column) any

func (f CellRendererFunc) RenderCell(row Row, col Column) any { return f(row, col) }

// Options configures a Grid.
type Options struct {
	ID       string
	Columns  []Column
	Rows     []Row
	PageSize int // 0 disables paging

	RowHeight      float64
	RowOverscan    int
	ColumnOverscan int
	ScrollThrottle time.Duration

	MaxPinnedTop    int
	MaxPinnedBottom int

	Aggregates []AggregateConfig
	Tree       *TreeOptions
	Loader     NodeLoader

	DataSource DataSource
	Remote     RemoteOptions

	Presets       PresetStore
	PresetKey     string
	AutoSave      bool
	AutoSaveDelay time.Duration

	Renderer CellRenderer
	Logger   *slog.Logger
}

// Default layout settings.
const (
	DefaultRowHeight      = 35
	DefaultRowOverscan    = 5
	DefaultColumnOverscan = 2
	DefaultScrollThrottle = 16 * time.Millisecond
)

// Grid is the control facade over one grid instance.
type Grid struct {
	id     string
	logger *slog.Logger
	opts   Options

	store    *Store
	events   *eventBus
	loads    *loadTracker
	heights  *HeightCache
	throttle *Throttle[Viewport]
	remote   *RemoteCache
	saver    *AutoSaver
	unsubs   []func()

	mu          sync.Mutex
	destroyed   bool
	rows        []Row
	dataVersion uint64
	rowIndex    map[string]int
	pipeline    *Pipeline
	viewport    Viewport
	window      windowMemo
	queued      []Event
	lastErr     error
}

type windowMemo struct {
	valid        bool
	body         bodyKey
	pinnedTop    []string
	pinnedBottom []string
	vp           Viewport
	layout       ColumnLayout
	heights      RowHeights
	result       Window
}

// bodyKey identifies the page body the memoized row heights were built for.
type bodyKey struct {
	heightsVer uint64
	displayGen int
	page       int
	pageSize   int
	bodyLen    int
}

// NewGrid creates a grid. It fails only when the initial rows form an invalid
// tree in tree mode.
func NewGrid(opts Options) (*Grid, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = DefaultRowHeight
	}
	if opts.RowOverscan <= 0 {
		opts.RowOverscan = DefaultRowOverscan
	}
	if opts.ColumnOverscan <= 0 {
		opts.ColumnOverscan = DefaultColumnOverscan
	}
	if opts.ScrollThrottle == 0 {
		opts.ScrollThrottle = DefaultScrollThrottle
	}
	if opts.PresetKey == "" {
		opts.PresetKey = opts.ID
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("grid_id", opts.ID)

	state := NewGridState(opts.Columns, opts.PageSize)
	if opts.MaxPinnedTop > 0 || opts.MaxPinnedBottom > 0 {
		top, bottom := opts.MaxPinnedTop, opts.MaxPinnedBottom
		if top <= 0 {
			top = DefaultMaxPinnedRows
		}
		if bottom <= 0 {
			bottom = DefaultMaxPinnedRows
		}
		state, _ = SetPinLimits{Top: top, Bottom: bottom}.apply(state)
	}

	g := &Grid{
		id:       opts.ID,
		logger:   logger,
		opts:     opts,
		store:    NewStore(state, logger),
		events:   newEventBus(),
		loads:    newLoadTracker(),
		heights:  NewHeightCache(),
		pipeline: NewPipeline(PipelineOptions{Aggregates: opts.Aggregates, Tree: opts.Tree}),
		rows:     slices.Clone(opts.Rows),
	}
	g.throttle = NewThrottle(opts.ScrollThrottle, g.applyViewport)

	if opts.DataSource != nil {
		ro := opts.Remote
		if ro.Logger == nil {
			ro.Logger = logger
		}
		g.remote = NewRemoteCache(opts.DataSource, ro)
	}
	if opts.Presets != nil && opts.AutoSave {
		g.enableAutoSave()
	}

	g.mu.Lock()
	_, err := g.viewLocked()
	g.queued = nil
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	logger.Info("grid created", "columns", len(opts.Columns), "rows", len(opts.Rows), "tree", opts.Tree != nil)
	return g, nil
}

// ID returns the grid id.
func (g *Grid) ID() string { return g.id }

// Logger returns the grid-scoped logger.
func (g *Grid) Logger() *slog.Logger { return g.logger }

// Renderer returns the cell rendering collaborator, if any.
func (g *Grid) Renderer() CellRenderer { return g.opts.Renderer }

// On registers h for events of type t (EventAny for all) and returns a
// function that removes it.
func (g *Grid) On(t EventType, h EventHandler) (off func()) {
	if g.IsDestroyed() {
		return func() {}
	}
	return g.events.on(t, h)
}

// State returns the current configuration snapshot.
func (g *Grid) State() GridState {
	if !g.lock() {
		return GridState{}
	}
	defer g.unlock()
	return g.store.Snapshot()
}

// Version returns the configuration version.
func (g *Grid) Version() uint64 { return g.store.Version() }

// Dispatch applies an arbitrary transition.
func (g *Grid) Dispatch(t Transition) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	return g.dispatch(t)
}

// Err returns the last pipeline error, such as a tree cycle in new data.
func (g *Grid) Err() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	return g.lastErr
}

// remoteDrainTimeout bounds how long Destroy waits for cancelled remote
// fetches to return.
const remoteDrainTimeout = 5 * time.Second

// Destroy releases the grid. Pending lazy loads, saves and remote fetches are
// cancelled and every later call becomes a no-op.
func (g *Grid) Destroy() {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return
	}
	g.destroyed = true
	g.rows, g.rowIndex, g.queued = nil, nil, nil
	g.mu.Unlock()

	g.throttle.Stop()
	g.loads.reset()
	for _, unsub := range g.unsubs {
		unsub()
	}
	if g.saver != nil {
		g.saver.Stop()
	}
	if g.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), remoteDrainTimeout)
		if err := g.remote.Close(ctx); err != nil {
			g.logger.Warn("remote fetches still in flight", "active", g.remote.Limiter().ActiveCount(), "error", err)
		}
		cancel()
	}
	g.events.emit(Event{Type: EventDestroyed, GridID: g.id})
	g.events.clear()
	g.logger.Info("grid destroyed")
}

// IsDestroyed reports whether Destroy was called.
func (g *Grid) IsDestroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}

// lock takes the grid lock unless the grid is destroyed.
func (g *Grid) lock() bool {
	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return false
	}
	return true
}

// unlock releases the grid lock and delivers queued events.
func (g *Grid) unlock() {
	events := g.queued
	g.queued = nil
	g.mu.Unlock()
	for _, e := range events {
		g.events.emit(e)
	}
}

func (g *Grid) queue(t EventType, transition string, payload any) {
	g.queued = append(g.queued, Event{Type: t, GridID: g.id, Transition: transition, Payload: payload})
}

// dispatch applies t and queues its event. Caller must hold g.mu.
func (g *Grid) dispatch(t Transition) error {
	if _, err := g.store.Dispatch(t); err != nil {
		return err
	}
	g.queue(eventFor(t), t.Name(), nil)
	return nil
}

// dispatchAll applies ts in order, stopping at the first error.
func (g *Grid) dispatchAll(ts ...Transition) error {
	for _, t := range ts {
		if err := g.dispatch(t); err != nil {
			return err
		}
	}
	return nil
}

// viewLocked runs the pipeline and keeps the stored row count in sync with
// the paginated sequence so the page stays clamped. Caller must hold g.mu.
func (g *Grid) viewLocked() (View, error) {
	st := g.store.Snapshot()
	v, err := g.pipeline.Run(g.rows, g.dataVersion, st)
	if err != nil {
		if g.lastErr == nil {
			g.logger.Error("pipeline failed", "error", err)
		}
		g.lastErr = err
		return View{}, err
	}
	g.lastErr = nil
	if g.remote == nil && v.Page.TotalRows != st.RowCount() {
		if err := g.dispatch(SetRowCount{Count: v.Page.TotalRows}); err == nil {
			v.Page.Page = g.store.Snapshot().Page()
		}
	}
	return v, nil
}

// index returns the position of every row by id. Caller must hold g.mu.
func (g *Grid) index() map[string]int {
	if g.rowIndex == nil {
		g.rowIndex = make(map[string]int, len(g.rows))
		for i, r := range g.rows {
			g.rowIndex[r.ID] = i
		}
	}
	return g.rowIndex
}

// touchData marks the rows as changed. Caller must hold g.mu.
func (g *Grid) touchData() {
	g.dataVersion++
	g.rowIndex = nil
	g.window.valid = false
}

func (g *Grid) enableAutoSave() {
	g.saver = NewAutoSaver(g.opts.Presets, g.opts.PresetKey, g.opts.AutoSaveDelay, g.logger, func(p Preset, err error) {
		if err == nil {
			g.events.emit(Event{Type: EventPresetSaved, GridID: g.id, Payload: p})
		}
	})
	unsub := g.store.Subscribe(func(state GridState, t Transition) {
		if !affectsPreset(t) {
			return
		}
		p := PresetOf(state)
		p.ID = AutoSavePresetID
		p.Name = "Auto-saved"
		g.saver.Schedule(p)
	})
	g.unsubs = append(g.unsubs, unsub)
}

// AutoSavePresetID is the id under which auto-saved presets are stored.
const AutoSavePresetID = "autosave"

func affectsPreset(t Transition) bool {
	switch eventFor(t) {
	case EventSortChanged, EventFilterChanged, EventColumnsChanged, EventGroupingChanged, EventPresetLoaded:
		return true
	}
	_, ok := t.(SetPageSize)
	return ok
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%s)", g.id)
}
