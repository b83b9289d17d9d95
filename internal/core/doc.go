// Package core is the tabular data engine behind an interactive grid.
//
// It holds no presentation code. Given rows and a declarative configuration
// it computes the exact ordered sequence of rows to display, then selects the
// subset a viewport needs to materialize. It can be used by web handlers, CLI
// tools, or tests without modification.
//
// # Architecture
//
// The package is organized as a pipeline over one configuration snapshot:
//
//   - Store: holds the immutable [GridState] and advances it only through
//     named [Transition] values.
//   - Filter, sort, group and tree engines: pure functions of rows and the
//     relevant part of the state ([FilterRows], [SortRows], [BuildGroups],
//     [BuildTree]).
//   - Paginator and windowing: [Paginate] slices the display sequence;
//     [ComputeWindow] selects the visible rows and columns.
//   - Pipeline: memoizes each stage so unrelated transitions do not recompute
//     upstream views.
//   - Grid: the control facade. Hosts call it; it dispatches transitions and
//     reads derived views.
//
// # Data Flow
//
//	rows -> filter -> sort -> group / tree flatten -> paginate -> window
//
// Every stage is recomputed, never patched. Group aggregates are always
// derived from their leaf rows.
//
// # Collaborators
//
// The grid talks to the outside through narrow interfaces:
//
//   - [DataSource]: remote rows by block, cached by [RemoteCache].
//   - [NodeLoader]: lazily loaded tree children.
//   - [PresetStore]: saved configuration presets, auto-saved by [AutoSaver].
//   - [CellRenderer]: opaque to the engine; exposed to hosts only.
//
// # Concurrency
//
// A [Grid] is safe for concurrent use. Events raised by an operation are
// delivered after the grid lock is released, so handlers may call back into
// the grid. Lazy loads and auto-saves run on their own goroutines; a result
// that arrives after its node was collapsed or its configuration superseded
// is discarded.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - GRID001-GRID007: Configuration errors (edit, pins, columns, rows)
//   - TREE001-TREE005: Tree errors (cycles, duplicates, lazy loads)
//   - PRE001-PRE004: Preset errors (not found, storage busy)
//   - SRC001-SRC004: Remote source errors (busy, stale, unreachable)
package core
