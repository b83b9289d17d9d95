package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGrid(t *testing.T, opts Options) *Grid {
	t.Helper()
	if opts.Columns == nil {
		opts.Columns = employeeColumns()
	}
	if opts.Rows == nil {
		opts.Rows = employees()
	}
	if opts.ScrollThrottle == 0 {
		opts.ScrollThrottle = -1
	}
	opts.Logger = testLogger()
	g, err := NewGrid(opts)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	t.Cleanup(g.Destroy)
	return g
}

// eventLog collects events of every type.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []EventType
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) last(t EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == t {
			return l.events[i], true
		}
	}
	return Event{}, false
}

func TestNewGrid_Defaults(t *testing.T) {
	g := newTestGrid(t, Options{})

	if g.ID() == "" {
		t.Error("ID() is empty")
	}
	if got := g.RowCount(); got != 5 {
		t.Errorf("RowCount() = %d, want 5", got)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5"}, displayIDs(g.DisplayedRows())); diff != "" {
		t.Errorf("DisplayedRows() mismatch (-want +got):\n%s", diff)
	}
	if g.IsTreeMode() || g.HasDataSource() || g.HasPresetStore() {
		t.Error("plain grid reports optional collaborators")
	}
}

func TestNewGrid_InvalidTree(t *testing.T) {
	_, err := NewGrid(Options{
		Columns: []Column{{Field: "parent"}},
		Rows:    []Row{row("x", "parent", "y"), row("y", "parent", "x")},
		Tree:    &TreeOptions{ParentIDField: "parent"},
		Logger:  testLogger(),
	})
	if !errors.Is(err, ErrTreeCycle) {
		t.Errorf("NewGrid() error = %v, want ErrTreeCycle", err)
	}
}

func TestGrid_EventsAfterUnlock(t *testing.T) {
	g := newTestGrid(t, Options{})

	var seen []SortSpec
	var transition string
	g.On(EventSortChanged, func(e Event) {
		// calling back into the grid must not deadlock
		seen = g.Sort()
		transition = e.Transition
	})

	if err := g.ToggleSort("name", false); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || transition != "toggleSort" {
		t.Errorf("handler saw sort %v from %q", seen, transition)
	}
}

func TestGrid_EventOff(t *testing.T) {
	g := newTestGrid(t, Options{})
	var log eventLog
	off := g.On(EventAny, log.handle)

	g.SetQuickFilter("a")
	off()
	g.SetQuickFilter("b")

	if diff := cmp.Diff([]EventType{EventFilterChanged}, log.types()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestGrid_Destroy(t *testing.T) {
	g := newTestGrid(t, Options{})
	destroyed := 0
	g.On(EventDestroyed, func(Event) { destroyed++ })

	g.Destroy()
	g.Destroy()

	if destroyed != 1 {
		t.Errorf("destroyed events = %d, want 1", destroyed)
	}
	if !g.IsDestroyed() {
		t.Error("IsDestroyed() = false")
	}

	// every operation is a silent no-op
	if err := g.SetSort(SortSpec{Field: "name", Direction: SortAsc}); err != nil {
		t.Errorf("SetSort() after Destroy = %v", err)
	}
	if err := g.AddRows(row("9")); err != nil {
		t.Errorf("AddRows() after Destroy = %v", err)
	}
	if g.RowCount() != 0 || g.Rows() != nil || len(g.DisplayedRows()) != 0 {
		t.Error("destroyed grid still returns rows")
	}
	if len(g.State().Sort()) != 0 {
		t.Error("destroyed grid returned a configuration")
	}
	if ch, err := g.ExpandNode(context.Background(), "1"); ch != nil || err != nil {
		t.Errorf("ExpandNode() after Destroy = %v, %v", ch, err)
	}
	g.SetViewport(Viewport{Height: 100})
	g.On(EventAny, func(Event) { t.Error("handler called after Destroy") })
	g.SetQuickFilter("x")
}

func TestGrid_AddUpdateRemoveRows(t *testing.T) {
	g := newTestGrid(t, Options{})
	var log eventLog
	g.On(EventDataChanged, log.handle)

	if err := g.AddRows(row("6", "name", "Edsger"), row("1")); !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("AddRows() with duplicate = %v, want ErrDuplicateRow", err)
	}
	if g.RowCount() != 5 {
		t.Errorf("failed AddRows changed the dataset")
	}

	if err := g.AddRows(row("6", "name", "Edsger", "dept", "Eng", "sal", 300)); err != nil {
		t.Fatal(err)
	}
	if err := g.UpdateRow("6", map[string]any{"sal": 350}); err != nil {
		t.Fatal(err)
	}
	r, ok := g.GetRow("6")
	if !ok || r.Value("sal") != 350 || r.Value("name") != "Edsger" {
		t.Errorf("GetRow() = %+v, %v", r, ok)
	}
	if err := g.UpdateRow("nope", nil); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("UpdateRow(unknown) = %v, want ErrUnknownRow", err)
	}

	g.SetSelectedRows("1", "6")
	g.PinRow("6", PinTop)
	if err := g.RemoveRows("6", "ghost"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1"}, g.SelectedIDs()); diff != "" {
		t.Errorf("SelectedIDs() mismatch (-want +got):\n%s", diff)
	}
	if top, _ := g.PinnedRows(); len(top) != 0 {
		t.Errorf("removed row still pinned: %v", displayIDs(top))
	}
	if got := len(log.types()); got != 3 {
		t.Errorf("dataChanged events = %d, want 3", got)
	}
}

func TestGrid_SetRowsResetsRowState(t *testing.T) {
	g := newTestGrid(t, Options{PageSize: 2})
	g.SetSort(SortSpec{Field: "name", Direction: SortAsc})
	g.SelectRow("1")
	g.SetPage(2)
	g.SetFocusedCell("1", "name")

	if err := g.SetRows(employees()[:3]); err != nil {
		t.Fatal(err)
	}
	if len(g.SelectedIDs()) != 0 || g.State().Page() != 0 {
		t.Error("SetRows kept selection or page")
	}
	if _, ok := g.FocusedCell(); ok {
		t.Error("SetRows kept focus")
	}
	if len(g.Sort()) != 1 {
		t.Error("SetRows dropped the sort")
	}
}

func TestGrid_SelectRange(t *testing.T) {
	g := newTestGrid(t, Options{})
	g.SetSort(SortSpec{Field: "name", Direction: SortAsc}) // Ada, Barbara, Grace, Ken, Linus

	if err := g.SelectRow("1"); err != nil {
		t.Fatal(err)
	}
	if err := g.SelectRangeTo("5"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2", "4", "5"}, g.SelectedIDs()); diff != "" {
		t.Errorf("SelectedIDs() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "4", "5"}, ids(g.SelectedRows())); diff != "" {
		t.Errorf("SelectedRows() mismatch (-want +got):\n%s", diff)
	}
	if err := g.SelectRangeTo("ghost"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("SelectRangeTo(unknown) = %v", err)
	}

	g.DeselectRow("2")
	if g.IsRowSelected("2") {
		t.Error("row 2 still selected")
	}

	g.SetFilter("dept", SimpleFilter{Values: []any{"Sales"}})
	g.SelectAllFiltered()
	if diff := cmp.Diff([]string{"3", "5"}, g.SelectedIDs()); diff != "" {
		t.Errorf("SelectAllFiltered() mismatch (-want +got):\n%s", diff)
	}
	g.SelectAll()
	if len(g.SelectedIDs()) != 5 {
		t.Errorf("SelectAll() selected %d rows, want 5", len(g.SelectedIDs()))
	}
	g.DeselectAll()
	if len(g.SelectedIDs()) != 0 {
		t.Error("DeselectAll() left a selection")
	}
}

func TestGrid_CommitEdit(t *testing.T) {
	g := newTestGrid(t, Options{Aggregates: []AggregateConfig{{Field: "sal", Func: AggSum}}})
	var log eventLog
	g.On(EventCellEditCommitted, log.handle)

	if err := g.CommitEdit(); !errors.Is(err, ErrNoEditInProgress) {
		t.Errorf("CommitEdit() without edit = %v", err)
	}
	if err := g.StartEditing("ghost", "sal"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("StartEditing(unknown) = %v", err)
	}

	if err := g.StartEditing("1", "sal"); err != nil {
		t.Fatal(err)
	}
	if _, v, ok := g.EditingCell(); !ok || v != 100 {
		t.Errorf("EditingCell() value = %v, %v, want 100", v, ok)
	}
	g.SetEditValue(500)
	if err := g.CommitEdit(); err != nil {
		t.Fatal(err)
	}

	if g.IsEditing() {
		t.Error("still editing after commit")
	}
	if r, _ := g.GetRow("1"); r.Value("sal") != 500 {
		t.Errorf("row value = %v, want 500", r.Value("sal"))
	}
	if got := *g.Totals()["sal"].Sum; got != 750 {
		t.Errorf("sum after edit = %v, want 750", got)
	}
	e, ok := log.last(EventCellEditCommitted)
	if !ok {
		t.Fatal("no cellEditCommitted event")
	}
	want := CellEdit{Cell: CellRef{RowID: "1", Field: "sal"}, OldValue: 100, NewValue: 500}
	if diff := cmp.Diff(want, e.Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestGrid_CommitEditOnRemovedRow(t *testing.T) {
	g := newTestGrid(t, Options{})
	g.StartEditing("3", "name")
	g.SetEditValue("Linus T")
	g.RemoveRows("3")

	if err := g.CommitEdit(); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("CommitEdit() = %v, want ErrUnknownRow", err)
	}
	if g.IsEditing() {
		t.Error("edit not cancelled")
	}
}

func TestGrid_Pagination(t *testing.T) {
	g := newTestGrid(t, Options{PageSize: 2})

	info := g.PageInfo()
	want := PageInfo{Page: 0, PageSize: 2, TotalRows: 5, TotalPages: 3, HasNext: true}
	if info != want {
		t.Errorf("PageInfo() = %+v, want %+v", info, want)
	}

	g.LastPage()
	g.NextPage()
	if got := g.PageInfo(); got.Page != 2 || got.HasNext || !got.HasPrev {
		t.Errorf("PageInfo() on last page = %+v", got)
	}
	if diff := cmp.Diff([]string{"5"}, displayIDs(g.PageRows())); diff != "" {
		t.Errorf("PageRows() mismatch (-want +got):\n%s", diff)
	}

	g.SetFilter("dept", SimpleFilter{Values: []any{"Eng", "Sales"}})
	if got := g.PageInfo(); got.Page != 0 || got.TotalRows != 4 {
		t.Errorf("PageInfo() after filter = %+v", got)
	}

	g.SetPageSize(3)
	g.SetPage(99)
	if got := g.PageInfo().Page; got != 1 {
		t.Errorf("Page = %d, want 1", got)
	}
}

func TestGrid_PinRows(t *testing.T) {
	g := newTestGrid(t, Options{MaxPinnedTop: 1, PageSize: 2})

	if err := g.PinRow("ghost", PinTop); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("PinRow(unknown) = %v", err)
	}
	if err := g.PinRow("5", PinTop); err != nil {
		t.Fatal(err)
	}
	if err := g.PinRow("4", PinTop); !errors.Is(err, ErrPinLimit) {
		t.Errorf("PinRow() over limit = %v, want ErrPinLimit", err)
	}

	// pinned rows are rendered on every page and leave the body
	for page := 0; page < 2; page++ {
		g.SetPage(page)
		if top, _ := g.PinnedRows(); len(top) != 1 || top[0].ID != "5" {
			t.Errorf("page %d: pinned top = %v", page, displayIDs(top))
		}
	}
	if got := g.PageInfo().TotalRows; got != 4 {
		t.Errorf("TotalRows = %d, want 4", got)
	}

	g.SetFilter("dept", SimpleFilter{Values: []any{"Eng"}})
	if top, _ := g.PinnedRows(); len(top) != 1 {
		t.Error("filtered-out pinned row disappeared")
	}
}

func TestGrid_DragReorder(t *testing.T) {
	g := newTestGrid(t, Options{})
	var log eventLog
	g.On(EventAny, log.handle)

	if err := g.StartRowDrag("1"); err != nil {
		t.Fatal(err)
	}
	g.UpdateRowDrag(2)
	if d, ok := g.DragState(); !ok || d.TargetIndex != 2 {
		t.Errorf("DragState() = %+v, %v", d, ok)
	}
	if err := g.EndRowDrag(true); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"2", "3", "1", "4", "5"}, displayIDs(g.DisplayedRows())); diff != "" {
		t.Errorf("display after drop mismatch (-want +got):\n%s", diff)
	}
	if _, ok := log.last(EventRowDragEnd); !ok {
		t.Error("no rowDragEnd event")
	}

	g.StartRowDrag("5")
	g.UpdateRowDrag(0)
	g.EndRowDrag(false)
	if got := g.DisplayedRows()[0].ID; got != "2" {
		t.Errorf("cancelled drag moved a row: first = %s", got)
	}
	if err := g.StartRowDrag("ghost"); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("StartRowDrag(unknown) = %v", err)
	}
}

func TestGrid_ExportData(t *testing.T) {
	cols := employeeColumns()
	cols[0].HeaderName = "Full Name"
	g := newTestGrid(t, Options{Columns: cols, PageSize: 2})
	g.HideColumn("start")
	g.SetSort(SortSpec{Field: "name", Direction: SortAsc})

	tbl, err := g.ExportData(ExportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := ExportTable{
		Fields: []string{"name", "dept", "sal"},
		Header: []string{"Full Name", "Dept", "Sal"},
		Rows:   [][]string{{"Ada", "Eng", "100"}, {"Barbara", "Ops", ""}},
	}
	if diff := cmp.Diff(want, tbl); diff != "" {
		t.Errorf("ExportData() mismatch (-want +got):\n%s", diff)
	}

	g.SetSelectedRows("2", "3")
	tbl, _ = g.ExportData(ExportOptions{AllRows: true, OnlySelected: true, Fields: []string{"name"}})
	if diff := cmp.Diff([][]string{{"Grace"}, {"Linus"}}, tbl.Rows); diff != "" {
		t.Errorf("selected export mismatch (-want +got):\n%s", diff)
	}

	g.SetGroupBy("dept")
	g.ExpandAllGroups()
	tbl, _ = g.ExportData(ExportOptions{AllRows: true})
	if len(tbl.Rows) != 5 {
		t.Errorf("grouped export has %d rows, want 5 data rows", len(tbl.Rows))
	}
}

func TestGrid_Overlay(t *testing.T) {
	g := newTestGrid(t, Options{})
	if o := g.Overlay(); o.NoRows || o.Loading {
		t.Errorf("Overlay() = %+v, want none", o)
	}
	g.SetQuickFilter("zzz")
	if o := g.Overlay(); !o.NoRows {
		t.Error("empty result does not report NoRows")
	}
	g.ShowLoadingOverlay("Loading")
	if o := g.Overlay(); !o.Loading || o.NoRows || o.Message != "Loading" {
		t.Errorf("Overlay() = %+v", o)
	}
	g.HideOverlay()
}

func TestGrid_ColumnOps(t *testing.T) {
	g := newTestGrid(t, Options{})

	if err := g.PinColumn("name", PinLeft); err != nil {
		t.Fatal(err)
	}
	g.MoveColumn("start", 1)
	g.ResizeColumn("dept", 200)
	saved := g.ColumnState()

	g.ResetColumns()
	if got := g.VisibleColumns(); got[0] != "name" || g.State().ColumnPin("name") != PinNone {
		t.Errorf("ResetColumns() left %v", got)
	}

	if err := g.ApplyColumnState(saved); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"name", "start", "dept", "sal"}, g.VisibleColumns()); diff != "" {
		t.Errorf("VisibleColumns() mismatch (-want +got):\n%s", diff)
	}

	// name is pinned at 150; the center (200+150+80=430) scales into 580
	if err := g.SizeColumnsToFit(730); err != nil {
		t.Fatal(err)
	}
	l := g.ColumnLayout()
	if got := PinnedWidth(l.Center); got < 579.99 || got > 580.01 {
		t.Errorf("center width = %v, want 580", got)
	}
	if l.Left[0].Width != DefaultColumnWidth {
		t.Errorf("pinned column resized to %v", l.Left[0].Width)
	}
}

func TestGrid_FilterModel(t *testing.T) {
	g := newTestGrid(t, Options{})

	model := map[string]FilterSpec{
		"sal":  {Operator: OpGreaterThan, Value: 60},
		"name": {Combinator: CombineOr, Conditions: []FilterCondition{{Operator: OpEquals, Value: "ada"}, {Operator: OpEquals, Value: "linus"}}},
	}
	if err := g.SetFilterModel(model); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1"}, ids(g.FilteredRows())); diff != "" {
		t.Errorf("FilteredRows() mismatch (-want +got):\n%s", diff)
	}
	if !g.IsAnyFilterActive() || !g.IsColumnFiltered("sal") || g.IsColumnFiltered("dept") {
		t.Error("filter activity misreported")
	}
	if diff := cmp.Diff(model, g.FilterModel()); diff != "" {
		t.Errorf("FilterModel() mismatch (-want +got):\n%s", diff)
	}

	g.ClearAllFilters()
	if g.IsAnyFilterActive() || len(g.FilteredRows()) != 5 {
		t.Error("ClearAllFilters() did not restore every row")
	}
	if err := g.SetFilter("ghost", SimpleFilter{Value: "x"}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("SetFilter(unknown column) = %v", err)
	}
}

func TestGrid_Grouping(t *testing.T) {
	g := newTestGrid(t, Options{Aggregates: []AggregateConfig{{Field: "sal", Func: AggSum}}})
	g.SetGroupBy("dept")

	if got := g.DisplayedRowCount(); got != 3 {
		t.Errorf("DisplayedRowCount() = %d, want 3", got)
	}
	eng := GroupKey("", "dept", "Eng")
	grp, ok := g.Group(eng)
	if !ok || *grp.Aggregates["sal"].Sum != 300 {
		t.Errorf("Group(Eng) = %+v, %v", grp, ok)
	}

	g.ExpandAllGroups()
	if got := g.DisplayedRowCount(); got != 8 {
		t.Errorf("DisplayedRowCount() expanded = %d, want 8", got)
	}
	g.CollapseAllGroups()
	g.ToggleGroup(eng)
	if got := g.DisplayedRowCount(); got != 5 {
		t.Errorf("DisplayedRowCount() with Eng open = %d, want 5", got)
	}

	g.ClearGrouping()
	if len(g.GroupBy()) != 0 || g.DisplayedRowCount() != 5 {
		t.Error("ClearGrouping() did not flatten")
	}
}

func TestGrid_Facets(t *testing.T) {
	g := newTestGrid(t, Options{})
	g.SetFilter("sal", SimpleFilter{Operator: OpGreaterThan, Value: 60})

	got := g.Facets("dept")
	if len(got) != 1 || got[0].Value != "Eng" || got[0].Count != 2 {
		t.Errorf("Facets() = %+v", got)
	}
}

func manyRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{ID: strconv.Itoa(i), Fields: map[string]any{"name": "row " + strconv.Itoa(i)}}
	}
	return rows
}

func TestGrid_Window(t *testing.T) {
	g := newTestGrid(t, Options{
		Columns: []Column{{Field: "name"}},
		Rows:    manyRows(1000),
	})
	var log eventLog
	g.On(EventViewportChanged, log.handle)

	g.OnResize(800, 350)
	g.OnScroll(3500, 0)

	w, err := g.Window()
	if err != nil {
		t.Fatal(err)
	}
	if w.Rows != (Range{Start: 95, End: 115}) {
		t.Errorf("Window().Rows = %+v", w.Rows)
	}
	rows, _ := g.VisibleRows()
	if len(rows) != 20 || rows[0].ID != "95" {
		t.Errorf("VisibleRows() = %d rows from %s", len(rows), rows[0].ID)
	}
	if len(log.types()) != 2 {
		t.Errorf("viewport events = %d, want 2", len(log.types()))
	}

	g.SetRowHeight("0", 135)
	w, _ = g.Window()
	if w.TotalHeight != 1000*35+100 {
		t.Errorf("TotalHeight = %v after measuring a row", w.TotalHeight)
	}
	g.ResetRowHeights()

	top, ok, err := g.EnsureRowVisible("500")
	if err != nil || !ok {
		t.Fatalf("EnsureRowVisible() = %v, %v", ok, err)
	}
	if top != 501*35-350 {
		t.Errorf("scrollTop = %v, want %v", top, 501*35-350)
	}
	if g.Viewport().ScrollTop != top {
		t.Error("EnsureRowVisible() did not move the viewport")
	}
}

func TestGrid_WindowTracksPinnedRows(t *testing.T) {
	g := newTestGrid(t, Options{
		Columns:  []Column{{Field: "name"}},
		Rows:     manyRows(20),
		PageSize: 10,
	})
	g.OnResize(800, 350)
	g.SetRowHeight("9", 135)

	tests := []struct {
		name   string
		change func() error
		want   float64
	}{
		{"measured row in body", func() error { return nil }, 10*35 + 100},
		{"measured row pinned", func() error { return g.PinRow("9", PinTop) }, 10 * 35},
		{"measured row unpinned", func() error { return g.UnpinRow("9") }, 10*35 + 100},
	}
	for _, tt := range tests {
		if err := tt.change(); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		w, err := g.Window()
		if err != nil {
			t.Fatal(err)
		}
		if w.TotalHeight != tt.want {
			t.Errorf("%s: TotalHeight = %v, want %v", tt.name, w.TotalHeight, tt.want)
		}
	}
}

func TestGrid_WindowScrollReusesHeights(t *testing.T) {
	g := newTestGrid(t, Options{Columns: []Column{{Field: "name"}}, Rows: manyRows(100000)})
	g.ApplyViewport(Viewport{Width: 800, Height: 350})
	if _, err := g.Window(); err != nil {
		t.Fatal(err)
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	for i := 1; i <= 10; i++ {
		g.ApplyViewport(Viewport{Width: 800, Height: 350, ScrollTop: float64(i * 1000)})
		if _, err := g.Window(); err != nil {
			t.Fatal(err)
		}
	}
	runtime.ReadMemStats(&after)

	// rebuilding heights for 100000 rows costs megabytes per call
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 256<<10 {
		t.Errorf("10 scrolls allocated %d bytes", allocated)
	}
	if w, _ := g.Window(); w.Rows.Start < 200 {
		t.Errorf("Window().Rows = %+v after scrolling", w.Rows)
	}
}

func TestGrid_ScrollThrottle(t *testing.T) {
	g := newTestGrid(t, Options{ScrollThrottle: 30 * time.Millisecond, Rows: manyRows(100)})

	for _, top := range []float64{10, 20, 30, 40} {
		g.OnScroll(top, 0)
	}
	if got := g.Viewport().ScrollTop; got != 10 {
		t.Errorf("ScrollTop right after burst = %v, want 10", got)
	}
	time.Sleep(80 * time.Millisecond)
	if got := g.Viewport().ScrollTop; got != 40 {
		t.Errorf("ScrollTop after interval = %v, want 40", got)
	}
}

func TestGrid_MoveFocus(t *testing.T) {
	g := newTestGrid(t, Options{})

	steps := []struct {
		move FocusMove
		want CellRef
	}{
		{FocusDown, CellRef{RowID: "1", Field: "name"}},
		{FocusDown, CellRef{RowID: "2", Field: "name"}},
		{FocusRight, CellRef{RowID: "2", Field: "dept"}},
		{FocusLastColumn, CellRef{RowID: "2", Field: "start"}},
		{FocusRight, CellRef{RowID: "2", Field: "start"}},
		{FocusLastRow, CellRef{RowID: "5", Field: "start"}},
		{FocusFirstRow, CellRef{RowID: "1", Field: "start"}},
		{FocusUp, CellRef{RowID: "1", Field: "start"}},
		{FocusFirstColumn, CellRef{RowID: "1", Field: "name"}},
	}
	for i, s := range steps {
		got, err := g.MoveFocus(s.move)
		if err != nil {
			t.Fatal(err)
		}
		if got != s.want {
			t.Errorf("step %d %s: focus = %+v, want %+v", i, s.move, got, s.want)
		}
	}
	if f, ok := g.FocusedCell(); !ok || f.Field != "name" {
		t.Errorf("FocusedCell() = %+v, %v", f, ok)
	}
}

func TestGrid_Presets(t *testing.T) {
	store := &recordingStore{}
	g := newTestGrid(t, Options{Presets: store})
	var log eventLog
	g.On(EventAny, log.handle)

	g.SetSort(SortSpec{Field: "sal", Direction: SortDesc})
	g.SetFilter("dept", SimpleFilter{Values: []any{"Eng"}})
	p, err := g.SavePreset(context.Background(), "Engineering")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" || p.Name != "Engineering" || p.UpdatedAt.IsZero() {
		t.Errorf("SavePreset() = %+v", p)
	}

	g.ClearSort()
	g.ClearAllFilters()
	if _, err := g.LoadPreset(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if len(g.Sort()) != 1 || !g.IsColumnFiltered("dept") {
		t.Error("LoadPreset() did not restore the configuration")
	}
	if _, ok := log.last(EventPresetLoaded); !ok {
		t.Error("no presetLoaded event")
	}
	if _, ok := log.last(EventPresetSaved); !ok {
		t.Error("no presetSaved event")
	}
	list, _ := g.ListPresets(context.Background())
	if len(list) != 1 {
		t.Errorf("ListPresets() = %d presets, want 1", len(list))
	}

	plain := newTestGrid(t, Options{})
	if _, err := plain.SavePreset(context.Background(), "x"); !errors.Is(err, ErrNoPresetStore) {
		t.Errorf("SavePreset() without store = %v", err)
	}
}

func TestGrid_AutoSave(t *testing.T) {
	store := &recordingStore{}
	g := newTestGrid(t, Options{Presets: store, AutoSave: true, AutoSaveDelay: time.Hour})

	g.SetFocusedCell("1", "name")
	if g.AutoSavePending() {
		t.Error("focus change scheduled an auto-save")
	}

	g.ToggleSort("name", false)
	g.ResizeColumn("name", 210)
	if !g.AutoSavePending() {
		t.Fatal("configuration change did not schedule an auto-save")
	}
	if err := g.FlushAutoSave(context.Background()); err != nil {
		t.Fatal(err)
	}

	list, _ := store.List(context.Background(), "")
	if len(list) != 1 {
		t.Fatalf("saved %d presets, want 1", len(list))
	}
	p := list[0]
	if p.ID != AutoSavePresetID || len(p.Sort) != 1 || p.Columns.Widths["name"] != 210 {
		t.Errorf("auto-saved preset = %+v", p)
	}
}

func TestGrid_RemoteRows(t *testing.T) {
	src := &fakeSource{total: 250}
	g := newTestGrid(t, Options{
		Rows:       []Row{},
		PageSize:   100,
		DataSource: src,
		Remote:     RemoteOptions{BlockSize: 50},
	})

	rows, err := g.FetchPage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 100 || rows[0].ID != "0" {
		t.Errorf("FetchPage() = %d rows", len(rows))
	}
	info := g.PageInfo()
	if info.TotalRows != 250 || info.TotalPages != 3 {
		t.Errorf("PageInfo() = %+v", info)
	}

	g.LastPage()
	rows, _ = g.FetchPage(context.Background())
	if len(rows) != 50 || rows[0].ID != "200" {
		t.Errorf("last page = %d rows from %s", len(rows), rows[0].ID)
	}

	g.SetSort(SortSpec{Field: "name", Direction: SortAsc})
	g.FetchPage(context.Background())
	src.mu.Lock()
	last := src.reqs[len(src.reqs)-1]
	src.mu.Unlock()
	if len(last.Sort) != 1 || last.StartRow >= 100 {
		t.Errorf("request after sort = %+v", last)
	}

	if _, ok := g.RemoteStatus(); !ok {
		t.Error("RemoteStatus() not available")
	}
	plain := newTestGrid(t, Options{})
	if _, err := plain.FetchPage(context.Background()); !errors.Is(err, ErrNoDataSource) {
		t.Errorf("FetchPage() without source = %v", err)
	}
}

func TestGrid_DestroyDrainsRemoteFetches(t *testing.T) {
	src := &fakeSource{total: 100, gate: make(chan struct{})}
	defer close(src.gate)
	g := newTestGrid(t, Options{Rows: []Row{}, PageSize: 10, DataSource: src})

	errc := make(chan error, 1)
	go func() {
		_, err := g.FetchPage(context.Background())
		errc <- err
	}()
	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	g.Destroy()
	if st, _ := g.RemoteStatus(); st.Active != 0 {
		t.Errorf("active fetches after Destroy = %d, want 0", st.Active)
	}
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("FetchPage() during Destroy = %v, want context.Canceled", err)
	}
}
