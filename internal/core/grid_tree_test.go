package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// gatedLoader returns two children per node once release is closed, or
// fails with err.
type gatedLoader struct {
	release chan struct{}
	err     error
	calls   chan string
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{release: make(chan struct{}), calls: make(chan string, 8)}
}

func (l *gatedLoader) LoadChildren(ctx context.Context, node TreeNode) ([]Row, error) {
	l.calls <- node.NodeID
	select {
	case <-l.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if l.err != nil {
		return nil, l.err
	}
	return []Row{
		row(node.NodeID+"1", "name", "first"),
		row(node.NodeID+"2", "name", "second"),
	}, nil
}

func newTreeGrid(t *testing.T, loader NodeLoader) *Grid {
	t.Helper()
	return newTestGrid(t, Options{
		Columns: []Column{{Field: "name", Sortable: true, Filterable: true}, {Field: "parent"}, {Field: "lazy"}},
		Rows: []Row{
			row("a", "name", "Root", "lazy", true),
			row("b", "name", "Static"),
			row("b1", "name", "Leaf", "parent", "b"),
		},
		Tree:   &TreeOptions{ParentIDField: "parent", LoadableField: "lazy"},
		Loader: loader,
	})
}

func waitResult(t *testing.T, ch <-chan LoadResult) LoadResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("lazy load never resolved")
	}
	return LoadResult{}
}

func TestGrid_TreeExpandCollapse(t *testing.T) {
	g := newTreeGrid(t, nil)

	if !g.IsTreeMode() {
		t.Fatal("IsTreeMode() = false")
	}
	if diff := cmp.Diff([]string{"a", "b"}, displayIDs(g.DisplayedRows())); diff != "" {
		t.Errorf("collapsed display mismatch (-want +got):\n%s", diff)
	}

	ch, err := g.ExpandNode(context.Background(), "b")
	if err != nil || ch != nil {
		t.Fatalf("ExpandNode(b) = %v, %v, want no load", ch, err)
	}
	if diff := cmp.Diff([]string{"a", "b", "b1"}, displayIDs(g.DisplayedRows())); diff != "" {
		t.Errorf("expanded display mismatch (-want +got):\n%s", diff)
	}
	n, ok := g.TreeNode("b1")
	if !ok || n.Level != 1 || n.ParentID != "b" {
		t.Errorf("TreeNode(b1) = %+v, %v", n, ok)
	}

	g.CollapseNode("b")
	if g.IsNodeExpanded("b") {
		t.Error("node still expanded")
	}

	g.ExpandAllNodes()
	if diff := cmp.Diff(map[string]bool{"a": true, "b": true}, g.ExpandedNodes()); diff != "" {
		t.Errorf("ExpandedNodes() mismatch (-want +got):\n%s", diff)
	}
	g.CollapseAllNodes()
	if len(g.ExpandedNodes()) != 0 {
		t.Error("CollapseAllNodes() left nodes open")
	}

	if _, err := g.ExpandNode(context.Background(), "ghost"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("ExpandNode(unknown) = %v, want ErrUnknownNode", err)
	}
	flat := newTestGrid(t, Options{})
	if _, err := flat.ExpandNode(context.Background(), "1"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ExpandNode() outside tree mode = %v", err)
	}
}

func TestGrid_LazyLoad(t *testing.T) {
	loader := newGatedLoader()
	g := newTreeGrid(t, loader)

	ch, err := g.ExpandNode(context.Background(), "a")
	if err != nil || ch == nil {
		t.Fatalf("ExpandNode(a) = %v, %v, want a load", ch, err)
	}
	<-loader.calls
	if !g.IsNodeLoading("a") || !g.IsNodeExpanded("a") {
		t.Error("node should be expanded and loading while the load runs")
	}

	close(loader.release)
	res := waitResult(t, ch)
	if res.Err != nil || res.Children != 2 {
		t.Fatalf("LoadResult = %+v", res)
	}

	if g.IsNodeLoading("a") {
		t.Error("node still loading")
	}
	if diff := cmp.Diff([]string{"a", "a1", "a2", "b"}, displayIDs(g.DisplayedRows())); diff != "" {
		t.Errorf("display after load mismatch (-want +got):\n%s", diff)
	}
	if r, _ := g.GetRow("a1"); r.Value("parent") != "a" {
		t.Errorf("loaded child parent = %v, want a", r.Value("parent"))
	}

	// children are loaded once
	g.CollapseNode("a")
	ch, _ = g.ExpandNode(context.Background(), "a")
	if ch != nil {
		t.Error("second expand started another load")
	}
}

func TestGrid_LazyLoadDiscardedAfterCollapse(t *testing.T) {
	loader := newGatedLoader()
	g := newTreeGrid(t, loader)
	var log eventLog
	g.On(EventLazyLoadDiscarded, log.handle)

	ch, err := g.ExpandNode(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	<-loader.calls
	if err := g.CollapseNode("a"); err != nil {
		t.Fatal(err)
	}
	close(loader.release)

	res := waitResult(t, ch)
	if !errors.Is(res.Err, ErrLoadDiscarded) {
		t.Errorf("LoadResult.Err = %v, want ErrLoadDiscarded", res.Err)
	}
	if g.RowCount() != 3 {
		t.Errorf("RowCount() = %d, discarded children were installed", g.RowCount())
	}
	if g.IsNodeLoading("a") {
		t.Error("collapsed node still loading")
	}
	if _, ok := log.last(EventLazyLoadDiscarded); !ok {
		t.Error("no lazyLoadDiscarded event")
	}
}

func TestGrid_LazyLoadFailureCollapses(t *testing.T) {
	loader := newGatedLoader()
	loader.err = errors.New("backend unavailable")
	g := newTreeGrid(t, loader)
	var log eventLog
	g.On(EventLazyLoadFailed, log.handle)

	ch, _ := g.ExpandNode(context.Background(), "a")
	close(loader.release)
	res := waitResult(t, ch)

	if !errors.Is(res.Err, loader.err) {
		t.Errorf("LoadResult.Err = %v, want %v", res.Err, loader.err)
	}
	if g.IsNodeExpanded("a") || g.IsNodeLoading("a") {
		t.Error("failed node should revert to collapsed")
	}
	if g.RowCount() != 3 {
		t.Errorf("RowCount() = %d, want 3", g.RowCount())
	}
	if _, ok := log.last(EventLazyLoadFailed); !ok {
		t.Error("no lazyLoadFailed event")
	}

	// a later expand retries
	loader.err = nil
	ch, _ = g.ExpandNode(context.Background(), "a")
	if ch == nil {
		t.Fatal("retry did not start a load")
	}
	if res := waitResult(t, ch); res.Err != nil {
		t.Errorf("retry failed: %v", res.Err)
	}
}

func TestGrid_LazyLoadDiscardedOnSetRows(t *testing.T) {
	loader := newGatedLoader()
	g := newTreeGrid(t, loader)

	ch, _ := g.ExpandNode(context.Background(), "a")
	<-loader.calls
	g.SetRows([]Row{row("a", "name", "Root", "lazy", true)})
	close(loader.release)

	if res := waitResult(t, ch); !errors.Is(res.Err, ErrLoadDiscarded) {
		t.Errorf("LoadResult.Err = %v, want ErrLoadDiscarded", res.Err)
	}
	if g.RowCount() != 1 {
		t.Errorf("RowCount() = %d, want 1", g.RowCount())
	}
}

func TestGrid_TreeFilterKeepsAncestors(t *testing.T) {
	g := newTreeGrid(t, nil)
	g.ExpandAllNodes()
	g.SetFilter("name", SimpleFilter{Value: "leaf"})

	if diff := cmp.Diff([]string{"b", "b1"}, displayIDs(g.DisplayedRows())); diff != "" {
		t.Errorf("filtered tree mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b1"}, ids(g.FilteredRows())); diff != "" {
		t.Errorf("FilteredRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestGrid_CycleLeavesRowsUnchanged(t *testing.T) {
	g := newTreeGrid(t, nil)
	before := g.Rows()

	tests := []struct {
		name   string
		change func() error
	}{
		{"update creates cycle", func() error { return g.UpdateRow("b", map[string]any{"parent": "b1"}) }},
		{"self parent", func() error { return g.UpdateRow("a", map[string]any{"parent": "a"}) }},
		{"added rows form cycle", func() error {
			return g.AddRows(row("x", "parent", "y"), row("y", "parent", "x"))
		}},
		{"replacement forms cycle", func() error {
			return g.SetRows([]Row{row("p", "parent", "q"), row("q", "parent", "p")})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.change(); !errors.Is(err, ErrTreeCycle) {
				t.Fatalf("error = %v, want ErrTreeCycle", err)
			}
			if diff := cmp.Diff(before, g.Rows()); diff != "" {
				t.Errorf("rows changed (-want +got):\n%s", diff)
			}
			if _, err := g.View(); err != nil {
				t.Errorf("View() after rejected change = %v", err)
			}
		})
	}

	if err := g.AddRows(row("c", "name", "Later", "parent", "b")); err != nil {
		t.Fatalf("AddRows() after rejected changes = %v", err)
	}
	if n, ok := g.GetRow("c"); !ok || n.Value("parent") != "b" {
		t.Errorf("GetRow(c) = %+v, %v", n, ok)
	}
}
