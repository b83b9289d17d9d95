package core

import (
	"context"
	"fmt"
	"slices"
)

// --- grouping ---

func (g *Grid) AddGroupField(field string) error {
	return g.Dispatch(AddGroupField{Field: field})
}

func (g *Grid) RemoveGroupField(field string) error {
	return g.Dispatch(RemoveGroupField{Field: field})
}

func (g *Grid) MoveGroupField(field string, toIndex int) error {
	return g.Dispatch(MoveGroupField{Field: field, ToIndex: toIndex})
}

// SetGroupBy replaces the group-by field list.
func (g *Grid) SetGroupBy(fields ...string) error {
	return g.Dispatch(SetGroupBy{Fields: fields})
}

func (g *Grid) ClearGrouping() error { return g.Dispatch(ClearGrouping{}) }

func (g *Grid) GroupBy() []string { return g.State().GroupBy() }

// ToggleGroup flips the expansion of the group with key.
func (g *Grid) ToggleGroup(key string) error {
	return g.Dispatch(ToggleGroup{Key: key})
}

func (g *Grid) SetGroupExpanded(key string, expanded bool) error {
	return g.Dispatch(SetGroupsExpanded{Keys: []string{key}, Expanded: expanded})
}

// ExpandAllGroups expands every group of the current grouping.
func (g *Grid) ExpandAllGroups() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	v, err := g.viewLocked()
	if err != nil || v.Groups == nil {
		return err
	}
	return g.dispatch(SetGroupsExpanded{Keys: v.Groups.Keys(), Expanded: true})
}

func (g *Grid) CollapseAllGroups() error { return g.Dispatch(CollapseAllGroups{}) }

// Group returns the group with key from the current grouping.
func (g *Grid) Group(key string) (GroupedRow, bool) {
	v, err := g.View()
	if err != nil || v.Groups == nil {
		return GroupedRow{}, false
	}
	grp, ok := v.Groups.Group(key)
	if !ok {
		return GroupedRow{}, false
	}
	return *grp, true
}

// --- tree ---

// IsTreeMode reports whether the grid shows hierarchical data.
func (g *Grid) IsTreeMode() bool { return g.opts.Tree != nil }

// TreeNode returns the node with id from the current tree.
func (g *Grid) TreeNode(id string) (TreeNode, bool) {
	v, err := g.View()
	if err != nil || v.Forest == nil {
		return TreeNode{}, false
	}
	n, ok := v.Forest.Node(id)
	if !ok {
		return TreeNode{}, false
	}
	return *n, true
}

func (g *Grid) IsNodeExpanded(id string) bool { return g.State().IsNodeExpanded(id) }
func (g *Grid) IsNodeLoading(id string) bool  { return g.State().IsNodeLoading(id) }

// ExpandNode expands a tree node. When the node is lazily loadable and its
// children have not been loaded, the loader is started and the returned
// channel delivers exactly one LoadResult; otherwise the channel is nil.
//
// A node collapsed, removed or reloaded before its load resolves discards the
// result (ErrLoadDiscarded). A failed load reverts the node to collapsed and
// installs no children.
func (g *Grid) ExpandNode(ctx context.Context, id string) (<-chan LoadResult, error) {
	if !g.lock() {
		return nil, nil
	}
	defer g.unlock()

	node, err := g.nodeLocked(id)
	if err != nil {
		return nil, err
	}
	st := g.store.Snapshot()
	if st.IsNodeExpanded(id) {
		return nil, nil
	}
	if err := g.dispatch(SetNodeExpanded{ID: id, Expanded: true}); err != nil {
		return nil, err
	}
	if g.opts.Loader == nil || !node.Loadable || len(node.Children) > 0 || g.loads.isLoaded(id) {
		return nil, nil
	}
	if err := g.dispatch(SetNodeLoading{ID: id, Loading: true}); err != nil {
		return nil, err
	}

	loadCtx, gen := g.loads.begin(ctx, id)
	ch := make(chan LoadResult, 1)
	g.logger.Debug("lazy load started", "node", id)
	go func() {
		children, err := g.opts.Loader.LoadChildren(loadCtx, node)
		ch <- g.finishLoad(node, gen, children, err)
		close(ch)
	}()
	return ch, nil
}

// finishLoad applies a lazy load result if the load is still current and the
// node is still expanded and present.
func (g *Grid) finishLoad(node TreeNode, gen uint64, children []Row, loadErr error) LoadResult {
	id := node.NodeID
	res := LoadResult{NodeID: id}
	if !g.lock() {
		res.Err = ErrLoadDiscarded
		return res
	}
	defer g.unlock()

	current := g.loads.finish(id, gen)
	st := g.store.Snapshot()
	_, missing := g.nodeLocked(id)
	if !current || missing != nil || !st.IsNodeExpanded(id) {
		g.logger.Warn("lazy load result discarded", "node", id)
		g.queue(EventLazyLoadDiscarded, "", id)
		res.Err = ErrLoadDiscarded
		return res
	}

	if loadErr == nil {
		loadErr = g.installChildren(node, children)
	}
	if loadErr != nil {
		_ = g.dispatchAll(SetNodeLoading{ID: id, Loading: false}, SetNodeExpanded{ID: id, Expanded: false})
		g.logger.Warn("lazy load failed", "node", id, "error", loadErr)
		g.queue(EventLazyLoadFailed, "", LoadResult{NodeID: id, Err: loadErr})
		res.Err = loadErr
		return res
	}

	g.loads.markLoaded(id)
	_ = g.dispatch(SetNodeLoading{ID: id, Loading: false})
	g.logger.Debug("lazy load applied", "node", id, "children", len(children))
	res.Children = len(children)
	return res
}

// installChildren appends loaded children under node. Caller must hold g.mu.
func (g *Grid) installChildren(node TreeNode, children []Row) error {
	if len(children) == 0 {
		return nil
	}
	parentField := g.opts.Tree.ParentIDField
	rows := make([]Row, len(children))
	for i, c := range children {
		if parentField != "" && IsEmpty(c.Value(parentField)) {
			c = c.with(parentField, node.NodeID)
		}
		rows[i] = c
	}
	return g.addRowsLocked(rows)
}

// nodeLocked finds a node in the current tree. Caller must hold g.mu.
func (g *Grid) nodeLocked(id string) (TreeNode, error) {
	if g.opts.Tree == nil {
		return TreeNode{}, fmt.Errorf("%w: grid is not in tree mode", ErrInvalidTransition)
	}
	v, err := g.viewLocked()
	if err != nil {
		return TreeNode{}, err
	}
	n, ok := v.Forest.Node(id)
	if !ok {
		return TreeNode{}, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return *n, nil
}

// CollapseNode collapses a tree node, abandoning any pending load of it.
func (g *Grid) CollapseNode(id string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	if g.loads.cancel(id) {
		g.logger.Debug("lazy load cancelled", "node", id)
	}
	return g.dispatch(SetNodeExpanded{ID: id, Expanded: false})
}

// ToggleNode collapses an expanded node or expands a collapsed one, starting
// a lazy load when needed.
func (g *Grid) ToggleNode(ctx context.Context, id string) (<-chan LoadResult, error) {
	if g.IsNodeExpanded(id) {
		return nil, g.CollapseNode(id)
	}
	return g.ExpandNode(ctx, id)
}

// ExpandAllNodes expands every node that has children. Lazily loadable nodes
// are expanded without loading.
func (g *Grid) ExpandAllNodes() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	v, err := g.viewLocked()
	if err != nil {
		return err
	}
	if v.Forest == nil {
		return nil
	}
	return g.dispatch(ExpandAllNodes{IDs: v.Forest.ExpandableIDs()})
}

// CollapseAllNodes collapses every node and abandons pending loads.
func (g *Grid) CollapseAllNodes() error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	g.loads.cancelAll()
	return g.dispatch(CollapseAllNodes{})
}

// SetExpandedNodes replaces the node expansion map.
func (g *Grid) SetExpandedNodes(expanded map[string]bool) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	for id := range g.store.Snapshot().expandedNodes {
		if !expanded[id] {
			g.loads.cancel(id)
		}
	}
	return g.dispatch(SetExpandedNodes{Expanded: expanded})
}

func (g *Grid) ExpandedNodes() map[string]bool { return g.State().ExpandedNodes() }

// --- drag ---

// StartRowDrag begins dragging the row with id.
func (g *Grid) StartRowDrag(id string) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	i := g.displayIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownRow, id)
	}
	return g.dispatch(StartDrag{RowID: id, SourceIndex: i})
}

// UpdateRowDrag moves the drop target to a display index.
func (g *Grid) UpdateRowDrag(targetIndex int) error {
	return g.Dispatch(UpdateDrag{TargetIndex: targetIndex})
}

// EndRowDrag finishes the drag. With commit the dragged row is moved in the
// dataset to the position of the row at the drop target; that only changes
// the display while no sort is active.
func (g *Grid) EndRowDrag(commit bool) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	d, ok := g.store.Snapshot().Drag()
	if !ok {
		return nil
	}
	ids := g.displayIDsLocked()
	if err := g.dispatch(EndDrag{}); err != nil {
		return err
	}
	if !commit || d.TargetIndex == d.SourceIndex || d.TargetIndex < 0 || d.TargetIndex >= len(ids) {
		return nil
	}

	idx := g.index()
	from, okFrom := idx[d.RowID]
	to, okTo := idx[ids[d.TargetIndex]]
	if !okFrom || !okTo {
		return nil
	}
	rows := slices.Clone(g.rows)
	r := rows[from]
	rows = slices.Delete(rows, from, from+1)
	rows = slices.Insert(rows, to, r)
	g.rows = rows
	g.touchData()
	g.queue(EventDataChanged, "reorderRows", d)
	_, err := g.viewLocked()
	return err
}

// DragState returns the drag in progress.
func (g *Grid) DragState() (DragState, bool) { return g.State().Drag() }

// --- row pinning ---

// PinRow pins a row to PinTop or PinBottom. Fails with ErrPinLimit when the
// side is full.
func (g *Grid) PinRow(id string, side PinSide) error {
	if !g.lock() {
		return nil
	}
	defer g.unlock()
	if _, ok := g.index()[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRow, id)
	}
	return g.dispatch(PinRow{ID: id, Side: side})
}

func (g *Grid) UnpinRow(id string) error { return g.Dispatch(UnpinRow{ID: id}) }

// SetPinnedRowLimits changes the maximum pinned row counts.
func (g *Grid) SetPinnedRowLimits(top, bottom int) error {
	return g.Dispatch(SetPinLimits{Top: top, Bottom: bottom})
}

// PinnedRows returns the pinned rows of both sides in pin order.
func (g *Grid) PinnedRows() (top, bottom []DisplayRow) {
	v, err := g.View()
	if err != nil {
		return nil, nil
	}
	return v.Page.Top, v.Page.Bottom
}
