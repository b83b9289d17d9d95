package core

import (
	"errors"
	"fmt"
)

// ErrTreeCycle is returned when a node is its own transitive ancestor.
var ErrTreeCycle = errors.New("tree cycle detected")

// ErrDuplicateNode is returned when two rows share a node id.
var ErrDuplicateNode = errors.New("duplicate tree node id")

// TreeNode is a row placed in a hierarchy by parent reference.
type TreeNode struct {
	Row
	NodeID      string `json:"nodeId"`
	ParentID    string `json:"parentId,omitempty"`
	Level       int    `json:"level"`
	HasChildren bool   `json:"hasChildren"`
	Loadable    bool   `json:"loadable,omitempty"`
	Parent      int    `json:"-"` // -1 for roots
	Children    []int  `json:"-"`
}

// TreeOptions names the fields that carry the hierarchy. An empty IDField
// uses Row.ID. LoadableField, when set, marks nodes whose children are
// fetched lazily.
type TreeOptions struct {
	IDField       string `json:"idField,omitempty"`
	ParentIDField string `json:"parentIdField"`
	LoadableField string `json:"loadableField,omitempty"`
}

// Forest is an arena of tree nodes addressed by index.
type Forest struct {
	Nodes []TreeNode
	Roots []int
	byID  map[string]int
}

// BuildTreeFromFlat constructs a forest from flat rows by parent reference.
func BuildTreeFromFlat(rows []Row, idField, parentIDField string) (*Forest, error) {
	return BuildTree(rows, TreeOptions{IDField: idField, ParentIDField: parentIDField})
}

// BuildTree constructs a forest. Rows whose parent id is empty or unknown
// become roots; sibling order follows input order. A parent cycle fails the
// build with ErrTreeCycle.
func BuildTree(rows []Row, opts TreeOptions) (*Forest, error) {
	f := &Forest{
		Nodes: make([]TreeNode, len(rows)),
		byID:  make(map[string]int, len(rows)),
	}

	for i, r := range rows {
		id := r.ID
		if opts.IDField != "" {
			if v := r.Value(opts.IDField); !IsEmpty(v) {
				id = ToText(v)
			}
		}
		if _, dup := f.byID[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, id)
		}
		f.byID[id] = i

		var parentID string
		if v := r.Value(opts.ParentIDField); opts.ParentIDField != "" && !IsEmpty(v) {
			parentID = ToText(v)
		}
		loadable := false
		if opts.LoadableField != "" {
			loadable, _ = r.Value(opts.LoadableField).(bool)
		}
		f.Nodes[i] = TreeNode{Row: r, NodeID: id, ParentID: parentID, Loadable: loadable, Parent: -1}
	}

	for i := range f.Nodes {
		if p, ok := f.byID[f.Nodes[i].ParentID]; ok && f.Nodes[i].ParentID != "" {
			f.Nodes[i].Parent = p
		}
	}

	if err := f.checkAcyclic(); err != nil {
		return nil, err
	}

	for i := range f.Nodes {
		if p := f.Nodes[i].Parent; p >= 0 {
			f.Nodes[p].Children = append(f.Nodes[p].Children, i)
		} else {
			f.Roots = append(f.Roots, i)
		}
	}
	for i := range f.Nodes {
		f.Nodes[i].HasChildren = len(f.Nodes[i].Children) > 0 || f.Nodes[i].Loadable
	}

	var setLevel func(idx, level int)
	setLevel = func(idx, level int) {
		f.Nodes[idx].Level = level
		for _, c := range f.Nodes[idx].Children {
			setLevel(c, level+1)
		}
	}
	for _, r := range f.Roots {
		setLevel(r, 0)
	}
	return f, nil
}

// checkAcyclic walks each parent chain iteratively, so a cycle is reported
// instead of looping.
func (f *Forest) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]uint8, len(f.Nodes))
	var path []int

	for start := range f.Nodes {
		if state[start] == done {
			continue
		}
		path = path[:0]
		cur := start
		for cur >= 0 && state[cur] == unvisited {
			state[cur] = visiting
			path = append(path, cur)
			cur = f.Nodes[cur].Parent
		}
		if cur >= 0 && state[cur] == visiting {
			return fmt.Errorf("%w: node %q is its own ancestor", ErrTreeCycle, f.Nodes[cur].NodeID)
		}
		for _, idx := range path {
			state[idx] = done
		}
	}
	return nil
}

// Node returns the node with id.
func (f *Forest) Node(id string) (*TreeNode, bool) {
	idx, ok := f.byID[id]
	if !ok {
		return nil, false
	}
	return &f.Nodes[idx], true
}

// ExpandableIDs returns the ids of every node that has or may load children.
func (f *Forest) ExpandableIDs() []string {
	var ids []string
	for _, n := range f.Nodes {
		if n.HasChildren {
			ids = append(ids, n.NodeID)
		}
	}
	return ids
}

// FlattenTree performs a depth-first traversal emitting a node and, only if
// its expansion flag is true, its children.
func FlattenTree(f *Forest, expanded map[string]bool) []DisplayRow {
	return f.flatten(expanded, nil)
}

// FlattenMatching is FlattenTree restricted to nodes for which keep is true.
func (f *Forest) FlattenMatching(expanded map[string]bool, keep []bool) []DisplayRow {
	return f.flatten(expanded, keep)
}

func (f *Forest) flatten(expanded map[string]bool, keep []bool) []DisplayRow {
	out := make([]DisplayRow, 0, len(f.Roots))
	var walk func(idx int)
	walk = func(idx int) {
		if keep != nil && !keep[idx] {
			return
		}
		n := &f.Nodes[idx]
		open := n.HasChildren && expanded[n.NodeID]
		out = append(out, DisplayRow{
			Kind:     RowTreeNode,
			ID:       n.NodeID,
			Level:    n.Level,
			Row:      n.Row,
			Node:     n,
			Expanded: open,
		})
		if !open {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range f.Roots {
		walk(r)
	}
	return out
}

// KeepMatching marks every node that matches, plus all ancestors of a match,
// so matching descendants stay reachable.
func (f *Forest) KeepMatching(match func(Row) bool) []bool {
	keep := make([]bool, len(f.Nodes))
	for i := range f.Nodes {
		if !match(f.Nodes[i].Row) {
			continue
		}
		for cur := i; cur >= 0 && !keep[cur]; cur = f.Nodes[cur].Parent {
			keep[cur] = true
		}
	}
	return keep
}
