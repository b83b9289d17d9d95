package core

// group.go builds the group-by tree and its aggregates.
//
// The tree is an arena: GroupTree.Nodes holds every GroupedRow and nodes refer
// to their parent, child groups and leaf rows by index. Leaf rows are indices
// into GroupTree.Rows, which is the filtered and sorted input.
//
// Distinct values appear in first-encountered order within each parent, so
// group order is a stable function of the sorted input. Aggregates are always
// recomputed from leaves when a tree is built; there is no incremental path.

import (
	"strconv"
	"strings"
)

// GroupedRow is a synthetic aggregation node produced by group-by.
type GroupedRow struct {
	Key        string       `json:"key"`
	Field      string       `json:"field"`
	Value      any          `json:"value"`
	Level      int          `json:"level"`
	Parent     int          `json:"-"` // -1 for top-level groups
	Groups     []int        `json:"-"` // child groups, empty at the deepest level
	Leaves     []int        `json:"-"` // leaf rows, only at the deepest level
	LeafCount  int          `json:"leafCount"`
	Aggregates Aggregations `json:"aggregates"`
}

// GroupTree is the result of grouping a row sequence.
type GroupTree struct {
	Fields []string
	Rows   []Row
	Nodes  []GroupedRow
	Roots  []int
	Totals Aggregations
	byKey  map[string]int
}

// GroupKey returns the deterministic key of the group for value under field,
// below the group identified by parentKey ("" for top level).
func GroupKey(parentKey, field string, value any) string {
	var b strings.Builder
	if parentKey != "" {
		b.WriteString(parentKey)
		b.WriteByte('/')
	}
	b.WriteString(field)
	b.WriteByte('=')
	b.WriteString(strconv.Quote(ValueKey(value)))
	return b.String()
}

// BuildGroups groups rows by fields, one level per field, and computes aggs for
// every group plus the overall totals.
func BuildGroups(rows []Row, fields []string, aggs []AggregateConfig) *GroupTree {
	t := &GroupTree{
		Fields: fields,
		Rows:   rows,
		byKey:  make(map[string]int),
	}

	if len(fields) > 0 {
		for ri, row := range rows {
			parent := -1
			parentKey := ""
			for level, field := range fields {
				v := row.Value(field)
				key := GroupKey(parentKey, field, v)
				idx, ok := t.byKey[key]
				if !ok {
					idx = len(t.Nodes)
					t.Nodes = append(t.Nodes, GroupedRow{
						Key:    key,
						Field:  field,
						Value:  v,
						Level:  level,
						Parent: parent,
					})
					t.byKey[key] = idx
					if parent < 0 {
						t.Roots = append(t.Roots, idx)
					} else {
						t.Nodes[parent].Groups = append(t.Nodes[parent].Groups, idx)
					}
				}
				parent, parentKey = idx, key
			}
			t.Nodes[parent].Leaves = append(t.Nodes[parent].Leaves, ri)
		}
	}

	t.aggregate(aggs)
	return t
}

// aggregate recomputes every node's aggregates from its transitive leaves.
func (t *GroupTree) aggregate(aggs []AggregateConfig) {
	var walk func(idx int) []int
	walk = func(idx int) []int {
		n := &t.Nodes[idx]
		leaves := n.Leaves
		if len(n.Groups) > 0 {
			leaves = nil
			for _, child := range n.Groups {
				leaves = append(leaves, walk(child)...)
			}
		}
		n.LeafCount = len(leaves)
		n.Aggregates = aggregateIndexed(t.Rows, leaves, aggs)
		return leaves
	}
	for _, root := range t.Roots {
		walk(root)
	}

	all := make([]int, len(t.Rows))
	for i := range all {
		all[i] = i
	}
	t.Totals = aggregateIndexed(t.Rows, all, aggs)
}

// Group returns the group with key.
func (t *GroupTree) Group(key string) (*GroupedRow, bool) {
	idx, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return &t.Nodes[idx], true
}

// Keys returns every group key in tree order.
func (t *GroupTree) Keys() []string {
	keys := make([]string, len(t.Nodes))
	for i, n := range t.Nodes {
		keys[i] = n.Key
	}
	return keys
}

// LeafRows returns the transitive leaf rows of the group with key.
func (t *GroupTree) LeafRows(key string) []Row {
	idx, ok := t.byKey[key]
	if !ok {
		return nil
	}
	var out []Row
	var walk func(i int)
	walk = func(i int) {
		n := t.Nodes[i]
		for _, ri := range n.Leaves {
			out = append(out, t.Rows[ri])
		}
		for _, c := range n.Groups {
			walk(c)
		}
	}
	walk(idx)
	return out
}

// Flatten emits the display sequence: each group, then, only when its key is
// expanded, its child groups or leaf rows. Groups default to collapsed.
func (t *GroupTree) Flatten(expanded map[string]bool) []DisplayRow {
	if len(t.Fields) == 0 {
		out := make([]DisplayRow, len(t.Rows))
		for i, r := range t.Rows {
			out[i] = dataRow(r, 0)
		}
		return out
	}

	var out []DisplayRow
	var walk func(idx int)
	walk = func(idx int) {
		n := &t.Nodes[idx]
		open := expanded[n.Key]
		out = append(out, DisplayRow{
			Kind:     RowGroup,
			ID:       n.Key,
			Level:    n.Level,
			Group:    n,
			Expanded: open,
		})
		if !open {
			return
		}
		for _, c := range n.Groups {
			walk(c)
		}
		for _, ri := range n.Leaves {
			out = append(out, dataRow(t.Rows[ri], n.Level+1))
		}
	}
	for _, root := range t.Roots {
		walk(root)
	}
	return out
}

// AggregateRows computes aggs over every row.
func AggregateRows(rows []Row, aggs []AggregateConfig) Aggregations {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	return aggregateIndexed(rows, idx, aggs)
}

// aggregateIndexed computes the requested aggregates over rows[idx...].
// Numeric aggregates ignore nil, blank and non-numeric values and stay nil
// when no value qualified. Count is the leaf count regardless of validity.
func aggregateIndexed(rows []Row, idx []int, aggs []AggregateConfig) Aggregations {
	result := make(Aggregations)
	for _, cfg := range aggs {
		agg, ok := result[cfg.Field]
		if !ok {
			agg = &ColumnAggregation{Field: cfg.Field, Count: int64(len(idx))}
			result[cfg.Field] = agg
		}
		if cfg.Func == AggCount {
			continue
		}

		var sum, lo, hi float64
		var n int64
		for _, i := range idx {
			x, ok := ToNumber(rows[i].Value(cfg.Field))
			if !ok {
				continue
			}
			if n == 0 || x < lo {
				lo = x
			}
			if n == 0 || x > hi {
				hi = x
			}
			sum += x
			n++
		}
		agg.Numeric = n
		if n == 0 {
			continue
		}

		switch cfg.Func {
		case AggSum, AggTotal:
			agg.Sum = ptr(sum)
		case AggAvg:
			agg.Avg = ptr(sum / float64(n))
		case AggMin:
			agg.Min = ptr(lo)
		case AggMax:
			agg.Max = ptr(hi)
		}
	}
	return result
}

func ptr(f float64) *float64 { return &f }
