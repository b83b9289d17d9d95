package core

// pipeline.go chains the stages: filter -> sort -> group or tree flatten ->
// paginate. Every stage is a pure function of its input rows and the slice of
// configuration it reads.
//
// Pipeline memoizes stage outputs. A stage is recomputed only when its own
// configuration slice or an upstream stage changed, so unrelated transitions
// (focus, selection, column widths) reuse the previous display sequence.
//
// In tree mode the order of stages differs: all rows are sorted first so that
// sibling order follows the sort model, the forest is built from the sorted
// rows, and filtering marks matching nodes plus their ancestors.

import (
	"maps"
	"reflect"
	"slices"
)

// RowKind distinguishes the entries of the display sequence.
type RowKind int

const (
	RowData RowKind = iota
	RowGroup
	RowTreeNode
)

func (k RowKind) String() string {
	switch k {
	case RowGroup:
		return "group"
	case RowTreeNode:
		return "node"
	}
	return "data"
}

// DisplayRow is one entry of the flattened display sequence.
type DisplayRow struct {
	Kind     RowKind     `json:"kind"`
	ID       string      `json:"id"`
	Level    int         `json:"level"`
	Row      Row         `json:"row"`
	Group    *GroupedRow `json:"group,omitempty"`
	Node     *TreeNode   `json:"node,omitempty"`
	Expanded bool        `json:"expanded,omitempty"`
	Pinned   PinSide     `json:"pinned,omitempty"`
}

func dataRow(r Row, level int) DisplayRow {
	return DisplayRow{Kind: RowData, ID: r.ID, Level: level, Row: r}
}

// PipelineOptions configures the parts of the pipeline that are not grid
// state: aggregates and tree mode.
type PipelineOptions struct {
	Aggregates []AggregateConfig
	// Tree enables tree mode. Group-by is ignored while it is set.
	Tree *TreeOptions
}

// View is the output of one pipeline run.
type View struct {
	// Filtered holds the rows that passed the filter, in sorted order. In tree
	// mode it holds every matching node's row.
	Filtered []Row
	// Display is the full flattened sequence before pagination.
	Display []DisplayRow
	Page    Page
	Groups  *GroupTree
	Forest  *Forest
	Totals  Aggregations
}

// Compute runs the pipeline once without memoization.
func Compute(rows []Row, state GridState, opts PipelineOptions) (View, error) {
	p := NewPipeline(opts)
	return p.Run(rows, 0, state)
}

// Pipeline is a memoizing pipeline. It is not safe for concurrent use.
type Pipeline struct {
	opts PipelineOptions

	dataVersion uint64
	hasData     bool

	// filter stage
	filterGen     int
	filters       map[string]FilterValue
	quick         string
	quickFields   []string
	filtered      []Row
	match         []bool // tree mode: per-node keep mask
	matchForestGn int

	// sort stage
	sortGen      int
	sortUpstream int
	sortSpecs    []SortSpec
	sorted       []Row

	// shape stage
	shapeUpstream [2]int
	groupBy       []string
	expanded      map[string]bool
	groups        *GroupTree
	forest        *Forest
	forestGen     int
	display       []DisplayRow
	displayGen    int
	totals        Aggregations
}

// NewPipeline creates an empty memoizing pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	return &Pipeline{opts: opts}
}

// Options returns the pipeline options.
func (p *Pipeline) Options() PipelineOptions { return p.opts }

// SetOptions replaces the options and drops every memoized stage.
func (p *Pipeline) SetOptions(opts PipelineOptions) {
	*p = Pipeline{opts: opts, displayGen: p.displayGen}
}

// Invalidate drops every memoized stage.
func (p *Pipeline) Invalidate() { p.SetOptions(p.opts) }

// DisplayGeneration changes whenever the display sequence is rebuilt.
func (p *Pipeline) DisplayGeneration() int { return p.displayGen }

// Run computes the view for rows at dataVersion under state. Callers bump
// dataVersion whenever rows change.
func (p *Pipeline) Run(rows []Row, dataVersion uint64, state GridState) (View, error) {
	if !p.hasData || p.dataVersion != dataVersion {
		p.dataVersion, p.hasData = dataVersion, true
		p.filterGen, p.sortGen, p.forestGen = p.filterGen+1, p.sortGen+1, p.forestGen+1
		p.filtered, p.sorted, p.forest, p.match, p.display = nil, nil, nil, nil, nil
	}

	var err error
	if p.opts.Tree != nil {
		err = p.runTree(rows, state)
	} else {
		p.runFlat(rows, state)
	}
	if err != nil {
		return View{}, err
	}

	filtered := p.sorted
	if p.opts.Tree != nil {
		filtered = p.filtered
	}
	top, bottom := p.pinnedRows(rows, state)
	page := Paginate(p.display, state.page, state.pageSize, top, bottom)
	return View{
		Filtered: filtered,
		Display:  p.display,
		Page:     page,
		Groups:   p.groups,
		Forest:   p.forest,
		Totals:   p.totals,
	}, nil
}

func (p *Pipeline) filterChanged(cfg FilterConfig) bool {
	if p.filtered != nil && p.quick == cfg.QuickFilter &&
		(cfg.QuickFilter == "" || slices.Equal(p.quickFields, cfg.QuickFields)) &&
		maps.EqualFunc(p.filters, cfg.Filters, func(a, b FilterValue) bool { return reflect.DeepEqual(a, b) }) {
		return false
	}
	p.filters, p.quick, p.quickFields = cfg.Filters, cfg.QuickFilter, cfg.QuickFields
	p.filterGen++
	return true
}

func (p *Pipeline) sortChanged(state GridState, upstream int) bool {
	if p.sorted != nil && p.sortUpstream == upstream && slices.Equal(p.sortSpecs, state.sort) {
		return false
	}
	p.sortSpecs, p.sortUpstream = state.sort, upstream
	p.sortGen++
	return true
}

func (p *Pipeline) runFlat(rows []Row, state GridState) {
	if cfg := state.FilterConfig(); p.filterChanged(cfg) {
		p.filtered = FilterRows(rows, cfg)
	}
	if p.sortChanged(state, p.filterGen) {
		p.sorted = SortRows(p.filtered, state.sort, state.Kinds())
	}
	p.forest, p.match = nil, nil

	shapeKey := [2]int{p.sortGen, 0}
	if p.display != nil && p.shapeUpstream == shapeKey &&
		slices.Equal(p.groupBy, state.groupBy) && maps.Equal(p.expanded, state.expandedGroups) {
		return
	}
	p.shapeUpstream = shapeKey
	p.groupBy, p.expanded = state.groupBy, state.expandedGroups

	p.displayGen++
	p.groups = BuildGroups(p.sorted, state.groupBy, p.opts.Aggregates)
	p.totals = p.groups.Totals
	p.display = p.groups.Flatten(state.expandedGroups)
	if p.display == nil {
		p.display = []DisplayRow{}
	}
	if len(state.groupBy) == 0 {
		p.groups = nil
	}
}

func (p *Pipeline) runTree(rows []Row, state GridState) error {
	if p.sortChanged(state, -1) || p.forest == nil {
		p.sorted = SortRows(rows, state.sort, state.Kinds())
		f, err := BuildTree(p.sorted, *p.opts.Tree)
		if err != nil {
			p.sorted = nil
			return err
		}
		p.forest = f
		p.forestGen++
	}

	cfg := state.FilterConfig()
	if p.filterChanged(cfg) || p.matchForestGn != p.forestGen {
		p.matchForestGn = p.forestGen
		p.match = nil
		p.filtered = p.sorted
		if len(cfg.Filters) > 0 || cfg.QuickFilter != "" {
			p.match = p.forest.KeepMatching(func(r Row) bool { return Matches(r, cfg) })
			p.filtered = make([]Row, 0, len(p.sorted))
			for i, n := range p.forest.Nodes {
				if p.match[i] && Matches(n.Row, cfg) {
					p.filtered = append(p.filtered, n.Row)
				}
			}
		}
	}
	p.groups = nil

	shapeKey := [2]int{p.forestGen, p.filterGen}
	if p.display != nil && p.shapeUpstream == shapeKey && maps.Equal(p.expanded, state.expandedNodes) {
		return nil
	}
	p.shapeUpstream = shapeKey
	p.expanded = state.expandedNodes
	p.displayGen++
	p.display = p.forest.flatten(state.expandedNodes, p.match)
	p.totals = AggregateRows(p.filtered, p.opts.Aggregates)
	return nil
}

// pinnedRows resolves pinned ids against the full row set; pinned rows are
// rendered even when filtered out.
func (p *Pipeline) pinnedRows(rows []Row, state GridState) (top, bottom []DisplayRow) {
	if len(state.pinnedTop) == 0 && len(state.pinnedBottom) == 0 {
		return nil, nil
	}
	byID := make(map[string]Row, len(state.pinnedTop)+len(state.pinnedBottom))
	want := make(map[string]bool, len(byID))
	for _, id := range state.pinnedTop {
		want[id] = true
	}
	for _, id := range state.pinnedBottom {
		want[id] = true
	}
	for _, r := range rows {
		if want[r.ID] {
			byID[r.ID] = r
		}
	}
	resolve := func(ids []string) []DisplayRow {
		var out []DisplayRow
		for _, id := range ids {
			if r, ok := byID[id]; ok {
				out = append(out, dataRow(r, 0))
			}
		}
		return out
	}
	return resolve(state.pinnedTop), resolve(state.pinnedBottom)
}
