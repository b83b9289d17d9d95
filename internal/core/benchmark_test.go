package core

import (
	"strconv"
	"testing"
)

// ============================================================================
// Fixtures
// ============================================================================

var benchDepts = []string{"Eng", "Ops", "Sales", "Support", "Finance"}

// benchRows builds n deterministic rows with a mix of text, set, number and
// date values, including some empty cells.
func benchRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		var sal any = float64((i * 7919) % 100000)
		if i%17 == 0 {
			sal = nil
		}
		rows[i] = Row{ID: strconv.Itoa(i), Fields: map[string]any{
			"name":  "user" + strconv.Itoa((i*31)%n),
			"dept":  benchDepts[i%len(benchDepts)],
			"sal":   sal,
			"start": "20" + strconv.Itoa(10+i%15) + "-0" + strconv.Itoa(1+i%9) + "-15",
		}}
	}
	return rows
}

func benchState(b *testing.B, ts ...Transition) GridState {
	b.Helper()
	s := NewGridState(employeeColumns(), 0)
	for _, tr := range ts {
		next, err := tr.apply(s)
		if err != nil {
			b.Fatalf("%s: %v", tr.Name(), err)
		}
		s = next
	}
	return s
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// BenchmarkCompute_Flat benchmarks a full filter -> sort -> paginate run.
func BenchmarkCompute_Flat(b *testing.B) {
	rows := benchRows(10000)
	s := benchState(b,
		SetSort{Specs: []SortSpec{{Field: "dept", Direction: SortAsc}, {Field: "sal", Direction: SortDesc}}},
		SetFilter{Field: "sal", Value: SimpleFilter{Operator: OpGreaterThan, Value: 25000}},
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(rows, s, PipelineOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompute_Grouped benchmarks grouping with aggregates and every
// group expanded.
func BenchmarkCompute_Grouped(b *testing.B) {
	rows := benchRows(10000)
	s := benchState(b, SetGroupBy{Fields: []string{"dept"}}, SetGroupsExpanded{Keys: groupKeys("dept"), Expanded: true})
	opts := PipelineOptions{Aggregates: []AggregateConfig{{Field: "sal", Func: AggSum}, {Field: "sal", Func: AggAvg}}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(rows, s, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func groupKeys(field string) []string {
	keys := make([]string, len(benchDepts))
	for i, d := range benchDepts {
		keys[i] = GroupKey("", field, d)
	}
	return keys
}

// BenchmarkPipeline_Memoized benchmarks re-running after a transition that
// touches no pipeline stage. It should cost a fraction of a full run.
func BenchmarkPipeline_Memoized(b *testing.B) {
	rows := benchRows(10000)
	s := benchState(b, SetSort{Specs: []SortSpec{{Field: "name", Direction: SortAsc}}})
	p := NewPipeline(PipelineOptions{})
	if _, err := p.Run(rows, 1, s); err != nil {
		b.Fatal(err)
	}
	selections := []GridState{
		benchState(b, SetSort{Specs: []SortSpec{{Field: "name", Direction: SortAsc}}}, SetSelection{IDs: []string{"1"}}),
		benchState(b, SetSort{Specs: []SortSpec{{Field: "name", Direction: SortAsc}}}, SetSelection{IDs: []string{"2"}}),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Run(rows, 1, selections[i%2]); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Stage Benchmarks
// ============================================================================

func BenchmarkFilterRows_Quick(b *testing.B) {
	rows := benchRows(10000)
	cfg := FilterConfig{QuickFilter: "user12", QuickFields: []string{"name", "dept"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FilterRows(rows, cfg)
	}
}

func BenchmarkFilterRows_Set(b *testing.B) {
	rows := benchRows(10000)
	cfg := FilterConfig{
		Filters: map[string]FilterValue{"dept": SimpleFilter{Operator: OpIn, Values: []any{"Eng", "Ops"}}},
		Kinds:   map[string]FilterKind{"dept": FilterSet},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FilterRows(rows, cfg)
	}
}

func BenchmarkSortRows_MultiKey(b *testing.B) {
	rows := benchRows(10000)
	specs := []SortSpec{{Field: "dept", Direction: SortAsc}, {Field: "start", Direction: SortDesc}}
	kinds := map[string]FilterKind{"dept": FilterSet, "start": FilterDate}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SortRows(rows, specs, kinds)
	}
}

func BenchmarkComputeVisibleRowRange_Variable(b *testing.B) {
	heights := make([]float64, 100000)
	for i := range heights {
		heights[i] = float64(20 + i%3*10)
	}
	h := VariableHeights(heights)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeVisibleRowRange(float64(i%2000000), 600, h, 5)
	}
}

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkCleanCell benchmarks the cell cleanup applied to every imported
// CSV cell.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"simple",
		"  whitespace  ",
		"=\"00123\"",
		"=SUM(A1)",
		"'quoted'",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

func BenchmarkToNumberParallel(b *testing.B) {
	values := []any{120.0, "1,234.5", 42, "n/a", nil}
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			ToNumber(values[i%len(values)])
			i++
		}
	})
}

func BenchmarkToDateParallel(b *testing.B) {
	values := []any{"2024-01-15", "2024-01-15T10:30:00Z", "not a date"}
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			ToDate(values[i%len(values)])
			i++
		}
	})
}
