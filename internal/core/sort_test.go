package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSortRows(t *testing.T) {
	kinds := map[string]FilterKind{"sal": FilterNumber, "start": FilterDate}

	tests := []struct {
		name  string
		rows  []Row
		specs []SortSpec
		want  []string
	}{
		{
			name:  "numeric ascending, nulls last",
			rows:  employees(),
			specs: []SortSpec{{Field: "sal", Direction: SortAsc}},
			want:  []string{"3", "1", "2", "5", "4"},
		},
		{
			name:  "numeric descending, nulls still last",
			rows:  employees()[:4],
			specs: []SortSpec{{Field: "sal", Direction: SortDesc}},
			want:  []string{"2", "1", "3", "4"},
		},
		{
			name:  "date ascending, blank last",
			rows:  employees(),
			specs: []SortSpec{{Field: "start", Direction: SortAsc}},
			want:  []string{"2", "5", "1", "3", "4"},
		},
		{
			name:  "multi-key falls through on equality",
			rows:  employees(),
			specs: []SortSpec{{Field: "dept", Direction: SortAsc}, {Field: "name", Direction: SortDesc}},
			want:  []string{"2", "1", "4", "3", "5"},
		},
		{
			name:  "key without direction has no influence",
			rows:  employees(),
			specs: []SortSpec{{Field: "name", Direction: SortNone}},
			want:  []string{"1", "2", "3", "4", "5"},
		},
		{
			name:  "strings compare case-insensitively",
			rows:  []Row{row("b", "v", "b"), row("A", "v", "A"), row("c", "v", "C")},
			specs: []SortSpec{{Field: "v", Direction: SortAsc}},
			want:  []string{"A", "b", "c"},
		},
		{
			name:  "numbers compare numerically without declared kind",
			rows:  []Row{row("a", "v", 10), row("b", "v", 9), row("c", "v", 100)},
			specs: []SortSpec{{Field: "v", Direction: SortAsc}},
			want:  []string{"b", "a", "c"},
		},
		{
			name:  "timestamps compare at full precision",
			rows:  []Row{row("late", "v", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)), row("early", "v", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))},
			specs: []SortSpec{{Field: "v", Direction: SortAsc}},
			want:  []string{"early", "late"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(SortRows(tt.rows, tt.specs, kinds))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SortRows() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortRows_Stable(t *testing.T) {
	var rows []Row
	for i := 0; i < 200; i++ {
		rows = append(rows, row(fmt.Sprintf("r%03d", i), "k", i%3))
	}
	specs := []SortSpec{{Field: "k", Direction: SortAsc}}

	first := SortRows(rows, specs, nil)
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		if a.Value("k") == b.Value("k") && a.ID > b.ID {
			t.Fatalf("equal keys reordered: %s before %s", a.ID, b.ID)
		}
	}

	again := SortRows(first, specs, nil)
	if diff := cmp.Diff(ids(first), ids(again)); diff != "" {
		t.Errorf("re-sort reshuffled equal rows (-first +again):\n%s", diff)
	}
}

func TestSortRows_DoesNotModifyInput(t *testing.T) {
	rows := employees()
	_ = SortRows(rows, []SortSpec{{Field: "name", Direction: SortDesc}}, nil)
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5"}, ids(rows)); diff != "" {
		t.Errorf("input reordered (-want +got):\n%s", diff)
	}
}

func TestCompareValues_NullsLast(t *testing.T) {
	for _, dir := range []SortDirection{SortAsc, SortDesc} {
		if got := CompareValues(nil, 1, dir, FilterNumber); got != 1 {
			t.Errorf("%s: CompareValues(nil, 1) = %d, want 1", dir, got)
		}
		if got := CompareValues("x", "", dir, FilterText); got != -1 {
			t.Errorf("%s: CompareValues(x, blank) = %d, want -1", dir, got)
		}
		if got := CompareValues(nil, "", dir, FilterText); got != 0 {
			t.Errorf("%s: CompareValues(nil, blank) = %d, want 0", dir, got)
		}
	}
}
