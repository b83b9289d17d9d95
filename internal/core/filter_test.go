package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatches_Simple(t *testing.T) {
	kinds := map[string]FilterKind{"name": FilterText, "dept": FilterSet, "sal": FilterNumber, "start": FilterDate}

	tests := []struct {
		name   string
		field  string
		filter FilterValue
		want   []string
	}{
		// text
		{"contains is case-insensitive", "name", SimpleFilter{Operator: OpContains, Value: "A"}, []string{"1", "2", "4"}},
		{"default text operator is contains", "name", SimpleFilter{Value: "in"}, []string{"3"}},
		{"notContains", "name", SimpleFilter{Operator: OpNotContains, Value: "a"}, []string{"3", "5"}},
		{"equals", "name", SimpleFilter{Operator: OpEquals, Value: "ken"}, []string{"5"}},
		{"notEquals", "name", SimpleFilter{Operator: OpNotEquals, Value: "ken"}, []string{"1", "2", "3", "4"}},
		{"startsWith", "name", SimpleFilter{Operator: OpStartsWith, Value: "gr"}, []string{"2"}},
		{"endsWith", "name", SimpleFilter{Operator: OpEndsWith, Value: "A"}, []string{"1", "4"}},

		// number
		{"greaterThan", "sal", SimpleFilter{Operator: OpGreaterThan, Value: 75}, []string{"1", "2"}},
		{"lessThanOrEqual", "sal", SimpleFilter{Operator: OpLessThanOrEqual, Value: "100"}, []string{"1", "3"}},
		{"inRange is inclusive", "sal", SimpleFilter{Operator: OpInRange, Value: 50, Value2: 100}, []string{"1", "3"}},
		{"notEquals fails closed on non-numeric", "sal", SimpleFilter{Operator: OpNotEquals, Value: 100}, []string{"2", "3"}},
		{"isEmpty", "sal", SimpleFilter{Operator: OpIsEmpty}, []string{"4"}},
		{"isNotEmpty", "sal", SimpleFilter{Operator: OpIsNotEmpty}, []string{"1", "2", "3", "5"}},

		// date
		{"date equals at day granularity", "start", SimpleFilter{Operator: OpEquals, Value: "2021-03-01T18:00:00Z"}, []string{"1"}},
		{"before", "start", SimpleFilter{Operator: OpBefore, Value: "2020-12-31"}, []string{"2", "5"}},
		{"after", "start", SimpleFilter{Operator: OpAfter, Value: "2021-03-01"}, []string{"3"}},
		{"date inRange", "start", SimpleFilter{Operator: OpInRange, Value: "2020-01-01", Value2: "2021-12-31"}, []string{"1", "5"}},

		// set
		{"set membership", "dept", SimpleFilter{Values: []any{"Eng", "Ops"}}, []string{"1", "2", "4"}},
		{"set notIn", "dept", SimpleFilter{Operator: OpNotIn, Values: []any{"Eng"}}, []string{"3", "4", "5"}},
		{"empty set matches nothing", "dept", SimpleFilter{Values: []any{}}, nil},
		{"nil set is no constraint", "dept", SimpleFilter{}, []string{"1", "2", "3", "4", "5"}},

		// malformed
		{"unknown operator is no constraint", "name", SimpleFilter{Operator: "fuzzy", Value: "x"}, []string{"1", "2", "3", "4", "5"}},
		{"missing operand is no constraint", "sal", SimpleFilter{Operator: OpGreaterThan}, []string{"1", "2", "3", "4", "5"}},
		{"inRange needs both bounds", "sal", SimpleFilter{Operator: OpInRange, Value: 10}, []string{"1", "2", "3", "4", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FilterConfig{Filters: map[string]FilterValue{tt.field: tt.filter}, Kinds: kinds}
			got := ids(FilterRows(employees(), cfg))
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterRows() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatches_Advanced(t *testing.T) {
	tests := []struct {
		name   string
		filter AdvancedFilter
		want   []string
	}{
		{
			name: "AND requires all",
			filter: AdvancedFilter{Combinator: CombineAnd, Conditions: []FilterCondition{
				{Operator: OpGreaterThanOrEqual, Value: 50},
				{Operator: OpLessThan, Value: 200},
			}},
			want: []string{"1", "3"},
		},
		{
			name: "OR requires one",
			filter: AdvancedFilter{Combinator: CombineOr, Conditions: []FilterCondition{
				{Operator: OpEquals, Value: 50},
				{Operator: OpEquals, Value: 200},
			}},
			want: []string{"2", "3"},
		},
		{
			name: "inactive conditions are ignored",
			filter: AdvancedFilter{Combinator: CombineAnd, Conditions: []FilterCondition{
				{Operator: OpGreaterThan, Value: 150},
				{Operator: OpInRange, Value: 1},
				{Operator: OpIn},
			}},
			want: []string{"2"},
		},
		{
			name: "in list",
			filter: AdvancedFilter{Combinator: CombineOr, Conditions: []FilterCondition{
				{Operator: OpIn, Values: []any{"100", 50}},
			}},
			want: []string{"1", "3"},
		},
		{
			name:   "unknown combinator is no constraint",
			filter: AdvancedFilter{Combinator: "XOR", Conditions: []FilterCondition{{Operator: OpEquals, Value: 1}}},
			want:   []string{"1", "2", "3", "4", "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FilterConfig{Filters: map[string]FilterValue{"sal": tt.filter}}
			if diff := cmp.Diff(tt.want, ids(FilterRows(employees(), cfg))); diff != "" {
				t.Errorf("FilterRows() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatches_FieldsAreANDed(t *testing.T) {
	cfg := FilterConfig{
		Filters: map[string]FilterValue{
			"dept": SimpleFilter{Values: []any{"Eng", "Sales"}},
			"sal":  SimpleFilter{Operator: OpGreaterThan, Value: 60},
		},
		Kinds: map[string]FilterKind{"dept": FilterSet, "sal": FilterNumber},
	}
	if diff := cmp.Diff([]string{"1", "2"}, ids(FilterRows(employees(), cfg))); diff != "" {
		t.Errorf("FilterRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterRows_NoFiltersRestoresAll(t *testing.T) {
	rows := employees()
	got := FilterRows(rows, FilterConfig{})
	if len(got) != len(rows) {
		t.Errorf("len = %d, want %d", len(got), len(rows))
	}
	got[0] = Row{ID: "changed"}
	if rows[0].ID != "1" {
		t.Error("FilterRows must not alias its input")
	}
}

func TestMatches_QuickFilter(t *testing.T) {
	cfg := FilterConfig{QuickFilter: "  SAL ", QuickFields: []string{"name", "dept"}}
	if diff := cmp.Diff([]string{"3", "5"}, ids(FilterRows(employees(), cfg))); diff != "" {
		t.Errorf("quick filter mismatch (-want +got):\n%s", diff)
	}

	cfg.Filters = map[string]FilterValue{"name": SimpleFilter{Value: "ken"}}
	if diff := cmp.Diff([]string{"5"}, ids(FilterRows(employees(), cfg))); diff != "" {
		t.Errorf("quick filter with field filter mismatch (-want +got):\n%s", diff)
	}
}

func TestIsFilterActive(t *testing.T) {
	tests := []struct {
		name string
		fv   FilterValue
		kind FilterKind
		want bool
	}{
		{"text with value", SimpleFilter{Value: "x"}, FilterText, true},
		{"text without value", SimpleFilter{}, FilterText, false},
		{"isEmpty needs no value", SimpleFilter{Operator: OpIsEmpty}, FilterNumber, true},
		{"set nil", SimpleFilter{}, FilterSet, false},
		{"set empty list", SimpleFilter{Values: []any{}}, FilterSet, true},
		{"advanced all inactive", AdvancedFilter{Combinator: CombineAnd, Conditions: []FilterCondition{{Operator: OpInRange, Value: 1}}}, FilterNumber, false},
		{"advanced one active", AdvancedFilter{Combinator: CombineOr, Conditions: []FilterCondition{{Operator: OpIn, Values: []any{1}}}}, FilterNumber, true},
	}
	for _, tt := range tests {
		if got := IsFilterActive(tt.fv, tt.kind); got != tt.want {
			t.Errorf("%s: IsFilterActive = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilterSpec_Shape(t *testing.T) {
	adv := FilterSpec{Combinator: CombineOr, Conditions: []FilterCondition{{Operator: OpEquals, Value: 1}}}
	if _, ok := adv.Filter().(AdvancedFilter); !ok {
		t.Errorf("spec with combinator and conditions = %T, want AdvancedFilter", adv.Filter())
	}

	simple := FilterSpec{Combinator: CombineOr, Operator: OpEquals, Value: 1}
	if _, ok := simple.Filter().(SimpleFilter); !ok {
		t.Errorf("spec without conditions = %T, want SimpleFilter", simple.Filter())
	}

	fv := SimpleFilter{Operator: OpInRange, Value: 1, Value2: 5}
	if diff := cmp.Diff(FilterValue(fv), SpecOf(fv).Filter()); diff != "" {
		t.Errorf("SpecOf round trip mismatch (-want +got):\n%s", diff)
	}
}
