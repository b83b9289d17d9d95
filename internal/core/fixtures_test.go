package core

import "testing"

// row builds a Row from alternating field/value pairs.
func row(id string, kv ...any) Row {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1]
	}
	return Row{ID: id, Fields: fields}
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func displayIDs(rows []DisplayRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

// employees is the dataset used across the pipeline tests.
func employees() []Row {
	return []Row{
		row("1", "name", "Ada", "dept", "Eng", "sal", 100, "start", "2021-03-01"),
		row("2", "name", "Grace", "dept", "Eng", "sal", 200, "start", "2019-07-15"),
		row("3", "name", "Linus", "dept", "Sales", "sal", 50, "start", "2022-01-10"),
		row("4", "name", "Barbara", "dept", "Ops", "sal", nil, "start", ""),
		row("5", "name", "Ken", "dept", "Sales", "sal", "n/a", "start", "2020-11-30"),
	}
}

func employeeColumns() []Column {
	return []Column{
		{Field: "name", Sortable: true, Filterable: true, Pinnable: true},
		{Field: "dept", Sortable: true, Filterable: true, FilterKind: FilterSet},
		{Field: "sal", Sortable: true, Filterable: true, FilterKind: FilterNumber, Width: 80},
		{Field: "start", Sortable: true, Filterable: true, FilterKind: FilterDate},
	}
}

func mustState(t *testing.T, s GridState, ts ...Transition) GridState {
	t.Helper()
	for _, tr := range ts {
		next, err := tr.apply(s)
		if err != nil {
			t.Fatalf("%s: %v", tr.Name(), err)
		}
		s = next
	}
	return s
}
