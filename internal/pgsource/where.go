package pgsource

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// WhereBuilder accumulates AND-ed SQL conditions with positional ($n) args.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = value" with a quoted column. Empty values are skipped.
func (wb *WhereBuilder) Add(column string, value any) {
	if core.IsEmpty(value) {
		return
	}
	wb.push(fmt.Sprintf("%s = $%d", quoteIdentifier(column), wb.argIndex), value)
}

// AddSearch matches term case-insensitively as a substring of any of the
// columns. All columns share one placeholder.
func (wb *WhereBuilder) AddSearch(term string, columns []string) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s::text ILIKE $%d", quoteIdentifier(col), wb.argIndex)
	}
	wb.push("("+strings.Join(parts, " OR ")+")", "%"+escapeLike(term)+"%")
}

// AddFilter appends the condition a field filter imposes on column. Filters
// that do not constrain anything add nothing.
func (wb *WhereBuilder) AddFilter(column string, kind core.FilterKind, fv core.FilterValue) {
	var (
		sql  string
		args []any
	)
	switch f := fv.(type) {
	case core.SimpleFilter:
		sql, args, wb.argIndex = buildSimple(column, kind, f, wb.argIndex)
	case core.AdvancedFilter:
		sql, args, wb.argIndex = buildAdvanced(column, kind, f, wb.argIndex)
	}
	if sql != "" {
		wb.conditions = append(wb.conditions, sql)
		wb.args = append(wb.args, args...)
	}
}

// Build returns " WHERE ..." and its args, or "" and nil when empty.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex is the placeholder number the next argument will take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

func (wb *WhereBuilder) push(cond string, arg any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

func buildSimple(column string, kind core.FilterKind, f core.SimpleFilter, argIdx int) (string, []any, int) {
	if kind == "" {
		kind = core.FilterText
	}
	op := core.DefaultOperator(f.Operator, kind)

	if kind == core.FilterSet && (op == core.OpIn || op == core.OpNotIn) {
		if f.Values == nil {
			return "", nil, argIdx
		}
		if len(f.Values) == 0 {
			if op == core.OpNotIn {
				return "", nil, argIdx
			}
			return "FALSE", nil, argIdx
		}
	}

	c := core.FilterCondition{Operator: op, Value: f.Value, Value2: f.Value2, Values: f.Values, Kind: kind}
	if !core.ConditionActive(c) {
		return "", nil, argIdx
	}
	return buildCondition(column, c, argIdx)
}

func buildAdvanced(column string, kind core.FilterKind, f core.AdvancedFilter, argIdx int) (string, []any, int) {
	if f.Combinator != core.CombineAnd && f.Combinator != core.CombineOr {
		return "", nil, argIdx
	}
	var (
		parts []string
		args  []any
	)
	for _, c := range f.Conditions {
		if !core.ConditionActive(c) {
			continue
		}
		if c.Kind == "" {
			c.Kind = kind
		}
		sql, a, next := buildCondition(column, c, argIdx)
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		args = append(args, a...)
		argIdx = next
	}
	if len(parts) == 0 {
		return "", nil, argIdx
	}
	if len(parts) == 1 {
		return parts[0], args, argIdx
	}
	return "(" + strings.Join(parts, " "+string(f.Combinator)+" ") + ")", args, argIdx
}

// buildCondition renders one active condition. It returns the SQL fragment,
// its args and the next placeholder index; unknown operators render nothing.
func buildCondition(column string, c core.FilterCondition, argIdx int) (string, []any, int) {
	col := quoteIdentifier(column)

	switch c.Operator {
	case core.OpIsEmpty:
		return fmt.Sprintf("(%s IS NULL OR btrim(%s::text) = '')", col, col), nil, argIdx
	case core.OpIsNotEmpty:
		return fmt.Sprintf("(%s IS NOT NULL AND btrim(%s::text) <> '')", col, col), nil, argIdx
	case core.OpIn:
		return fmt.Sprintf("%s::text = ANY($%d)", col, argIdx), []any{texts(c.Values)}, argIdx + 1
	case core.OpNotIn:
		return fmt.Sprintf("(%s IS NULL OR %s::text <> ALL($%d))", col, col, argIdx), []any{texts(c.Values)}, argIdx + 1
	}

	switch conditionKind(c) {
	case core.FilterNumber:
		return buildNumber(col, c, argIdx)
	case core.FilterDate:
		return buildDate(col, c, argIdx)
	default:
		return buildText(col, c, argIdx)
	}
}

func conditionKind(c core.FilterCondition) core.FilterKind {
	switch c.Operator {
	case core.OpContains, core.OpNotContains, core.OpStartsWith, core.OpEndsWith:
		return core.FilterText
	case core.OpBefore, core.OpAfter:
		return core.FilterDate
	}
	if c.Kind == core.FilterNumber || c.Kind == core.FilterDate {
		return c.Kind
	}
	switch c.Operator {
	case core.OpGreaterThan, core.OpGreaterThanOrEqual, core.OpLessThan, core.OpLessThanOrEqual, core.OpInRange:
		if _, ok := core.ToNumber(c.Value); ok {
			return core.FilterNumber
		}
		return core.FilterDate
	}
	return core.FilterText
}

func buildText(col string, c core.FilterCondition, argIdx int) (string, []any, int) {
	v := core.ToText(c.Value)
	switch c.Operator {
	case core.OpContains:
		return fmt.Sprintf("%s::text ILIKE $%d", col, argIdx), []any{"%" + escapeLike(v) + "%"}, argIdx + 1
	case core.OpNotContains:
		return fmt.Sprintf("(%s IS NULL OR %s::text NOT ILIKE $%d)", col, col, argIdx), []any{"%" + escapeLike(v) + "%"}, argIdx + 1
	case core.OpStartsWith:
		return fmt.Sprintf("%s::text ILIKE $%d", col, argIdx), []any{escapeLike(v) + "%"}, argIdx + 1
	case core.OpEndsWith:
		return fmt.Sprintf("%s::text ILIKE $%d", col, argIdx), []any{"%" + escapeLike(v)}, argIdx + 1
	case core.OpEquals:
		return fmt.Sprintf("lower(%s::text) = lower($%d)", col, argIdx), []any{v}, argIdx + 1
	case core.OpNotEquals:
		return fmt.Sprintf("(%s IS NULL OR lower(%s::text) <> lower($%d))", col, col, argIdx), []any{v}, argIdx + 1
	}
	return "", nil, argIdx
}

var comparisons = map[core.Operator]string{
	core.OpEquals:             "=",
	core.OpNotEquals:          "<>",
	core.OpGreaterThan:        ">",
	core.OpGreaterThanOrEqual: ">=",
	core.OpLessThan:           "<",
	core.OpLessThanOrEqual:    "<=",
	core.OpBefore:             "<",
	core.OpAfter:              ">",
}

// buildNumber ignores operands that are not numeric, matching the in-memory
// filter.
func buildNumber(col string, c core.FilterCondition, argIdx int) (string, []any, int) {
	lo, ok := core.ToNumber(c.Value)
	if !ok {
		return "", nil, argIdx
	}
	if c.Operator == core.OpInRange {
		hi, ok := core.ToNumber(c.Value2)
		if !ok {
			return "", nil, argIdx
		}
		lo, hi = min(lo, hi), max(lo, hi)
		return fmt.Sprintf("%s BETWEEN $%d AND $%d", col, argIdx, argIdx+1), []any{lo, hi}, argIdx + 2
	}
	cmp, ok := comparisons[c.Operator]
	if !ok {
		return "", nil, argIdx
	}
	return fmt.Sprintf("%s %s $%d", col, cmp, argIdx), []any{lo}, argIdx + 1
}

// buildDate compares at day granularity.
func buildDate(col string, c core.FilterCondition, argIdx int) (string, []any, int) {
	lo, ok := core.ToDate(c.Value)
	if !ok {
		return "", nil, argIdx
	}
	day := fmt.Sprintf("%s::date", col)
	if c.Operator == core.OpInRange {
		hi, ok := core.ToDate(c.Value2)
		if !ok {
			return "", nil, argIdx
		}
		if hi.Before(lo) {
			lo, hi = hi, lo
		}
		return fmt.Sprintf("%s BETWEEN $%d::date AND $%d::date", day, argIdx, argIdx+1),
			[]any{lo.Format("2006-01-02"), hi.Format("2006-01-02")}, argIdx + 2
	}
	cmp, ok := comparisons[c.Operator]
	if !ok {
		return "", nil, argIdx
	}
	return fmt.Sprintf("%s %s $%d::date", day, cmp, argIdx), []any{lo.Format("2006-01-02")}, argIdx + 1
}

func texts(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = core.ToText(v)
	}
	return out
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// quoteIdentifier safely quotes a PostgreSQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// toDBColumnName converts a field name to a database column name.
// "Unit Price" -> "unit_price"
func toDBColumnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}
