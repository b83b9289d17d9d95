package core

import (
	"strings"
	"time"
)

// Operator is a comparison operator for filters.
type Operator string

const (
	OpContains           Operator = "contains"
	OpNotContains        Operator = "notContains"
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpStartsWith         Operator = "startsWith"
	OpEndsWith           Operator = "endsWith"
	OpIsEmpty            Operator = "isEmpty"
	OpIsNotEmpty         Operator = "isNotEmpty"
	OpGreaterThan        Operator = "greaterThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpInRange            Operator = "inRange"
	OpBefore             Operator = "before"
	OpAfter              Operator = "after"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "notIn"
)

// Combinator joins the conditions of an advanced filter.
type Combinator string

const (
	CombineAnd Combinator = "AND"
	CombineOr  Combinator = "OR"
)

// FilterValue is the filter configured for one field: either a SimpleFilter
// or an AdvancedFilter.
type FilterValue interface {
	filterValue()
}

// SimpleFilter is evaluated according to the column's declared filter kind.
// Value2 is the upper bound for inRange; Values is the accepted list for set
// filters and in/notIn.
type SimpleFilter struct {
	Operator Operator
	Value    any
	Value2   any
	Values   []any
}

// AdvancedFilter combines several conditions on one field.
type AdvancedFilter struct {
	Combinator Combinator
	Conditions []FilterCondition
}

func (SimpleFilter) filterValue()   {}
func (AdvancedFilter) filterValue() {}

// FilterCondition is one condition of an advanced filter. Kind is optional;
// when empty it is inferred from the operator and operand.
type FilterCondition struct {
	Operator Operator   `json:"operator" yaml:"operator"`
	Value    any        `json:"value,omitempty" yaml:"value,omitempty"`
	Value2   any        `json:"value2,omitempty" yaml:"value2,omitempty"`
	Values   []any      `json:"values,omitempty" yaml:"values,omitempty"`
	Kind     FilterKind `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// FilterSpec is the serializable shape of a FilterValue. The presence of both
// combinator and conditions marks an advanced filter.
type FilterSpec struct {
	Operator   Operator          `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value      any               `json:"value,omitempty" yaml:"value,omitempty"`
	Value2     any               `json:"value2,omitempty" yaml:"value2,omitempty"`
	Values     []any             `json:"values" yaml:"values"`
	Combinator Combinator        `json:"combinator,omitempty" yaml:"combinator,omitempty"`
	Conditions []FilterCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Filter converts the wire shape into a FilterValue.
func (s FilterSpec) Filter() FilterValue {
	if s.Combinator != "" && s.Conditions != nil {
		return AdvancedFilter{Combinator: s.Combinator, Conditions: s.Conditions}
	}
	return SimpleFilter{Operator: s.Operator, Value: s.Value, Value2: s.Value2, Values: s.Values}
}

// SpecOf converts a FilterValue into its wire shape.
func SpecOf(v FilterValue) FilterSpec {
	switch f := v.(type) {
	case SimpleFilter:
		return FilterSpec{Operator: f.Operator, Value: f.Value, Value2: f.Value2, Values: f.Values}
	case AdvancedFilter:
		conds := f.Conditions
		if conds == nil {
			conds = []FilterCondition{}
		}
		return FilterSpec{Combinator: f.Combinator, Conditions: conds}
	}
	return FilterSpec{}
}

// FilterConfig is the slice of grid configuration the filter engine reads.
type FilterConfig struct {
	Filters     map[string]FilterValue
	Kinds       map[string]FilterKind
	QuickFilter string
	QuickFields []string
}

// Matches reports whether row satisfies every configured field filter and the
// quick filter. Each field is decided independently; the results are ANDed.
func Matches(row Row, cfg FilterConfig) bool {
	for field, fv := range cfg.Filters {
		if !matchField(row.Value(field), fv, cfg.Kinds[field]) {
			return false
		}
	}
	return matchQuick(row, cfg.QuickFilter, cfg.QuickFields)
}

// FilterRows returns the rows that match cfg, preserving order.
// The input slice is not modified.
func FilterRows(rows []Row, cfg FilterConfig) []Row {
	if len(cfg.Filters) == 0 && strings.TrimSpace(cfg.QuickFilter) == "" {
		out := make([]Row, len(rows))
		copy(out, rows)
		return out
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if Matches(r, cfg) {
			out = append(out, r)
		}
	}
	return out
}

func matchQuick(row Row, term string, fields []string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(ToText(row.Value(f))), term) {
			return true
		}
	}
	return false
}

func matchField(v any, fv FilterValue, kind FilterKind) bool {
	switch f := fv.(type) {
	case SimpleFilter:
		return matchSimple(v, f, kind)
	case AdvancedFilter:
		return matchAdvanced(v, f)
	}
	return true
}

// IsFilterActive reports whether fv constrains rows at all for a column of
// the given kind.
func IsFilterActive(fv FilterValue, kind FilterKind) bool {
	switch f := fv.(type) {
	case SimpleFilter:
		if kind == FilterSet && (f.Operator == "" || f.Operator == OpIn || f.Operator == OpNotIn) {
			return f.Values != nil
		}
		return conditionActive(FilterCondition{
			Operator: defaultOperator(f.Operator, kind),
			Value:    f.Value,
			Value2:   f.Value2,
			Values:   f.Values,
		})
	case AdvancedFilter:
		if f.Combinator != CombineAnd && f.Combinator != CombineOr {
			return false
		}
		for _, c := range f.Conditions {
			if conditionActive(c) {
				return true
			}
		}
	}
	return false
}

func defaultOperator(op Operator, kind FilterKind) Operator {
	if op != "" {
		return op
	}
	switch kind {
	case FilterNumber, FilterDate:
		return OpEquals
	case FilterSet:
		return OpIn
	default:
		return OpContains
	}
}

func matchSimple(v any, f SimpleFilter, kind FilterKind) bool {
	if kind == "" {
		kind = FilterText
	}
	op := defaultOperator(f.Operator, kind)

	if kind == FilterSet && (op == OpIn || op == OpNotIn) {
		if f.Values == nil {
			return true
		}
		member := inValues(v, f.Values)
		if op == OpNotIn {
			return !member
		}
		return member
	}

	c := FilterCondition{Operator: op, Value: f.Value, Value2: f.Value2, Values: f.Values, Kind: kind}
	if !conditionActive(c) {
		return true
	}
	return evalCondition(v, c)
}

func matchAdvanced(v any, f AdvancedFilter) bool {
	if f.Combinator != CombineAnd && f.Combinator != CombineOr {
		return true
	}
	active := make([]FilterCondition, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		if conditionActive(c) {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return true
	}
	if f.Combinator == CombineAnd {
		for _, c := range active {
			if !evalCondition(v, c) {
				return false
			}
		}
		return true
	}
	for _, c := range active {
		if evalCondition(v, c) {
			return true
		}
	}
	return false
}

// conditionActive reports whether a condition carries enough operands to be
// evaluated. Unknown operators are never active.
func conditionActive(c FilterCondition) bool {
	switch c.Operator {
	case OpIsEmpty, OpIsNotEmpty:
		return true
	case OpInRange:
		return !IsEmpty(c.Value) && !IsEmpty(c.Value2)
	case OpIn, OpNotIn:
		return len(c.Values) > 0
	case OpContains, OpNotContains, OpEquals, OpNotEquals, OpStartsWith, OpEndsWith,
		OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpBefore, OpAfter:
		return !IsEmpty(c.Value)
	}
	return false
}

// evalCondition evaluates an active condition against v.
func evalCondition(v any, c FilterCondition) bool {
	switch c.Operator {
	case OpIsEmpty:
		return IsEmpty(v)
	case OpIsNotEmpty:
		return !IsEmpty(v)
	case OpIn:
		return inValues(v, c.Values)
	case OpNotIn:
		return !inValues(v, c.Values)
	}

	switch conditionKind(v, c) {
	case FilterNumber:
		return evalNumber(v, c)
	case FilterDate:
		return evalDate(v, c)
	default:
		return evalText(v, c)
	}
}

// conditionKind resolves how a condition compares values. A declared kind
// wins; otherwise the operator and operand decide.
func conditionKind(v any, c FilterCondition) FilterKind {
	if c.Kind != "" && c.Kind != FilterSet {
		return c.Kind
	}
	switch c.Operator {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return FilterText
	case OpBefore, OpAfter:
		return FilterDate
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		if _, ok := c.Value.(time.Time); ok {
			return FilterDate
		}
		return FilterNumber
	}
	if _, ok := c.Value.(time.Time); ok {
		return FilterDate
	}
	if _, ok := ToNumber(c.Value); ok {
		if c.Operator == OpInRange {
			return FilterNumber
		}
		if _, ok := ToNumber(v); ok {
			return FilterNumber
		}
	}
	if c.Operator == OpInRange {
		if _, ok := ToDate(c.Value); ok {
			return FilterDate
		}
	}
	return FilterText
}

func evalText(v any, c FilterCondition) bool {
	s := strings.ToLower(ToText(v))
	t := strings.ToLower(ToText(c.Value))
	switch c.Operator {
	case OpContains:
		return strings.Contains(s, t)
	case OpNotContains:
		return !strings.Contains(s, t)
	case OpEquals:
		return s == t
	case OpNotEquals:
		return s != t
	case OpStartsWith:
		return strings.HasPrefix(s, t)
	case OpEndsWith:
		return strings.HasSuffix(s, t)
	}
	return true
}

// evalNumber fails closed: a row value that is not numeric never matches.
// A filter operand that is not numeric imposes no constraint.
func evalNumber(v any, c FilterCondition) bool {
	target, ok := ToNumber(c.Value)
	if !ok {
		return true
	}
	var upper float64
	if c.Operator == OpInRange {
		if upper, ok = ToNumber(c.Value2); !ok {
			return true
		}
	}

	x, ok := ToNumber(v)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return x == target
	case OpNotEquals:
		return x != target
	case OpGreaterThan:
		return x > target
	case OpGreaterThanOrEqual:
		return x >= target
	case OpLessThan:
		return x < target
	case OpLessThanOrEqual:
		return x <= target
	case OpInRange:
		lo, hi := target, upper
		if lo > hi {
			lo, hi = hi, lo
		}
		return x >= lo && x <= hi
	}
	return true
}

// evalDate compares at day granularity and fails closed like evalNumber.
func evalDate(v any, c FilterCondition) bool {
	target, ok := ToDate(c.Value)
	if !ok {
		return true
	}
	var upper time.Time
	if c.Operator == OpInRange {
		if upper, ok = ToDate(c.Value2); !ok {
			return true
		}
	}

	d, ok := ToDate(v)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return d.Equal(target)
	case OpNotEquals:
		return !d.Equal(target)
	case OpBefore, OpLessThan:
		return d.Before(target)
	case OpLessThanOrEqual:
		return !d.After(target)
	case OpAfter, OpGreaterThan:
		return d.After(target)
	case OpGreaterThanOrEqual:
		return !d.Before(target)
	case OpInRange:
		lo, hi := target, upper
		if lo.After(hi) {
			lo, hi = hi, lo
		}
		return !d.Before(lo) && !d.After(hi)
	}
	return true
}

func inValues(v any, values []any) bool {
	key := ValueKey(v)
	for _, candidate := range values {
		if ValueKey(candidate) == key {
			return true
		}
		// Numeric strings from a UI match numeric row values.
		if s, ok := candidate.(string); ok && isNumberType(v) {
			if f, ok := parseNumeric(s); ok {
				if x, _ := ToNumber(v); x == f {
					return true
				}
			}
		}
	}
	return false
}

// DefaultOperator returns op, or the operator a column of kind uses when op
// is empty.
func DefaultOperator(op Operator, kind FilterKind) Operator { return defaultOperator(op, kind) }

// ConditionActive reports whether c carries enough operands to constrain rows.
func ConditionActive(c FilterCondition) bool { return conditionActive(c) }
