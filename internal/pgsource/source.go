// Package pgsource serves grid rows from a PostgreSQL table. It implements
// core.DataSource: sort and filter models become ORDER BY and WHERE clauses,
// and row windows become LIMIT/OFFSET.
package pgsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// Querier is the subset of *pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

// Options describes the table behind a source.
type Options struct {
	Table string

	// IDColumn is the column whose value becomes Row.ID (default "id").
	IDColumn string

	// Columns are the grid columns served. Each maps to ColumnMap[field] or,
	// when absent, to the snake_case form of the field.
	Columns   []core.Column
	ColumnMap map[string]string

	Logger *slog.Logger
}

// Source implements core.DataSource over one table.
type Source struct {
	db       Querier
	table    string
	idColumn string
	fields   []string
	dbCols   map[string]string
	kinds    map[string]core.FilterKind
	sortable map[string]bool
	quick    []string
	logger   *slog.Logger
}

var _ core.DataSource = (*Source)(nil)

// New builds a source. It fails when the table or columns are missing.
func New(db Querier, opts Options) (*Source, error) {
	if opts.Table == "" {
		return nil, errors.New("pgsource: table is required")
	}
	if len(opts.Columns) == 0 {
		return nil, errors.New("pgsource: at least one column is required")
	}
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Source{
		db:       db,
		table:    opts.Table,
		idColumn: opts.IDColumn,
		dbCols:   make(map[string]string, len(opts.Columns)),
		kinds:    make(map[string]core.FilterKind, len(opts.Columns)),
		sortable: make(map[string]bool, len(opts.Columns)),
		logger:   opts.Logger.With("table", opts.Table),
	}
	for _, c := range opts.Columns {
		col := opts.ColumnMap[c.Field]
		if col == "" {
			col = toDBColumnName(c.Field)
		}
		s.fields = append(s.fields, c.Field)
		s.dbCols[c.Field] = col
		s.kinds[c.Field] = c.Kind()
		s.sortable[c.Field] = c.Sortable
		if c.Filterable {
			s.quick = append(s.quick, col)
		}
	}
	return s, nil
}

// FetchPage returns rows [StartRow, EndRow) of the sorted, filtered table and
// the size of the whole filtered result.
func (s *Source) FetchPage(ctx context.Context, req core.PageRequest) (core.PageResult, error) {
	if req.StartRow < 0 || req.EndRow < req.StartRow {
		return core.PageResult{}, fmt.Errorf("pgsource: invalid row range [%d, %d)", req.StartRow, req.EndRow)
	}

	where, args := s.where(req).Build()
	from := " FROM " + quoteTable(s.table)

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return core.PageResult{}, fmt.Errorf("count %s: %w", s.table, err)
	}

	limit := req.EndRow - req.StartRow
	if limit == 0 || int64(req.StartRow) >= total {
		return core.PageResult{Rows: []core.Row{}, TotalCount: int(total)}, nil
	}

	query := s.selectList() + from + where + s.orderBy(req.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, req.StartRow)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return core.PageResult{}, fmt.Errorf("query %s: %w", s.table, err)
	}
	out, err := pgx.CollectRows(rows, s.scanRow)
	if err != nil {
		return core.PageResult{}, fmt.Errorf("scan %s: %w", s.table, err)
	}

	s.logger.Debug("page fetched",
		"start", req.StartRow,
		"end", req.EndRow,
		"rows", len(out),
		"total", total,
	)
	return core.PageResult{Rows: out, TotalCount: int(total)}, nil
}

// ChildLoader returns a NodeLoader that reads the rows whose parentField
// holds the expanded node's id.
func (s *Source) ChildLoader(parentField string) core.NodeLoader {
	col, ok := s.dbCols[parentField]
	if !ok {
		col = toDBColumnName(parentField)
	}
	return core.NodeLoaderFunc(func(ctx context.Context, node core.TreeNode) ([]core.Row, error) {
		wb := NewWhereBuilder()
		wb.Add(col, node.NodeID)
		where, args := wb.Build()
		if where == "" {
			return nil, nil
		}

		query := s.selectList() + " FROM " + quoteTable(s.table) + where +
			" ORDER BY " + quoteIdentifier(s.idColumn) + " ASC"
		rows, err := s.db.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("load children of %s: %w", node.NodeID, err)
		}
		children, err := pgx.CollectRows(rows, s.scanRow)
		if err != nil {
			return nil, fmt.Errorf("scan children of %s: %w", node.NodeID, err)
		}
		s.logger.Debug("children loaded", "node", node.NodeID, "rows", len(children))
		return children, nil
	})
}

func (s *Source) where(req core.PageRequest) *WhereBuilder {
	wb := NewWhereBuilder()
	for _, field := range s.fields {
		spec, ok := req.Filters[field]
		if !ok {
			continue
		}
		wb.AddFilter(s.dbCols[field], s.kinds[field], spec.Filter())
	}
	for field := range req.Filters {
		if _, ok := s.dbCols[field]; !ok {
			s.logger.Debug("filter on unknown field ignored", "field", field)
		}
	}
	wb.AddSearch(req.QuickFilter, s.quick)
	return wb
}

// orderBy renders the sort model. Nulls sort last in both directions and the
// id column breaks ties so paging is stable.
func (s *Source) orderBy(specs []core.SortSpec) string {
	var parts []string
	for _, spec := range specs {
		col, ok := s.dbCols[spec.Field]
		if !ok || !s.sortable[spec.Field] {
			continue
		}
		switch spec.Direction {
		case core.SortAsc:
			parts = append(parts, quoteIdentifier(col)+" ASC NULLS LAST")
		case core.SortDesc:
			parts = append(parts, quoteIdentifier(col)+" DESC NULLS LAST")
		}
	}
	parts = append(parts, quoteIdentifier(s.idColumn)+" ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func (s *Source) selectList() string {
	cols := make([]string, 0, len(s.fields)+1)
	cols = append(cols, quoteIdentifier(s.idColumn))
	for _, f := range s.fields {
		cols = append(cols, quoteIdentifier(s.dbCols[f]))
	}
	return "SELECT " + strings.Join(cols, ", ")
}

// scanRow maps a result row (id first, then one value per field) to a Row.
func (s *Source) scanRow(row pgx.CollectableRow) (core.Row, error) {
	values, err := row.Values()
	if err != nil {
		return core.Row{}, err
	}
	if len(values) != len(s.fields)+1 {
		return core.Row{}, fmt.Errorf("got %d columns, want %d", len(values), len(s.fields)+1)
	}
	fields := make(map[string]any, len(s.fields))
	for i, f := range s.fields {
		fields[f] = normalize(values[i+1])
	}
	return core.Row{ID: core.ToText(normalize(values[0])), Fields: fields}, nil
}

// normalize converts driver values into the types the grid engines compare.
func normalize(v any) any {
	switch x := v.(type) {
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return uuid.UUID(x.Bytes).String()
	}
	return v
}

// quoteTable quotes an optionally schema-qualified table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
