package pgsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/gridcore/internal/core"
)

const describeQuery = `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

type columnInfo struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
}

// DescribeTable derives grid columns from a table's catalog entry. The id
// column is left out; every other column is sortable and filterable with a
// filter kind chosen from its SQL type.
func DescribeTable(ctx context.Context, db Querier, table, idColumn string) ([]core.Column, error) {
	schema, name := "public", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}
	if idColumn == "" {
		idColumn = "id"
	}

	rows, err := db.Query(ctx, describeQuery, schema, name)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	infos, err := pgx.CollectRows(rows, pgx.RowToStructByName[columnInfo])
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("describe %s: table not found or has no columns", table)
	}

	cols := make([]core.Column, 0, len(infos))
	for _, info := range infos {
		if info.Name == idColumn {
			continue
		}
		cols = append(cols, core.Column{
			Field:      info.Name,
			Sortable:   true,
			Filterable: true,
			FilterKind: filterKindFor(info.DataType),
		})
	}
	return cols, nil
}

func filterKindFor(dataType string) core.FilterKind {
	switch dt := strings.ToLower(dataType); {
	case dt == "smallint", dt == "integer", dt == "bigint", dt == "numeric",
		dt == "real", dt == "double precision", dt == "money":
		return core.FilterNumber
	case dt == "date", strings.HasPrefix(dt, "timestamp"):
		return core.FilterDate
	case dt == "boolean", dt == "user-defined":
		return core.FilterSet
	}
	return core.FilterText
}
