package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/logging"
	"github.com/JonMunkholm/gridcore/internal/rowsio"
)

// options holds the flags shared by every subcommand.
type options struct {
	rowsPath   string
	presetPath string
	idField    string
	kinds      map[string]string
	sort       []string
	quick      string
	groupBy    []string
	pageSize   int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "gridctl",
		Short: "Evaluate grid configurations against a data file",
		Long: `gridctl loads rows from a JSON or CSV file and runs them through the same
filter, sort, group and paging pipeline the grid server uses.

A preset (YAML or JSON) supplies the configuration; --sort, --quick and
--group-by are applied on top of it.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(cmd.ErrOrStderr(), o.logLevel, "text")
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&o.rowsPath, "rows", "r", "", "rows file, .json or .csv (required)")
	f.StringVarP(&o.presetPath, "preset", "p", "", "preset file, .yaml, .yml or .json")
	f.StringVar(&o.idField, "id-field", "id", "field holding the row id")
	f.StringToStringVar(&o.kinds, "kind", nil, "filter kind per field, e.g. --kind salary=number")
	f.StringSliceVarP(&o.sort, "sort", "s", nil, "sort as field[:asc|desc], repeatable")
	f.StringVarP(&o.quick, "quick", "q", "", "quick filter term")
	f.StringSliceVarP(&o.groupBy, "group-by", "g", nil, "group by fields")
	f.IntVar(&o.pageSize, "page-size", -1, "rows per page, 0 disables paging (default: preset or 100)")
	f.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	_ = cmd.MarkPersistentFlagRequired("rows")

	cmd.AddCommand(newViewCmd(o))
	cmd.AddCommand(newFacetsCmd(o))
	cmd.AddCommand(newTotalsCmd(o))
	cmd.AddCommand(newPresetCmd(o))
	return cmd
}

// gridOptions are the extras a subcommand adds to the grid it opens.
type gridOptions struct {
	aggregates []core.AggregateConfig
}

// openGrid builds a grid from the rows file, then applies the preset and the
// override flags in that order.
func (o *options) openGrid(extra gridOptions) (*core.Grid, error) {
	data, err := loadRows(o.rowsPath, o.idField)
	if err != nil {
		return nil, err
	}
	cols, err := rowsio.InferColumns(data, o.kinds)
	if err != nil {
		return nil, err
	}

	g, err := core.NewGrid(core.Options{
		ID:         "gridctl",
		Columns:    cols,
		Rows:       data.Rows,
		PageSize:   100,
		Aggregates: extra.aggregates,
		Logger:     slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("create grid: %w", err)
	}

	if o.presetPath != "" {
		p, err := loadPreset(o.presetPath)
		if err != nil {
			return nil, err
		}
		if err := g.ApplyPreset(p); err != nil {
			return nil, fmt.Errorf("apply preset %s: %w", o.presetPath, err)
		}
	}
	if err := o.applyOverrides(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (o *options) applyOverrides(g *core.Grid) error {
	if len(o.sort) > 0 {
		specs, err := parseSort(o.sort)
		if err != nil {
			return err
		}
		if err := g.SetSort(specs...); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
	}
	if o.quick != "" {
		if err := g.SetQuickFilter(o.quick); err != nil {
			return fmt.Errorf("quick filter: %w", err)
		}
	}
	if len(o.groupBy) > 0 {
		if err := g.SetGroupBy(o.groupBy...); err != nil {
			return fmt.Errorf("group by: %w", err)
		}
	}
	if o.pageSize >= 0 {
		if err := g.SetPageSize(o.pageSize); err != nil {
			return fmt.Errorf("page size: %w", err)
		}
	}
	return nil
}

// parseSort reads field[:dir] pairs; the direction defaults to asc.
func parseSort(values []string) ([]core.SortSpec, error) {
	specs := make([]core.SortSpec, 0, len(values))
	for _, v := range values {
		field, dir, _ := strings.Cut(v, ":")
		spec := core.SortSpec{Field: strings.TrimSpace(field), Direction: core.SortAsc}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			spec.Direction = core.SortDesc
		default:
			return nil, fmt.Errorf("sort %q: direction must be asc or desc", v)
		}
		if spec.Field == "" {
			return nil, fmt.Errorf("sort %q: missing field", v)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// parseAggregates reads field:func pairs, e.g. salary:sum.
func parseAggregates(values []string) ([]core.AggregateConfig, error) {
	out := make([]core.AggregateConfig, 0, len(values))
	for _, v := range values {
		field, fn, ok := strings.Cut(v, ":")
		if !ok || field == "" {
			return nil, fmt.Errorf("aggregate %q: want field:func", v)
		}
		switch f := core.AggregateFunc(strings.ToLower(fn)); f {
		case core.AggCount, core.AggSum, core.AggTotal, core.AggAvg, core.AggMin, core.AggMax:
			out = append(out, core.AggregateConfig{Field: field, Func: f})
		default:
			return nil, fmt.Errorf("aggregate %q: unknown function %q", v, fn)
		}
	}
	return out, nil
}
