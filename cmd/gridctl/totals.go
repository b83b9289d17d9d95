package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gridcore/internal/core"
)

func newTotalsCmd(o *options) *cobra.Command {
	var aggs []string
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Aggregate the filtered rows",
		Long: `Aggregate every row passing the filters.

Examples:
  gridctl totals -r people.csv -a salary:sum -a salary:avg
  gridctl totals -r people.csv -p eng-only.yaml -a salary:max`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(aggs) == 0 {
				return errors.New("at least one --agg field:func is required")
			}
			configs, err := parseAggregates(aggs)
			if err != nil {
				return err
			}
			g, err := o.openGrid(gridOptions{aggregates: configs})
			if err != nil {
				return err
			}
			defer g.Destroy()

			for _, c := range configs {
				if _, ok := g.Column(c.Field); !ok {
					return fmt.Errorf("%w: %q", core.ErrUnknownColumn, c.Field)
				}
			}

			totals := g.Totals()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tFUNC\tVALUE")
			for _, c := range configs {
				value := "-"
				if v := totals[c.Field].Value(c.Func); v != nil {
					value = strconv.FormatFloat(*v, 'f', -1, 64)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Field, c.Func, value)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringArrayVarP(&aggs, "agg", "a", nil, "aggregate as field:func (count, sum, avg, min, max), repeatable")
	return cmd
}
