package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gridcore/internal/core"
)

func newFacetsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "facets <field>",
		Short: "Count the distinct values of a field",
		Long: `Count the distinct values of a field under every active filter except the
field's own, the way a set filter menu lists its choices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := o.openGrid(gridOptions{})
			if err != nil {
				return err
			}
			defer g.Destroy()

			field := args[0]
			if _, ok := g.Column(field); !ok {
				return fmt.Errorf("%w: %q", core.ErrUnknownColumn, field)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VALUE\tCOUNT")
			for _, f := range g.Facets(field) {
				fmt.Fprintf(tw, "%s\t%d\n", f.Label, f.Count)
			}
			return tw.Flush()
		},
	}
}
