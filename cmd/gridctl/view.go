package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gridcore/internal/core"
)

func newViewCmd(o *options) *cobra.Command {
	var (
		page      int
		all       bool
		expandAll bool
		format    string
		fields    []string
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print a page of the configured grid",
		Long: `Print one page of rows after filtering, sorting and grouping.

Examples:
  gridctl view -r people.csv -s salary:desc
  gridctl view -r people.json -p preset.yaml --page 2
  gridctl view -r people.csv -g dept --expand-all
  gridctl view -r people.csv --all --format csv > filtered.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := o.openGrid(gridOptions{})
			if err != nil {
				return err
			}
			defer g.Destroy()

			if expandAll {
				if err := g.ExpandAllGroups(); err != nil {
					return err
				}
			}
			if page > 1 {
				if err := g.SetPage(page - 1); err != nil {
					return fmt.Errorf("page %d: %w", page, err)
				}
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "table":
				return writeTable(out, g, fields, all)
			case "csv":
				return writeCSV(out, g, fields, all)
			case "json":
				return writeJSON(out, g, all)
			}
			return fmt.Errorf("unknown format %q: want table, csv or json", format)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().BoolVar(&all, "all", false, "print every row instead of one page")
	cmd.Flags().BoolVar(&expandAll, "expand-all", false, "expand every group")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, csv, json")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to print (default: visible columns)")
	return cmd
}

func displayRows(g *core.Grid, all bool) ([]core.DisplayRow, error) {
	v, err := g.View()
	if err != nil {
		return nil, err
	}
	if all {
		return v.Display, nil
	}
	return v.Page.All(), nil
}

// writeTable prints aligned columns. Group rows print as an indented label
// with the group's leaf count.
func writeTable(w io.Writer, g *core.Grid, fields []string, all bool) error {
	rows, err := displayRows(g, all)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		fields = g.State().VisibleColumns()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(fields)+1)
	header = append(header, "ID")
	for _, f := range fields {
		c, ok := g.Column(f)
		if !ok {
			return fmt.Errorf("%w: %q", core.ErrUnknownColumn, f)
		}
		header = append(header, strings.ToUpper(c.DisplayName()))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, dr := range rows {
		indent := strings.Repeat("  ", dr.Level)
		if dr.Group != nil {
			marker := "+"
			if dr.Expanded {
				marker = "-"
			}
			fmt.Fprintf(tw, "%s%s %s: %s (%d)\n", indent, marker, dr.Group.Field, core.ToText(dr.Group.Value), dr.Group.LeafCount)
			continue
		}
		cells := make([]string, 0, len(fields)+1)
		cells = append(cells, indent+dr.ID)
		for _, f := range fields {
			cells = append(cells, core.ToText(dr.Row.Value(f)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !all {
		info := g.PageInfo()
		fmt.Fprintf(w, "\npage %d of %d, %d rows\n", info.Page+1, max(info.TotalPages, 1), info.TotalRows)
	}
	return nil
}

func writeCSV(w io.Writer, g *core.Grid, fields []string, all bool) error {
	table, err := g.ExportData(core.ExportOptions{Fields: fields, AllRows: all})
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		return err
	}
	return cw.WriteAll(table.Rows)
}

func writeJSON(w io.Writer, g *core.Grid, all bool) error {
	rows, err := displayRows(g, all)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []core.DisplayRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Page core.PageInfo     `json:"page"`
		Rows []core.DisplayRow `json:"rows"`
	}{g.PageInfo(), rows})
}
