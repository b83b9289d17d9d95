package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPresetCmd(o *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Print the effective configuration as a preset",
		Long: `Print the configuration that results from the preset file and the override
flags. The output can be saved and passed back with --preset.

Example:
  gridctl preset -r people.csv -s salary:desc -g dept > by-dept.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := o.openGrid(gridOptions{})
			if err != nil {
				return err
			}
			defer g.Destroy()

			p := g.CurrentPreset()
			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(p); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			return fmt.Errorf("unknown format %q: want yaml or json", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml, json")
	return cmd
}
