package commands

import (
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/packages"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the built-in language configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Language", "Grammar", "Chainable", "Aggregatable", "Block", "Packages"})

			for _, name := range langconfig.Builtin() {
				cfg, err := langconfig.Load(name)
				if err != nil {
					return err
				}

				grammar := "missing"
				if syntax.GetLanguage(name) != nil {
					grammar = "tree-sitter"
				}

				var pkgs []string

				for _, pkg := range packages.Builtin() {
					if lang, _ := packages.Language(pkg); lang == name {
						pkgs = append(pkgs, pkg)
					}
				}

				tbl.AppendRow(table.Row{
					name,
					grammar,
					strings.Join(cfg.ChainableTypes(), ", "),
					strings.Join(slices.Sorted(maps.Keys(cfg.Aggregations.AggregatableNodeTypes)), ", "),
					cfg.Blocks.BlockNodeType,
					strings.Join(pkgs, ", "),
				})
			}

			tbl.Render()

			return nil
		},
	}
}
