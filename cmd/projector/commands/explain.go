package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/packages"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
)

var errUnknownProjection = errors.New("unknown projection")

func newExplainCommand(flags *globalFlags) *cobra.Command {
	var (
		dump   bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "explain <package> [projection]",
		Short: "Show the compiled patterns of a package",
		Long: `Print each root projection of a package with its template, render
template, placeholders and the syntax shape the template compiled to.
Extensions from the configuration and --extensions are applied first, so
their links and parts show up as candidates.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 1 {
				name = args[1]
			}

			return runExplain(cmd, flags, args[0], name, format, dump)
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "dump the raw descriptions")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")

	return cmd
}

func runExplain(cmd *cobra.Command, flags *globalFlags, pkgName, projName, format string, dump bool) error {
	sess, err := openSession(cmd, flags, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	language, ok := packages.Language(pkgName)
	if !ok {
		return fmt.Errorf("%w: %s", packages.ErrUnknownPackage, pkgName)
	}

	sess.cfg.Packages.Enabled = []string{pkgName}

	ws, err := sess.workspace(cmd.Context(), language)
	if err != nil {
		return err
	}

	pkg, _ := ws.Package(pkgName)
	projections := pkg.Projections()

	if projName != "" {
		proj, found := pkg.Lookup(projName)
		if !found {
			return fmt.Errorf("%w: %s.%s", errUnknownProjection, pkgName, projName)
		}

		projections = []*projection.Projection{proj}
	}

	descriptions := make([]projection.Description, 0, len(projections))
	for _, proj := range projections {
		descriptions = append(descriptions, projection.Describe(pkg.Name(), proj))
	}

	out := cmd.OutOrStdout()

	switch {
	case dump:
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(out, descriptions)
	case format == formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(descriptions)
	default:
		for idx, d := range descriptions {
			if idx > 0 {
				fmt.Fprintln(out)
			}

			printDescription(out, d)
		}
	}

	return nil
}

func printDescription(out io.Writer, d projection.Description) {
	heading := color.New(color.FgCyan, color.Bold)
	label := color.New(color.Faint)

	heading.Fprintf(out, "%s.%s\n", d.Package, d.Name)

	if d.Description != "" {
		fmt.Fprintf(out, "  %s\n", d.Description)
	}

	label.Fprint(out, "  template: ")
	fmt.Fprintln(out, d.Template)
	label.Fprint(out, "  render:   ")
	fmt.Fprintln(out, d.Render)

	for _, ph := range d.Placeholders {
		fmt.Fprintf(out, "  ${%s} %s", ph.Name, ph.Kind)

		if len(ph.Accepts) > 0 {
			fmt.Fprintf(out, " [%s]", strings.Join(ph.Accepts, " | "))
		}

		if ph.NodeType != "" {
			fmt.Fprintf(out, " in %s, %s", ph.NodeType, ph.Mode)
		}

		if len(ph.Candidates) > 0 {
			fmt.Fprintf(out, ": %s", strings.Join(ph.Candidates, ", "))
		}

		fmt.Fprintln(out)
	}

	label.Fprintln(out, "  shape:")

	for line := range strings.SplitSeq(strings.TrimRight(d.Shape, "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
}
