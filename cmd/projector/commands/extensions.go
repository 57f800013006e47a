package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/projector/pkg/extension"
	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/packages"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
)

var errInvalidExtensions = errors.New("invalid extension descriptors")

func newExtensionsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extensions",
		Short: "Validate or apply projection extension descriptors",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate <path>...",
			Short: "Decode and check descriptors without compiling them",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runValidate(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "apply <path>...",
			Short: "Apply descriptors to their packages and list the resulting candidates",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApply(cmd, flags, args)
			},
		},
	)

	return cmd
}

func runValidate(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	failed := 0

	for _, path := range paths {
		descriptors, err := extension.ReadPaths(path)
		if err != nil {
			failed++

			bad.Fprintf(out, "FAIL %s\n", path)
			fmt.Fprintf(out, "  %v\n", err)

			continue
		}

		subs := 0
		for _, d := range descriptors {
			subs += len(d.SubProjections)
		}

		ok.Fprintf(out, "OK   %s", path)
		fmt.Fprintf(out, " (%d descriptors, %d sub-projections)\n", len(descriptors), subs)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d paths", errInvalidExtensions, failed, len(paths))
	}

	return nil
}

type target struct {
	pkg, projection, parameter string
}

func runApply(cmd *cobra.Command, flags *globalFlags, paths []string) error {
	descriptors, err := extension.ReadPaths(paths...)
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, flags, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	sess.cfg.Extensions.Paths = append(sess.cfg.Extensions.Paths, paths...)

	var (
		targets   []target
		languages []string
	)

	for _, d := range descriptors {
		t := target{pkg: d.Package, projection: d.Projection, parameter: d.ParentParameter}
		if !slices.Contains(targets, t) {
			targets = append(targets, t)
		}

		lang, ok := packages.Language(d.Package)
		if !ok {
			continue
		}

		if !slices.Contains(languages, lang) {
			languages = append(languages, lang)
		}

		if !slices.Contains(sess.cfg.Packages.Enabled, d.Package) {
			sess.cfg.Packages.Enabled = append(sess.cfg.Packages.Enabled, d.Package)
		}
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Package", "Projection", "Parameter", "Kind", "Candidates"})

	warn := color.New(color.FgYellow)

	for _, lang := range languages {
		ws, wsErr := sess.workspace(cmd.Context(), lang)
		if wsErr != nil {
			return wsErr
		}

		for _, w := range ws.Warnings {
			warn.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", w)
		}

		for _, t := range targets {
			pkg, ok := ws.Package(t.pkg)
			if !ok {
				continue
			}

			proj, ok := pkg.Lookup(t.projection)
			if !ok {
				continue
			}

			ph, ok := proj.Pattern.Lookup(t.parameter)
			if !ok {
				continue
			}

			tbl.AppendRow(table.Row{t.pkg, t.projection, t.parameter, ph.Kind(), strings.Join(candidates(ph), ", ")})
		}
	}

	tbl.Render()

	return nil
}

func candidates(ph pattern.Placeholder) []string {
	var names []string

	switch def := ph.(type) {
	case *pattern.Aggregation:
		for _, part := range def.Parts() {
			names = append(names, part.Name())
		}
	case *pattern.Chain:
		names = append(names, def.Start().Name())

		for _, link := range def.Links() {
			names = append(names, link.Name())
		}
	}

	return names
}
