package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	errUnknownFormat  = errors.New("unknown output format")
	errContextBinding = errors.New("context binding must be name=value")
)

// fileMatch is one match in the JSON output.
type fileMatch struct {
	File       string         `json:"file"`
	Package    string         `json:"package"`
	Projection string         `json:"projection"`
	Line       int            `json:"line"`
	Start      uint32         `json:"start"`
	End        uint32         `json:"end"`
	Preview    string         `json:"preview"`
	Bindings   map[string]any `json:"bindings"`
}

type matchOptions struct {
	format   string
	all      bool
	bindings []string
}

func newMatchCommand(flags *globalFlags) *cobra.Command {
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match <file>...",
		Short: "Scan files for projection matches",
		Long: `Scan source files with every loaded projection and print one row per match.

The language of each file comes from --language, then from file detection,
then from the configured default. --context restricts a context variable to
the given values and may be repeated: --context df=sales --context df=orders.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format: table or json")
	cmd.Flags().BoolVar(&opts.all, "all", false, "also report matches nested inside a match of the same projection")
	cmd.Flags().StringArrayVar(&opts.bindings, "context", nil, "allowed context variable value, name=value")

	return cmd
}

func runMatch(cmd *cobra.Command, flags *globalFlags, opts *matchOptions, files []string) error {
	if opts.format != formatTable && opts.format != formatJSON {
		return fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
	}

	mctx, err := parseContext(opts.bindings)
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, flags, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx := cmd.Context()
	finish := sess.red.Track(ctx, "cli.match")

	workspaces := make(map[string]*workspace.Workspace)

	var (
		matches []fileMatch
		scanned int
		elapsed time.Duration
	)

	for _, file := range files {
		source, readErr := os.ReadFile(file)
		if readErr != nil {
			finish(readErr)

			return fmt.Errorf("read %s: %w", file, readErr)
		}

		language := flags.language
		if language == "" {
			language = syntax.DetectLanguage(file, source)
		}

		if language == "" {
			language = sess.cfg.Language.Default
		}

		ws, ok := workspaces[language]
		if !ok {
			ws, err = sess.workspace(ctx, language)
			if err != nil {
				finish(err)

				return err
			}

			workspaces[language] = ws
		}

		report, scanErr := ws.Scan(ctx, source, workspace.ScanOptions{Context: mctx, All: opts.all})
		if scanErr != nil {
			finish(scanErr)

			return fmt.Errorf("%s: %w", file, scanErr)
		}

		scanned += report.Bytes
		elapsed += report.Duration

		for _, r := range report.Results {
			matches = append(matches, fileMatch{
				File:       file,
				Package:    r.Package,
				Projection: r.Projection.Name,
				Line:       bytes.Count(source[:r.Match.Range.Start], []byte("\n")) + 1,
				Start:      r.Match.Range.Start,
				End:        r.Match.Range.End,
				Preview:    r.Projection.Preview(r.Match),
				Bindings:   r.Match.Flatten(),
			})
		}
	}

	finish(nil)

	out := cmd.OutOrStdout()

	if opts.format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if matches == nil {
			matches = []fileMatch{}
		}

		return enc.Encode(matches)
	}

	renderMatches(out, matches)

	summary := color.New(color.FgGreen)
	if len(matches) == 0 {
		summary = color.New(color.FgYellow)
	}

	summary.Fprintf(out, "%d matches in %d files, %s scanned in %s\n",
		len(matches), len(files), humanize.Bytes(uint64(scanned)), elapsed.Round(time.Microsecond)) //nolint:gosec // non-negative

	return nil
}

func renderMatches(out io.Writer, matches []fileMatch) {
	if len(matches) == 0 {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"File", "Line", "Package", "Projection", "Preview"})

	for _, m := range matches {
		tbl.AppendRow(table.Row{m.File, m.Line, m.Package, m.Projection, strings.ReplaceAll(m.Preview, "\n", " ")})
	}

	tbl.Render()
}

func parseContext(bindings []string) (*pattern.MatchContext, error) {
	if len(bindings) == 0 {
		return nil, nil //nolint:nilnil // nil context leaves variables unconstrained
	}

	mctx := pattern.NewMatchContext()

	for _, binding := range bindings {
		name, value, ok := strings.Cut(binding, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errContextBinding, binding)
		}

		mctx.Allow(name, value)
	}

	return mctx, nil
}
