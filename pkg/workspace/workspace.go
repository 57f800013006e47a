// Package workspace assembles a ready-to-scan projector session: the parser
// and language config for one language, the compiled built-in packages and
// the extensions applied to them. Loading ends with every package frozen.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/projector/pkg/extension"
	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/packages"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

// ErrPackageNotLoaded is returned for descriptors that target a package the
// workspace did not load.
var ErrPackageNotLoaded = errors.New("projection package not loaded")

// Options selects what a workspace loads.
type Options struct {
	Language string
	// LanguageConfigs are extra YAML files. One whose name equals Language
	// replaces the embedded configuration.
	LanguageConfigs []string
	Packages        []string
	// Extensions are descriptor files or directories.
	Extensions []string
	// Strict stops loading at the first failing descriptor. Otherwise failing
	// descriptors are skipped and reported in Workspace.Warnings.
	Strict bool

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.ProjectionMetrics
}

// Workspace is a loaded, frozen set of packages for one language.
type Workspace struct {
	language *langconfig.LanguageConfig
	parser   syntax.Parser
	compiler *pattern.Compiler
	scanner  *projection.Scanner
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.ProjectionMetrics

	// Warnings holds the descriptors skipped in non-strict mode.
	Warnings []error
}

// Load builds a workspace. Packages that are not written in Language are
// rejected.
func Load(ctx context.Context, opts Options) (*Workspace, error) {
	ws := &Workspace{logger: opts.Logger, tracer: opts.Tracer, metrics: opts.Metrics}

	if ws.logger == nil {
		ws.logger = slog.Default()
	}

	if ws.tracer == nil {
		ws.tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	ctx, span := ws.tracer.Start(ctx, "workspace.load", trace.WithAttributes(
		attribute.String("projector.language", opts.Language),
		attribute.StringSlice("projector.packages", opts.Packages),
	))
	defer span.End()

	err := ws.load(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	return ws, nil
}

func (ws *Workspace) load(ctx context.Context, opts Options) error {
	lang, err := resolveLanguage(opts.Language, opts.LanguageConfigs)
	if err != nil {
		return err
	}

	parser, err := syntax.NewTreeSitterParser(lang.Name)
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}

	ws.language = lang
	ws.parser = parser
	ws.compiler = pattern.NewCompiler(parser, lang, pattern.WithLogger(ws.logger))

	pkgs := make([]*projection.Package, 0, len(opts.Packages))

	for _, name := range opts.Packages {
		pkg, buildErr := packages.Build(name, ws.compiler)
		if buildErr != nil {
			return fmt.Errorf("load package %s: %w", name, buildErr)
		}

		ws.metrics.RecordCompiled(ctx, name, countPatterns(pkg))
		pkgs = append(pkgs, pkg)
	}

	if len(opts.Extensions) > 0 {
		descriptors, readErr := extension.ReadPaths(opts.Extensions...)
		if readErr != nil {
			return readErr
		}

		if err := ws.extend(ctx, pkgs, descriptors, opts.Strict); err != nil {
			return err
		}
	}

	ws.scanner = projection.NewScanner(lang.Name, pkgs...)

	ws.logger.DebugContext(ctx, "workspace loaded",
		"language", lang.Name, "packages", len(pkgs), "skipped_extensions", len(ws.Warnings))

	return nil
}

func (ws *Workspace) extend(ctx context.Context, pkgs []*projection.Package, descriptors []extension.ProjectionExtension, strict bool) error {
	extender := extension.NewExtender(ws.compiler, extension.WithLogger(ws.logger))

	byPackage := make(map[string][]extension.ProjectionExtension)

	var order []string

	for _, d := range descriptors {
		if lang, builtin := packages.Language(d.Package); builtin && lang != ws.language.Name {
			ws.logger.DebugContext(ctx, "extension targets another language", "package", d.Package, "language", lang)

			continue
		}

		if !slices.ContainsFunc(pkgs, func(p *projection.Package) bool { return p.Name() == d.Package }) {
			err := fmt.Errorf("%w: %s (projection %s)", ErrPackageNotLoaded, d.Package, d.Projection)
			if strict {
				return err
			}

			ws.Warnings = append(ws.Warnings, err)

			continue
		}

		if _, seen := byPackage[d.Package]; !seen {
			order = append(order, d.Package)
		}

		byPackage[d.Package] = append(byPackage[d.Package], d)
	}

	for _, name := range order {
		idx := slices.IndexFunc(pkgs, func(p *projection.Package) bool { return p.Name() == name })
		batch := byPackage[name]

		if strict {
			if _, err := extender.Extend(pkgs[idx], batch); err != nil {
				return err
			}

			ws.metrics.RecordExtension(ctx, name, len(batch), 0)

			continue
		}

		_, err := extender.ExtendEach(pkgs[idx], batch)
		rejected := unjoin(err)
		ws.Warnings = append(ws.Warnings, rejected...)
		ws.metrics.RecordExtension(ctx, name, len(batch)-len(rejected), len(rejected))
	}

	return nil
}

// Language returns the language configuration in use.
func (ws *Workspace) Language() *langconfig.LanguageConfig { return ws.language }

// Parser returns the parser for the workspace language.
func (ws *Workspace) Parser() syntax.Parser { return ws.parser }

// Compiler returns the compiler the packages were built with.
func (ws *Workspace) Compiler() *pattern.Compiler { return ws.compiler }

// Packages returns the loaded packages.
func (ws *Workspace) Packages() []*projection.Package { return ws.scanner.Packages() }

// Package returns a loaded package by name.
func (ws *Workspace) Package(name string) (*projection.Package, bool) {
	for _, pkg := range ws.scanner.Packages() {
		if pkg.Name() == name {
			return pkg, true
		}
	}

	return nil, false
}

// ScanOptions tunes a scan.
type ScanOptions struct {
	// Context constrains context variables. Nil leaves them unconstrained.
	Context *pattern.MatchContext
	// All keeps matches nested inside a match of the same projection.
	All bool
}

// Report is the outcome of scanning one document.
type Report struct {
	Language string
	Tree     *syntax.Tree
	Results  []projection.Result
	Nodes    int
	Bytes    int
	Duration time.Duration
}

// Scan parses source and collects the projection matches in it.
func (ws *Workspace) Scan(ctx context.Context, source []byte, opts ScanOptions) (*Report, error) {
	ctx, span := ws.tracer.Start(ctx, "workspace.scan", trace.WithAttributes(
		attribute.String("projector.language", ws.language.Name),
		attribute.Int("projector.bytes", len(source)),
	))
	defer span.End()

	start := time.Now()

	tree, err := ws.parser.Parse(source)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("scan: %w", err)
	}

	report := &Report{Language: ws.language.Name, Tree: tree, Bytes: len(source)}

	if opts.All {
		report.Results = ws.scanner.Scan(tree, opts.Context)
	} else {
		report.Results = ws.scanner.ScanOutermost(tree, opts.Context)
	}

	tree.Root.Walk(func(*syntax.Node) bool {
		report.Nodes++

		return true
	})

	report.Duration = time.Since(start)

	counts := make(map[string]int)
	for _, r := range report.Results {
		counts[r.Projection.Name]++
	}

	ws.metrics.RecordScan(ctx, observability.ScanStats{
		Language: report.Language,
		Nodes:    report.Nodes,
		Bytes:    report.Bytes,
		Duration: report.Duration,
		Matches:  counts,
	})

	span.SetAttributes(attribute.Int("projector.matches", len(report.Results)))

	if tree.HasError {
		ws.logger.DebugContext(ctx, "scanned source has syntax errors", "matches", len(report.Results))
	}

	return report, nil
}

func resolveLanguage(name string, files []string) (*langconfig.LanguageConfig, error) {
	for _, file := range files {
		cfg, err := langconfig.LoadFile(file)
		if err != nil {
			return nil, err
		}

		if cfg.Name == name {
			return cfg, nil
		}
	}

	cfg, err := langconfig.Load(name)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	return cfg, nil
}

func countPatterns(pkg *projection.Package) int {
	n := 0

	for _, proj := range pkg.Projections() {
		n++

		for _, ph := range proj.Pattern.Placeholders() {
			switch def := ph.(type) {
			case *pattern.Aggregation:
				n += len(def.Parts())
			case *pattern.Chain:
				n += 1 + len(def.Links())
			}
		}
	}

	return n
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint // splitting errors.Join output
		return joined.Unwrap()
	}

	return []error{err}
}
