// Package commands implements the projector CLI commands.
package commands

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/projector/pkg/config"
	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/packages"
	"github.com/Sumatoshi-tech/projector/pkg/version"
	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

// globalFlags are the persistent flags shared by every command. Non-empty
// values override the loaded configuration.
type globalFlags struct {
	configPath string
	language   string
	packages   []string
	extensions []string
	strict     bool
	verbose    bool
	noColor    bool
}

// NewRootCommand builds the projector command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "projector",
		Short: "Project library call patterns in source code onto readable renderings",
		Long: `Projector compiles code templates into syntax-tree patterns, finds their
matches in source files and renders each match as a short projection.

Commands:
  match        Scan files for projection matches
  explain      Show the compiled patterns of a package
  extensions   Validate or apply projection extension descriptors
  languages    List the built-in language configurations
  lsp          Serve matches to editors over LSP
  mcp          Serve matches to AI agents over MCP`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if flags.noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: .projector.yaml in ., $HOME or /etc/projector)")
	pf.StringVarP(&flags.language, "language", "l", "", "target language (default: from config or file detection)")
	pf.StringSliceVarP(&flags.packages, "package", "p", nil, "projection packages to load (default: from config)")
	pf.StringSliceVarP(&flags.extensions, "extensions", "e", nil, "extension descriptor files or directories")
	pf.BoolVar(&flags.strict, "strict", false, "fail on the first invalid extension descriptor")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newMatchCommand(flags),
		newExplainCommand(flags),
		newExtensionsCommand(flags),
		newLanguagesCommand(),
		newLSPCommand(flags),
		newMCPCommand(flags),
		newVersionCommand(),
	)

	return root
}

// load reads the configuration and applies flag overrides.
func (f *globalFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	if f.language != "" {
		cfg.Language.Default = f.language
	}

	if cmd.Flags().Changed("package") {
		cfg.Packages.Enabled = f.packages
	}

	cfg.Extensions.Paths = append(cfg.Extensions.Paths, f.extensions...)

	if f.strict {
		cfg.Extensions.Strict = true
	}

	if f.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, cfg.Validate()
}

func initObservability(cfg *config.Config, mode observability.AppMode, prometheus bool) (observability.Providers, error) {
	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == "json"
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.Prometheus = prometheus

	return observability.Init(obsCfg)
}

// session bundles what a command needs once configuration is loaded.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	red       *observability.REDMetrics
	metrics   *observability.ProjectionMetrics
}

// openSession loads configuration, applies adjust and starts observability.
func openSession(cmd *cobra.Command, flags *globalFlags, mode observability.AppMode, adjust ...func(*config.Config)) (*session, error) {
	cfg, err := flags.load(cmd)
	if err != nil {
		return nil, err
	}

	for _, fn := range adjust {
		fn(cfg)
	}

	providers, err := initObservability(cfg, mode, mode == observability.ModeLSP && cfg.LSP.MetricsAddr != "")
	if err != nil {
		return nil, err
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewProjectionMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, providers: providers, red: red, metrics: metrics}, nil
}

func (s *session) close() {
	if err := s.providers.Shutdown(context.Background()); err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// workspace loads the enabled packages written in language.
func (s *session) workspace(ctx context.Context, language string) (*workspace.Workspace, error) {
	var names []string

	for _, name := range s.cfg.Packages.Enabled {
		pkgLang, ok := packages.Language(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", packages.ErrUnknownPackage, name)
		}

		if pkgLang == language {
			names = append(names, name)
		}
	}

	ws, err := workspace.Load(ctx, workspace.Options{
		Language:        language,
		LanguageConfigs: s.cfg.Language.Configs,
		Packages:        names,
		Extensions:      s.cfg.Extensions.Paths,
		Strict:          s.cfg.Extensions.Strict,
		Logger:          s.providers.Logger,
		Tracer:          s.providers.Tracer,
		Metrics:         s.metrics,
	})
	if err != nil {
		return nil, err
	}

	for _, warning := range ws.Warnings {
		s.providers.Logger.WarnContext(ctx, "extension skipped", "language", language, "error", warning)
	}

	return ws, nil
}

// languages returns the languages of the enabled packages, default first.
func (s *session) languages() []string {
	langs := []string{s.cfg.Language.Default}

	for _, name := range s.cfg.Packages.Enabled {
		if lang, ok := packages.Language(name); ok && !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}

	return langs
}
