package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/projector/pkg/config"
	"github.com/Sumatoshi-tech/projector/pkg/lsp"
	"github.com/Sumatoshi-tech/projector/pkg/mcp"
	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

const (
	metricsPath           = "/metrics"
	metricsReadTimeout    = 5 * time.Second
	metricsShutdownPeriod = 2 * time.Second
)

func newLSPCommand(flags *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Serve projection matches to editors over LSP (stdio)",
		Long: `Start a Language Server Protocol server on stdio. Every open document is
scanned on open and change; matches are published as code lenses, hint
diagnostics and hovers. With --metrics-addr, Prometheus metrics are served
on http://<addr>/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, flags, observability.ModeLSP, func(cfg *config.Config) {
				if metricsAddr != "" {
					cfg.LSP.MetricsAddr = metricsAddr
				}
			})
			if err != nil {
				return err
			}
			defer sess.close()

			ctx := cmd.Context()

			ws, err := sess.workspace(ctx, sess.cfg.Language.Default)
			if err != nil {
				return err
			}

			if sess.providers.MetricsHandler != nil {
				stop, serveErr := serveMetrics(sess, sess.cfg.LSP.MetricsAddr)
				if serveErr != nil {
					return serveErr
				}
				defer stop()
			}

			srv := lsp.NewServer(ws, lsp.ServerDeps{
				Logger:  sess.providers.Logger,
				Metrics: sess.red,
				Tracer:  sess.providers.Tracer,
			})

			return srv.RunStdio()
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

// serveMetrics starts the scrape endpoint and returns the function that stops it.
func serveMetrics(sess *session, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, observability.HTTPMiddleware(sess.providers.Tracer, sess.red, sess.providers.MetricsHandler))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			sess.providers.Logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	sess.providers.Logger.Info("serving metrics", "addr", listener.Addr().String(), "path", metricsPath)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownPeriod)
		defer cancel()

		_ = server.Shutdown(ctx)
	}, nil
}

func newMCPCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve projection matches to AI agents over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdio with two tools:
  - projections_match: scan inline code and return the projection matches
  - projections_explain: describe the compiled projections of a package`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd, flags, observability.ModeMCP, func(cfg *config.Config) {
				cfg.Logging.Format = "json"
			})
			if err != nil {
				return err
			}
			defer sess.close()

			ctx := cmd.Context()

			var workspaces []*workspace.Workspace

			for _, lang := range sess.languages() {
				ws, wsErr := sess.workspace(ctx, lang)
				if wsErr != nil {
					return wsErr
				}

				workspaces = append(workspaces, ws)
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Workspaces: workspaces,
				Logger:     sess.providers.Logger,
				Metrics:    sess.red,
				Tracer:     sess.providers.Tracer,
			})

			return srv.Run(ctx)
		},
	}
}
