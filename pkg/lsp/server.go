// Package lsp serves projection matches to editors over the Language Server
// Protocol: every match becomes a code lens showing its rendered projection,
// a hint diagnostic, and a hover with the bound placeholders.
package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/projector/pkg/observability"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
	"github.com/Sumatoshi-tech/projector/pkg/version"
	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

const (
	serverName = "projector"

	// ShowProjectionCommand is the command attached to every code lens.
	ShowProjectionCommand = "projector.showProjection"

	diagnosticSource         = "projector"
	methodPublishDiagnostics = "textDocument/publishDiagnostics"
	spanPrefix               = "lsp."
)

// ServerDeps holds injectable dependencies for the server. Nil fields
// disable the corresponding concern.
type ServerDeps struct {
	Logger  *slog.Logger
	Metrics *observability.REDMetrics
	Tracer  trace.Tracer
}

// Server keeps open documents scanned against one workspace.
type Server struct {
	ws      *workspace.Workspace
	store   *DocumentStore
	handler protocol.Handler
	logger  *slog.Logger
	metrics *observability.REDMetrics
	tracer  trace.Tracer
}

// NewServer creates a language server over a loaded workspace.
func NewServer(ws *workspace.Workspace, deps ServerDeps) *Server {
	srv := &Server{
		ws:      ws,
		store:   NewDocumentStore(),
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	if srv.logger == nil {
		srv.logger = slog.Default()
	}

	if srv.tracer == nil {
		srv.tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
		TextDocumentCodeLens:  srv.codeLens,
		TextDocumentHover:     srv.hover,
	}

	return srv
}

// RunStdio serves the protocol on stdin/stdout until the client disconnects.
func (srv *Server) RunStdio() error {
	lspServer := server.NewServer(&srv.handler, serverName, false)

	if err := lspServer.RunStdio(); err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	ver := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &ver,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	srv.logger.Info("lsp client initialized", "language", srv.ws.Language().Name)

	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Set(uri, params.TextDocument.Text)
	srv.refresh(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil
	}

	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
			} else {
				text = applyChange(text, *c.Range, c.Text)
			}
		case map[string]any:
			if whole, textOK := c["text"].(string); textOK {
				text = whole
			}
		}
	}

	srv.store.Set(uri, text)
	srv.refresh(ctx, uri)

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if _, ok := srv.store.Get(params.TextDocument.URI); ok {
		srv.refresh(ctx, params.TextDocument.URI)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

// refresh rescans a document and publishes one hint per match.
func (srv *Server) refresh(ctx *glsp.Context, uri string) {
	text, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	reqCtx, span := srv.tracer.Start(context.Background(), spanPrefix+"scan",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("lsp.uri", uri)),
	)
	defer span.End()

	finish := srv.metrics.Track(reqCtx, spanPrefix+"scan")

	report, err := srv.ws.Scan(reqCtx, []byte(text), workspace.ScanOptions{})
	finish(err)

	if err != nil {
		srv.logger.WarnContext(reqCtx, "scan failed", "uri", uri, "error", err)

		return
	}

	srv.store.setReport(uri, text, report)

	hint := protocol.DiagnosticSeverityHint
	source := diagnosticSource
	diagnostics := make([]protocol.Diagnostic, 0, len(report.Results))

	for _, r := range report.Results {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    toRange(text, r.Match.Range.Start, r.Match.Range.End),
			Severity: &hint,
			Source:   &source,
			Message:  r.Projection.Preview(r.Match),
		})
	}

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (srv *Server) codeLens(_ *glsp.Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	text, report, ok := srv.store.report(params.TextDocument.URI)
	if !ok {
		return []protocol.CodeLens{}, nil
	}

	lenses := make([]protocol.CodeLens, 0, len(report.Results))

	for _, r := range report.Results {
		lenses = append(lenses, protocol.CodeLens{
			Range: toRange(text, r.Match.Range.Start, r.Match.Range.End),
			Command: &protocol.Command{
				Title:     r.Projection.Preview(r.Match),
				Command:   ShowProjectionCommand,
				Arguments: []any{params.TextDocument.URI, r.Package, r.Projection.Name},
			},
		})
	}

	return lenses, nil
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, report, ok := srv.store.report(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil // no hover for unknown documents
	}

	offset := uint32(positionToOffset(text, params.Position)) //nolint:gosec // bounded by len(text)

	// Innermost match under the cursor.
	var found *projection.Result

	for idx := range report.Results {
		r := &report.Results[idx]
		if r.Match.Range.Start <= offset && offset < r.Match.Range.End &&
			(found == nil || found.Match.Range.Contains(r.Match.Range)) {
			found = r
		}
	}

	if found == nil {
		return nil, nil //nolint:nilnil // no hover outside matches
	}

	rng := toRange(text, found.Match.Range.Start, found.Match.Range.End)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: hoverMarkdown(found)},
		Range:    &rng,
	}, nil
}

func hoverMarkdown(r *projection.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "**%s.%s**", r.Package, r.Projection.Name)

	if r.Projection.Description != "" {
		fmt.Fprintf(&sb, " %s", r.Projection.Description)
	}

	fmt.Fprintf(&sb, "\n\n```\n%s\n```\n", r.Projection.Preview(r.Match))

	names := make([]string, 0, len(r.Match.Bindings))
	for name := range r.Match.Bindings {
		names = append(names, name)
	}

	slices.Sort(names)

	if len(names) > 0 {
		sb.WriteString("\n| placeholder | kind | text |\n|---|---|---|\n")
	}

	for _, name := range names {
		b := r.Match.Bindings[name]
		fmt.Fprintf(&sb, "| `%s` | %s | `%s` |\n", name, b.Kind, strings.ReplaceAll(b.Text(), "\n", " "))
	}

	return sb.String()
}
