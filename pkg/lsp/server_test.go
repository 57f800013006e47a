package lsp

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

const (
	testURI = "file:///tmp/report.py"
	script  = "import polars as pl\n\nout = df.select(name, total=pl.col(\"amount\"))\n"
)

type notifications struct {
	mu    sync.Mutex
	sends []*protocol.PublishDiagnosticsParams
}

func (n *notifications) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != methodPublishDiagnostics {
				return
			}

			n.mu.Lock()
			defer n.mu.Unlock()

			if p, ok := params.(*protocol.PublishDiagnosticsParams); ok {
				n.sends = append(n.sends, p)
			}
		},
	}
}

func (n *notifications) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	require.NotEmpty(t, n.sends)

	return n.sends[len(n.sends)-1]
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	ws, err := workspace.Load(context.Background(), workspace.Options{Language: "python", Packages: []string{"polars"}})
	require.NoError(t, err)

	return NewServer(ws, ServerDeps{})
}

func open(t *testing.T, srv *Server, n *notifications, text string) {
	t.Helper()

	require.NoError(t, srv.didOpen(n.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, LanguageID: "python", Text: text},
	}))
}

func TestDocumentStore(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore()
	store.Set(testURI, "a")
	store.Set(testURI, "b")

	got, ok := store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "b", got)

	store.Delete(testURI)

	_, ok = store.Get(testURI)
	assert.False(t, ok)
}

func TestDidOpen_PublishesHints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	n := &notifications{}

	open(t, srv, n, script)

	published := n.last(t)
	require.Len(t, published.Diagnostics, 1)

	diag := published.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityHint, *diag.Severity)
	assert.Equal(t, `SELECT name, pl.col("amount") AS total FROM df`, diag.Message)
	assert.Equal(t, protocol.Position{Line: 2, Character: 6}, diag.Range.Start)
}

func TestCodeLens(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	n := &notifications{}

	open(t, srv, n, script)

	lenses, err := srv.codeLens(n.context(), &protocol.CodeLensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, lenses, 1)
	assert.Equal(t, ShowProjectionCommand, lenses[0].Command.Command)
	assert.Equal(t, []any{testURI, "polars", "select"}, lenses[0].Command.Arguments)

	none, err := srv.codeLens(n.context(), &protocol.CodeLensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///unknown.py"},
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHover(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	n := &notifications{}

	open(t, srv, n, script)

	hover, err := srv.hover(n.context(), &protocol.HoverParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     protocol.Position{Line: 2, Character: 10},
	}})
	require.NoError(t, err)
	require.NotNil(t, hover)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Contains(t, content.Value, "**polars.select**")
	assert.Contains(t, content.Value, "| `df` | context | `df` |")

	outside, err := srv.hover(n.context(), &protocol.HoverParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Position:     protocol.Position{Line: 0, Character: 1},
	}})
	require.NoError(t, err)
	assert.Nil(t, outside)
}

func TestDidChange_IncrementalEditRescans(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	n := &notifications{}

	open(t, srv, n, script)

	// Rename the select call so the projection no longer applies.
	require.NoError(t, srv.didChange(n.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 2, Character: 9},
				End:   protocol.Position{Line: 2, Character: 15},
			},
			Text: "pick",
		}},
	}))

	text, ok := srv.store.Get(testURI)
	require.True(t, ok)
	assert.Contains(t, text, "df.pick(name")
	assert.Empty(t, n.last(t).Diagnostics)

	require.NoError(t, srv.didChange(n.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: script}},
	}))
	assert.Len(t, n.last(t).Diagnostics, 1)
}

func TestDidClose_ClearsDiagnostics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	n := &notifications{}

	open(t, srv, n, script)
	require.NoError(t, srv.didClose(n.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))

	assert.Empty(t, n.last(t).Diagnostics)

	_, ok := srv.store.Get(testURI)
	assert.False(t, ok)
}

func TestPositions(t *testing.T) {
	t.Parallel()

	text := "a = \"é\"\nb𝄞c\n"

	tests := []struct {
		offset int
		pos    protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{7, protocol.Position{Line: 0, Character: 6}},
		{9, protocol.Position{Line: 1, Character: 0}},
		{10, protocol.Position{Line: 1, Character: 1}},
		{14, protocol.Position{Line: 1, Character: 3}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.pos, offsetToPosition(text, tt.offset), "offset %d", tt.offset)
		assert.Equal(t, tt.offset, positionToOffset(text, tt.pos), "position %v", tt.pos)
	}

	assert.Equal(t, len(text), positionToOffset(text, protocol.Position{Line: 9, Character: 0}))
	assert.Equal(t, "a = \"x\"\nb𝄞c\n", applyChange(text, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 5},
		End:   protocol.Position{Line: 0, Character: 6},
	}, "x"))
}
