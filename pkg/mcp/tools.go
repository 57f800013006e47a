package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

// Tool name constants.
const (
	ToolNameMatch   = "projections_match"
	ToolNameExplain = "projections_explain"
)

// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode           = errors.New("code parameter is required and must not be empty")
	ErrCodeTooLarge        = errors.New("code input exceeds maximum size")
	ErrEmptyPackage        = errors.New("package parameter is required and must not be empty")
	ErrUnsupportedLanguage = errors.New("no projection packages loaded for language")
	ErrUnknownPackage      = errors.New("unknown projection package")
	ErrUnknownProjection   = errors.New("unknown projection")

	errToolFailed = errors.New("tool returned an error result")
)

// MatchInput is the input schema for the projections_match tool.
type MatchInput struct {
	All      bool                `json:"all,omitempty"      jsonschema:"also report matches nested inside a match of the same projection"`
	Code     string              `json:"code"               jsonschema:"source code to scan"`
	Context  map[string][]string `json:"context,omitempty"  jsonschema:"allowed values per context variable (e.g. df: [sales])"`
	Language string              `json:"language,omitempty" jsonschema:"language of the code (default: the server's first language)"`
}

// ExplainInput is the input schema for the projections_explain tool.
type ExplainInput struct {
	Language   string `json:"language,omitempty"   jsonschema:"language the package is loaded for"`
	Package    string `json:"package"              jsonschema:"projection package name (e.g. polars)"`
	Projection string `json:"projection,omitempty" jsonschema:"root projection name (default: all)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// MatchResult is one projection match.
type MatchResult struct {
	Package    string         `json:"package"`
	Projection string         `json:"projection"`
	Start      uint32         `json:"start"`
	End        uint32         `json:"end"`
	Line       int            `json:"line"`
	Text       string         `json:"text"`
	Preview    string         `json:"preview"`
	Bindings   map[string]any `json:"bindings"`
}

func (s *Server) handleMatch(ctx context.Context, _ *mcpsdk.CallToolRequest, input MatchInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Code == "" {
		return errorResult(ErrEmptyCode)
	}

	if len(input.Code) > MaxCodeInputBytes {
		return errorResult(fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(input.Code), MaxCodeInputBytes))
	}

	ws, err := s.workspace(input.Language)
	if err != nil {
		return errorResult(err)
	}

	var mctx *pattern.MatchContext
	if len(input.Context) > 0 {
		mctx = pattern.NewMatchContext()
		for name, values := range input.Context {
			mctx.Allow(name, values...)
		}
	}

	source := []byte(input.Code)

	report, err := ws.Scan(ctx, source, workspace.ScanOptions{Context: mctx, All: input.All})
	if err != nil {
		return errorResult(err)
	}

	results := make([]MatchResult, 0, len(report.Results))
	for _, r := range report.Results {
		results = append(results, MatchResult{
			Package:    r.Package,
			Projection: r.Projection.Name,
			Start:      r.Match.Range.Start,
			End:        r.Match.Range.End,
			Line:       bytes.Count(source[:r.Match.Range.Start], []byte("\n")) + 1,
			Text:       string(source[r.Match.Range.Start:r.Match.Range.End]),
			Preview:    r.Projection.Preview(r.Match),
			Bindings:   r.Match.Flatten(),
		})
	}

	return jsonResult(results)
}

func (s *Server) handleExplain(_ context.Context, _ *mcpsdk.CallToolRequest, input ExplainInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Package == "" {
		return errorResult(ErrEmptyPackage)
	}

	ws, err := s.workspace(input.Language)
	if err != nil {
		return errorResult(err)
	}

	pkg, ok := ws.Package(input.Package)
	if !ok {
		return errorResult(fmt.Errorf("%w: %s", ErrUnknownPackage, input.Package))
	}

	projections := pkg.Projections()

	if input.Projection != "" {
		proj, found := pkg.Lookup(input.Projection)
		if !found {
			return errorResult(fmt.Errorf("%w: %s.%s", ErrUnknownProjection, input.Package, input.Projection))
		}

		projections = []*projection.Projection{proj}
	}

	explained := make([]projection.Description, 0, len(projections))
	for _, proj := range projections {
		explained = append(explained, projection.Describe(pkg.Name(), proj))
	}

	return jsonResult(explained)
}

func (s *Server) workspace(language string) (*workspace.Workspace, error) {
	if len(s.workspaces) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	if language == "" {
		return s.workspaces[0], nil
	}

	for _, ws := range s.workspaces {
		if ws.Language().Name == language {
			return ws, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
