package syntax

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for parser operations.
var (
	ErrLanguageNotAvailable = errors.New("tree-sitter language not available")
	errNoRootNode           = errors.New("syntax: no root node")
	errPoolType             = errors.New("syntax: pool returned unexpected type")
)

// Parser turns source text into a concrete syntax tree. Parse is a blocking
// call; implementations must be safe for concurrent use.
type Parser interface {
	Parse(source []byte) (*Tree, error)
	Language() string
}

// TreeSitterParser implements Parser for one tree-sitter grammar.
type TreeSitterParser struct {
	language string
	pool     sync.Pool
}

// NewTreeSitterParser creates a parser for the named grammar.
func NewTreeSitterParser(language string) (*TreeSitterParser, error) {
	lang := GetLanguage(language)
	if lang == nil {
		return nil, fmt.Errorf("%w: %s", ErrLanguageNotAvailable, language)
	}

	return &TreeSitterParser{
		language: language,
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}, nil
}

// Language returns the grammar name.
func (parser *TreeSitterParser) Language() string {
	return parser.language
}

// Parse parses source and returns an owned copy of the tree.
func (parser *TreeSitterParser) Parse(source []byte) (*Tree, error) {
	tsParser, ok := parser.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer parser.pool.Put(tsParser)

	tree, err := tsParser.ParseString(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("syntax: failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	return &Tree{
		Root:     convertNode(root, source),
		Source:   source,
		HasError: root.HasError(),
	}, nil
}

func convertNode(tsNode sitter.Node, source []byte) *Node {
	out := &Node{
		Type:      tsNode.Type(),
		Named:     tsNode.IsNamed(),
		StartByte: uint32(tsNode.StartByte()), //nolint:gosec // tree-sitter byte offsets fit in uint32
		EndByte:   uint32(tsNode.EndByte()),   //nolint:gosec // tree-sitter byte offsets fit in uint32
		source:    source,
	}

	childCount := tsNode.ChildCount()
	if childCount == 0 {
		return out
	}

	out.Children = make([]*Node, 0, childCount)

	for idx := range childCount {
		child := tsNode.Child(idx)
		if child.IsNull() {
			continue
		}

		out.Children = append(out.Children, convertNode(child, source))
	}

	return out
}
