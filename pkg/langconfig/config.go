// Package langconfig holds the per-language syntax facts the pattern compiler
// needs: draft literals per placeholder kind, aggregatable and chainable node
// shapes, and the block statement shape.
package langconfig

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// AggregationMarker is the marker a contextTemplate uses for the embedded part.
const AggregationMarker = "__agg__"

// defaultIdentifierNodeType names identifiers when identifierNodeTypes is unset.
const defaultIdentifierNodeType = "identifier"

// emptyDraftPrefix prefixes the generic draft used for kinds without a registered draft.
const emptyDraftPrefix = "__empty_"

// Sentinel validation errors.
var (
	ErrMissingName           = errors.New("language config: name is required")
	ErrMissingMarker         = errors.New("language config: contextTemplate must contain " + AggregationMarker + " exactly once")
	ErrMissingTokens         = errors.New("language config: aggregatable node type needs a delimiter token")
	ErrEmptyNextLink         = errors.New("language config: pathToNextLink must not be empty")
	ErrNegativePathIndex     = errors.New("language config: path indices must be non-negative")
	ErrMissingBlockNodeType  = errors.New("language config: blocks.blockNodeType is required")
	ErrMissingBlockDraft     = errors.New("language config: blocks.draft is required")
	ErrUnknownLanguageConfig = errors.New("language config not found")
)

// LanguageConfig is the static table of syntax facts for one target language.
type LanguageConfig struct {
	Name                string             `yaml:"name"`
	Arguments           ArgumentsConfig    `yaml:"arguments"`
	Aggregations        AggregationsConfig `yaml:"aggregations"`
	Chains              ChainsConfig       `yaml:"chains"`
	Blocks              BlocksConfig       `yaml:"blocks"`
	IgnoredNodeTypes    []string           `yaml:"ignoredNodeTypes"`
	IdentifierNodeTypes []string           `yaml:"identifierNodeTypes"`
}

// ArgumentsConfig maps placeholder kinds to the literal text drafted in their place.
type ArgumentsConfig struct {
	DraftTypeMapping map[string]string `yaml:"draftTypeMapping"`
}

// AggregationsConfig lists the node types whose children may be aggregated.
type AggregationsConfig struct {
	AggregatableNodeTypes map[string]AggregatableNodeType `yaml:"aggregatableNodeTypes"`
}

// AggregatableNodeType describes a delimited list construct such as an argument list.
type AggregatableNodeType struct {
	StartToken      string `yaml:"startToken"`
	DelimiterToken  string `yaml:"delimiterToken"`
	EndToken        string `yaml:"endToken"`
	ContextTemplate string `yaml:"contextTemplate"`
}

// ChainsConfig describes how linked call/attribute chains are walked.
type ChainsConfig struct {
	ChainableNodeTypes map[string]ChainableNodeType `yaml:"chainableNodeTypes"`
	PathToFirstLink    []int                        `yaml:"pathToFirstLink"`
}

// ChainableNodeType locates the pieces of one chain link node.
// Connective is the token text placed between a receiver and the link.
type ChainableNodeType struct {
	Connective      string `yaml:"connective"`
	PathToLinkBegin []int  `yaml:"pathToLinkBegin"`
	PathToNextLink  []int  `yaml:"pathToNextLink"`
}

// BlocksConfig describes the nested statement sequence construct.
type BlocksConfig struct {
	BlockNodeType string `yaml:"blockNodeType"`
	Draft         string `yaml:"draft"`
}

// Draft returns the literal drafted for a placeholder of the given kind,
// falling back to __empty_<kind>.
func (lc *LanguageConfig) Draft(kind string) string {
	if draft, ok := lc.Arguments.DraftTypeMapping[kind]; ok {
		return draft
	}

	return emptyDraftPrefix + kind
}

// HasDraft reports whether a specific draft is registered for kind.
func (lc *LanguageConfig) HasDraft(kind string) bool {
	_, ok := lc.Arguments.DraftTypeMapping[kind]

	return ok
}

// Aggregatable returns the configuration of an aggregatable node type.
func (lc *LanguageConfig) Aggregatable(nodeType string) (AggregatableNodeType, bool) {
	cfg, ok := lc.Aggregations.AggregatableNodeTypes[nodeType]

	return cfg, ok
}

// Chainable returns the configuration of a chainable node type.
func (lc *LanguageConfig) Chainable(nodeType string) (ChainableNodeType, bool) {
	cfg, ok := lc.Chains.ChainableNodeTypes[nodeType]

	return cfg, ok
}

// ChainableTypes returns the chainable node type names in sorted order.
func (lc *LanguageConfig) ChainableTypes() []string {
	names := make([]string, 0, len(lc.Chains.ChainableNodeTypes))
	for name := range lc.Chains.ChainableNodeTypes {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Connectives returns the distinct link connectives in chainable-type order.
func (lc *LanguageConfig) Connectives() []string {
	var connectives []string

	for _, name := range lc.ChainableTypes() {
		connective := lc.Chains.ChainableNodeTypes[name].Connective
		if !slices.Contains(connectives, connective) {
			connectives = append(connectives, connective)
		}
	}

	return connectives
}

// Ignored reports whether nodes of this type are skipped during matching.
func (lc *LanguageConfig) Ignored(nodeType string) bool {
	return slices.Contains(lc.IgnoredNodeTypes, nodeType)
}

// IsIdentifier reports whether nodes of this type are names a context
// variable may bind.
func (lc *LanguageConfig) IsIdentifier(nodeType string) bool {
	if len(lc.IdentifierNodeTypes) == 0 {
		return nodeType == defaultIdentifierNodeType
	}

	return slices.Contains(lc.IdentifierNodeTypes, nodeType)
}

// Validate checks the semantic constraints the schema cannot express.
func (lc *LanguageConfig) Validate() error {
	if lc.Name == "" {
		return ErrMissingName
	}

	for name, agg := range lc.Aggregations.AggregatableNodeTypes {
		if strings.Count(agg.ContextTemplate, AggregationMarker) != 1 {
			return fmt.Errorf("%w: %s", ErrMissingMarker, name)
		}

		if agg.DelimiterToken == "" {
			return fmt.Errorf("%w: %s", ErrMissingTokens, name)
		}
	}

	if err := validatePath(lc.Chains.PathToFirstLink); err != nil {
		return fmt.Errorf("pathToFirstLink: %w", err)
	}

	for name, chainable := range lc.Chains.ChainableNodeTypes {
		if len(chainable.PathToNextLink) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyNextLink, name)
		}

		if err := validatePath(chainable.PathToNextLink); err != nil {
			return fmt.Errorf("%s.pathToNextLink: %w", name, err)
		}

		if err := validatePath(chainable.PathToLinkBegin); err != nil {
			return fmt.Errorf("%s.pathToLinkBegin: %w", name, err)
		}
	}

	if lc.Blocks.BlockNodeType == "" {
		return ErrMissingBlockNodeType
	}

	if lc.Blocks.Draft == "" {
		return ErrMissingBlockDraft
	}

	return nil
}

func validatePath(path []int) error {
	for _, idx := range path {
		if idx < 0 {
			return fmt.Errorf("%w: %v", ErrNegativePathIndex, path)
		}
	}

	return nil
}
