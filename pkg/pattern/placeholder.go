package pattern

import (
	"errors"
	"slices"
)

// Kind identifies the placeholder flavour behind a hole.
type Kind int

const (
	// KindArgument matches exactly one node of an allowed kind.
	KindArgument Kind = iota
	// KindContextVariable matches a name supplied by the execution context.
	KindContextVariable
	// KindAggregation matches a delimited run of repeated parts.
	KindAggregation
	// KindChain matches a sequence of linked calls or attribute accesses.
	KindChain
	// KindBlock matches a nested statement sequence wholesale.
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindContextVariable:
		return "context"
	case KindAggregation:
		return "aggregation"
	case KindChain:
		return "chain"
	case KindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// AnyKind lets an Argument match a node of any type.
const AnyKind = "*"

var (
	errNotAPart     = errors.New("pattern was not compiled as an aggregation part")
	errNotALink     = errors.New("pattern was not compiled as a chain link")
	errForeignOwner = errors.New("pattern was compiled for a different owner")
)

// Placeholder is a named hole definition supplied at compile time.
type Placeholder interface {
	Name() string
	Kind() Kind
}

// Argument matches exactly one leaf or subtree whose node type is one of Kinds.
type Argument struct {
	name  string
	kinds []string
}

// NewArgument defines an argument placeholder. No kinds means any node type.
func NewArgument(name string, kinds ...string) *Argument {
	return &Argument{name: name, kinds: slices.Clone(kinds)}
}

func (a *Argument) Name() string { return a.name }
func (a *Argument) Kind() Kind   { return KindArgument }

// Kinds returns the allowed node kinds.
func (a *Argument) Kinds() []string { return slices.Clone(a.kinds) }

// Accepts reports whether a node type is one of the allowed kinds.
func (a *Argument) Accepts(nodeType string) bool {
	if len(a.kinds) == 0 {
		return true
	}

	return slices.Contains(a.kinds, AnyKind) || slices.Contains(a.kinds, nodeType)
}

// ContextVariable matches a name the surrounding execution context binds.
type ContextVariable struct {
	name string
}

// NewContextVariable defines a context variable placeholder.
func NewContextVariable(name string) *ContextVariable {
	return &ContextVariable{name: name}
}

func (v *ContextVariable) Name() string { return v.name }
func (v *ContextVariable) Kind() Kind   { return KindContextVariable }

// Block matches the nested statement sequence of a compound statement.
type Block struct {
	name string
}

// NewBlock defines a block placeholder.
func NewBlock(name string) *Block {
	return &Block{name: name}
}

func (b *Block) Name() string { return b.name }
func (b *Block) Kind() Kind   { return KindBlock }

// Mode is the cardinality of an aggregation. The zero value is invalid and
// rejected by the compiler.
type Mode int

const (
	_ Mode = iota
	// OneToOne requires exactly one group.
	OneToOne
	// OneToMany accepts any number of groups, including none.
	OneToMany
)

func (m Mode) String() string {
	switch m {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	default:
		return "unset"
	}
}

func (m Mode) valid() bool {
	return m == OneToOne || m == OneToMany
}

// Aggregation matches the delimited children of an aggregatable node, each
// against an ordered list of candidate part patterns.
type Aggregation struct {
	name     string
	nodeType string
	parts    []*Pattern
	mode     Mode
}

// NewAggregation defines an aggregation over nodes of nodeType.
func NewAggregation(name, nodeType string, mode Mode) *Aggregation {
	return &Aggregation{name: name, nodeType: nodeType, mode: mode}
}

func (a *Aggregation) Name() string { return a.name }
func (a *Aggregation) Kind() Kind   { return KindAggregation }

// NodeType returns the aggregatable node type the aggregation owns.
func (a *Aggregation) NodeType() string { return a.nodeType }

// Mode returns the cardinality mode.
func (a *Aggregation) Mode() Mode { return a.mode }

// Parts returns the candidate part patterns in the order they are tried.
func (a *Aggregation) Parts() []*Pattern { return slices.Clone(a.parts) }

// AddPart appends a candidate compiled with CompilePart for this aggregation.
// Appended parts are tried after every existing one.
func (a *Aggregation) AddPart(part *Pattern) error {
	if part == nil || part.role != rolePart {
		return errNotAPart
	}

	if part.owner != a.name {
		return errForeignOwner
	}

	a.parts = append(a.parts, part)

	return nil
}

// Chain matches a sequence of link patterns ending in a start pattern.
type Chain struct {
	name  string
	start *Pattern
	links []*Pattern
}

// NewChain defines a chain whose innermost node must match start.
func NewChain(name string, start *Pattern) *Chain {
	return &Chain{name: name, start: start}
}

func (c *Chain) Name() string { return c.name }
func (c *Chain) Kind() Kind   { return KindChain }

// Start returns the pattern the innermost chain node must match.
func (c *Chain) Start() *Pattern { return c.start }

// Links returns the candidate link patterns in the order they are tried.
func (c *Chain) Links() []*Pattern { return slices.Clone(c.links) }

// AddLink appends a candidate compiled with CompileLink for this chain.
// Appended links are tried after every existing one.
func (c *Chain) AddLink(link *Pattern) error {
	if link == nil || link.role != roleLink {
		return errNotALink
	}

	if link.owner != c.name {
		return errForeignOwner
	}

	c.links = append(c.links, link)

	return nil
}
