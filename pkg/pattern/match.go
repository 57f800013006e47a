package pattern

import (
	"slices"

	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

// Range is a half-open byte range in the matched source.
type Range struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Contains reports whether other lies within r.
func (r Range) Contains(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Match is the read-only result of a successful match.
type Match struct {
	Node     *syntax.Node
	Bindings map[string]Binding
	Pattern  string
	Range    Range
}

// Binding is what one placeholder matched. Aggregations keep one Match per
// group in Parts; chains keep link matches in source order in Parts and the
// innermost node's match in Start.
type Binding struct {
	Node  *syntax.Node
	Start *Match
	Parts []*Match
	Kind  Kind
}

// Text returns the source text of the bound node.
func (b Binding) Text() string {
	return b.Node.Text()
}

// Text returns the text bound to name, or "" when name is unbound.
func (m *Match) Text(name string) string {
	b, ok := m.Bindings[name]
	if !ok {
		return ""
	}

	return b.Text()
}

// Parts returns the per-repetition matches bound to an aggregation or chain.
func (m *Match) Parts(name string) []*Match {
	return m.Bindings[name].Parts
}

// Flatten converts the match into plain values for JSON consumers.
// Arguments, context variables and blocks become their text; aggregations a
// list of {pattern, bindings}; chains {start, links}.
func (m *Match) Flatten() map[string]any {
	out := make(map[string]any, len(m.Bindings))

	for name, b := range m.Bindings {
		switch b.Kind {
		case KindAggregation:
			out[name] = flattenAll(b.Parts)
		case KindChain:
			out[name] = map[string]any{
				"start": flattenOne(b.Start),
				"links": flattenAll(b.Parts),
			}
		default:
			out[name] = b.Text()
		}
	}

	return out
}

func flattenOne(m *Match) map[string]any {
	if m == nil {
		return nil
	}

	return map[string]any{"pattern": m.Pattern, "bindings": m.Flatten()}
}

func flattenAll(matches []*Match) []map[string]any {
	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, flattenOne(m))
	}

	return out
}

// MatchContext carries the values the execution context allows for context
// variables. A context variable only binds identifier nodes; a variable
// without an entry, or a nil context, accepts any name.
type MatchContext struct {
	Variables map[string][]string
}

// NewMatchContext returns an empty context.
func NewMatchContext() *MatchContext {
	return &MatchContext{Variables: map[string][]string{}}
}

// Allow adds allowed values for a context variable and returns the context.
func (mc *MatchContext) Allow(name string, values ...string) *MatchContext {
	if mc.Variables == nil {
		mc.Variables = map[string][]string{}
	}

	mc.Variables[name] = append(mc.Variables[name], values...)

	return mc
}

func (mc *MatchContext) allows(name, value string) bool {
	if mc == nil {
		return true
	}

	allowed, ok := mc.Variables[name]
	if !ok {
		return true
	}

	return slices.Contains(allowed, value)
}

// Match runs the pattern against node. It returns nil when node does not
// match; a negative match is never an error. Matching does not mutate the
// pattern, so it is safe to call concurrently.
func (p *Pattern) Match(node *syntax.Node, ctx *MatchContext) *Match {
	if node == nil || p.root == nil {
		return nil
	}

	m := &matcher{pattern: p, ctx: ctx, bindings: make(map[string]Binding, len(p.defs))}
	if !m.match(p.root, node) {
		return nil
	}

	return &Match{
		Pattern:  p.name,
		Range:    p.rangeOf(node),
		Node:     node,
		Bindings: m.bindings,
	}
}

func (p *Pattern) rangeOf(node *syntax.Node) Range {
	r := Range{Start: node.StartByte, End: node.EndByte}

	if p.role == roleLink {
		if begin := p.linkBegin.Resolve(node); begin != nil {
			r.Start = begin.StartByte
		}
	}

	return r
}

// matcher holds the bindings of one match attempt.
type matcher struct {
	pattern  *Pattern
	ctx      *MatchContext
	bindings map[string]Binding
}

func (m *matcher) match(s *shape, n *syntax.Node) bool {
	switch {
	case s.Skip:
		return true
	case s.Hole != "":
		return m.bind(s.Hole, n)
	case s.Type != n.Type:
		return false
	}

	kids := significant(m.pattern.lang, n)
	if len(kids) != len(s.Children) {
		return false
	}

	if len(s.Children) == 0 {
		return s.Text == n.Text()
	}

	for i, child := range s.Children {
		if !m.match(child, kids[i]) {
			return false
		}
	}

	return true
}

func (m *matcher) bind(name string, n *syntax.Node) bool {
	lang := m.pattern.lang

	switch def := m.pattern.defs[name].(type) {
	case *Argument:
		if !def.Accepts(n.Type) {
			return false
		}

		return m.bindOnce(name, Binding{Kind: KindArgument, Node: n})
	case *ContextVariable:
		if !lang.IsIdentifier(n.Type) || !m.ctx.allows(name, n.Text()) {
			return false
		}

		return m.bindOnce(name, Binding{Kind: KindContextVariable, Node: n})
	case *Block:
		if n.Type != lang.Blocks.BlockNodeType {
			return false
		}

		return m.bindOnce(name, Binding{Kind: KindBlock, Node: n})
	case *Aggregation:
		parts, ok := matchAggregation(def, lang, n, m.ctx)
		if !ok {
			return false
		}

		return m.bindOnce(name, Binding{Kind: KindAggregation, Node: n, Parts: parts})
	case *Chain:
		links, start, ok := matchChain(def, lang, n, m.ctx)
		if !ok {
			return false
		}

		return m.bindOnce(name, Binding{Kind: KindChain, Node: n, Parts: links, Start: start})
	default:
		return false
	}
}

// bindOnce binds name on first occurrence; later occurrences must have equal text.
func (m *matcher) bindOnce(name string, b Binding) bool {
	if prev, ok := m.bindings[name]; ok {
		return prev.Text() == b.Text()
	}

	m.bindings[name] = b

	return true
}
