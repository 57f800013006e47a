// Package pattern compiles templates with typed placeholders into structural
// matchers over concrete syntax trees, and runs them.
package pattern

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

type role int

const (
	roleRoot role = iota
	roleLink
	rolePart
)

// shape is one position of the expected-node-shape tree. A position is either
// a literal expectation (Type, and Text at leaves), a placeholder hole, or the
// receiver of a chain link, which the chain walk matches separately.
type shape struct {
	Type     string
	Text     string
	Hole     string
	Children []*shape
	Skip     bool
}

type hole struct {
	name string
	path Path
}

// Pattern is a compiled template. It is read-only during matching; only the
// candidate lists of its aggregations and chains grow, through AddPart and
// AddLink, before matching starts.
type Pattern struct {
	lang      *langconfig.LanguageConfig
	defs      map[string]Placeholder
	root      *shape
	name      string
	draft     string
	owner     string
	template  Template
	order     []string
	holes     []hole
	receiver  Path
	linkBegin Path
	role      role
}

// Name returns the pattern name.
func (p *Pattern) Name() string { return p.name }

// Template returns the template the pattern was compiled from.
func (p *Pattern) Template() Template { return p.template }

// Draft returns the drafted text of the template, with every placeholder
// replaced by its draft literal.
func (p *Pattern) Draft() string { return p.draft }

// Language returns the name of the language the pattern was compiled for.
func (p *Pattern) Language() string { return p.lang.Name }

// Owner returns the chain or aggregation a link or part was compiled for.
func (p *Pattern) Owner() string { return p.owner }

// IsLink reports whether the pattern is a chain link.
func (p *Pattern) IsLink() bool { return p.role == roleLink }

// IsPart reports whether the pattern is an aggregation part.
func (p *Pattern) IsPart() bool { return p.role == rolePart }

// Holes maps each placeholder name to the path of its first hole, relative to
// the pattern root in the drafted tree.
func (p *Pattern) Holes() map[string]Path {
	out := make(map[string]Path, len(p.holes))

	for _, h := range p.holes {
		if _, seen := out[h.name]; !seen {
			out[h.name] = h.path
		}
	}

	return out
}

// Placeholders returns the definitions in declaration order.
func (p *Pattern) Placeholders() []Placeholder {
	out := make([]Placeholder, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.defs[name])
	}

	return out
}

// Aggregation returns the aggregation defined directly on this pattern.
func (p *Pattern) Aggregation(name string) (*Aggregation, bool) {
	agg, ok := p.defs[name].(*Aggregation)

	return agg, ok
}

// Chain returns the chain defined directly on this pattern.
func (p *Pattern) Chain(name string) (*Chain, bool) {
	chain, ok := p.defs[name].(*Chain)

	return chain, ok
}

// Lookup finds a placeholder by name on this pattern or, depth first, on the
// parts, chain starts and links reachable from it.
func (p *Pattern) Lookup(name string) (Placeholder, bool) {
	if def, ok := p.defs[name]; ok {
		return def, true
	}

	for _, defName := range p.order {
		var nested []*Pattern

		switch def := p.defs[defName].(type) {
		case *Aggregation:
			nested = def.parts
		case *Chain:
			nested = append([]*Pattern{def.start}, def.links...)
		}

		for _, sub := range nested {
			if found, ok := sub.Lookup(name); ok {
				return found, true
			}
		}
	}

	return nil, false
}

// String renders the expected-node-shape tree, one node per line.
func (p *Pattern) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s <- %q\n", p.name, p.template.Source)
	p.writeShape(&sb, p.root, 1)

	return sb.String()
}

func (p *Pattern) writeShape(sb *strings.Builder, s *shape, depth int) {
	if s == nil {
		return
	}

	indent := strings.Repeat("  ", depth)

	switch {
	case s.Skip:
		fmt.Fprintf(sb, "%s<receiver %s>\n", indent, s.Type)
	case s.Hole != "":
		fmt.Fprintf(sb, "%s${%s} %s\n", indent, s.Hole, p.defs[s.Hole].Kind())
	case len(s.Children) == 0 && s.Type == s.Text:
		fmt.Fprintf(sb, "%s%q\n", indent, s.Text)
	case len(s.Children) == 0:
		fmt.Fprintf(sb, "%s%s %q\n", indent, s.Type, s.Text)
	default:
		fmt.Fprintf(sb, "%s%s\n", indent, s.Type)
	}

	for _, child := range s.Children {
		p.writeShape(sb, child, depth+1)
	}
}

// significant returns the children of n that take part in matching.
func significant(lang *langconfig.LanguageConfig, n *syntax.Node) []*syntax.Node {
	if len(lang.IgnoredNodeTypes) == 0 {
		return n.Children
	}

	out := make([]*syntax.Node, 0, len(n.Children))

	for _, child := range n.Children {
		if !lang.Ignored(child.Type) {
			out = append(out, child)
		}
	}

	return out
}
