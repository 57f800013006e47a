package pattern

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

const (
	identifierKind   = "identifier"
	emptyAggregation = "__empty_aggregation"
)

// Compiler turns templates into Patterns for one language. The language
// config is always passed in explicitly.
type Compiler struct {
	parser syntax.Parser
	lang   *langconfig.LanguageConfig
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for compilation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCompiler creates a compiler drafting with lang and parsing with parser.
func NewCompiler(parser syntax.Parser, lang *langconfig.LanguageConfig, opts ...Option) *Compiler {
	c := &Compiler{
		parser: parser,
		lang:   lang,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Language returns the language config the compiler drafts with.
func (c *Compiler) Language() *langconfig.LanguageConfig {
	return c.lang
}

// Compile parses a ${name} template and compiles it.
func (c *Compiler) Compile(name, text string, defs ...Placeholder) (*Pattern, error) {
	tmpl, err := ParseTemplate(text, DollarBraces)
	if err != nil {
		return nil, err
	}

	return c.CompileTemplate(name, tmpl, defs...)
}

// CompileTemplate compiles a root pattern. The pattern root is the deepest node
// of the drafted tree spanning the whole template.
func (c *Compiler) CompileTemplate(name string, tmpl Template, defs ...Placeholder) (*Pattern, error) {
	p, err := c.newPattern(name, tmpl, defs)
	if err != nil {
		return nil, err
	}

	text, occurrences := c.draft(p.template, p.defs)
	p.draft = text

	tree, err := c.parser.Parse([]byte(text))
	if err != nil {
		return nil, &TemplateCompilationError{Template: tmpl.Source, Reason: "parse drafted template", Err: err}
	}

	if tree.HasError {
		return nil, &TemplateCompilationError{Template: tmpl.Source, Reason: fmt.Sprintf("drafted template %q does not parse", text)}
	}

	root := deepestContaining(tree.Root, 0, uint32(len(text)))
	if fault := c.assemble(p, root, 0, occurrences); fault != nil {
		return nil, &TemplateCompilationError{Template: tmpl.Source, Placeholder: fault.placeholder, Reason: fault.reason}
	}

	c.logger.Debug("compiled pattern", "pattern", name, "root", root.Type, "holes", len(p.holes))

	return p, nil
}

type occurrence struct {
	name  string
	start int
	end   int
}

type fault struct {
	placeholder string
	reason      string
}

// newPattern checks the definitions against the template and returns an
// empty pattern holding them.
func (c *Compiler) newPattern(name string, tmpl Template, defs []Placeholder) (*Pattern, error) {
	fail := func(placeholder, reason string) error {
		return &TemplateCompilationError{Template: tmpl.Source, Placeholder: placeholder, Reason: reason}
	}

	p := &Pattern{
		name:     name,
		template: tmpl,
		lang:     c.lang,
		defs:     make(map[string]Placeholder, len(defs)),
	}

	for _, def := range defs {
		if def == nil {
			return nil, fail("", "nil placeholder definition")
		}

		if _, dup := p.defs[def.Name()]; dup {
			return nil, fail(def.Name(), "placeholder defined more than once")
		}

		if reason := c.checkDefinition(def); reason != "" {
			return nil, fail(def.Name(), reason)
		}

		p.defs[def.Name()] = def
		p.order = append(p.order, def.Name())
	}

	counts := make(map[string]int, len(tmpl.Placeholders))
	for _, ref := range tmpl.Placeholders {
		counts[ref]++
	}

	for _, ref := range tmpl.Names() {
		def, ok := p.defs[ref]
		if !ok {
			return nil, fail(ref, "placeholder has no definition")
		}

		if counts[ref] > 1 && def.Kind() != KindArgument && def.Kind() != KindContextVariable {
			return nil, fail(ref, def.Kind().String()+" placeholder referenced more than once")
		}
	}

	for _, defName := range p.order {
		if counts[defName] == 0 {
			return nil, fail(defName, "placeholder defined but not referenced")
		}
	}

	p.template = tmpl.trimmed()

	return p, nil
}

func (c *Compiler) checkDefinition(def Placeholder) string {
	switch d := def.(type) {
	case *Aggregation:
		if !d.mode.valid() {
			return "aggregation mode is required"
		}

		if _, ok := c.lang.Aggregatable(d.nodeType); !ok {
			return fmt.Sprintf("%q is not an aggregatable node type in %s", d.nodeType, c.lang.Name)
		}
	case *Chain:
		if d.start == nil {
			return "chain has no start pattern"
		}
	}

	return ""
}

// draft substitutes a draft literal for every placeholder and records where
// each one landed.
func (c *Compiler) draft(tmpl Template, defs map[string]Placeholder) (string, []occurrence) {
	var (
		sb          strings.Builder
		occurrences = make([]occurrence, 0, len(tmpl.Placeholders))
	)

	for i, fragment := range tmpl.Fragments {
		sb.WriteString(fragment)

		if i >= len(tmpl.Placeholders) {
			continue
		}

		name := tmpl.Placeholders[i]
		start := sb.Len()
		sb.WriteString(c.draftFor(defs[name]))
		occurrences = append(occurrences, occurrence{name: name, start: start, end: sb.Len()})
	}

	return sb.String(), occurrences
}

func (c *Compiler) draftFor(def Placeholder) string {
	switch d := def.(type) {
	case *Argument:
		for _, kind := range d.kinds {
			if kind != AnyKind && c.lang.HasDraft(kind) {
				return c.lang.Draft(kind)
			}
		}

		if len(d.kinds) > 0 && d.kinds[0] != AnyKind {
			return c.lang.Draft(d.kinds[0])
		}

		return c.lang.Draft(identifierKind)
	case *Aggregation:
		if len(d.parts) == 0 {
			return emptyAggregation
		}

		return d.parts[0].Draft()
	case *Chain:
		return d.start.Draft()
	case *Block:
		return c.lang.Blocks.Draft
	default:
		return c.lang.Draft(identifierKind)
	}
}

// assemble relocates every placeholder occurrence under root and builds the
// expected-node-shape tree. offset is where the template begins in the parsed
// text.
func (c *Compiler) assemble(p *Pattern, root *syntax.Node, offset int, occurrences []occurrence) *fault {
	for _, occ := range occurrences {
		path, f := c.relocate(p, root, offset, occ)
		if f != nil {
			return f
		}

		if len(path) == 0 && p.role == roleRoot {
			return &fault{placeholder: occ.name, reason: "placeholder covers the whole template; a pattern needs at least one literal node"}
		}

		for _, other := range p.holes {
			if path.HasPrefix(other.path) || other.path.HasPrefix(path) {
				return &fault{
					placeholder: occ.name,
					reason:      fmt.Sprintf("placeholder resolves to the same node as %q at %s", other.name, other.path),
				}
			}
		}

		if p.receiver != nil && (path.HasPrefix(p.receiver) || p.receiver.HasPrefix(path)) {
			return &fault{placeholder: occ.name, reason: "placeholder overlaps the link receiver"}
		}

		p.holes = append(p.holes, hole{name: occ.name, path: path})
	}

	p.root = c.buildShape(p, root, Path{})

	return nil
}

func (c *Compiler) relocate(p *Pattern, root *syntax.Node, offset int, occ occurrence) (Path, *fault) {
	start, end := uint32(offset+occ.start), uint32(offset+occ.end)

	path, node := search(root, Path{}, func(_ Path, n *syntax.Node, _ *syntax.Node) bool {
		return n.Covers(start, end)
	})
	if node == nil {
		return nil, &fault{placeholder: occ.name, reason: "drafted placeholder cannot be located in the parsed template"}
	}

	switch def := p.defs[occ.name].(type) {
	case *Aggregation:
		path, node = climb(root, path, def.nodeType)
		if node == nil {
			return nil, &fault{placeholder: occ.name, reason: "no enclosing " + def.nodeType}
		}

		cfg, _ := c.lang.Aggregatable(def.nodeType)
		if groups, ok := splitGroups(significant(c.lang, node), cfg); !ok || len(groups) != 1 {
			return nil, &fault{placeholder: occ.name, reason: "aggregation must be the only member of its " + def.nodeType}
		}
	case *Block:
		path, node = climb(root, path, c.lang.Blocks.BlockNodeType)
		if node == nil {
			return nil, &fault{placeholder: occ.name, reason: "no enclosing " + c.lang.Blocks.BlockNodeType}
		}
	}

	return path, nil
}

func (c *Compiler) buildShape(p *Pattern, n *syntax.Node, path Path) *shape {
	if p.receiver != nil && path.Equal(p.receiver) {
		return &shape{Type: n.Type, Skip: true}
	}

	for _, h := range p.holes {
		if h.path.Equal(path) {
			return &shape{Type: n.Type, Hole: h.name}
		}
	}

	s := &shape{Type: n.Type}
	if n.IsLeaf() {
		s.Text = n.Text()

		return s
	}

	for idx, child := range n.Children {
		if c.lang.Ignored(child.Type) {
			continue
		}

		s.Children = append(s.Children, c.buildShape(p, child, path.Child(idx)))
	}

	return s
}

// search returns the first node in document order under root accepted by
// match, which receives the node path, the node and its parent.
func search(root *syntax.Node, path Path, match func(Path, *syntax.Node, *syntax.Node) bool) (Path, *syntax.Node) {
	var walk func(n, parent *syntax.Node, at Path) (Path, *syntax.Node)

	walk = func(n, parent *syntax.Node, at Path) (Path, *syntax.Node) {
		if match(at, n, parent) {
			return at, n
		}

		for idx, child := range n.Children {
			if found, node := walk(child, n, at.Child(idx)); node != nil {
				return found, node
			}
		}

		return nil, nil
	}

	return walk(root, nil, path)
}

// climb walks from path up to the nearest node of nodeType, staying under root.
func climb(root *syntax.Node, path Path, nodeType string) (Path, *syntax.Node) {
	for {
		node := path.Resolve(root)
		if node != nil && node.Type == nodeType {
			return path, node
		}

		parent, ok := path.Parent()
		if !ok {
			return nil, nil
		}

		path = parent
	}
}

// deepestContaining descends from root while a single child spans [start, end).
func deepestContaining(root *syntax.Node, start, end uint32) *syntax.Node {
	node := root

descend:
	for {
		for _, child := range node.Children {
			if child.StartByte <= start && child.EndByte >= end {
				node = child

				continue descend
			}
		}

		return node
	}
}

// trimmed drops whitespace around the template so drafts line up with node ranges.
func (t Template) trimmed() Template {
	if len(t.Fragments) == 0 {
		return t
	}

	out := Template{
		Source:       t.Source,
		Fragments:    slices.Clone(t.Fragments),
		Placeholders: slices.Clone(t.Placeholders),
	}

	last := len(out.Fragments) - 1
	out.Fragments[0] = strings.TrimLeftFunc(out.Fragments[0], unicode.IsSpace)
	out.Fragments[last] = strings.TrimRightFunc(out.Fragments[last], unicode.IsSpace)

	return out
}
