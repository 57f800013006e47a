package pattern

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

// CompileLink compiles a free-standing link template, e.g. alias(${name}),
// for chain. The link is embedded after the chain start's draft and one of the
// language's connectives; the resulting pattern is rooted at the chainable node
// that joins the two, with the receiver left to the chain walk.
// The link is not added to the chain; call Chain.AddLink for that.
func (c *Compiler) CompileLink(chain *Chain, name string, tmpl Template, defs ...Placeholder) (*Pattern, error) {
	if chain == nil || chain.start == nil {
		return nil, &TransformationError{Template: tmpl.Source, Target: name, Reason: "chain has no start pattern"}
	}

	p, err := c.newPattern(name, tmpl, defs)
	if err != nil {
		return nil, err
	}

	p.role = roleLink
	p.owner = chain.name

	linkDraft, occurrences := c.draft(p.template, p.defs)
	p.draft = linkDraft
	startDraft := chain.start.Draft()

	fail := func(reason string, cause error) error {
		return &TransformationError{Template: tmpl.Source, Target: chain.name, Reason: reason, Err: cause}
	}

	var tried []string

	for _, connective := range c.lang.Connectives() {
		text := startDraft + connective + linkDraft
		tried = append(tried, text)

		tree, err := c.parser.Parse([]byte(text))
		if err != nil {
			return nil, fail("parse link wrapper", err)
		}

		if tree.HasError {
			continue
		}

		candidates := c.linkCandidates(tree.Root, uint32(len(startDraft)), uint32(len(text)))

		switch len(candidates) {
		case 0:
			continue
		case 1:
		default:
			return nil, fail(fmt.Sprintf("link node in %q is ambiguous", text), nil)
		}

		root := candidates[0]
		cfg, _ := c.lang.Chainable(root.Type)
		p.receiver = Path(cfg.PathToNextLink)
		p.linkBegin = Path(cfg.PathToLinkBegin)

		if f := c.assemble(p, root, len(startDraft)+len(connective), occurrences); f != nil {
			return nil, fail(fmt.Sprintf("placeholder %q: %s", f.placeholder, f.reason), nil)
		}

		c.logger.Debug("compiled chain link", "chain", chain.name, "link", name, "node", root.Type)

		return p, nil
	}

	return nil, fail(fmt.Sprintf("no chainable node joins the start and the link in %q", tried), nil)
}

// linkCandidates finds chainable nodes ending at end whose receiver is exactly
// the start draft and whose link begins right after it.
func (c *Compiler) linkCandidates(root *syntax.Node, startLen, end uint32) []*syntax.Node {
	var out []*syntax.Node

	root.Walk(func(n *syntax.Node) bool {
		if n.EndByte != end {
			return n.EndByte > end
		}

		cfg, ok := c.lang.Chainable(n.Type)
		if !ok {
			return true
		}

		receiver := Path(cfg.PathToNextLink).Resolve(n)
		begin := Path(cfg.PathToLinkBegin).Resolve(n)

		if receiver != nil && receiver.Covers(0, startLen) && begin != nil && begin.StartByte == startLen {
			out = append(out, n)
		}

		return true
	})

	return out
}

// CompilePart compiles a free-standing aggregation part template, e.g.
// ${col}=${alias}, for agg. The part is embedded in the aggregatable node
// type's context template; the resulting pattern is rooted at the outermost
// node spanning the part whose parent is the aggregatable node.
// The part is not added to the aggregation; call Aggregation.AddPart for that.
func (c *Compiler) CompilePart(agg *Aggregation, name string, tmpl Template, defs ...Placeholder) (*Pattern, error) {
	if agg == nil {
		return nil, &TransformationError{Template: tmpl.Source, Target: name, Reason: "no aggregation"}
	}

	fail := func(reason string, cause error) error {
		return &TransformationError{Template: tmpl.Source, Target: agg.name, Reason: reason, Err: cause}
	}

	cfg, ok := c.lang.Aggregatable(agg.nodeType)
	if !ok {
		return nil, fail(fmt.Sprintf("%q is not an aggregatable node type in %s", agg.nodeType, c.lang.Name), nil)
	}

	p, err := c.newPattern(name, tmpl, defs)
	if err != nil {
		return nil, err
	}

	p.role = rolePart
	p.owner = agg.name

	partDraft, occurrences := c.draft(p.template, p.defs)
	p.draft = partDraft

	prefix, suffix, _ := strings.Cut(cfg.ContextTemplate, langconfig.AggregationMarker)
	text := prefix + partDraft + suffix

	tree, err := c.parser.Parse([]byte(text))
	if err != nil {
		return nil, fail("parse part wrapper", err)
	}

	if tree.HasError {
		return nil, fail(fmt.Sprintf("part wrapper %q does not parse", text), nil)
	}

	start, end := uint32(len(prefix)), uint32(len(prefix)+len(partDraft))

	_, root := search(tree.Root, Path{}, func(_ Path, n, parent *syntax.Node) bool {
		return parent != nil && parent.Type == agg.nodeType && n.Covers(start, end)
	})
	if root == nil {
		return nil, fail(fmt.Sprintf("part is not a single member of %s in %q", agg.nodeType, text), nil)
	}

	if f := c.assemble(p, root, len(prefix), occurrences); f != nil {
		return nil, fail(fmt.Sprintf("placeholder %q: %s", f.placeholder, f.reason), nil)
	}

	c.logger.Debug("compiled aggregation part", "aggregation", agg.name, "part", name, "node", root.Type)

	return p, nil
}
