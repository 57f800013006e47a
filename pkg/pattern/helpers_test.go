package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

func newPythonCompiler(t *testing.T) *pattern.Compiler {
	t.Helper()

	parser, err := syntax.NewTreeSitterParser("python")
	require.NoError(t, err)

	lang, err := langconfig.Load("python")
	require.NoError(t, err)

	return pattern.NewCompiler(parser, lang)
}

func parsePython(t *testing.T, source string) *syntax.Tree {
	t.Helper()

	parser, err := syntax.NewTreeSitterParser("python")
	require.NoError(t, err)

	tree, err := parser.Parse([]byte(source))
	require.NoError(t, err)
	require.False(t, tree.HasError, source)

	return tree
}

// matchAll attempts p at every node of source in document order.
func matchAll(t *testing.T, p *pattern.Pattern, source string, ctx *pattern.MatchContext) []*pattern.Match {
	t.Helper()

	var matches []*pattern.Match

	parsePython(t, source).Root.Walk(func(n *syntax.Node) bool {
		if m := p.Match(n, ctx); m != nil {
			matches = append(matches, m)
		}

		return true
	})

	return matches
}

func matchOne(t *testing.T, p *pattern.Pattern, source string, ctx *pattern.MatchContext) *pattern.Match {
	t.Helper()

	matches := matchAll(t, p, source, ctx)
	require.Len(t, matches, 1, source)

	return matches[0]
}

func compileReplace(t *testing.T, c *pattern.Compiler) *pattern.Pattern {
	t.Helper()

	p, err := c.Compile("replace", "${table}.column(${col}).replace(${a}, ${b})",
		pattern.NewContextVariable("table"),
		pattern.NewArgument("col", "string"),
		pattern.NewArgument("a", "string", "integer", "identifier"),
		pattern.NewArgument("b", "string", "integer", "identifier"),
	)
	require.NoError(t, err)

	return p
}

// compileSelect builds ${df}.select(${columns}) with parts ${col} and ${col}=${alias}.
func compileSelect(t *testing.T, c *pattern.Compiler) (*pattern.Pattern, *pattern.Aggregation) {
	t.Helper()

	columns := pattern.NewAggregation("columns", "argument_list", pattern.OneToMany)

	plain, err := c.CompilePart(columns, "col", pattern.MustParseTemplate("${col}"),
		pattern.NewArgument("col", "identifier"))
	require.NoError(t, err)
	require.NoError(t, columns.AddPart(plain))

	aliased, err := c.CompilePart(columns, "alias_part", pattern.MustParseTemplate("${col}=${alias}"),
		pattern.NewArgument("col", "identifier"), pattern.NewArgument("alias", pattern.AnyKind))
	require.NoError(t, err)
	require.NoError(t, columns.AddPart(aliased))

	p, err := c.Compile("select", "${df}.select(${columns})", pattern.NewContextVariable("df"), columns)
	require.NoError(t, err)

	return p, columns
}

// compileQuery builds ${query}.collect() where query is a chain starting at df
// with links select(${col}) and filter(${key}=${value}).
func compileQuery(t *testing.T, c *pattern.Compiler) (*pattern.Pattern, *pattern.Chain) {
	t.Helper()

	start, err := c.Compile("df", "df")
	require.NoError(t, err)

	query := pattern.NewChain("query", start)

	sel, err := c.CompileLink(query, "select", pattern.MustParseTemplate("select(${col})"),
		pattern.NewArgument("col", "string"))
	require.NoError(t, err)
	require.NoError(t, query.AddLink(sel))

	filter, err := c.CompileLink(query, "filter", pattern.MustParseTemplate("filter(${key}=${value})"),
		pattern.NewArgument("key", "identifier"), pattern.NewArgument("value", pattern.AnyKind))
	require.NoError(t, err)
	require.NoError(t, query.AddLink(filter))

	p, err := c.Compile("collect", "${query}.collect()", query)
	require.NoError(t, err)

	return p, query
}

func linkNames(matches []*pattern.Match) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Pattern)
	}

	return names
}
