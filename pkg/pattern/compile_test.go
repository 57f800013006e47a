package pattern_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
)

func requireCompilationError(t *testing.T, err error, placeholder string) {
	t.Helper()

	require.Error(t, err)
	require.ErrorIs(t, err, pattern.ErrTemplateCompilation)

	var compileErr *pattern.TemplateCompilationError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, placeholder, compileErr.Placeholder)
}

func TestCompile_Holes(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	p := compileReplace(t, c)

	holes := p.Holes()
	require.Len(t, holes, 4)

	// call(attribute(call(attribute(table . column) argument_list(( col ))) . replace) argument_list(( a , b )))
	assert.Empty(t, cmp.Diff(pattern.Path{0, 0, 0, 0}, holes["table"]))
	assert.Empty(t, cmp.Diff(pattern.Path{0, 0, 1, 1}, holes["col"]))
	assert.Empty(t, cmp.Diff(pattern.Path{1, 1}, holes["a"]))
	assert.Empty(t, cmp.Diff(pattern.Path{1, 3}, holes["b"]))

	assert.Equal(t, "python", p.Language())
	assert.Equal(t, `__draft_identifier.column("__draft_string").replace("__draft_string", "__draft_string")`, p.Draft())
	assert.Len(t, p.Placeholders(), 4)
}

func TestCompile_StringShowsShape(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	p, _ := compileSelect(t, c)

	dump := p.String()
	assert.Contains(t, dump, "select <- ")
	assert.Contains(t, dump, "${df} context")
	assert.Contains(t, dump, "${columns} aggregation")
	assert.Contains(t, dump, `identifier "select"`)
}

func TestCompile_DefinitionErrors(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)

	_, err := c.Compile("missing", "${a}.foo()")
	requireCompilationError(t, err, "a")

	_, err = c.Compile("duplicate", "${a}.foo()", pattern.NewArgument("a"), pattern.NewContextVariable("a"))
	requireCompilationError(t, err, "a")

	_, err = c.Compile("unused", "${a}.foo()", pattern.NewArgument("a"), pattern.NewArgument("b"))
	requireCompilationError(t, err, "b")

	_, err = c.Compile("nil", "df.foo()", nil)
	requireCompilationError(t, err, "")

	agg := pattern.NewAggregation("cols", "argument_list", 0)
	_, err = c.Compile("mode", "df.select(${cols})", agg)
	requireCompilationError(t, err, "cols")

	notAggregatable := pattern.NewAggregation("cols", "call", pattern.OneToMany)
	_, err = c.Compile("node", "df.select(${cols})", notAggregatable)
	requireCompilationError(t, err, "cols")

	block := pattern.NewBlock("body")
	_, err = c.Compile("twice", "if x:\n    ${body}\nelse:\n    ${body}", block)
	requireCompilationError(t, err, "body")
}

func TestCompile_StructuralErrors(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)

	_, err := c.Compile("bare", "${a}", pattern.NewArgument("a", "identifier"))
	requireCompilationError(t, err, "a")

	_, err = c.Compile("broken", "${a}.(", pattern.NewArgument("a", "identifier"))
	requireCompilationError(t, err, "")

	// The aggregation must be the only member of the argument list.
	agg := pattern.NewAggregation("cols", "argument_list", pattern.OneToMany)
	_, err = c.Compile("crowded", "df.select(x, ${cols})", agg)
	requireCompilationError(t, err, "cols")

	// A block placeholder outside any block has nothing to climb to.
	_, err = c.Compile("stray", "x = 1\n${body}", pattern.NewBlock("body"))
	requireCompilationError(t, err, "body")
}

func TestCompileLink_Errors(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	_, query := compileQuery(t, c)

	_, err := c.CompileLink(query, "plus", pattern.MustParseTemplate("+ ${x}"), pattern.NewArgument("x"))
	require.ErrorIs(t, err, pattern.ErrTransformation)

	var transformErr *pattern.TransformationError
	require.ErrorAs(t, err, &transformErr)
	assert.Equal(t, "query", transformErr.Target)

	_, err = c.CompileLink(pattern.NewChain("empty", nil), "x", pattern.MustParseTemplate("x()"))
	require.ErrorIs(t, err, pattern.ErrTransformation)

	_, err = c.CompileLink(query, "bad", pattern.MustParseTemplate("head(${n})"))
	require.ErrorIs(t, err, pattern.ErrTemplateCompilation)
}

func TestCompileLink_SubscriptAndAttribute(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	p, query := compileQuery(t, c)

	item, err := c.CompileLink(query, "item", pattern.MustParseTemplate("[${key}]"), pattern.NewArgument("key", "string"))
	require.NoError(t, err)
	require.NoError(t, query.AddLink(item))
	assert.True(t, item.IsLink())
	assert.Equal(t, "query", item.Owner())

	lazy, err := c.CompileLink(query, "lazy", pattern.MustParseTemplate("lazy"))
	require.NoError(t, err)
	require.NoError(t, query.AddLink(lazy))

	m := matchOne(t, p, "df[\"a\"].lazy.select(\"b\").collect()\n", nil)
	assert.Equal(t, []string{"item", "lazy", "select"}, linkNames(m.Parts("query")))
}

func TestCompilePart_Errors(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	cols := pattern.NewAggregation("cols", "argument_list", pattern.OneToMany)

	_, err := c.CompilePart(cols, "loop", pattern.MustParseTemplate("for ${x} in y: pass"), pattern.NewArgument("x"))
	require.ErrorIs(t, err, pattern.ErrTransformation)

	_, err = c.CompilePart(pattern.NewAggregation("cols", "call", pattern.OneToMany), "x",
		pattern.MustParseTemplate("${x}"), pattern.NewArgument("x"))
	require.ErrorIs(t, err, pattern.ErrTransformation)

	_, err = c.CompilePart(nil, "x", pattern.MustParseTemplate("${x}"), pattern.NewArgument("x"))
	require.ErrorIs(t, err, pattern.ErrTransformation)
}

func TestAddPartAndLink_RejectForeignPatterns(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	root := compileReplace(t, c)
	_, query := compileQuery(t, c)
	_, columns := compileSelect(t, c)

	require.Error(t, columns.AddPart(root))
	require.Error(t, query.AddLink(root))
	require.Error(t, query.AddLink(columns.Parts()[0]))

	other := pattern.NewAggregation("other", "argument_list", pattern.OneToMany)
	require.Error(t, other.AddPart(columns.Parts()[0]))
	assert.Len(t, columns.Parts(), 2)
}

func TestLookup_FindsNestedPlaceholders(t *testing.T) {
	t.Parallel()

	c := newPythonCompiler(t)
	inner := pattern.NewAggregation("names", "argument_list", pattern.OneToMany)

	name, err := c.CompilePart(inner, "name", pattern.MustParseTemplate("${name}"), pattern.NewArgument("name", "string"))
	require.NoError(t, err)
	require.NoError(t, inner.AddPart(name))

	start, err := c.Compile("col", "pl.col(${names})", inner)
	require.NoError(t, err)

	expr := pattern.NewChain("expr", start)
	p, err := c.Compile("with_columns", "${df}.with_columns(${expr})", pattern.NewContextVariable("df"), expr)
	require.NoError(t, err)

	found, ok := p.Lookup("names")
	require.True(t, ok)
	assert.Same(t, inner, found)

	chain, ok := p.Chain("expr")
	require.True(t, ok)
	assert.Same(t, expr, chain)

	_, ok = p.Aggregation("expr")
	assert.False(t, ok)

	_, ok = p.Lookup("missing")
	assert.False(t, ok)
}

func TestErrors_Messages(t *testing.T) {
	t.Parallel()

	err := &pattern.TemplateCompilationError{Template: "${a}", Placeholder: "a", Reason: "boom"}
	assert.Equal(t, `compile template "${a}" (placeholder "a"): boom`, err.Error())
	assert.True(t, errors.Is(err, pattern.ErrTemplateCompilation))
	assert.False(t, errors.Is(err, pattern.ErrTransformation))

	cause := errors.New("cause")
	terr := &pattern.TransformationError{Template: "x", Target: "chain", Reason: "r", Err: cause}
	assert.ErrorIs(t, terr, cause)
	assert.ErrorIs(t, terr, pattern.ErrTransformation)
}
