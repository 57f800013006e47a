package projection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

func newCompiler(t *testing.T, language string) (*pattern.Compiler, syntax.Parser) {
	t.Helper()

	parser, err := syntax.NewTreeSitterParser(language)
	require.NoError(t, err)

	lang, err := langconfig.Load(language)
	require.NoError(t, err)

	return pattern.NewCompiler(parser, lang), parser
}

func addition(t *testing.T, c *pattern.Compiler) *projection.Projection {
	t.Helper()

	p, err := c.Compile("add", "${a} + ${b}", pattern.NewArgument("a", pattern.AnyKind), pattern.NewArgument("b", pattern.AnyKind))
	require.NoError(t, err)

	return projection.New("add", "Addition", "${a} plus ${b}", p)
}

func parse(t *testing.T, parser syntax.Parser, source string) *syntax.Tree {
	t.Helper()

	tree, err := parser.Parse([]byte(source))
	require.NoError(t, err)

	return tree
}

func TestPackage_AddAndLookup(t *testing.T) {
	t.Parallel()

	c, _ := newCompiler(t, "python")
	pkg := projection.NewPackage("math", "python")
	add := addition(t, c)

	require.NoError(t, pkg.Add(add))
	require.ErrorIs(t, pkg.Add(add), projection.ErrDuplicateName)

	found, ok := pkg.Lookup("add")
	require.True(t, ok)
	assert.Same(t, add, found)

	_, ok = pkg.Lookup("sub")
	assert.False(t, ok)

	assert.Equal(t, []string{"add"}, pkg.Names())
	assert.Len(t, pkg.Projections(), 1)
	assert.Equal(t, "math", pkg.Name())
	assert.Equal(t, "python", pkg.Language())
}

func TestPackage_Freeze(t *testing.T) {
	t.Parallel()

	c, _ := newCompiler(t, "python")
	pkg := projection.NewPackage("math", "python")

	pkg.Freeze()
	assert.True(t, pkg.Frozen())
	require.ErrorIs(t, pkg.Add(addition(t, c)), projection.ErrFrozen)
}

func TestPackage_LanguageMismatch(t *testing.T) {
	t.Parallel()

	c, _ := newCompiler(t, "javascript")
	pkg := projection.NewPackage("math", "python")

	require.ErrorIs(t, pkg.Add(addition(t, c)), projection.ErrLanguageMismatch)
}

func TestScanner_OrderAndNesting(t *testing.T) {
	t.Parallel()

	c, parser := newCompiler(t, "python")
	pkg := projection.NewPackage("math", "python")
	require.NoError(t, pkg.Add(addition(t, c)))

	tree := parse(t, parser, "x = 1 + 2 + 3\ny = a + b\n")
	scanner := projection.NewScanner("python", pkg)

	all := scanner.Scan(tree, nil)
	require.Len(t, all, 3)
	assert.Equal(t, "1 + 2 + 3", all[0].Match.Node.Text())
	assert.Equal(t, "1 + 2", all[1].Match.Node.Text())
	assert.Equal(t, "a + b", all[2].Match.Node.Text())

	outer := scanner.ScanOutermost(tree, nil)
	require.Len(t, outer, 2)
	assert.Equal(t, "1 + 2 + 3", outer[0].Match.Node.Text())
	assert.Equal(t, "a plus b", outer[1].Projection.Preview(outer[1].Match))

	assert.True(t, pkg.Frozen())
	assert.Nil(t, scanner.Scan(nil, nil))
}

func TestScanner_SkipsOtherLanguages(t *testing.T) {
	t.Parallel()

	c, parser := newCompiler(t, "python")
	pkg := projection.NewPackage("math", "python")
	require.NoError(t, pkg.Add(addition(t, c)))

	scanner := projection.NewScanner("javascript", pkg)
	assert.Empty(t, scanner.Packages())
	assert.Empty(t, scanner.Scan(parse(t, parser, "1 + 2\n"), nil))
	assert.False(t, pkg.Frozen())
}

func TestProjection_PreviewFallsBackToSource(t *testing.T) {
	t.Parallel()

	c, parser := newCompiler(t, "python")

	cols := pattern.NewAggregation("cols", "list", pattern.OneToMany)
	item, err := c.CompilePart(cols, "item", pattern.MustParseTemplate("${v}"), pattern.NewArgument("v", "integer"))
	require.NoError(t, err)
	require.NoError(t, cols.AddPart(item))

	p, err := c.Compile("sum", "sum([${cols}])", cols)
	require.NoError(t, err)

	proj := projection.New("sum", "", "total of ${cols}", p)
	pkg := projection.NewPackage("agg", "python")
	require.NoError(t, pkg.Add(proj))

	results := projection.NewScanner("python", pkg).Scan(parse(t, parser, "sum([1, 2])\n"), nil)
	require.Len(t, results, 1)
	assert.Equal(t, "total of 1, 2", proj.Preview(results[0].Match))

	proj.AddRender("item", "#<%v%>")
	assert.Equal(t, "total of #1, #2", proj.Preview(results[0].Match))
	assert.Equal(t, map[string]string{"item": "#<%v%>"}, proj.Renders())
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	c, _ := newCompiler(t, "python")

	cols := pattern.NewAggregation("cols", "list", pattern.OneToMany)
	item, err := c.CompilePart(cols, "item", pattern.MustParseTemplate("${v}"), pattern.NewArgument("v", "integer"))
	require.NoError(t, err)
	require.NoError(t, cols.AddPart(item))

	p, err := c.Compile("sum", "  sum([${cols}], ${start})\n", cols, pattern.NewArgument("start", "integer"))
	require.NoError(t, err)

	proj := projection.New("sum", "Sum a literal list", "total of ${cols}", p)
	proj.AddRender("item", "#<%v%>")

	got := projection.Describe("agg", proj)

	assert.Equal(t, "agg", got.Package)
	assert.Equal(t, "sum([${cols}], ${start})", got.Template)
	assert.Equal(t, "total of ${cols}", got.Render)
	assert.Equal(t, map[string]string{"item": "#<%v%>"}, got.Renders)
	assert.Equal(t, []projection.PlaceholderDescription{
		{Name: "cols", Kind: "aggregation", NodeType: "list", Mode: "one-to-many", Candidates: []string{"item"}},
		{Name: "start", Kind: "argument", Accepts: []string{"integer"}},
	}, got.Placeholders)
	assert.Equal(t, p.String(), got.Shape)
}
