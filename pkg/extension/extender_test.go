package extension_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/extension"
	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/packages/polars"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

type fixture struct {
	parser   syntax.Parser
	compiler *pattern.Compiler
	pkg      *projection.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	parser, err := syntax.NewTreeSitterParser("python")
	require.NoError(t, err)

	lang, err := langconfig.Load("python")
	require.NoError(t, err)

	c := pattern.NewCompiler(parser, lang)

	pkg, err := polars.New(c)
	require.NoError(t, err)

	return &fixture{parser: parser, compiler: c, pkg: pkg}
}

// scan matches source against every root projection without freezing the
// package, so it can still be extended afterwards.
func (f *fixture) scan(t *testing.T, source string) []map[string]any {
	t.Helper()

	tree, err := f.parser.Parse([]byte(source))
	require.NoError(t, err)

	var out []map[string]any

	tree.Root.Walk(func(n *syntax.Node) bool {
		for _, proj := range f.pkg.Projections() {
			if m := proj.Pattern.Match(n, nil); m != nil {
				out = append(out, map[string]any{"projection": proj.Name, "bindings": m.Flatten()})
			}
		}

		return true
	})

	return out
}

// candidates counts the links and parts reachable from every root projection.
func (f *fixture) candidates() map[string]int {
	out := map[string]int{}

	for _, proj := range f.pkg.Projections() {
		for _, def := range proj.Pattern.Placeholders() {
			switch d := def.(type) {
			case *pattern.Chain:
				out[proj.Name+"."+d.Name()] = len(d.Links())
			case *pattern.Aggregation:
				out[proj.Name+"."+d.Name()] = len(d.Parts())
			}
		}
	}

	return out
}

func link(name, template string, args ...extension.TemplateArgumentDefinition) extension.SubProjectionDefinition {
	return extension.SubProjectionDefinition{Type: extension.TypeChainLink, Name: name, Template: template, Arguments: args}
}

func part(name, template string, args ...extension.TemplateArgumentDefinition) extension.SubProjectionDefinition {
	return extension.SubProjectionDefinition{Type: extension.TypeAggregationPart, Name: name, Template: template, Arguments: args}
}

func descriptor(projection, parent string, subs ...extension.SubProjectionDefinition) extension.ProjectionExtension {
	return extension.ProjectionExtension{
		Type:            extension.TypeProjectionExtension,
		Package:         polars.Name,
		Projection:      projection,
		ParentParameter: parent,
		SubProjections:  subs,
	}
}

var value = extension.TemplateArgumentDefinition{Name: "value", Types: []string{"integer", "string"}}

func TestExtend_NonInterference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	existing := "df.with_columns(pl.col(\"a\").alias(\"b\"))\ndf.select(x, y=pl.col(\"z\"))\n"
	before := f.scan(t, existing)
	require.Len(t, before, 2)

	fill := link("fill_null", "fill_null(<%value%>)", value)
	fill.Projection = "?? <%value%>"

	_, err := extension.NewExtender(f.compiler).Extend(f.pkg, []extension.ProjectionExtension{
		descriptor("with_columns", "expr", fill),
		descriptor("select", "columns", part("star", "*<%value%>", extension.TemplateArgumentDefinition{Name: "value"})),
	})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(before, f.scan(t, existing)))

	extended := f.scan(t, "df.with_columns(pl.col(\"a\").fill_null(0).alias(\"b\"))\n")
	require.Len(t, extended, 1)

	proj, ok := f.pkg.Lookup("with_columns")
	require.True(t, ok)
	assert.Equal(t, "?? <%value%>", proj.Renders()["fill_null"])

	chain, ok := proj.Pattern.Chain("expr")
	require.True(t, ok)

	links := chain.Links()
	require.Len(t, links, 3)
	assert.Equal(t, "fill_null", links[2].Name(), "extensions are tried last")

	assert.Len(t, f.scan(t, "df.select(*cols)\n"), 1)
}

func TestExtend_UnknownRootProjection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := f.candidates()

	_, err := extension.NewExtender(f.compiler).Extend(f.pkg, []extension.ProjectionExtension{
		descriptor("group_by", "expr", link("fill_null", "fill_null(<%value%>)", value)),
	})
	require.ErrorIs(t, err, extension.ErrUnknownRootProjection)

	var rootErr *extension.UnknownRootProjectionError
	require.ErrorAs(t, err, &rootErr)
	assert.Equal(t, "group_by", rootErr.Projection)

	assert.Equal(t, before, f.candidates())
}

func TestExtend_UnknownChainOrAggregation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := f.candidates()
	extender := extension.NewExtender(f.compiler)

	for _, d := range []extension.ProjectionExtension{
		descriptor("with_columns", "missing", link("fill_null", "fill_null(<%value%>)", value)),
		descriptor("with_columns", "df", link("fill_null", "fill_null(<%value%>)", value)),
		descriptor("select", "columns", link("fill_null", "fill_null(<%value%>)", value)),
		descriptor("with_columns", "expr", part("star", "*<%value%>", value)),
	} {
		_, err := extender.Extend(f.pkg, []extension.ProjectionExtension{d})
		require.ErrorIs(t, err, extension.ErrUnknownChainOrAggregation, d.ParentParameter)
	}

	assert.Equal(t, before, f.candidates())
}

func TestExtend_NestedParent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pkg := projection.NewPackage(polars.Name, "python")

	names := pattern.NewAggregation("names", "argument_list", pattern.OneToMany)
	name, err := f.compiler.CompilePart(names, "name", pattern.MustParseTemplate("${name}"), pattern.NewArgument("name", "string"))
	require.NoError(t, err)
	require.NoError(t, names.AddPart(name))

	start, err := f.compiler.Compile("cols", "pl.col(${names})", names)
	require.NoError(t, err)

	root, err := f.compiler.Compile("with", "${df}.with_columns(${expr})",
		pattern.NewContextVariable("df"), pattern.NewChain("expr", start))
	require.NoError(t, err)
	require.NoError(t, pkg.Add(projection.New("with", "", "", root)))

	_, err = extension.NewExtender(f.compiler).Extend(pkg, []extension.ProjectionExtension{
		descriptor("with", "names", part("dtype", "pl.<%dtype%>", extension.TemplateArgumentDefinition{Name: "dtype"})),
	})
	require.NoError(t, err)

	assert.Len(t, names.Parts(), 2)
}

func TestExtend_FailingDescriptorIsAtomic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	before := f.candidates()

	_, err := extension.NewExtender(f.compiler).Extend(f.pkg, []extension.ProjectionExtension{
		descriptor("with_columns", "expr",
			link("fill_null", "fill_null(<%value%>)", value),
			link("plus", "+ <%value%>", value),
		),
	})
	require.ErrorIs(t, err, pattern.ErrTransformation)
	assert.Equal(t, before, f.candidates())
}

func TestExtend_StopsAtFirstErrorButExtendEachContinues(t *testing.T) {
	t.Parallel()

	descriptors := []extension.ProjectionExtension{
		descriptor("with_columns", "expr", link("first", "fill_null(<%value%>)", value)),
		descriptor("group_by", "expr", link("fill_null", "fill_null(<%value%>)", value)),
		descriptor("with_columns", "expr", link("second", "shift(<%value%>)", value)),
	}

	f := newFixture(t)
	_, err := extension.NewExtender(f.compiler).Extend(f.pkg, descriptors)
	require.ErrorIs(t, err, extension.ErrUnknownRootProjection)
	assert.Equal(t, 3, f.candidates()["with_columns.expr"])

	g := newFixture(t)
	_, err = extension.NewExtender(g.compiler).ExtendEach(g.pkg, descriptors)
	require.ErrorIs(t, err, extension.ErrUnknownRootProjection)
	assert.Equal(t, 4, g.candidates()["with_columns.expr"])

	// Later descriptors extend what earlier ones added; earlier candidates win.
	matches := g.scan(t, "df.with_columns(pl.col(\"a\").fill_null(1))\n")
	require.Len(t, matches, 1)

	expr, ok := matches[0]["bindings"].(map[string]any)["expr"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "first", expr["links"].([]map[string]any)[0]["pattern"])
}

func TestExtend_PackageChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	extender := extension.NewExtender(f.compiler)

	other := descriptor("with_columns", "expr", link("fill_null", "fill_null(<%value%>)", value))
	other.Package = "pandas"
	_, err := extender.Extend(f.pkg, []extension.ProjectionExtension{other})
	require.ErrorIs(t, err, extension.ErrUnknownRootProjection)
	require.ErrorIs(t, err, extension.ErrPackageMismatch)

	var rootErr *extension.UnknownRootProjectionError
	require.ErrorAs(t, err, &rootErr)
	assert.Equal(t, "pandas", rootErr.Package)
	assert.Equal(t, f.pkg.Name(), rootErr.Target)

	bad := descriptor("with_columns", "expr", link("fill_null", "fill_null(<%value%>)", value))
	bad.Type = "projection"
	_, err = extender.Extend(f.pkg, []extension.ProjectionExtension{bad})
	require.ErrorIs(t, err, extension.ErrUnknownExtensionType)

	js := projection.NewPackage(polars.Name, "javascript")
	_, err = extender.Extend(js, nil)
	require.ErrorIs(t, err, extension.ErrLanguageMismatch)

	f.pkg.Freeze()
	_, err = extender.Extend(f.pkg, nil)
	require.ErrorIs(t, err, extension.ErrFrozenPackage)
}
