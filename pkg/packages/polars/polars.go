// Package polars holds the built-in projections for the Python polars
// dataframe library.
package polars

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
)

// Name is the package name extensions refer to.
const Name = "polars"

// Language is the language the templates are written in.
const Language = "python"

var errWrongLanguage = errors.New("polars projections are written in " + Language)

type step func(*pattern.Compiler) (*projection.Projection, error)

// New compiles the polars package. The result is not frozen, so extensions
// can still be applied.
func New(c *pattern.Compiler) (*projection.Package, error) {
	if c.Language().Name != Language {
		return nil, fmt.Errorf("%w, not %s", errWrongLanguage, c.Language().Name)
	}

	pkg := projection.NewPackage(Name, Language)

	for _, build := range []step{replace, selectColumns, withColumns, filterBlock} {
		proj, err := build(c)
		if err != nil {
			return nil, fmt.Errorf("polars: %w", err)
		}

		if err := pkg.Add(proj); err != nil {
			return nil, err
		}
	}

	return pkg, nil
}

func replace(c *pattern.Compiler) (*projection.Projection, error) {
	p, err := c.Compile("replace", "${table}.column(${col}).replace(${old}, ${new})",
		pattern.NewContextVariable("table"),
		pattern.NewArgument("col", "string"),
		pattern.NewArgument("old", "string", "integer", "float", "identifier"),
		pattern.NewArgument("new", "string", "integer", "float", "identifier"),
	)
	if err != nil {
		return nil, err
	}

	return projection.New("replace", "Replace values in one column",
		"${table}[${col}]: ${old} => ${new}", p), nil
}

// selectColumns is df.select(...) over plain and aliased columns.
func selectColumns(c *pattern.Compiler) (*projection.Projection, error) {
	columns := pattern.NewAggregation("columns", "argument_list", pattern.OneToMany)

	plain, err := c.CompilePart(columns, "column", pattern.MustParseTemplate("${col}"),
		pattern.NewArgument("col", "string", "identifier"))
	if err != nil {
		return nil, err
	}

	aliased, err := c.CompilePart(columns, "aliased", pattern.MustParseTemplate("${alias}=${expr}"),
		pattern.NewArgument("alias", "identifier"), pattern.NewArgument("expr", pattern.AnyKind))
	if err != nil {
		return nil, err
	}

	for _, part := range []*pattern.Pattern{plain, aliased} {
		if err := columns.AddPart(part); err != nil {
			return nil, err
		}
	}

	p, err := c.Compile("select", "${df}.select(${columns})", pattern.NewContextVariable("df"), columns)
	if err != nil {
		return nil, err
	}

	proj := projection.New("select", "Project columns of a frame", "SELECT ${columns} FROM ${df}", p)
	proj.AddRender("column", "<%col%>")
	proj.AddRender("aliased", "<%expr%> AS <%alias%>")

	return proj, nil
}

// withColumns is df.with_columns(pl.col(...).alias(...).cast(...)).
func withColumns(c *pattern.Compiler) (*projection.Projection, error) {
	start, err := c.Compile("col", "pl.col(${name})", pattern.NewArgument("name", "string"))
	if err != nil {
		return nil, err
	}

	expr := pattern.NewChain("expr", start)

	alias, err := c.CompileLink(expr, "alias", pattern.MustParseTemplate("alias(${alias})"),
		pattern.NewArgument("alias", "string"))
	if err != nil {
		return nil, err
	}

	cast, err := c.CompileLink(expr, "cast", pattern.MustParseTemplate("cast(pl.${dtype})"),
		pattern.NewArgument("dtype", "identifier"))
	if err != nil {
		return nil, err
	}

	for _, link := range []*pattern.Pattern{alias, cast} {
		if err := expr.AddLink(link); err != nil {
			return nil, err
		}
	}

	p, err := c.Compile("with_columns", "${df}.with_columns(${expr})", pattern.NewContextVariable("df"), expr)
	if err != nil {
		return nil, err
	}

	proj := projection.New("with_columns", "Derive a column from an expression chain", "${df} += ${expr}", p)
	proj.AddRender("alias", "as <%alias%>")
	proj.AddRender("cast", ":: <%dtype%>")

	return proj, nil
}

func filterBlock(c *pattern.Compiler) (*projection.Projection, error) {
	p, err := c.Compile("filter_block", "for ${row} in ${df}.iter_rows():\n    ${body}",
		pattern.NewArgument("row", "identifier", "tuple_pattern", "pattern_list"),
		pattern.NewContextVariable("df"),
		pattern.NewBlock("body"),
	)
	if err != nil {
		return nil, err
	}

	return projection.New("filter_block", "Row-by-row loop over a frame", "for each ${row} of ${df}", p), nil
}
