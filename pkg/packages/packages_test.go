package packages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/packages"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

func TestBuiltin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"polars"}, packages.Builtin())

	language, ok := packages.Language("polars")
	require.True(t, ok)
	assert.Equal(t, "python", language)

	_, ok = packages.Language("pandas")
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	parser, err := syntax.NewTreeSitterParser("python")
	require.NoError(t, err)

	lang, err := langconfig.Load("python")
	require.NoError(t, err)

	c := pattern.NewCompiler(parser, lang)

	pkg, err := packages.Build("polars", c)
	require.NoError(t, err)
	assert.Equal(t, []string{"replace", "select", "with_columns", "filter_block"}, pkg.Names())
	assert.False(t, pkg.Frozen())

	_, err = packages.Build("pandas", c)
	require.ErrorIs(t, err, packages.ErrUnknownPackage)
}
