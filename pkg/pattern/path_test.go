package pattern_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

func TestPath_Composition(t *testing.T) {
	t.Parallel()

	base := pattern.Path{0, 1}

	assert.True(t, base.Concat(pattern.Path{2}).Equal(pattern.Path{0, 1, 2}))
	assert.True(t, pattern.Path{0, 1, 2}.HasPrefix(base))
	assert.True(t, base.HasPrefix(pattern.Path{}))
	assert.False(t, base.HasPrefix(pattern.Path{1}))
	assert.False(t, base.HasPrefix(pattern.Path{0, 1, 2}))
	assert.False(t, base.Equal(pattern.Path{0}))

	parent, ok := base.Parent()
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(pattern.Path{0}, parent))

	_, ok = pattern.Path{}.Parent()
	assert.False(t, ok)
}

func TestPath_ConcatDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := make(pattern.Path, 1, 4)
	first := base.Concat(pattern.Path{1})
	second := base.Concat(pattern.Path{2})

	assert.Equal(t, 1, first[1])
	assert.Equal(t, 2, second[1])
}

func TestPath_StringRoundTrip(t *testing.T) {
	t.Parallel()

	path := pattern.Path{3, 0, 12}
	assert.Equal(t, "[3 0 12]", path.String())

	parsed, err := pattern.ParsePath(path.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(path))

	empty, err := pattern.ParsePath("[]")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = pattern.ParsePath("0 1")
	require.Error(t, err)

	_, err = pattern.ParsePath("[0 -1]")
	require.Error(t, err)
}

func TestPath_Resolve(t *testing.T) {
	t.Parallel()

	src := []byte("ab")
	a := syntax.NewNode("a", true, 0, 1, src)
	b := syntax.NewNode("b", true, 1, 2, src)
	root := syntax.NewNode("root", true, 0, 2, src, a, b)

	assert.Same(t, root, pattern.Path{}.Resolve(root))
	assert.Same(t, b, pattern.Path{1}.Resolve(root))
	assert.Nil(t, pattern.Path{2}.Resolve(root))
	assert.Nil(t, pattern.Path{0, 0}.Resolve(root))
}
