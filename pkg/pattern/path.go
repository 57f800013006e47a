package pattern

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

var errInvalidPath = errors.New("invalid pattern path")

// Path addresses a node by the child indices walked from some root.
// The empty path addresses the root itself.
type Path []int

// ParsePath parses the form produced by Path.String, e.g. "[0 1 2]".
func ParsePath(text string) (Path, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("%w: %q", errInvalidPath, text)
	}

	fields := strings.Fields(trimmed[1 : len(trimmed)-1])
	path := make(Path, 0, len(fields))

	for _, field := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: %q", errInvalidPath, text)
		}

		path = append(path, idx)
	}

	return path, nil
}

// Equal reports whether both paths hold the same indices.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}

// Concat returns a new path that walks p and then suffix.
func (p Path) Concat(suffix Path) Path {
	out := make(Path, 0, len(p)+len(suffix))
	out = append(out, p...)

	return append(out, suffix...)
}

// Child returns a new path one level below p.
func (p Path) Child(idx int) Path {
	return p.Concat(Path{idx})
}

// Parent returns the path of the parent. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if len(p) == 0 {
		return nil, false
	}

	return slices.Clone(p[:len(p)-1]), true
}

// Resolve walks raw children from root and returns the addressed node, or nil.
func (p Path) Resolve(root *syntax.Node) *syntax.Node {
	current := root

	for _, idx := range p {
		current = current.Child(idx)
		if current == nil {
			return nil
		}
	}

	return current
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}

	return "[" + strings.Join(parts, " ") + "]"
}
