// Package packages is the registry of built-in projection packages.
package packages

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/projector/pkg/packages/polars"
	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
)

// ErrUnknownPackage is returned for names no built-in package has.
var ErrUnknownPackage = errors.New("unknown projection package")

// Builder compiles a package with the given compiler.
type Builder func(*pattern.Compiler) (*projection.Package, error)

type entry struct {
	build    Builder
	language string
}

var builtins = map[string]entry{
	polars.Name: {language: polars.Language, build: polars.New},
}

// Builtin returns the built-in package names in sorted order.
func Builtin() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Language returns the language a built-in package is written in.
func Language(name string) (string, bool) {
	e, ok := builtins[name]

	return e.language, ok
}

// Build compiles a built-in package.
func Build(name string, c *pattern.Compiler) (*projection.Package, error) {
	e, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, name)
	}

	return e.build(c)
}
