package extension

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/projection"
)

// Extender compiles sub-projections with one compiler and appends them to
// the chains and aggregations of a package's root projections.
type Extender struct {
	compiler *pattern.Compiler
	logger   *slog.Logger
}

// Option configures an Extender.
type Option func(*Extender)

// WithLogger sets the logger that reports applied sub-projections.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extender) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtender creates an extender compiling with compiler.
func NewExtender(compiler *pattern.Compiler, opts ...Option) *Extender {
	e := &Extender{compiler: compiler, logger: slog.Default()}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extend applies descriptors in declaration order and stops at the first
// failing one. Descriptors applied before the failure stay applied; the
// failing descriptor changes nothing. pkg is mutated and returned.
func (e *Extender) Extend(pkg *projection.Package, descriptors []ProjectionExtension) (*projection.Package, error) {
	if err := e.checkPackage(pkg); err != nil {
		return pkg, err
	}

	for idx, d := range descriptors {
		if err := e.apply(pkg, idx, d); err != nil {
			return pkg, err
		}
	}

	return pkg, nil
}

// ExtendEach applies every descriptor it can, skipping failing ones, and
// returns the joined errors of the skipped descriptors.
func (e *Extender) ExtendEach(pkg *projection.Package, descriptors []ProjectionExtension) (*projection.Package, error) {
	if err := e.checkPackage(pkg); err != nil {
		return pkg, err
	}

	var errs []error

	for idx, d := range descriptors {
		if err := e.apply(pkg, idx, d); err != nil {
			e.logger.Warn("skipping projection extension", "descriptor", where(d.Source, idx), "projection", d.Projection, "error", err)
			errs = append(errs, err)
		}
	}

	return pkg, errors.Join(errs...)
}

func (e *Extender) checkPackage(pkg *projection.Package) error {
	if pkg.Frozen() {
		return fmt.Errorf("extend %s: %w", pkg.Name(), ErrFrozenPackage)
	}

	if lang := e.compiler.Language().Name; lang != pkg.Language() {
		return fmt.Errorf("%w: compiler is %s, %s is %s", ErrLanguageMismatch, lang, pkg.Name(), pkg.Language())
	}

	return nil
}

type compiled struct {
	pattern *pattern.Pattern
	render  string
}

// apply compiles every sub-projection of d before appending any of them.
func (e *Extender) apply(pkg *projection.Package, idx int, d ProjectionExtension) error {
	if err := Check(idx, d); err != nil {
		return err
	}

	at := where(d.Source, idx)

	if d.Package != pkg.Name() {
		return fmt.Errorf("%s: %w", at, &UnknownRootProjectionError{Package: d.Package, Projection: d.Projection, Target: pkg.Name()})
	}

	proj, ok := pkg.Lookup(d.Projection)
	if !ok {
		return fmt.Errorf("%s: %w", at, &UnknownRootProjectionError{Package: d.Package, Projection: d.Projection})
	}

	parent, ok := proj.Pattern.Lookup(d.ParentParameter)
	if !ok {
		return fmt.Errorf("%s: %w", at, &UnknownChainOrAggregationError{Projection: d.Projection, Parameter: d.ParentParameter, Reason: "no such placeholder"})
	}

	if kind := parent.Kind(); kind != pattern.KindChain && kind != pattern.KindAggregation {
		return fmt.Errorf("%s: %w", at, &UnknownChainOrAggregationError{Projection: d.Projection, Parameter: d.ParentParameter, Reason: "placeholder is a " + kind.String()})
	}

	subs := make([]compiled, 0, len(d.SubProjections))

	for _, sub := range d.SubProjections {
		p, err := e.compile(parent, d, sub)
		if err != nil {
			return fmt.Errorf("%s: sub-projection %q: %w", at, sub.Name, err)
		}

		subs = append(subs, compiled{pattern: p, render: sub.Projection})
	}

	for _, sub := range subs {
		var err error

		switch target := parent.(type) {
		case *pattern.Chain:
			err = target.AddLink(sub.pattern)
		case *pattern.Aggregation:
			err = target.AddPart(sub.pattern)
		}

		if err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}

		if sub.render != "" {
			proj.AddRender(sub.pattern.Name(), sub.render)
		}

		e.logger.Info("applied projection extension",
			"package", pkg.Name(), "projection", proj.Name, "parent", d.ParentParameter, "sub_projection", sub.pattern.Name())
	}

	return nil
}

func (e *Extender) compile(parent pattern.Placeholder, d ProjectionExtension, sub SubProjectionDefinition) (*pattern.Pattern, error) {
	tmpl, err := pattern.ParseTemplate(sub.Template, pattern.PercentAngles)
	if err != nil {
		return nil, err
	}

	defs := make([]pattern.Placeholder, 0, len(sub.Arguments))

	for _, name := range tmpl.Names() {
		arg, _ := sub.argument(name)
		defs = append(defs, pattern.NewArgument(arg.Name, arg.Types...))
	}

	mismatch := func(want string) error {
		return &UnknownChainOrAggregationError{
			Projection: d.Projection,
			Parameter:  d.ParentParameter,
			Reason:     fmt.Sprintf("%s %q needs a %s, found a %s", sub.Type, sub.Name, want, parent.Kind()),
		}
	}

	switch sub.Type {
	case TypeChainLink:
		chain, ok := parent.(*pattern.Chain)
		if !ok {
			return nil, mismatch(pattern.KindChain.String())
		}

		return e.compiler.CompileLink(chain, sub.Name, tmpl, defs...)
	default:
		agg, ok := parent.(*pattern.Aggregation)
		if !ok {
			return nil, mismatch(pattern.KindAggregation.String())
		}

		return e.compiler.CompilePart(agg, sub.Name, tmpl, defs...)
	}
}
