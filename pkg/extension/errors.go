package extension

import (
	"errors"
	"fmt"
)

// Sentinel kinds, matched with errors.Is.
var (
	ErrUnknownExtensionType       = errors.New("unknown extension type")
	ErrUnknownSubProjectionType   = errors.New("unknown sub-projection type")
	ErrUnknownRootProjection      = errors.New("unknown root projection")
	ErrUnknownChainOrAggregation  = errors.New("unknown chain or aggregation")
	ErrSchemaViolation            = errors.New("extension descriptor does not match schema")
	ErrFrozenPackage              = errors.New("package is frozen")
	ErrPackageMismatch            = errors.New("descriptor targets another package")
	ErrLanguageMismatch           = errors.New("compiler language does not match package language")
	errUnsupportedDescriptorShape = errors.New("expected a descriptor object or an array of descriptors")
)

// where names a descriptor by its source location, or by its index when it
// was not read from a file.
func where(source string, idx int) string {
	if source != "" {
		return source
	}

	return fmt.Sprintf("descriptor %d", idx)
}

// UnknownExtensionTypeError reports a descriptor whose type is not projectionExtension.
type UnknownExtensionTypeError struct {
	Type   string
	Source string
	Index  int
}

func (e *UnknownExtensionTypeError) Error() string {
	return fmt.Sprintf("%s: %s %q", where(e.Source, e.Index), ErrUnknownExtensionType, e.Type)
}

func (e *UnknownExtensionTypeError) Unwrap() error { return ErrUnknownExtensionType }

// UnknownSubProjectionTypeError reports a sub-projection that is neither a
// chain link nor an aggregation part.
type UnknownSubProjectionTypeError struct {
	SubProjection string
	Type          string
	Source        string
	Index         int
}

func (e *UnknownSubProjectionTypeError) Error() string {
	return fmt.Sprintf("%s: sub-projection %q: %s %q", where(e.Source, e.Index), e.SubProjection, ErrUnknownSubProjectionType, e.Type)
}

func (e *UnknownSubProjectionTypeError) Unwrap() error { return ErrUnknownSubProjectionType }

// UnknownRootProjectionError reports a projection name absent from the
// package being extended. Target is set when the descriptor names another
// package than the one being extended.
type UnknownRootProjectionError struct {
	Package    string
	Projection string
	Target     string
}

func (e *UnknownRootProjectionError) Error() string {
	if e.Target != "" && e.Target != e.Package {
		return fmt.Sprintf("%s: %s.%s (%s, extending %s)", ErrUnknownRootProjection, e.Package, e.Projection, ErrPackageMismatch, e.Target)
	}

	return fmt.Sprintf("%s: %s.%s", ErrUnknownRootProjection, e.Package, e.Projection)
}

func (e *UnknownRootProjectionError) Unwrap() []error {
	if e.Target != "" && e.Target != e.Package {
		return []error{ErrUnknownRootProjection, ErrPackageMismatch}
	}

	return []error{ErrUnknownRootProjection}
}

// UnknownChainOrAggregationError reports a parentParameter that names no
// chain or aggregation reachable from the root projection, or one of the
// wrong kind for the sub-projections extending it.
type UnknownChainOrAggregationError struct {
	Projection string
	Parameter  string
	Reason     string
}

func (e *UnknownChainOrAggregationError) Error() string {
	return fmt.Sprintf("%s %q in %s: %s", ErrUnknownChainOrAggregation, e.Parameter, e.Projection, e.Reason)
}

func (e *UnknownChainOrAggregationError) Unwrap() error { return ErrUnknownChainOrAggregation }
