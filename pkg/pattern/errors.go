package pattern

import (
	"errors"
	"fmt"
)

// Sentinel kinds, matched with errors.Is.
var (
	ErrTemplateCompilation = errors.New("template compilation failed")
	ErrTransformation      = errors.New("template transformation failed")
)

// TemplateCompilationError reports a template that cannot be compiled: the
// drafted text does not parse, a placeholder cannot be relocated, or the
// placeholder definitions do not line up with the template.
type TemplateCompilationError struct {
	Err         error
	Template    string
	Placeholder string
	Reason      string
}

func (e *TemplateCompilationError) Error() string {
	msg := fmt.Sprintf("compile template %q", e.Template)
	if e.Placeholder != "" {
		msg += fmt.Sprintf(" (placeholder %q)", e.Placeholder)
	}

	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *TemplateCompilationError) Unwrap() []error {
	return unwrapWith(ErrTemplateCompilation, e.Err)
}

// TransformationError reports a sub-template that cannot be embedded in the
// context its chain or aggregation requires.
type TransformationError struct {
	Err      error
	Template string
	Target   string
	Reason   string
}

func (e *TransformationError) Error() string {
	msg := fmt.Sprintf("transform template %q for %q: %s", e.Template, e.Target, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *TransformationError) Unwrap() []error {
	return unwrapWith(ErrTransformation, e.Err)
}

func unwrapWith(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}

	return []error{sentinel, cause}
}
