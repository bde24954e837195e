package index

import (
	"fmt"
	"strings"
)

// DuplicateSymbolError reports a second object registered under the same
// fully-qualified name.
type DuplicateSymbolError struct {
	Name string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate symbol %q", e.Name)
}

// UnresolvedReferenceError is a marker whose target is not known
// internally or externally.
type UnresolvedReferenceError struct {
	// Object is the fully-qualified name of the object holding the marker.
	Object string
	Target string
	// Suggestion is empty when nothing close enough was found.
	Suggestion string
	Distance   int
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("unknown reference %q in %s", e.Target, e.Object)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(", did you mean %q?", e.Suggestion)
	}
	return msg
}

// ValidationError collects every unresolved reference found in one pass.
type ValidationError struct {
	Errors []*UnresolvedReferenceError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "found %d invalid reference(s):", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}
