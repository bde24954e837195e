package index

import (
	"fmt"

	"github.com/savente93/snakedown/internal/docs"
)

// ReferenceRenderer turns a resolved reference into output text.
type ReferenceRenderer interface {
	RenderReference(display, targetPrefix, target string) (string, error)
}

// ValidateReferences checks every marker in every internal docstring and
// returns a *ValidationError listing all unresolved ones, or nil.
func (idx *Index) ValidateReferences() error {
	var errs []*UnresolvedReferenceError
	var sg *suggester
	for name, obj := range idx.Objects() {
		for _, ref := range obj.References() {
			if idx.resolves(ref.Target) {
				continue
			}
			uerr := &UnresolvedReferenceError{Object: name, Target: ref.Target}
			if sg == nil {
				sg = idx.newSuggester()
			}
			if s, ok := sg.suggest(ref.Target); ok {
				uerr.Suggestion = s.Candidate
				uerr.Distance = s.Distance
			}
			errs = append(errs, uerr)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (idx *Index) resolves(target string) bool {
	if _, ok := idx.internal[target]; ok {
		return true
	}
	_, ok := idx.external[target]
	return ok
}

// PreProcess replaces the markers in every internal docstring with links
// produced by r. External targets link to their URL; internal ones to
// their fully-qualified name under apiPath. Objects that were already
// expanded are left alone.
func (idx *Index) PreProcess(r ReferenceRenderer, apiPath string) error {
	for name, obj := range idx.Objects() {
		err := obj.Expand(func(ref docs.Reference) (string, error) {
			target := ref.Target
			if u, ok := idx.external[target]; ok {
				target = u
			}
			return r.RenderReference(ref.Text(), apiPath, target)
		})
		if err != nil {
			return fmt.Errorf("expanding references in %s: %w", name, err)
		}
	}
	return nil
}
