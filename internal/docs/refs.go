package docs

import (
	"iter"
	"regexp"
	"strings"
)

// Reference is a single `[[target]]` or `[[target|display]]` marker found
// in a docstring.
type Reference struct {
	Target string
	// Display is empty when the marker carries no display text.
	Display string
	// Raw is the marker exactly as written, delimiters included.
	Raw string
	// Offset is the byte offset of Raw in the scanned text.
	Offset int
}

// Original returns the marker's verbatim source text.
func (r Reference) Original() string {
	return r.Raw
}

// Text returns the text a link to this reference should show.
func (r Reference) Text() string {
	if r.Display != "" {
		return r.Display
	}
	return r.Target
}

// markerRe matches a marker on a single line, closing at the first "]]".
var markerRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// References yields the markers in text in order of appearance. Markers
// whose target is blank are skipped.
func References(text string) iter.Seq[Reference] {
	return func(yield func(Reference) bool) {
		offset := 0
		for offset < len(text) {
			loc := markerRe.FindStringSubmatchIndex(text[offset:])
			if loc == nil {
				return
			}
			start, end := offset+loc[0], offset+loc[1]
			inner := text[offset+loc[2] : offset+loc[3]]
			offset = end

			target, display, _ := strings.Cut(inner, "|")
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			ref := Reference{
				Target:  target,
				Display: strings.TrimSpace(display),
				Raw:     text[start:end],
				Offset:  start,
			}
			if !yield(ref) {
				return
			}
		}
	}
}

// ExtractReferences collects every marker in text.
func ExtractReferences(text string) []Reference {
	var refs []Reference
	for ref := range References(text) {
		refs = append(refs, ref)
	}
	return refs
}

// replaceReferences rebuilds text with each marker swapped for its
// replacement, by position, so repeated markers are each handled in place.
func replaceReferences(text string, refs []Reference, replacements []string) string {
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for i, ref := range refs {
		b.WriteString(text[last:ref.Offset])
		b.WriteString(replacements[i])
		last = ref.Offset + len(ref.Raw)
	}
	b.WriteString(text[last:])
	return b.String()
}
