// Package suggest finds the closest known name to a misspelled one.
package suggest

import (
	"iter"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	DefaultMaxLengthDelta  = 5
	DefaultMaxEditDistance = 5
)

type Suggestion struct {
	Candidate string
	Distance  int
}

// Closest returns the candidate with the smallest edit distance to
// unknown. Candidates whose length differs from unknown's by
// maxLengthDelta or more are not compared, and distances of
// maxEditDistance or more are discarded. Ties keep the first candidate
// seen.
func Closest(unknown string, candidates iter.Seq[string], maxLengthDelta, maxEditDistance int) (Suggestion, bool) {
	n := utf8.RuneCountInString(unknown)

	var best Suggestion
	found := false
	for c := range candidates {
		delta := utf8.RuneCountInString(c) - n
		if delta < 0 {
			delta = -delta
		}
		if delta >= maxLengthDelta {
			continue
		}
		d := levenshtein.ComputeDistance(unknown, c)
		if d >= maxEditDistance {
			continue
		}
		if !found || d < best.Distance {
			best = Suggestion{Candidate: c, Distance: d}
			found = true
		}
	}
	return best, found
}

// Better picks between two optional suggestions, preferring a over b
// unless b is strictly closer.
func Better(a Suggestion, aOK bool, b Suggestion, bOK bool) (Suggestion, bool) {
	switch {
	case aOK && bOK:
		if b.Distance < a.Distance {
			return b, true
		}
		return a, true
	case aOK:
		return a, true
	case bOK:
		return b, true
	}
	return Suggestion{}, false
}
