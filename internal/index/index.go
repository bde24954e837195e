// Package index maps fully-qualified Python names to the documentation
// objects they name, and to the URLs of symbols documented elsewhere.
package index

import (
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/savente93/snakedown/internal/docs"
	"github.com/savente93/snakedown/internal/inventory"
	"github.com/savente93/snakedown/internal/python"
	"github.com/savente93/snakedown/internal/suggest"
)

// Parser turns a source file into its declaration tree.
type Parser interface {
	ParseFile(path string) (*python.Module, error)
}

// Index is owned by a single run and is not safe for concurrent use.
type Index struct {
	root    string
	pkgName string
	parser  Parser
	filter  docs.Filter

	internal map[string]docs.Object
	external map[string]string

	maxLengthDelta  int
	maxEditDistance int
}

// New creates an empty index for the package rooted at pkgRoot. The
// package name is the last element of the root path.
func New(pkgRoot string, parser Parser, skipUndoc, skipPrivate bool) (*Index, error) {
	abs, err := filepath.Abs(pkgRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving package root: %w", err)
	}
	name := filepath.Base(abs)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("cannot determine package name from %q", pkgRoot)
	}

	return &Index{
		root:            abs,
		pkgName:         name,
		parser:          parser,
		filter:          docs.Filter{SkipUndoc: skipUndoc, SkipPrivate: skipPrivate},
		internal:        make(map[string]docs.Object),
		external:        make(map[string]string),
		maxLengthDelta:  suggest.DefaultMaxLengthDelta,
		maxEditDistance: suggest.DefaultMaxEditDistance,
	}, nil
}

// SetSuggestionLimits overrides the bounds used when suggesting
// alternatives for unresolved references.
func (idx *Index) SetSuggestionLimits(maxLengthDelta, maxEditDistance int) {
	idx.maxLengthDelta = maxLengthDelta
	idx.maxEditDistance = maxEditDistance
}

func (idx *Index) PackageName() string { return idx.pkgName }
func (idx *Index) Root() string        { return idx.root }

// Len returns the number of internal objects.
func (idx *Index) Len() int { return len(idx.internal) }

// ExternalLen returns the number of external names.
func (idx *Index) ExternalLen() int { return len(idx.external) }

// DeriveImportPath turns a path relative to the package root into the
// dotted import path. The extension is dropped and a trailing __init__
// names the enclosing package.
func DeriveImportPath(pkgName, relPath string) string {
	rel := filepath.ToSlash(filepath.Clean(relPath))
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))

	parts := []string{pkgName}
	for _, seg := range strings.Split(rel, "/") {
		if seg != "" && seg != "." {
			parts = append(parts, seg)
		}
	}
	return strings.TrimSuffix(strings.Join(parts, "."), ".__init__")
}

// Insert registers obj under name. Names are never overwritten.
func (idx *Index) Insert(name string, obj docs.Object) error {
	if _, ok := idx.internal[name]; ok {
		return &DuplicateSymbolError{Name: name}
	}
	idx.internal[name] = obj
	return nil
}

// AddExternal maps name to a URL on another documentation site. A later
// call for the same name replaces the earlier URL.
func (idx *Index) AddExternal(name, url string) {
	idx.external[name] = url
}

// AddInventory imports the linkable entries of inv, resolving their
// locations against the site root base. It returns how many were added.
func (idx *Index) AddInventory(base *url.URL, inv *inventory.Inventory) int {
	n := 0
	for _, e := range inv.Entries {
		if !e.Kind.Importable() {
			continue
		}
		loc, err := url.Parse(e.Location)
		if err != nil {
			slog.Warn("skipping inventory entry with invalid location",
				"name", e.Name, "location", e.Location, "error", err)
			continue
		}
		idx.AddExternal(e.Name, base.ResolveReference(loc).String())
		n++
	}
	return n
}

// Object returns the internal object registered under name.
func (idx *Index) Object(name string) (docs.Object, bool) {
	obj, ok := idx.internal[name]
	return obj, ok
}

// External returns the URL registered for an external name.
func (idx *Index) External(name string) (string, bool) {
	u, ok := idx.external[name]
	return u, ok
}

// Names returns the internal names in sorted order.
func (idx *Index) Names() []string {
	return slices.Sorted(maps.Keys(idx.internal))
}

// Objects yields internal objects ordered by name.
func (idx *Index) Objects() iter.Seq2[string, docs.Object] {
	return func(yield func(string, docs.Object) bool) {
		for _, name := range idx.Names() {
			if !yield(name, idx.internal[name]) {
				return
			}
		}
	}
}

// Suggest finds the known name closest to an unknown one, preferring an
// internal name unless an external one is strictly closer.
func (idx *Index) Suggest(name string) (suggest.Suggestion, bool) {
	return idx.newSuggester().suggest(name)
}

// suggester is a sorted snapshot of the known names. Equally close
// candidates resolve to the first in sorted order.
type suggester struct {
	internal        []string
	external        []string
	maxLengthDelta  int
	maxEditDistance int
}

func (idx *Index) newSuggester() *suggester {
	return &suggester{
		internal:        slices.Sorted(maps.Keys(idx.internal)),
		external:        slices.Sorted(maps.Keys(idx.external)),
		maxLengthDelta:  idx.maxLengthDelta,
		maxEditDistance: idx.maxEditDistance,
	}
}

func (s *suggester) suggest(name string) (suggest.Suggestion, bool) {
	in, inOK := suggest.Closest(name, slices.Values(s.internal), s.maxLengthDelta, s.maxEditDistance)
	ex, exOK := suggest.Closest(name, slices.Values(s.external), s.maxLengthDelta, s.maxEditDistance)
	return suggest.Better(in, inOK, ex, exOK)
}
