// Package docs models the documented symbols of a Python package and the
// cross-reference markers inside their docstrings.
package docs

import (
	"fmt"

	"github.com/savente93/snakedown/internal/python"
)

type Kind int

const (
	KindModule Kind = iota
	KindClass
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Object is a documented symbol: *Module, *Class or *Function.
type Object interface {
	Name() string
	Kind() Kind
	// Docstring reports the docstring text, or false if there is none.
	Docstring() (string, bool)
	// References returns the markers in the current docstring.
	References() []Reference
	// Expanded reports whether the docstring markers have been replaced.
	Expanded() bool
	// Expand replaces every marker using resolve. All replacements are
	// computed before the docstring changes, so a failed call leaves the
	// object untouched. Expanding an expanded object does nothing.
	Expand(resolve func(Reference) (string, error)) error

	doc() *docstring
}

// docstring holds the raw-then-expanded text shared by every object kind.
type docstring struct {
	text     *string
	expanded bool
}

func (d *docstring) doc() *docstring { return d }

func (d *docstring) Docstring() (string, bool) {
	if d.text == nil {
		return "", false
	}
	return *d.text, true
}

func (d *docstring) References() []Reference {
	if d.text == nil {
		return nil
	}
	return ExtractReferences(*d.text)
}

func (d *docstring) Expanded() bool {
	return d.expanded
}

func (d *docstring) Expand(resolve func(Reference) (string, error)) error {
	if d.expanded {
		return nil
	}
	if d.text == nil {
		d.expanded = true
		return nil
	}

	refs := ExtractReferences(*d.text)
	replacements := make([]string, len(refs))
	for i, ref := range refs {
		repl, err := resolve(ref)
		if err != nil {
			return fmt.Errorf("expanding %s: %w", ref.Raw, err)
		}
		replacements[i] = repl
	}

	expanded := replaceReferences(*d.text, refs, replacements)
	d.text = &expanded
	d.expanded = true
	return nil
}

type Module struct {
	docstring
	name      string
	Functions []*Function
	Classes   []*Class
	// Members holds the same classes and functions in source order.
	Members    []Object
	Exports    []string
	HasExports bool
}

func (m *Module) Name() string { return m.name }
func (m *Module) Kind() Kind   { return KindModule }

type Class struct {
	docstring
	name       string
	Bases      []string
	Decorators []string
	Methods    []*Function
}

func (c *Class) Name() string { return c.name }
func (c *Class) Kind() Kind   { return KindClass }

type Function struct {
	docstring
	name       string
	Params     []python.Param
	Returns    string
	Async      bool
	Decorators []string
}

func (f *Function) Name() string { return f.name }
func (f *Function) Kind() Kind   { return KindFunction }

// Signature renders "name(params) -> returns".
func (f *Function) Signature() string {
	decl := python.Function{Name: f.name, Params: f.Params, Returns: f.Returns, Async: f.Async}
	return decl.Signature()
}

// NewFunction builds a function object directly. Most callers get
// functions from NewModule instead.
func NewFunction(name string, doc *string) *Function {
	return &Function{docstring: docstring{text: doc}, name: name}
}

// NewClass builds a class object with the given methods.
func NewClass(name string, doc *string, methods ...*Function) *Class {
	return &Class{docstring: docstring{text: doc}, name: name, Methods: methods}
}
