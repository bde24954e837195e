package docs

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/savente93/snakedown/internal/python"
)

// Filter selects which declarations become documentation objects.
type Filter struct {
	SkipPrivate bool
	SkipUndoc   bool
}

// IsPrivate reports whether name follows the leading-underscore convention.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

func (f Filter) skip(kind Kind, name string, doc *string) bool {
	if f.SkipPrivate && IsPrivate(name) {
		slog.Debug("skipping private symbol", "kind", kind, "name", name)
		return true
	}
	if f.SkipUndoc && doc == nil {
		slog.Debug("skipping undocumented symbol", "kind", kind, "name", name)
		return true
	}
	return false
}

// NewModule converts a parsed module into a documentation object named
// name. It returns false when the filter excludes the module, in which
// case none of its contents are considered. Modules are only excluded for
// missing docstrings; a leading underscore in a module name does not hide
// it.
func NewModule(decl *python.Module, name string, f Filter) (*Module, bool) {
	if f.SkipUndoc && decl.Docstring == nil {
		slog.Debug("skipping undocumented module", "name", name)
		return nil, false
	}

	mod := &Module{
		docstring:  docstring{text: decl.Docstring},
		name:       name,
		Exports:    decl.Exports,
		HasExports: decl.HasExports,
	}
	type member struct {
		line int
		obj  Object
	}
	var members []member
	for _, cls := range decl.Classes {
		if f.skip(KindClass, cls.Name, cls.Docstring) {
			continue
		}
		c := newClass(cls, f)
		mod.Classes = append(mod.Classes, c)
		members = append(members, member{cls.Line, c})
	}
	for _, fn := range decl.Functions {
		if f.skip(KindFunction, fn.Name, fn.Docstring) {
			continue
		}
		fo := newFunction(fn)
		mod.Functions = append(mod.Functions, fo)
		members = append(members, member{fn.Line, fo})
	}
	slices.SortStableFunc(members, func(a, b member) int { return cmp.Compare(a.line, b.line) })
	for _, m := range members {
		mod.Members = append(mod.Members, m.obj)
	}
	return mod, true
}

func newClass(decl *python.Class, f Filter) *Class {
	cls := &Class{
		docstring:  docstring{text: decl.Docstring},
		name:       decl.Name,
		Bases:      decl.Bases,
		Decorators: decl.Decorators,
	}
	for _, m := range decl.Methods {
		if f.skip(KindFunction, m.Name, m.Docstring) {
			continue
		}
		cls.Methods = append(cls.Methods, newFunction(m))
	}
	return cls
}

func newFunction(decl *python.Function) *Function {
	return &Function{
		docstring:  docstring{text: decl.Docstring},
		name:       decl.Name,
		Params:     decl.Params,
		Returns:    decl.Returns,
		Async:      decl.Async,
		Decorators: decl.Decorators,
	}
}
