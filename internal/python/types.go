package python

import "strings"

// ParamKind distinguishes the syntactic forms a parameter can take.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamVarPositional
	ParamVarKeyword
	ParamKeywordOnlyMarker
	ParamPositionalOnlyMarker
)

// Param is one entry of a function's parameter list.
type Param struct {
	Name       string
	Kind       ParamKind
	Annotation string
	Default    string
}

// String renders the parameter the way it would appear in source.
func (p Param) String() string {
	switch p.Kind {
	case ParamKeywordOnlyMarker:
		return "*"
	case ParamPositionalOnlyMarker:
		return "/"
	}

	var b strings.Builder
	switch p.Kind {
	case ParamVarPositional:
		b.WriteString("*")
	case ParamVarKeyword:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if p.Annotation != "" {
		b.WriteString(": ")
		b.WriteString(p.Annotation)
	}
	if p.Default != "" {
		if p.Annotation != "" {
			b.WriteString(" = ")
		} else {
			b.WriteString("=")
		}
		b.WriteString(p.Default)
	}
	return b.String()
}

type Function struct {
	Name string
	// Line is the 1-based line the definition starts on, decorators
	// included.
	Line       int
	Docstring  *string
	Params     []Param
	Returns    string
	Async      bool
	Decorators []string
}

// Signature renders "name(params) -> returns".
func (f *Function) Signature() string {
	var b strings.Builder
	if f.Async {
		b.WriteString("async ")
	}
	b.WriteString(f.Name)
	b.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	if f.Returns != "" {
		b.WriteString(" -> ")
		b.WriteString(f.Returns)
	}
	return b.String()
}

type Class struct {
	Name       string
	Line       int
	Docstring  *string
	Bases      []string
	Decorators []string
	Methods    []*Function
}

// Module is the declaration tree of a single source file. Only direct
// children of the module body are recorded.
type Module struct {
	Docstring  *string
	Functions  []*Function
	Classes    []*Class
	Exports    []string
	HasExports bool
}
