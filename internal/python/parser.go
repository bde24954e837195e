// Package python extracts the declarations that carry documentation
// (module, class and function docstrings, signatures and __all__) from
// Python source using tree-sitter.
package python

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ParseError reports source that tree-sitter could not parse cleanly.
type ParseError struct {
	Path   string
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	path := e.Path
	if path == "" {
		path = "<source>"
	}
	return fmt.Sprintf("syntax error in %s at line %d, column %d", path, e.Line, e.Column)
}

// Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile reads and parses a single Python file.
func (p *Parser) ParseFile(path string) (*Module, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.parse(content, path)
}

// ParseSource parses Python source held in memory.
func (p *Parser) ParseSource(content []byte) (*Module, error) {
	return p.parse(content, "")
}

func (p *Parser) parse(content []byte, path string) (*Module, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		perr := &ParseError{Path: path, Line: 1, Column: 1}
		if n := firstError(root); n != nil {
			perr.Line = startLine(n)
			perr.Column = int(n.StartPoint().Column) + 1
		}
		return nil, perr
	}

	mod := &Module{Docstring: bodyDocstring(root, content)}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			fn := extractFunction(child, content, nil)
			fn.Line = startLine(child)
			mod.Functions = append(mod.Functions, fn)
		case "class_definition":
			cls := extractClass(child, content, nil)
			cls.Line = startLine(child)
			mod.Classes = append(mod.Classes, cls)
		case "decorated_definition":
			def, decorators := unwrapDecorated(child, content)
			if def == nil {
				continue
			}
			switch def.Type() {
			case "function_definition":
				fn := extractFunction(def, content, decorators)
				fn.Line = startLine(child)
				mod.Functions = append(mod.Functions, fn)
			case "class_definition":
				cls := extractClass(def, content, decorators)
				cls.Line = startLine(child)
				mod.Classes = append(mod.Classes, cls)
			}
		case "expression_statement":
			if exports, ok := extractExports(child, content); ok {
				if mod.HasExports {
					slog.Warn("__all__ defined more than once, using the last definition",
						"path", path, "line", child.StartPoint().Row+1)
				}
				mod.Exports = exports
				mod.HasExports = true
			}
		}
	}
	return mod, nil
}

func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			if found := firstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func extractClass(node *sitter.Node, content []byte, decorators []string) *Class {
	cls := &Class{Decorators: decorators}
	if name := node.ChildByFieldName("name"); name != nil {
		cls.Name = name.Content(content)
	}

	if args := node.ChildByFieldName("superclasses"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				continue
			}
			cls.Bases = append(cls.Bases, arg.Content(content))
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	cls.Docstring = bodyDocstring(body, content)

	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			fn := extractFunction(child, content, nil)
			fn.Line = startLine(child)
			cls.Methods = append(cls.Methods, fn)
		case "decorated_definition":
			def, decs := unwrapDecorated(child, content)
			if def != nil && def.Type() == "function_definition" {
				fn := extractFunction(def, content, decs)
				fn.Line = startLine(child)
				cls.Methods = append(cls.Methods, fn)
			}
		}
	}
	return cls
}

func extractFunction(node *sitter.Node, content []byte, decorators []string) *Function {
	fn := &Function{Decorators: decorators}
	if name := node.ChildByFieldName("name"); name != nil {
		fn.Name = name.Content(content)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Params = extractParams(params, content)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.Returns = collapseSpace(ret.Content(content))
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Docstring = bodyDocstring(body, content)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "async" {
			fn.Async = true
			break
		}
	}
	return fn
}

func extractParams(node *sitter.Node, content []byte) []Param {
	var params []Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			params = append(params, Param{Name: child.Content(content)})
		case "list_splat_pattern", "dictionary_splat_pattern":
			params = append(params, splatParam(child, content))
		case "keyword_separator":
			params = append(params, Param{Kind: ParamKeywordOnlyMarker})
		case "positional_separator":
			params = append(params, Param{Kind: ParamPositionalOnlyMarker})
		case "typed_parameter":
			var p Param
			if inner := child.NamedChild(0); inner != nil {
				switch inner.Type() {
				case "list_splat_pattern", "dictionary_splat_pattern":
					p = splatParam(inner, content)
				default:
					p.Name = inner.Content(content)
				}
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Annotation = collapseSpace(typ.Content(content))
			}
			params = append(params, p)
		case "default_parameter", "typed_default_parameter":
			var p Param
			if name := child.ChildByFieldName("name"); name != nil {
				p.Name = name.Content(content)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				p.Annotation = collapseSpace(typ.Content(content))
			}
			if value := child.ChildByFieldName("value"); value != nil {
				p.Default = collapseSpace(value.Content(content))
			}
			params = append(params, p)
		default:
			params = append(params, Param{Name: collapseSpace(child.Content(content))})
		}
	}
	return params
}

func splatParam(node *sitter.Node, content []byte) Param {
	p := Param{Kind: ParamVarPositional}
	if node.Type() == "dictionary_splat_pattern" {
		p.Kind = ParamVarKeyword
	}
	if inner := node.NamedChild(0); inner != nil {
		p.Name = inner.Content(content)
	}
	return p
}

func unwrapDecorated(node *sitter.Node, content []byte) (*sitter.Node, []string) {
	var def *sitter.Node
	var decorators []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "decorator":
			decorators = append(decorators, strings.TrimSpace(child.Content(content)))
		case "class_definition", "function_definition":
			def = child
		}
	}
	return def, decorators
}

// bodyDocstring returns the docstring of a module or block: its first
// statement when that statement is a bare string literal.
func bodyDocstring(body *sitter.Node, content []byte) *string {
	var first *sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if child := body.NamedChild(i); child.Type() != "comment" {
			first = child
			break
		}
	}
	if first == nil || first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return nil
	}

	var value string
	expr := first.NamedChild(0)
	switch expr.Type() {
	case "string":
		s, ok := stringLiteral(expr.Content(content))
		if !ok {
			return nil
		}
		value = s
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(expr.NamedChildCount()); i++ {
			part := expr.NamedChild(i)
			if part.Type() != "string" {
				continue
			}
			s, ok := stringLiteral(part.Content(content))
			if !ok {
				return nil
			}
			b.WriteString(s)
		}
		value = b.String()
	default:
		return nil
	}

	doc := cleanDocstring(value)
	return &doc
}

// extractExports recognises `__all__ = [...]` and `__all__: T = (...)`.
// Anything other than a list or tuple literal yields no exports.
func extractExports(stmt *sitter.Node, content []byte) ([]string, bool) {
	assign := stmt.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return nil, false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" || left.Content(content) != "__all__" {
		return nil, false
	}

	right := assign.ChildByFieldName("right")
	if right == nil || (right.Type() != "list" && right.Type() != "tuple") {
		return nil, false
	}

	exports := []string{}
	for i := 0; i < int(right.NamedChildCount()); i++ {
		elem := right.NamedChild(i)
		if elem.Type() != "string" {
			continue
		}
		if s, ok := stringLiteral(elem.Content(content)); ok {
			exports = append(exports, s)
		}
	}
	return exports, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
