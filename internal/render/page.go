package render

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/savente93/snakedown/internal/docs"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.md.tmpl"))

// Context is threaded through every page render. It is passed by value
// and never modified.
type Context struct {
	// Version is the snakedown version stamped into generated pages;
	// empty leaves pages unstamped.
	Version     string
	PackageName string
	// APIPath is the directory, relative to the content root, that holds
	// the generated pages.
	APIPath string
}

type page struct {
	r       Renderer
	Context Context

	FrontMatter string
	Docstring   string
	Signature   string
	Decorators  []string
	Bases       []string
	Exports     []string
	Members     []string
	Methods     []string
}

func (p page) Header(content string, level int) string {
	return p.r.RenderHeader(content, level)
}

// RenderObject renders the page for obj, registered under the
// fully-qualified name fqn.
func RenderObject(obj docs.Object, fqn string, r Renderer, ctx Context) (string, error) {
	p := page{r: r, Context: ctx, FrontMatter: r.RenderFrontMatter(fqn)}
	if doc, ok := obj.Docstring(); ok {
		p.Docstring = strings.TrimSpace(doc)
	}

	member := func(name string) (string, error) {
		return r.RenderReference(name, ctx.APIPath, fqn+"."+name)
	}

	var name string
	switch o := obj.(type) {
	case *docs.Module:
		name = "module.md.tmpl"
		if o.HasExports {
			p.Exports = o.Exports
		}
		for _, m := range o.Members {
			l, err := member(m.Name())
			if err != nil {
				return "", err
			}
			p.Members = append(p.Members, l+" ("+m.Kind().String()+")")
		}
	case *docs.Class:
		name = "class.md.tmpl"
		p.Bases = o.Bases
		for _, m := range o.Methods {
			l, err := member(m.Name())
			if err != nil {
				return "", err
			}
			p.Methods = append(p.Methods, l)
		}
	case *docs.Function:
		name = "function.md.tmpl"
		p.Signature = o.Signature()
		p.Decorators = o.Decorators
	default:
		return "", fmt.Errorf("unsupported object type %T", obj)
	}

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, p); err != nil {
		return "", fmt.Errorf("rendering %s: %w", fqn, err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}
