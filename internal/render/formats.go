package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/savente93/snakedown/internal/markdown"
)

// MarkdownRenderer writes plain CommonMark with relative .md links.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Format() Format    { return FormatMarkdown }
func (MarkdownRenderer) Extension() string { return "md" }

func (MarkdownRenderer) RenderHeader(content string, level int) string {
	return header(content, level)
}

func (MarkdownRenderer) RenderFrontMatter(title string) string {
	if title == "" {
		return ""
	}
	return header(title, 1)
}

func (MarkdownRenderer) RenderReference(display, _, target string) (string, error) {
	if !isURL(target) {
		target += ".md"
	}
	return link(display, target), nil
}

func (MarkdownRenderer) ContentPath() string { return "" }

func (MarkdownRenderer) IndexFile(string, []string) (string, string, bool) {
	return "", "", false
}

// ZolaRenderer targets the Zola static site generator: TOML front matter
// and @/ internal links resolved against the content directory.
type ZolaRenderer struct{}

func (ZolaRenderer) Format() Format    { return FormatZola }
func (ZolaRenderer) Extension() string { return "md" }

func (ZolaRenderer) RenderHeader(content string, level int) string {
	return header(content, level)
}

func (ZolaRenderer) RenderFrontMatter(title string) string {
	return "+++\ntitle = " + strconv.Quote(title) + "\n+++"
}

func (ZolaRenderer) RenderReference(display, targetPrefix, target string) (string, error) {
	if isURL(target) {
		return link(display, target), nil
	}
	return link(display, "@/"+path.Join(targetPrefix, target+".md")), nil
}

func (ZolaRenderer) ContentPath() string { return "content" }

func (r ZolaRenderer) IndexFile(title string, links []string) (string, string, bool) {
	return "_index.md", r.RenderFrontMatter(title) + "\n", true
}

// HugoRenderer targets Hugo: YAML front matter and ref shortcodes.
type HugoRenderer struct{}

func (HugoRenderer) Format() Format    { return FormatHugo }
func (HugoRenderer) Extension() string { return "md" }

func (HugoRenderer) RenderHeader(content string, level int) string {
	return header(content, level)
}

func (HugoRenderer) RenderFrontMatter(title string) string {
	return markdown.FrontMatter(map[string]string{"title": title})
}

func (HugoRenderer) RenderReference(display, targetPrefix, target string) (string, error) {
	if isURL(target) {
		return link(display, target), nil
	}
	ref := path.Join(targetPrefix, target+".md")
	return link(display, fmt.Sprintf("{{< ref %q >}}", ref)), nil
}

func (HugoRenderer) ContentPath() string { return "content" }

// IndexFile lists the modules below the section's front matter.
func (r HugoRenderer) IndexFile(title string, links []string) (string, string, bool) {
	if len(links) == 0 {
		return "_index.md", r.RenderFrontMatter(title) + "\n", true
	}
	var b strings.Builder
	for _, l := range links {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return "_index.md", markdown.AddFrontMatter(b.String(), map[string]string{"title": title}), true
}

//go:embed templates/page.html.tmpl
var htmlPageSource string

var htmlPage = template.Must(template.New("page").Parse(htmlPageSource))

// HTMLRenderer writes standalone HTML pages converted from the Markdown
// output.
type HTMLRenderer struct{}

func (HTMLRenderer) Format() Format    { return FormatHTML }
func (HTMLRenderer) Extension() string { return "html" }

func (HTMLRenderer) RenderHeader(content string, level int) string {
	return header(content, level)
}

func (HTMLRenderer) RenderFrontMatter(title string) string {
	if title == "" {
		return ""
	}
	return header(title, 1)
}

func (HTMLRenderer) RenderReference(display, _, target string) (string, error) {
	if !isURL(target) {
		target += ".html"
	}
	return link(display, target), nil
}

func (HTMLRenderer) ContentPath() string { return "" }

func (r HTMLRenderer) IndexFile(title string, links []string) (string, string, bool) {
	var b strings.Builder
	b.WriteString(r.RenderFrontMatter(title))
	b.WriteString("\n\n")
	for _, l := range links {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	page, err := r.FinalizePage(title, b.String())
	if err != nil {
		slog.Warn("skipping html index page", "title", title, "error", err)
		return "", "", false
	}
	return "index.html", page, true
}

// FinalizePage converts a Markdown page into a complete HTML document.
// Relative links to .md files written by hand in docstrings are pointed at
// the generated .html pages.
func (HTMLRenderer) FinalizePage(title, body string) (string, error) {
	body = markdown.RewriteLinks(body, func(dest string) (string, bool) {
		if isURL(dest) || !strings.HasSuffix(dest, ".md") {
			return "", false
		}
		return strings.TrimSuffix(dest, ".md") + ".html", true
	})

	var buf bytes.Buffer
	err := htmlPage.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(markdown.ToHTML(body))})
	if err != nil {
		return "", fmt.Errorf("rendering html page %s: %w", title, err)
	}
	return buf.String(), nil
}
