// Package render turns documentation objects into pages for a static site
// generator.
package render

import (
	"fmt"
	"net/url"
	"strings"
)

// Format names a supported output flavour.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatZola     Format = "zola"
	FormatHugo     Format = "hugo"
	FormatHTML     Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatMarkdown, FormatZola, FormatHugo, FormatHTML}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, known := range Formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(names, ", "))
}

// Renderer produces the format-specific pieces of a page.
type Renderer interface {
	Format() Format
	// Extension is the file extension of generated pages, without a dot.
	Extension() string
	RenderHeader(content string, level int) string
	RenderFrontMatter(title string) string
	// RenderReference links display to target. target is either an
	// absolute URL or a fully-qualified name of a generated page living
	// under targetPrefix.
	RenderReference(display, targetPrefix, target string) (string, error)
	// ContentPath is the directory under the site root that the generator
	// reads content from, or "" if pages go straight into the site root.
	ContentPath() string
	// IndexFile returns the section index page for the API directory, if
	// the format uses one. links are rendered references to top-level
	// modules.
	IndexFile(title string, links []string) (name, content string, ok bool)
}

// PageFinalizer is implemented by renderers that post-process whole pages.
type PageFinalizer interface {
	FinalizePage(title, body string) (string, error)
}

// New returns the renderer for f.
func New(f Format) (Renderer, error) {
	switch f {
	case FormatMarkdown:
		return MarkdownRenderer{}, nil
	case FormatZola:
		return ZolaRenderer{}, nil
	case FormatHugo:
		return HugoRenderer{}, nil
	case FormatHTML:
		return HTMLRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q", f)
}

// isURL reports whether target already points at another site.
func isURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func header(content string, level int) string {
	return strings.Repeat("#", level) + " " + strings.TrimSpace(content)
}

func link(display, dest string) string {
	return "[" + display + "](" + dest + ")"
}
