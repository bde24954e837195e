package markdown

import (
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	gmparser "github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

const extensions = gmparser.CommonExtensions | gmparser.Autolink

// RewriteLinks rewrites markdown link destinations. rewrite is called once
// per distinct destination and returns the replacement, or false to keep
// it. The markdown is parsed to find real links, then targeted string
// replacements preserve the original formatting.
func RewriteLinks(src string, rewrite func(dest string) (string, bool)) string {
	doc := gm.Parse([]byte(src), gmparser.NewWithExtensions(extensions))

	seen := make(map[string]bool)
	type replacement struct {
		oldDest string
		newDest string
	}
	var replacements []replacement

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if link, ok := node.(*ast.Link); ok {
			dest := string(link.Destination)
			if seen[dest] {
				return ast.GoToNext
			}
			seen[dest] = true
			if newDest, ok := rewrite(dest); ok && newDest != dest {
				replacements = append(replacements, replacement{dest, newDest})
			}
		}
		return ast.GoToNext
	})

	if len(replacements) == 0 {
		return src
	}

	result := src

	// Inline links: [text](destination)
	for _, r := range replacements {
		result = strings.ReplaceAll(result, "]("+r.oldDest+")", "]("+r.newDest+")")
	}

	// Reference-style definitions: [ref]: destination
	refMap := make(map[string]string, len(replacements))
	for _, r := range replacements {
		refMap["]: "+r.oldDest] = "]: " + r.newDest
	}
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for oldSuffix, newSuffix := range refMap {
			if strings.HasSuffix(trimmed, oldSuffix) {
				lines[i] = strings.Replace(line, oldSuffix, newSuffix, 1)
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// FrontMatter renders fields as a YAML front-matter block, keys sorted,
// without a trailing newline.
func FrontMatter(fields map[string]string) string {
	out, err := yaml.Marshal(fields)
	if err != nil {
		// map[string]string always marshals
		panic(err)
	}
	return "---\n" + string(out) + "---"
}

// AddFrontMatter prepends a YAML front-matter block to src.
func AddFrontMatter(src string, fields map[string]string) string {
	if len(fields) == 0 {
		return src
	}
	return FrontMatter(fields) + "\n\n" + src
}

// ToHTML converts markdown to an HTML fragment.
func ToHTML(src string) string {
	p := gmparser.NewWithExtensions(extensions | gmparser.FencedCode)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(gm.ToHTML([]byte(src), p, renderer))
}
