package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/savente93/snakedown/internal/notebook"
)

// Image is a decoded notebook image written next to the page that links
// it.
type Image struct {
	Name string
	Data []byte
}

type RenderedNotebook struct {
	Text   string
	Images []Image
}

// mediaRanks orders display data from richest to plainest. Types not
// listed are never rendered.
var mediaRanks = map[string]int{
	"image/svg+xml":        10,
	"image/png":            9,
	"image/jpeg":           8,
	"image/gif":            7,
	"text/html":            6,
	"application/json":     5,
	"application/geo+json": 4,
	"text/latex":           3,
	"text/markdown":        2,
	"text/plain":           1,
}

var imageExtensions = map[string]string{
	"image/svg+xml": "svg",
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
}

// RankMediaType scores a MIME type; 0 means it cannot be rendered.
func RankMediaType(mime string) int {
	return mediaRanks[mime]
}

// Richest picks the highest ranked renderable MIME type in media. Equal
// ranks cannot occur since every rank belongs to one type.
func Richest(media map[string][]byte) (string, bool) {
	best, bestRank := "", 0
	for mime := range media {
		if r := RankMediaType(mime); r > bestRank {
			best, bestRank = mime, r
		}
	}
	return best, bestRank > 0
}

// RenderNotebook renders cells as one page titled name. Images are
// returned separately; the page links them by file name, so they belong
// in the same directory as the page.
func RenderNotebook(name string, cells []notebook.Cell, r Renderer) (*RenderedNotebook, error) {
	out := &RenderedNotebook{}
	var blocks []string
	if fm := r.RenderFrontMatter(name); fm != "" {
		blocks = append(blocks, fm)
	}

	for i, cell := range cells {
		switch cell.Kind {
		case notebook.CellMarkdown:
			blocks = append(blocks, cell.Source)
		case notebook.CellRaw:
			blocks = append(blocks, fence("", cell.Source))
		case notebook.CellCode:
			blocks = append(blocks, fence("python", cell.Source))
			images := 0
			for _, o := range cell.Outputs {
				switch o.Kind {
				case notebook.OutputStream:
					blocks = append(blocks, fence("", o.Text))
				case notebook.OutputDisplay:
					mime, ok := Richest(o.Media)
					if !ok {
						continue
					}
					ext, isImage := imageExtensions[mime]
					if !isImage {
						blocks = append(blocks, string(o.Media[mime]))
						continue
					}
					img := Image{Name: imageName(i, images, ext), Data: o.Media[mime]}
					images++
					out.Images = append(out.Images, img)
					blocks = append(blocks, "![image]("+img.Name+")")
				}
			}
		default:
			return nil, fmt.Errorf("cell %d: unsupported kind %s", i, cell.Kind)
		}
	}

	out.Text = strings.Join(blocks, "\n\n") + "\n"
	return out, nil
}

// imageName is "<cell>.<ext>" for the first image of a cell and
// "<cell>-<n>.<ext>" for later ones.
func imageName(cell, n int, ext string) string {
	name := strconv.Itoa(cell)
	if n > 0 {
		name += "-" + strconv.Itoa(n)
	}
	return name + "." + ext
}

func fence(lang, body string) string {
	return "```" + lang + "\n" + strings.TrimRight(body, "\n") + "\n```"
}
