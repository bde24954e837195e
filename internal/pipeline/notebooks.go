package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/savente93/snakedown/internal/notebook"
	"github.com/savente93/snakedown/internal/render"
)

// writeNotebooks renders every notebook below srcDir. Each one becomes
// an index page in its own directory under outDir, next to its images,
// which is the page bundle layout Zola and Hugo expect.
func (b *Build) writeNotebooks(srcDir, outDir string, res *Result) error {
	paths, err := doublestar.Glob(os.DirFS(srcDir), "**/*.ipynb")
	if err != nil {
		return fmt.Errorf("listing notebooks in %s: %w", srcDir, err)
	}
	slices.Sort(paths)

	for _, rel := range paths {
		if hidden(rel) {
			continue
		}
		cells, err := notebook.DecodeFile(filepath.Join(srcDir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		stem := strings.TrimSuffix(rel, ".ipynb")
		nb, err := render.RenderNotebook(path.Base(stem), cells, b.Renderer)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", rel, err)
		}
		page, err := b.finalize(path.Base(stem), nb.Text)
		if err != nil {
			return err
		}

		dir := filepath.Join(outDir, filepath.FromSlash(stem))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating notebook directory: %w", err)
		}
		if err := res.write(filepath.Join(dir, "index."+b.Renderer.Extension()), page); err != nil {
			return err
		}
		for _, img := range nb.Images {
			if err := res.write(filepath.Join(dir, img.Name), string(img.Data)); err != nil {
				return err
			}
		}
		res.Notebooks++
		slog.Debug("rendered notebook", "notebook", rel, "cells", len(cells), "images", len(nb.Images))
	}
	return nil
}

// hidden matches editor state such as .ipynb_checkpoints.
func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
