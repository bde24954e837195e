// Package pipeline runs a full documentation build: fetch inventories,
// index the package, validate references, expand them and write pages.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/savente93/snakedown/internal/config"
	"github.com/savente93/snakedown/internal/docs"
	"github.com/savente93/snakedown/internal/index"
	"github.com/savente93/snakedown/internal/inventory"
	"github.com/savente93/snakedown/internal/python"
	"github.com/savente93/snakedown/internal/render"
)

type Options struct {
	// CacheDir holds downloaded inventories; defaults to config.CacheDir().
	CacheDir string
	// ForceFetch re-downloads inventories that are already cached.
	ForceFetch bool
	// Version is stamped into generated pages.
	Version string
}

// Result summarises a completed run.
type Result struct {
	OutputDir string
	// Files counts pages written; Unchanged counts pages whose content
	// already matched the file on disk and were left untouched.
	Files     int
	Unchanged int
	Bytes     int64
	Internal  int
	External  int
	Notebooks int
	Duration  time.Duration
}

// Build is a run that stops before writing: it returns the index with all
// references validated and expanded for the configured renderer.
type Build struct {
	Index    *index.Index
	Renderer render.Renderer
	// OutputDir is where Run writes pages.
	OutputDir string
}

func (o Options) cacheDir() string {
	if o.CacheDir != "" {
		return o.CacheDir
	}
	return config.CacheDir()
}

// Prepare indexes the package and its externals and expands every marker.
// An unresolved marker fails the build with an *index.ValidationError.
func Prepare(ctx context.Context, cfg *config.Config, opts Options) (*Build, error) {
	pkgRoot, err := filepath.Abs(cfg.PkgPath)
	if err != nil {
		return nil, fmt.Errorf("resolving package path: %w", err)
	}
	if info, err := os.Stat(pkgRoot); err != nil {
		return nil, fmt.Errorf("package path: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("package path %s is not a directory", pkgRoot)
	}

	r, err := render.New(cfg.SSG)
	if err != nil {
		return nil, err
	}

	idx, err := index.New(pkgRoot, python.NewParser(), cfg.SkipUndoc, cfg.SkipPrivate)
	if err != nil {
		return nil, err
	}
	idx.SetSuggestionLimits(cfg.Suggest.MaxLengthDelta, cfg.Suggest.MaxEditDistance)

	if err := loadExternals(ctx, idx, cfg, opts); err != nil {
		return nil, err
	}

	if err := idx.IndexPackage(cfg.Exclude); err != nil {
		return nil, fmt.Errorf("indexing package: %w", err)
	}
	slog.Info("indexed package", "package", idx.PackageName(), "root", idx.Root(),
		"objects", idx.Len(), "externals", idx.ExternalLen())

	if err := idx.ValidateReferences(); err != nil {
		return nil, err
	}
	if err := idx.PreProcess(r, cfg.APIContentPath); err != nil {
		return nil, err
	}

	return &Build{
		Index:     idx,
		Renderer:  r,
		OutputDir: filepath.Join(cfg.SiteRoot, r.ContentPath(), cfg.APIContentPath),
	}, nil
}

func loadExternals(ctx context.Context, idx *index.Index, cfg *config.Config, opts Options) error {
	sources := cfg.Sources()
	if len(sources) == 0 {
		return nil
	}
	cacheDir := opts.cacheDir()
	if err := inventory.FillCache(ctx, sources, cacheDir, opts.ForceFetch); err != nil {
		return fmt.Errorf("fetching inventories: %w", err)
	}

	for _, src := range sources {
		base, err := inventory.BaseURL(src.URL)
		if err != nil {
			return fmt.Errorf("external %s: %w", src.Key, err)
		}
		inv, err := inventory.DecodeFile(inventory.CachePath(cacheDir, src.Key))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("inventory for %s was not fetched: %w", src.Key, err)
			}
			return err
		}
		n := idx.AddInventory(base, inv)
		slog.Debug("loaded inventory", "external", src.Key,
			"project", inv.Project, "version", inv.Version, "names", n)
	}
	return nil
}

// Run builds the documentation and, unless cfg.SkipWrite is set, writes
// one page per object plus the renderer's index page.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	start := time.Now()
	b, err := Prepare(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		OutputDir: b.OutputDir,
		Internal:  b.Index.Len(),
		External:  b.Index.ExternalLen(),
	}
	if cfg.SkipWrite {
		slog.Info("skipping write", "output", b.OutputDir)
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	rctx := render.Context{
		Version:     opts.Version,
		PackageName: b.Index.PackageName(),
		APIPath:     cfg.APIContentPath,
	}
	var modules []string
	for name, obj := range b.Index.Objects() {
		page, err := b.Page(name, obj, rctx)
		if err != nil {
			return nil, err
		}
		if err := res.write(filepath.Join(b.OutputDir, name+"."+b.Renderer.Extension()), page); err != nil {
			return nil, err
		}
		if obj.Kind() == docs.KindModule {
			l, err := b.Renderer.RenderReference(name, cfg.APIContentPath, name)
			if err != nil {
				return nil, err
			}
			modules = append(modules, l)
		}
	}

	if name, content, ok := b.Renderer.IndexFile(b.Index.PackageName(), modules); ok {
		if err := res.write(filepath.Join(b.OutputDir, name), content); err != nil {
			return nil, err
		}
	}

	if cfg.NotebooksPath != "" {
		dir := filepath.Join(cfg.SiteRoot, b.Renderer.ContentPath(), cfg.NotebooksContentPath)
		if err := b.writeNotebooks(cfg.NotebooksPath, dir, res); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	slog.Info("wrote pages", "output", b.OutputDir, "files", res.Files, "unchanged", res.Unchanged,
		"notebooks", res.Notebooks)
	return res, nil
}

// Page renders the complete output page for the object named fqn.
func (b *Build) Page(fqn string, obj docs.Object, rctx render.Context) (string, error) {
	page, err := render.RenderObject(obj, fqn, b.Renderer, rctx)
	if err != nil {
		return "", err
	}
	return b.finalize(fqn, strings.TrimLeft(page, " \t\r\n"))
}

func (b *Build) finalize(title, page string) (string, error) {
	f, ok := b.Renderer.(render.PageFinalizer)
	if !ok {
		return page, nil
	}
	page, err := f.FinalizePage(title, page)
	if err != nil {
		return "", fmt.Errorf("finalizing %s: %w", title, err)
	}
	return page, nil
}

// write leaves a file alone when it already holds content.
func (res *Result) write(path, content string) error {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, []byte(content)) {
		res.Unchanged++
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	res.Files++
	res.Bytes += int64(len(content))
	slog.Debug("wrote page", "path", path)
	return nil
}
