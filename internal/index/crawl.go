package index

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/savente93/snakedown/internal/docs"
)

// IndexFile parses one source file under the package root and registers
// its module, classes, methods and functions. A module the filter
// excludes contributes nothing.
func (idx *Index) IndexFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(idx.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s is outside package root %s", path, idx.root)
	}

	decl, err := idx.parser.ParseFile(abs)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	importPath := DeriveImportPath(idx.pkgName, rel)
	moduleName := importPath[strings.LastIndex(importPath, ".")+1:]

	mod, ok := docs.NewModule(decl, moduleName, idx.filter)
	if !ok {
		return nil
	}

	if err := idx.Insert(importPath, mod); err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	for _, cls := range mod.Classes {
		clsPath := importPath + "." + cls.Name()
		if err := idx.Insert(clsPath, cls); err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		for _, m := range cls.Methods {
			if err := idx.Insert(clsPath+"."+m.Name(), m); err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
		}
	}
	for _, fn := range mod.Functions {
		if err := idx.Insert(importPath+"."+fn.Name(), fn); err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
	}

	slog.Debug("indexed module", "module", importPath,
		"classes", len(mod.Classes), "functions", len(mod.Functions))
	return nil
}

// IndexPackage indexes every Python file under the package root in
// lexical order. Exclude patterns are doublestar globs matched against
// slash-separated paths that start with the package name, e.g.
// "pkg/tests/**" or "pkg/_vendor". A matching directory is skipped along
// with everything beneath it.
func (idx *Index) IndexPackage(excludes []string) error {
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	parent := filepath.Dir(idx.root)
	return filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != idx.root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			if excluded(rel, excludes) {
				slog.Debug("excluding directory", "path", rel)
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != ".py" {
			return nil
		}
		if excluded(rel, excludes) {
			slog.Debug("excluding file", "path", rel)
			return nil
		}
		return idx.IndexFile(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__"
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.TrimSuffix(p, "/"), rel); ok {
			return true
		}
	}
	return false
}
