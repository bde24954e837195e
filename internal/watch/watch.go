// Package watch re-runs a build whenever Python sources under a package
// change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of changes
// to settle before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

type Watcher struct {
	root     string
	debounce time.Duration
	build    func(ctx context.Context) error
}

// New returns a watcher for the tree at root. build is called once per
// settled burst of changes; its errors are logged and watching continues.
func New(root string, debounce time.Duration, build func(ctx context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, debounce: debounce, build: build}
}

// Relevant reports whether ev, seen by a watcher on root, can change the
// generated documentation.
func Relevant(root string, ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".py" {
		return false
	}
	if ignored(root, filepath.Dir(ev.Name)) {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// ignored reports whether dir is, or sits below, a hidden or __pycache__
// directory inside root. Directories above root are not considered.
func ignored(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDir(part) {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return (strings.HasPrefix(name, ".") && name != ".") || name == "__pycache__"
}

// Run watches until ctx is cancelled. It does not perform an initial
// build.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	slog.Info("watching for changes", "root", w.root)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						slog.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !Relevant(w.root, ev) {
				continue
			}
			slog.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			start := time.Now()
			if err := w.build(ctx); err != nil {
				slog.Error("rebuild failed", "error", err)
				continue
			}
			slog.Info("rebuilt", "duration", time.Since(start).Round(time.Millisecond))
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignored(w.root, path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
