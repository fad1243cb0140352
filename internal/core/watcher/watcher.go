// Package watcher re-runs scripts when they change on disk.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"calcscript/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Options selects which files trigger a change. Patterns are matched against
// the base name of the file. An empty Include list accepts every file that
// Exclude does not reject.
type Options struct {
	Debounce time.Duration
	Include  []string
	Exclude  []string
}

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	include   []glob.Glob
	exclude   []glob.Glob
	onChange  func([]string)

	// targets holds explicitly watched files; events for siblings in the
	// same directory are ignored unless that directory is watched too.
	targets map[string]bool
	dirs    map[string]bool

	callbackMu sync.Mutex
	pendingMu  sync.Mutex
	pending    map[string]struct{}
	timer      *time.Timer
	closed     bool
}

func New(opts Options, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	include, err := compileGlobs(opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  opts.Debounce,
		include:   include,
		exclude:   exclude,
		onChange:  onChange,
		targets:   make(map[string]bool),
		dirs:      make(map[string]bool),
		pending:   make(map[string]struct{}),
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Watch registers files and directories and starts the event loop.
// Directories are watched recursively; hidden subdirectories are skipped.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			clean := filepath.Clean(path)
			w.targets[clean] = true
			if err := w.fsWatcher.Add(filepath.Dir(clean)); err != nil {
				return err
			}
			continue
		}
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		w.dirs[filepath.Clean(path)] = true
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.dirs[filepath.Dir(filepath.Clean(event.Name))] {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.accepts(event.Name) {
				continue
			}
			w.scheduleChange(event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	clean := filepath.Clean(path)
	if w.targets[clean] {
		return true
	}
	if !w.dirs[filepath.Dir(clean)] {
		return false
	}
	return w.matches(filepath.Base(clean))
}

func (w *Watcher) matches(base string) bool {
	for _, g := range w.exclude {
		if g.Match(base) {
			return false
		}
	}
	if len(w.include) == 0 {
		return true
	}
	for _, g := range w.include {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[filepath.Clean(path)] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		// Editors that save via a temp file may already have removed it.
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
