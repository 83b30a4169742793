// Package watch re-runs a collection whenever spec files change below the
// scanned directories. Changes are debounced and callbacks never overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harrison/reqtrace/internal/logger"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively.
	Dirs []string
	// SpecFilenames are the basenames that trigger a run.
	SpecFilenames []string
	// ExcludeDirs are directory names never descended into. Hidden directories are always skipped.
	ExcludeDirs []string
	// Debounce is the quiet period after the last change before firing.
	Debounce time.Duration
}

// ChangeFunc is called with the sorted set of spec paths changed since the last call.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches spec files and fires debounced change notifications.
type Watcher struct {
	opts     Options
	fsw      *fsnotify.Watcher
	log      logger.Logger
	names    map[string]bool
	excludes map[string]bool
	pending  map[string]struct{}
}

// New creates a Watcher. Nothing is watched until Run.
func New(opts Options, log logger.Logger) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, errors.New("watch requires at least one directory")
	}
	if len(opts.SpecFilenames) == 0 {
		return nil, errors.New("watch requires at least one spec filename")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		opts:     opts,
		fsw:      fsw,
		log:      log,
		names:    make(map[string]bool, len(opts.SpecFilenames)),
		excludes: make(map[string]bool, len(opts.ExcludeDirs)),
		pending:  make(map[string]struct{}),
	}
	for _, name := range opts.SpecFilenames {
		w.names[name] = true
	}
	for _, dir := range opts.ExcludeDirs {
		w.excludes[dir] = true
	}
	return w, nil
}

// Run watches until ctx is cancelled, calling onChange after each quiet
// period that follows spec file changes. An error from onChange stops Run.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	defer w.fsw.Close()

	for _, dir := range w.opts.Dirs {
		if err := w.addRecursive(dir); err != nil {
			return err
		}
	}
	w.log.Infof("Watching %d director%s for changes to %s", len(w.opts.Dirs), plural(len(w.opts.Dirs)),
		strings.Join(w.opts.SpecFilenames, ", "))

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)

		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.log.Debugf("%d spec file(s) changed", len(changed))
			if err := onChange(ctx, changed); err != nil {
				return err
			}
		}
	}
}

// handle records a relevant event and reports whether the debounce timer
// should restart.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.log.Warnf("Failed to watch new directory %s: %v", event.Name, err)
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !w.names[filepath.Base(event.Name)] {
		return false
	}

	w.log.Tracef("%s %s", event.Op, event.Name)
	w.pending[event.Name] = struct{}{}
	return true
}

func (w *Watcher) drain() []string {
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(changed)
	return changed
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			w.log.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (w.excludes[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warnf("Failed to watch directory %s: %v", path, err)
			return nil
		}
		w.log.Tracef("Watching directory %s", path)
		return nil
	})
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
