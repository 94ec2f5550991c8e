// Package watch rebuilds a bundle when its inputs change.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a
// rebuild starts.
const DefaultDebounce = 200 * time.Millisecond

// DefaultIgnore are always skipped.
var DefaultIgnore = []string{"**/node_modules/**", "**/.git/**"}

// sourceExts are the extensions that trigger a rebuild inside watched
// directories.
var sourceExts = map[string]bool{".js": true, ".mjs": true, ".cjs": true}

// Options configures a Watcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Ignore holds doublestar patterns matched against slash-separated paths
	// relative to the watched directory, in addition to DefaultIgnore.
	Ignore []string
}

// ChangeFunc receives the sorted, deduplicated paths changed since the
// previous call. Calls never overlap.
type ChangeFunc func(changed []string)

// Watcher collects file system events and calls a ChangeFunc once per burst.
//
//	w, err := watch.New(watch.Options{}, rebuild, logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	err = w.Start([]string{libDir}, []string{manifestPath, packageJSON})
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange ChangeFunc
	logger   *slog.Logger
	options  Options

	dirs  []string
	files map[string]bool

	pendingMu sync.Mutex
	pending   map[string]bool
	timer     *time.Timer
	runMu     sync.Mutex
	runs      int

	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// New creates a stopped watcher.
func New(options Options, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: change callback is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  w,
		onChange: onChange,
		logger:   logger,
		options:  options,
		files:    make(map[string]bool),
		pending:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}, nil
}

// Start watches every directory in dirs recursively for source changes, and
// the individual files in files through their parent directories. It
// returns once the watches are set up; events are handled in the background.
func (w *Watcher) Start(dirs, files []string) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return errors.New("watcher already stopped")
	}
	w.mu.Unlock()

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		w.dirs = append(w.dirs, abs)
		if err := w.addTree(abs); err != nil {
			return err
		}
	}
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		w.files[abs] = true
		if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", file, err)
		}
	}

	w.logger.Info("watching for changes", "dirs", len(w.dirs), "files", len(w.files))
	go w.eventLoop()
	return nil
}

func (w *Watcher) addTree(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if w.Ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Stop stops watching. Pending changes are dropped. It is idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if event.Op&fsnotify.Create != 0 && w.inTree(path) && !w.Ignored(path) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}
	if event.Op == fsnotify.Chmod || !w.Relevant(path) {
		return
	}
	w.logger.Debug("file event", "op", event.Op.String(), "file", path)
	w.schedule(path)
}

// Relevant reports whether a change to path should trigger a rebuild.
func (w *Watcher) Relevant(path string) bool {
	if w.files[path] {
		return true
	}
	if !sourceExts[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	return w.inTree(path) && !w.Ignored(path)
}

// Ignored reports whether path matches DefaultIgnore or Options.Ignore.
func (w *Watcher) Ignored(path string) bool {
	rel := filepath.ToSlash(path)
	for _, dir := range w.dirs {
		if r, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
			break
		}
	}
	for _, patterns := range [][]string{DefaultIgnore, w.options.Ignore} {
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
			if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
				return true
			}
		}
	}
	switch filepath.Base(path) {
	case "node_modules", ".git":
		return true
	}
	return false
}

func (w *Watcher) inTree(path string) bool {
	for _, dir := range w.dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// schedule records path and restarts the debounce timer.
func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.options.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.pendingMu.Lock()
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	w.runs++
	w.logger.Debug("rebuilding", "changed", len(changed), "run", w.runs)
	w.onChange(changed)
}

// Stats reports watcher state.
type Stats struct {
	Pending   int
	Runs      int
	IsRunning bool
}

// GetStats returns a snapshot of the watcher state.
func (w *Watcher) GetStats() Stats {
	w.pendingMu.Lock()
	pending := len(w.pending)
	w.pendingMu.Unlock()
	w.runMu.Lock()
	runs := w.runs
	w.runMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{Pending: pending, Runs: runs, IsRunning: !w.stopped}
}
