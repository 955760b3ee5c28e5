// Package watcher observes an archive folder and reports files that
// have settled, so an index update can run after copies finish.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a settled change in the watched folder.
type Event struct {
	Path    string
	Removed bool
}

// Watcher wraps fsnotify with a settle period: a file is reported only
// after it has stopped changing for the configured duration, so large
// copies are not indexed half-written.
type Watcher struct {
	root   string
	settle time.Duration
	accept func(path string) bool

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for root. settle defaults to 2s when zero.
// accept filters paths; nil accepts everything.
func New(root string, settle time.Duration, accept func(path string) bool) *Watcher {
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{
		root:    root,
		settle:  settle,
		accept:  accept,
		pending: make(map[string]*time.Timer),
	}
}

// Watch blocks, delivering settled events to out until ctx is
// cancelled. Subdirectories created while watching are picked up.
func (w *Watcher) Watch(ctx context.Context, out chan<- Event) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	slog.Debug("watching folder", "root", w.root, "settle", w.settle)

	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, ev, out)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event, out chan<- Event) {
	name := filepath.Base(ev.Name)
	if len(name) > 0 && name[0] == '.' {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(fw, ev.Name)
			return
		}
	}

	if w.accept != nil && !w.accept(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelTimer(ev.Name)
		select {
		case out <- Event{Path: ev.Name, Removed: true}:
		case <-ctx.Done():
		}

	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		w.resetTimer(ctx, ev.Name, out)
	}
}

// resetTimer (re)arms the settle timer for a path. Each write pushes
// the report further out; the event fires once writes stop.
func (w *Watcher) resetTimer(ctx context.Context, path string, out chan<- Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}

	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		slog.Debug("file settled", "path", path)
		select {
		case out <- Event{Path: path}:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != filepath.Base(root) && len(name) > 0 && name[0] == '.' {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
