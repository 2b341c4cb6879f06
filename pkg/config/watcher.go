package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/abit/pgconfd/pkg/logger"
)

// Watcher delivers change notifications for watched configuration files.
// boot.go points one at the root GUC file when --watch is set; the yaml
// provider points one at the process-config file. Callbacks fire on write
// or create events for a path that is still being watched; a path stops
// being watched when the context passed to Watch is canceled.
type Watcher struct {
	fsw  *fsnotify.Watcher
	stop chan struct{}

	mu        sync.RWMutex
	callbacks []func()
	paths     map[string]context.Context

	runOnce   sync.Once
	closeOnce sync.Once
}

// NewWatcher returns a Watcher backed by a fresh fsnotify watcher.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		fsw:   fsw,
		stop:  make(chan struct{}),
		paths: make(map[string]context.Context),
	}, nil
}

// OnChange registers callback to run on every change event. Register
// callbacks before the first Watch call to avoid missing early events.
func (w *Watcher) OnChange(callback func()) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Watch adds path to the watch set. Events stop being delivered for it
// once ctx is canceled (or the Watcher is closed), and the underlying
// fsnotify registration is removed at that point.
func (w *Watcher) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := w.fsw.Add(abs); err != nil {
		return fmt.Errorf("failed to watch file: %w", err)
	}

	w.mu.Lock()
	w.paths[abs] = ctx
	w.mu.Unlock()

	if done := ctx.Done(); done != nil {
		go w.unwatchWhenDone(abs, done)
	}
	w.runOnce.Do(func() { go w.run() })
	return nil
}

// unwatchWhenDone drops abs from the watch set once its context ends or
// the Watcher shuts down, whichever comes first.
func (w *Watcher) unwatchWhenDone(abs string, done <-chan struct{}) {
	select {
	case <-done:
	case <-w.stop:
	}
	w.mu.Lock()
	delete(w.paths, abs)
	w.mu.Unlock()
	// Removing after fsw.Close is a no-op error; nothing to report.
	_ = w.fsw.Remove(abs)
}

// run pumps fsnotify events until the watcher closes.
func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.stillWatched(event.Name) {
				continue
			}
			w.notify()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				logger.Warn("config file watcher error", "error", err)
			}
		}
	}
}

// stillWatched reports whether events for abs should still be delivered.
func (w *Watcher) stillWatched(abs string) bool {
	w.mu.RLock()
	ctx, ok := w.paths[abs]
	w.mu.RUnlock()
	if !ok {
		return false
	}
	return ctx == nil || ctx.Err() == nil
}

func (w *Watcher) notify() {
	w.mu.RLock()
	callbacks := make([]func(), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback()
		}
	}
}

// Close stops event delivery and releases the fsnotify watcher. Safe to
// call more than once.
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		close(w.stop)
		if err := w.fsw.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return closeErr
}
