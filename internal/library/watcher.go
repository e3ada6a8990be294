package library

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// ChangeFunc is called with the folder whose audio content changed
type ChangeFunc func(dir string)

// Watcher reports audio file changes in the currently open folder. It never
// touches the queue; the shell decides whether to rebuild.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	dir      string
	onChange ChangeFunc
	debounce time.Duration
	timer    *time.Timer
}

// NewWatcher creates a folder watcher
func NewWatcher(onChange ChangeFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		onChange: onChange,
		debounce: defaultDebounce,
	}, nil
}

// Watch switches the watched folder to dir
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dir == dir {
		return nil
	}
	if w.dir != "" {
		_ = w.fsw.Remove(w.dir)
	}
	w.dir = ""
	if w.timer != nil {
		w.timer.Stop()
	}

	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dir = dir
	log.Printf("[WATCH] Watching %s", dir)
	return nil
}

// Dir returns the folder being watched
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Run processes filesystem events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.trigger(filepath.Dir(event.Name))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCH] Error: %v", err)
		}
	}
}

// relevant reports whether event adds, removes or renames an audio file
func relevant(event fsnotify.Event) bool {
	if !IsSupported(event.Name) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// trigger debounces bursts of events (copying an album) into one callback
func (w *Watcher) trigger(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dir != w.dir {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		current := w.dir
		w.mu.Unlock()
		if current == dir && w.onChange != nil {
			w.onChange(dir)
		}
	})
}

// Close stops watching
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
