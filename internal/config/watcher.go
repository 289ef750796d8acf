package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents an options file change.
type Event struct {
	Path    string
	Options Options
	Error   error
}

// Watcher monitors the options file and re-loads it on change, so a long
// dispatch run picks up tuning (max_parallel, model order) between phases.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	events   chan Event
	debounce time.Duration
	mu       sync.RWMutex
	current  Options
}

// NewWatcher creates a watcher for the options file at path.
func NewWatcher(path string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		watcher:  fsWatcher,
		events:   make(chan Event, 10),
		debounce: 100 * time.Millisecond,
	}, nil
}

// Events returns the channel that receives option change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start loads the current options and begins watching for changes.
// The containing directory is watched, not the file itself, so atomic
// replace-by-rename writes are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	opts, err := Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = opts
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop closes the watcher and cleans up resources.
func (w *Watcher) Stop() error {
	close(w.events)
	return w.watcher.Close()
}

// Current returns the most recently loaded options.
func (w *Watcher) Current() Options {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) run(ctx context.Context) {
	// Debounce rapid write sequences into a single reload.
	var pending *time.Time
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				now := time.Now()
				pending = &now
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.events <- Event{Path: w.path, Error: err}

		case <-ticker.C:
			if pending != nil && time.Since(*pending) >= w.debounce {
				pending = nil
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	opts, err := Load(w.path)
	if err != nil {
		w.events <- Event{Path: w.path, Error: err}
		return
	}

	w.mu.Lock()
	w.current = opts
	w.mu.Unlock()

	w.events <- Event{Path: w.path, Options: opts}
}
