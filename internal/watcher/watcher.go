// Package watcher reports debounced changes to a fixed set of files.
//
// Editors often replace a file instead of writing it in place, so the
// watcher observes the parent directories and filters by name.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/IgorPritula/entity-ref-dependency/internal/logging"
)

// Watcher monitors files and calls OnChange once per burst of events.
type Watcher struct {
	files map[string]struct{}
	dirs  []string

	debounceDelay time.Duration
	logger        *slog.Logger

	fsWatcher *fsnotify.Watcher
	pending   map[string]time.Time
	mu        sync.Mutex

	onChange func(path string)
}

// Config holds configuration options for the Watcher.
type Config struct {
	Paths         []string
	DebounceDelay time.Duration // Default: 100ms
	Logger        *slog.Logger
	OnChange      func(path string)
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("at least one path is required")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("change callback is required")
	}

	debounce := cfg.DebounceDelay
	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}

	w := &Watcher{
		files:         make(map[string]struct{}, len(cfg.Paths)),
		debounceDelay: debounce,
		logger:        logging.For(cfg.Logger, logging.ChannelConfig),
		pending:       make(map[string]time.Time),
		onChange:      cfg.OnChange,
	}
	seenDirs := make(map[string]struct{})
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := seenDirs[dir]; !ok {
			seenDirs[dir] = struct{}{}
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.fsWatcher.Close()

	for _, dir := range w.dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", "dir", dir)
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.files[path]; !ok {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("file event", "op", event.Op.String(), "path", path)
	w.schedule(path)
}

// schedule records an event; repeated events push the deadline back.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(time.Now())
		}
	}
}

// processPending fires OnChange for files whose last event is older than the
// debounce delay.
func (w *Watcher) processPending(now time.Time) {
	w.mu.Lock()
	ready := make([]string, 0)
	for path, scheduledAt := range w.pending {
		if now.Sub(scheduledAt) >= w.debounceDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.onChange(path)
	}
}
