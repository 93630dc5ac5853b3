package watcher

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, paths ...string) (*Watcher, *[]string) {
	t.Helper()
	var (
		mu    sync.Mutex
		fired []string
	)
	w, err := New(Config{
		Paths:         paths,
		DebounceDelay: 100 * time.Millisecond,
		OnChange: func(path string) {
			mu.Lock()
			defer mu.Unlock()
			fired = append(fired, path)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w, &fired
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{OnChange: func(string) {}}); err == nil {
		t.Error("expected error without paths")
	}
	if _, err := New(Config{Paths: []string{"erdep.toml"}}); err == nil {
		t.Error("expected error without callback")
	}
}

func TestNewSharesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWatcher(t, filepath.Join(dir, "erdep.toml"), filepath.Join(dir, "content_model.yaml"))
	if len(w.dirs) != 1 || w.dirs[0] != dir {
		t.Errorf("dirs = %v, want [%s]", w.dirs, dir)
	}
}

func TestDebounce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "erdep.toml")
	w, fired := newTestWatcher(t, cfgPath)

	w.handleEvent(fsnotify.Event{Name: cfgPath, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: cfgPath, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "other.txt"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: cfgPath, Op: fsnotify.Chmod})

	w.processPending(time.Now())
	if len(*fired) != 0 {
		t.Fatalf("fired before debounce delay: %v", *fired)
	}

	w.processPending(time.Now().Add(time.Second))
	if len(*fired) != 1 || (*fired)[0] != cfgPath {
		t.Fatalf("fired = %v, want one change for %s", *fired, cfgPath)
	}

	w.processPending(time.Now().Add(2 * time.Second))
	if len(*fired) != 1 {
		t.Fatalf("pending entry should be consumed, fired = %v", *fired)
	}
}
