package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// templateCache holds the leaderboard and submission-result templates read
// from runtime/templates/. It watches the directory with fsnotify so an
// operator editing a template on disk is picked up without a restart —
// the server never shells out to re-render; the watcher goroutine re-reads
// the changed file as soon as its write or create event arrives.
type templateCache struct {
	dir string

	mu        sync.RWMutex
	templates map[string]string

	watcher *fsnotify.Watcher
}

func newTemplateCache(dir string) (*templateCache, error) {
	tc := &templateCache{dir: dir, templates: make(map[string]string)}
	if err := tc.loadAll(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("template hot-reload disabled: fsnotify watcher unavailable", "error", err)
		return tc, nil
	}
	if err := watcher.Add(dir); err != nil {
		slog.Warn("template hot-reload disabled: cannot watch directory", "dir", dir, "error", err)
		_ = watcher.Close()
		return tc, nil
	}
	tc.watcher = watcher
	go tc.watch()
	return tc, nil
}

func (tc *templateCache) watch() {
	for {
		select {
		case event, ok := <-tc.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if err := tc.reload(name); err != nil {
				slog.Warn("failed to reload template", "file", name, "error", err)
			} else {
				slog.Info("reloaded template", "file", name)
			}
		case err, ok := <-tc.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("template watcher error", "error", err)
		}
	}
}

func (tc *templateCache) loadAll() error {
	entries, err := os.ReadDir(tc.dir)
	if err != nil {
		return fmt.Errorf("read templates dir %s: %w", tc.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		if err := tc.reload(e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (tc *templateCache) reload(name string) error {
	data, err := os.ReadFile(filepath.Join(tc.dir, name))
	if err != nil {
		return err
	}
	tc.mu.Lock()
	tc.templates[name] = string(data)
	tc.mu.Unlock()
	return nil
}

// render returns the named template with placeholders substituted. This is
// a global, first-past-the-post string replace, not html/template — the
// templates trust nothing from user input except values already filtered
// by the admission gate.
func (tc *templateCache) render(name string, values map[string]string) (string, error) {
	tc.mu.RLock()
	tpl, ok := tc.templates[name]
	tc.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not loaded", name)
	}
	for placeholder, value := range values {
		tpl = strings.ReplaceAll(tpl, placeholder, value)
	}
	return tpl, nil
}

func (tc *templateCache) close() {
	if tc.watcher != nil {
		_ = tc.watcher.Close()
	}
}
