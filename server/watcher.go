package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/corymhall/jxalsp/config"
	"github.com/corymhall/jxalsp/debug"
	"github.com/fsnotify/fsnotify"
)

// settleDelay groups the bursts of events editors and package managers
// produce for a single save.
const settleDelay = 200 * time.Millisecond

// Watcher reports changes to the files in the workspace root that decide
// which providers can run: the settings file, package.json and ESLint
// configuration.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange func(name string)

	mu      sync.Mutex
	pending *time.Timer
	last    string
}

// NewWatcher watches root. onChange is called with the last changed file
// once events settle.
func NewWatcher(root string, onChange func(name string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(root); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	return &Watcher{root: root, watcher: w, onChange: onChange}, nil
}

// Relevant reports whether a change to name can change the active providers
// or the settings.
func Relevant(name string) bool {
	base := filepath.Base(name)
	return base == config.WorkspaceFile ||
		base == "package.json" ||
		strings.HasPrefix(base, ".eslintrc") ||
		strings.HasPrefix(base, "eslint.config.")
}

// Start delivers events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	debug.Debug.Log(ctx, "watching workspace", slog.String("root", w.root))
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.Warning.Log(ctx, "workspace watcher error", slog.Any("error", err))

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !Relevant(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = event.Name
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(settleDelay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	name := w.last
	w.pending = nil
	w.mu.Unlock()
	w.onChange(name)
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
