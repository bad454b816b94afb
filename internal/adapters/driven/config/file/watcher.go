package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/bidwright/internal/logger"
)

// PromptWatcher reloads a PromptStore when files in its directory change.
type PromptWatcher struct {
	store   *PromptStore
	watcher *fsnotify.Watcher
}

// NewPromptWatcher starts watching the store's directory.
// The directory is created if it does not exist.
func NewPromptWatcher(store *PromptStore) (*PromptWatcher, error) {
	// Writes the default files so there is something to watch.
	store.initOnce.Do(store.initialise)
	if store.initErr != nil {
		return nil, fmt.Errorf("prompt watcher: %w", store.initErr)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("prompt watcher: %w", err)
	}
	if err := w.Add(store.Dir()); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("prompt watcher: watch %s: %w", store.Dir(), err)
	}
	return &PromptWatcher{store: store, watcher: w}, nil
}

// Watch reloads the store on every relevant change until ctx is cancelled
// or the watcher is closed. The returned channel receives the name of each
// changed prompt after the reload; it is closed when watching stops.
func (w *PromptWatcher) Watch(ctx context.Context) <-chan string {
	changes := make(chan string, 8)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				name, changed := w.handleEvent(event)
				if !changed {
					continue
				}
				select {
				case changes <- name:
				default:
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("prompt watcher: %v", err)
			}
		}
	}()
	return changes
}

// handleEvent reloads the store for a write, create, remove or rename of a
// known prompt file and returns the prompt name.
func (w *PromptWatcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if filepath.Ext(base) != promptExt {
		return "", false
	}
	name := strings.TrimSuffix(base, promptExt)
	if _, known := w.store.defaults[name]; !known {
		return "", false
	}

	w.store.Reload()
	logger.Info("prompt %s changed, reloaded prompts from %s", name, w.store.Dir())
	return name, true
}

// Close stops watching.
func (w *PromptWatcher) Close() error {
	return w.watcher.Close()
}
