// Package watch reports changes to a single file.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/vidloop/pkg/ports"
)

// DefaultDebounce is how long a file must stay quiet before a change is reported.
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls a function when a file is written, created, or replaced.
//
// The parent directory is watched rather than the file, so a file replaced by
// rename (as editors and encoders do) keeps being followed.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context) error
	logger   ports.Logger
}

// New creates a Watcher for path. A non-positive debounce selects DefaultDebounce.
func New(path string, debounce time.Duration, onChange func(ctx context.Context) error, logger ports.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: path, debounce: debounce, onChange: onChange, logger: logger}
}

// Run watches until ctx is done. Errors from onChange are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.logf("Watching %s for changes", abs)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Warn("Watch error: %v", err)
			}

		case <-timer.C:
			if exists(abs) {
				w.logf("Source changed: %s", abs)
				if err := w.onChange(ctx); err != nil && w.logger != nil {
					w.logger.Error("Reload failed: %v", err)
				}
			}
		}
	}
}

func (w *Watcher) logf(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Info(format, args...)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
