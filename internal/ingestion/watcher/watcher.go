// Package watcher triggers a callback when CSV files in a directory change.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 2 * time.Second

// Watch calls fn once changes to *.csv files under dir have been quiet for
// debounce. It blocks until ctx is cancelled. fn runs on the watcher
// goroutine, so changes made while it runs are coalesced into the next call.
func Watch(ctx context.Context, dir string, debounce time.Duration, fn func(ctx context.Context)) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	logger := slog.Default().With("component", "dataset-watcher", "dir", dir)
	logger.Info("watching dataset directory", "debounce", debounce)

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("dataset change", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)

		case <-timer.C:
			logger.Info("dataset directory changed")
			fn(ctx)

		case <-ctx.Done():
			return nil
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
