package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cratekeeper/cratekeeper/internal/logger"
)

// reloadSettle is how long to wait after the last write event before
// reloading, so editors that write in multiple steps don't trigger a reload
// of a half-written file.
const reloadSettle = 250 * time.Millisecond

// WatchRules watches a rules file and invokes onReload with the freshly
// loaded tables after each change settles. A rules file that fails to load is
// logged and skipped; the previous tables stay active.
//
// Blocks until ctx is cancelled.
func WatchRules(ctx context.Context, path string, log *logger.Logger, onReload func(*Rules)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadSettle)
				timerC = timer.C
			} else {
				timer.Reset(reloadSettle)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			rules, err := LoadRules(path)
			if err != nil {
				log.Warn("rules reload failed, keeping previous tables", "path", path, "error", err)
				continue
			}
			log.Info("rules reloaded", "path", path)
			onReload(rules)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("rules watcher error", "error", err)
		}
	}
}
