package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of fsnotify events an editor save
// produces (create + write + chmod) into one reload.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the config whenever the file at path changes and invokes
// onChange with the new value. The parent directory is watched rather than
// the file itself so atomic rename saves (see Save) keep being observed.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(Config, []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	reload := make(chan struct{}, 1)

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
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[CONFIG] watcher error", "error", err)
		case <-reload:
			cfg, warnings, err := Load(path)
			if err != nil {
				slog.Warn("[CONFIG] reload failed, keeping previous config", "path", path, "error", err)
				continue
			}
			onChange(cfg, warnings)
		}
	}
}
