package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (editors write
// several times per save) into one recompilation.
const watchDebounce = 500 * time.Millisecond

// watchAndRecompile blocks, invoking recompile whenever a file under
// one of the local source specs changes. Non-directory specs (URLs,
// archives) are not watchable and are skipped.
func watchAndRecompile(ctx context.Context, specs []string, logger *slog.Logger, recompile func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck // process lifetime watcher

	watched := 0
	for _, spec := range specs {
		dir, ok := watchableDir(spec)
		if !ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			if logger != nil {
				logger.Debug("cannot watch source", slog.String("dir", dir), slog.Any("error", err))
			}
			continue
		}
		watched++
	}
	if watched == 0 {
		return nil
	}

	if logger != nil {
		logger.Info("watching for MIB changes", slog.Int("dirs", watched))
	}

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Debug("watch error", slog.Any("error", err))
			}

		case <-pending:
			recompile()
		}
	}
}

func watchableDir(spec string) (string, bool) {
	switch {
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return "", false
	case strings.HasPrefix(spec, "zip:"), strings.HasSuffix(spec, ".zip"):
		return "", false
	case strings.HasPrefix(spec, "tree:"):
		return strings.TrimPrefix(spec, "tree:"), true
	default:
		return spec, true
	}
}
