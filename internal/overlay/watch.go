package overlay

import (
	"context"
	"os"
	"path/filepath"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/pid"
	"github.com/fsnotify/fsnotify"
)

// WatchStopped calls onStopped each time the overlay PID file is removed,
// until ctx is done.
func WatchStopped(ctx context.Context, file pid.File, onStopped func()) error {
	errFactory := errors.New()

	if err := os.MkdirAll(file.Dir, 0o755); err != nil {
		return errFactory.Wrap(ErrWatch, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errFactory.Wrap(ErrWatch, err)
	}

	if err := watcher.Add(file.Dir); err != nil {
		watcher.Close()
		return errFactory.Wrap(ErrWatch, err)
	}

	target := filepath.Clean(file.Path())

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					logger.Debug().Str("path", ev.Name).Msg("Overlay stopped signal received")
					onStopped()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("Overlay watcher error")
			}
		}
	}()

	return nil
}
