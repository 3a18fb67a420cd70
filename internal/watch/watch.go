// Package watch notices when the file-backed note store is rewritten by
// another process.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/inkwell/internal/storage"
)

// Debounce is how long the watcher waits for writes to settle before
// calling onChange.
const Debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the directory holding file and calls
// onChange, debounced, whenever file is created, written or renamed into
// place. Temporary files from atomic writes and unrelated files are
// ignored. It blocks until ctx is cancelled.
// The directory is watched since atomic writes replace the file.
func Watch(ctx context.Context, file string, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	file = filepath.Clean(file)
	dir := filepath.Dir(file)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("file", file))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(Debounce)
			fire = timer.C
		} else {
			timer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Debug("watcher: store changed", slog.String("file", file))
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), storage.TempPrefix) {
				continue
			}
			if filepath.Clean(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
