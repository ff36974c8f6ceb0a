package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// goneSettle is how long a removed file may take to reappear (editors that
// save by rename) before it is reported gone.
const goneSettle = 200 * time.Millisecond

// Watch observes the directory holding h and calls onGone once if the file
// is removed or renamed away and does not come back within goneSettle. Our
// own atomic writes rename onto the target and never trigger it. Watch
// blocks until ctx is cancelled or onGone has fired.
func (f *FS) Watch(ctx context.Context, h *Handle, onGone func()) error {
	if !h.Live() {
		return errors.New("storage: watch: handle is not valid in this process")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := h.Locator()
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger := f.logger
	logger.Debug("watcher: started", slog.String("file", h.Name()))

	var settle *time.Timer
	var settleCh <-chan time.Time
	scheduleCheck := func() {
		if settle == nil {
			settle = time.NewTimer(goneSettle)
			settleCh = settle.C
		} else {
			settle.Reset(goneSettle)
		}
	}
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("watcher: stopped", slog.String("file", h.Name()))
			return nil

		case <-settleCh:
			if _, statErr := os.Stat(target); errors.Is(statErr, os.ErrNotExist) {
				logger.Warn("watcher: bound file disappeared", slog.String("file", h.Name()))
				onGone()
				return nil
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != target {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleCheck()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
