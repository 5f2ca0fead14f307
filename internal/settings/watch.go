package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quest/internal/models"
)

const reloadDebounce = 150 * time.Millisecond

// ChangeCallback receives the freshly loaded record after an on-disk change.
type ChangeCallback func(models.Settings)

// Watch observes the synced area and calls cb (if non-nil) after the settings
// record changes on disk, until ctx is cancelled. Bursts of events are
// debounced into a single reload.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.area.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("settings: watcher started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			fire = timer.C
			return
		}
		timer.Reset(reloadDebounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("settings: watcher stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			rec, err := s.Load(ctx)
			if err != nil {
				logger.Warn("settings: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("settings: reloaded")
			if cb != nil {
				cb(rec)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != recordKey {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
