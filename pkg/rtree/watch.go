package rtree

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/models"
)

// WatchFile reloads the hotspot file whenever it is written or replaced and
// hands the new list to onChange. Files that fail to parse are logged and
// skipped, so the previous hotspots stay in effect. It blocks until ctx is done.
func WatchFile(ctx context.Context, filename string, logger *zap.Logger, onChange func([]models.Hotspot)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them, so watch the directory.
	dir := filepath.Dir(filename)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(filename)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			hotspots, err := LoadHotspots(filename)
			if err != nil {
				logger.Warn("Hotspot reload failed", zap.String("file", filename), zap.Error(err))
				continue
			}
			logger.Info("Hotspots reloaded", zap.String("file", filename), zap.Int("count", len(hotspots)))
			onChange(hotspots)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Hotspot watcher error", zap.Error(err))
		}
	}
}
