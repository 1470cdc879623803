package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadQuiet is the settle window after the last connection-file event
// before the registry is reloaded.
const reloadQuiet = 300 * time.Millisecond

// watchConnections hot-reloads the connection registry when files in the
// connections directory change. Edits made by another rowboat process (or by
// hand) become visible without a restart.
func (s *Server) watchConnections(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := s.cfg.Registry.Dir()
	if err := watcher.Add(dir); err != nil {
		// The directory may not exist until the first connection is saved.
		// Continue without watching rather than failing the whole server.
		s.logger.Warn("failed to watch connections directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		<-ctx.Done()
		return nil
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadQuiet, func() {
				if err := s.cfg.Registry.Load(); err != nil {
					s.logger.Warn("failed to reload connections",
						slog.String("error", err.Error()))
					return
				}
				s.logger.Debug("connections reloaded")
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
