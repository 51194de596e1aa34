package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/jlrickert/cli-toolkit/mylog"
)

// dirRepo is implemented by repositories backed by a real directory.
type dirRepo interface {
	Dir() string
}

// ErrWatchUnsupported is returned by Watch for repositories that have no
// directory to observe.
var ErrWatchUnsupported = errors.New("repository cannot be watched")

// Watch enables the listing cache and keeps it coherent with changes made to
// the store directory by other programs. It blocks until ctx is done, so
// callers usually run it in a goroutine. ready, when non-nil, is closed once
// the watch is registered.
func (s *Store) Watch(ctx context.Context, ready chan<- struct{}) error {
	dr, ok := s.repo.(dirRepo)
	if !ok {
		return fmt.Errorf("%w: %s", ErrWatchUnsupported, s.repo.Name())
	}
	dir := dr.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("watch store directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch store directory: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch store directory: %w", err)
	}

	s.cache.setEnabled(true)
	defer s.cache.setEnabled(false)
	if ready != nil {
		close(ready)
	}

	lg := mylog.LoggerFromContext(ctx)
	lg.Info("store_watch_started", "repo", s.repo.Name(), "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				lg.Debug("store_changed", "file", event.Name, "op", event.Op.String())
				s.cache.invalidate()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			lg.Warn("store_watch_error", "error", watchErr)
			s.cache.invalidate()
		}
	}
}
