package library

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 400 * time.Millisecond

// Watch follows the library directory with fsnotify until ctx is cancelled,
// reloading created or modified book files and dropping removed ones. Write
// bursts are debounced per path.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return err
	}
	l.logger.Info("watching library directory", zap.String("dir", l.dir))

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !l.matches(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				path := event.Name
				mu.Lock()
				if t, ok := timers[path]; ok {
					t.Stop()
				}
				timers[path] = time.AfterFunc(watchDebounce, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					if err := l.Load(ctx, path); err != nil {
						l.logger.Warn("reload book", zap.String("path", path), zap.Error(err))
					}
				})
				mu.Unlock()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				l.Remove(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("library watcher", zap.Error(err))
		}
	}
}
