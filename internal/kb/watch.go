package kb

import (
	"context"
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever a reference document under its
// directory is created, modified or removed. It blocks until the context
// is cancelled; run it in its own goroutine. Reload errors are logged and
// the previous excerpt set stays in effect.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(s.dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWatchedExtension(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				log.Println("kb: reload after change:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("kb: watcher error:", err)
		}
	}
}
