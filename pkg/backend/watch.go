package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/tracelane/pkg/pdg"
)

// DefaultReloadDelay is how long Watch waits for writes to settle.
const DefaultReloadDelay = 200 * time.Millisecond

// Watch reloads l from path whenever the file changes, until ctx is done.
// The parent directory is watched so that editors and exporters replacing
// the file by rename are noticed. A file that fails to load is logged and
// the previous graph stays in place.
func Watch(ctx context.Context, l *Local, path string, delay time.Duration) error {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	logger := l.opts.Logger.With("file", filepath.Base(path))
	logger.Debug("watching graph file")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	reload := func() {
		p, err := pdg.LoadFile(path)
		if err != nil {
			logger.Error("reload failed, keeping previous graph", "error", err)
			return
		}
		l.Reload(p)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(delay, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
