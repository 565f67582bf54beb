package registry

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

// fileWatcher reloads a registry when its backing file changes. The parent
// directory is watched rather than the file itself so editors that replace
// the file (write-to-temp-then-rename) still trigger a reload.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func watchFile(path, component string, onChange func()) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	fw := &fileWatcher{watcher: w, done: make(chan struct{})}
	target := filepath.Base(path)

	go func() {
		var pending *time.Timer
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Debounce rapid successive writes from editors.
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, func() {
					logger.InfoC(component, "Config changed, reloading")
					onChange()
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.WarnCF(component, "Watch error", map[string]any{"error": err.Error()})
			case <-fw.done:
				return
			}
		}
	}()

	return fw, nil
}

func (fw *fileWatcher) close() {
	close(fw.done)
	fw.watcher.Close()
}
