package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change is an observed configuration reload.
type Change struct {
	Old *Config
	New *Config
}

// Watcher observes the config file and reports reloads, so the caller
// can trigger the bulk storage-migration pass when the hybrid-storage
// settings flip. The parent directory is watched rather than the file
// itself: editors and Save both replace the file atomically.
type Watcher struct {
	manager *Manager
	fw      *fsnotify.Watcher
	log     *zap.Logger
	changes chan Change
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher starts watching the manager's config file. current is the
// baseline the first reload is compared against.
func NewWatcher(manager *Manager, current *Config, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: start watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(manager.Path())); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", manager.Path(), err)
	}

	w := &Watcher{
		manager: manager,
		fw:      fw,
		log:     log,
		changes: make(chan Change, 1),
		done:    make(chan struct{}),
	}
	go w.loop(current)
	return w, nil
}

// Changes delivers config reloads. The channel is closed when the
// watcher shuts down.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fw.Close()
	})
	return w.closeErr
}

func (w *Watcher) loop(current *Config) {
	defer close(w.changes)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.manager.Path()) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			next, err := w.manager.Load()
			if err != nil {
				w.log.Warn("config reload failed, keeping previous configuration", zap.Error(err))
				continue
			}
			change := Change{Old: current, New: next}
			current = next
			select {
			case w.changes <- change:
			case <-w.done:
				return
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}
