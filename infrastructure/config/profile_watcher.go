package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"sentinel/domain/core/entities"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ProfileWatcher reloads the profile file when it changes and hands the
// result to onChange. The parent directory is watched so editors that
// replace the file by rename are picked up too.
type ProfileWatcher struct {
	path     string
	loader   *ProfileLoader
	onChange func(entities.UserProfile) error
	debounce time.Duration
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewProfileWatcher starts watching path
func NewProfileWatcher(path string, loader *ProfileLoader, onChange func(entities.UserProfile) error, logger *zap.Logger) (*ProfileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch profile directory: %w", err)
	}

	w := &ProfileWatcher{
		path:     abs,
		loader:   loader,
		onChange: onChange,
		debounce: 300 * time.Millisecond,
		logger:   logger,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Profile hot reloading enabled", zap.String("path", abs))
	return w, nil
}

func (w *ProfileWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debug("Profile file changed", zap.String("operation", event.Op.String()))
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *ProfileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *ProfileWatcher) reload() {
	profile, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload profile", zap.Error(err))
		return
	}
	if err := w.onChange(profile); err != nil {
		w.logger.Warn("Reloaded profile rejected", zap.Error(err))
		return
	}
	w.logger.Info("Profile reloaded", zap.Int("contacts", len(profile.EmergencyContacts)))
}

// Close stops watching
func (w *ProfileWatcher) Close() {
	w.once.Do(func() {
		close(w.stopCh)
		<-w.done
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}
