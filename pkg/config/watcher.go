package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback is called with the freshly loaded configuration after the
// config file changes and re-validates successfully. If loading fails the
// previous configuration stays active and the error is logged.
type ReloadCallback func(cfg *Config)

// Watcher monitors the configuration file and triggers reloads on change.
// Editors typically replace files via rename, so the watcher watches the
// containing directory and filters events for the file itself. Rapid
// successive events are debounced.
type Watcher struct {
	path     string
	reloadFn ReloadCallback
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	mu       sync.Mutex
	running  bool
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, reloadFn ReloadCallback) *Watcher {
	return &Watcher{
		path:     path,
		reloadFn: reloadFn,
		stopCh:   make(chan struct{}),
		debounce: 500 * time.Millisecond,
		logger:   slog.Default().With("component", "config.watcher"),
	}
}

// Start begins watching. Returns an error if the watcher is already running
// or the underlying filesystem watch cannot be established.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("config watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.running = true

	w.logger.Info("config watcher started", "path", w.path)
	go w.loop()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	w.running = false
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration",
			"path", w.path,
			"error", err,
		)
		return
	}
	w.logger.Info("configuration reloaded", "path", w.path)
	w.reloadFn(cfg)
}
