package telemetry

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultReloadDelay debounces editors that write a file in several steps.
const defaultReloadDelay = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	path        string
	logger      *Logger
	reloadDelay time.Duration
	watcher     *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	current *Config
}

// NewWatcher creates a watcher for the YAML file at path.
func NewWatcher(path string, logger *Logger) *Watcher {
	return &Watcher{
		path:        path,
		logger:      logger.NewComponentLogger("config-watcher"),
		reloadDelay: defaultReloadDelay,
	}
}

// Watch starts watching the file and calls onChange with every successfully
// loaded and validated configuration. Invalid files are logged and skipped.
// The directory is watched rather than the file so that atomic renames are seen.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	w.watcher = watcher
	go w.processEvents(ctx, onChange)

	w.logger.Infof("Watching %s for configuration changes", w.path)
	return nil
}

// processEvents processes file system events and triggers reloads.
func (w *Watcher) processEvents(ctx context.Context, onChange func(*Config)) {
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Debugf("Config file changed (%s)", event.Op.String())

			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.reloadDelay, func() {
				w.reload(onChange)
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

func (w *Watcher) reload(onChange func(*Config)) {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.WithError(err).Error("Failed to reload configuration, keeping previous one")
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	onChange(cfg)
	w.logger.Info("Configuration reloaded")
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Current returns the last configuration loaded by the watcher, or nil.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// ApplyLogLevels updates the runtime levels of the application and event
// loggers from cfg. It is the usual onChange callback for Watch.
func ApplyLogLevels(cfg *Config, appLogger, eventLogger *Logger) {
	appLogger.SetLevel(cfg.Logging.Level)
	eventLogger.SetLevel(cfg.Pipeline.EventLog.Level)
}
