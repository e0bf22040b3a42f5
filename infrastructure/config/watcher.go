package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigWatcher watches the configuration directory and reloads the
// configuration when a file changes. A reload that fails to parse or
// validate keeps the current configuration.
type ConfigWatcher struct {
	loader   *Loader
	current  *Config
	mu       sync.RWMutex
	onChange []func(*Config)
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewConfigWatcher creates a watcher over the loader's directory.
// The initial configuration should come from the same loader.
func NewConfigWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watching the directory rather than individual files keeps
	// atomic saves (write to temp file, rename over the original)
	// visible.
	if err := fsWatcher.Add(loader.basePath); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config directory %s: %w", loader.basePath, err)
	}

	return &ConfigWatcher{
		loader:   loader,
		current:  initial,
		onChange: make([]func(*Config), 0),
		logger:   logger,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes.
func (w *ConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started",
		zap.String("path", w.loader.basePath),
	)
}

// Stop stops the watcher and waits for the watch loop to exit.
func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
	w.logger.Info("Configuration watcher stopped")
}

// watchLoop debounces file events and triggers reloads.
func (w *ConfigWatcher) watchLoop() {
	defer close(w.doneCh)

	var debounceTimer *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					w.reload(event.Name)
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// reload loads the full configuration hierarchy again and swaps it in
// if it changed. Load validates before returning, so a broken file
// never replaces a working configuration.
func (w *ConfigWatcher) reload(trigger string) {
	w.logger.Info("Configuration file changed, reloading",
		zap.String("file", filepath.Base(trigger)),
	)

	newConfig, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping current",
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	oldConfig := w.current
	if configsEqual(oldConfig, newConfig) {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.current = newConfig
	callbacks := append(([]func(*Config))(nil), w.onChange...)
	w.mu.Unlock()

	w.logConfigChanges(oldConfig, newConfig)

	for i, callback := range callbacks {
		go func(idx int, cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Configuration change callback panicked",
						zap.Int("callback_index", idx),
						zap.Any("panic", r),
					)
				}
			}()
			cb(newConfig)
		}(i, callback)
	}

	w.logger.Info("Configuration reloaded",
		zap.Int("callbacks_notified", len(callbacks)),
	)
}

// OnChange registers a callback invoked after each successful reload.
// Callbacks run on their own goroutines.
func (w *ConfigWatcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, callback)
	w.mu.Unlock()
}

// GetConfig returns the current configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// configsEqual compares configurations ignoring source bookkeeping.
func configsEqual(a, b *Config) bool {
	ca, cb := *a, *b
	ca.LoadedFrom, cb.LoadedFrom = nil, nil
	return reflect.DeepEqual(ca, cb)
}

// logConfigChanges logs the settings that commonly change at runtime.
func (w *ConfigWatcher) logConfigChanges(old, new *Config) {
	changes := make([]string, 0)

	if old.Logging.Level != new.Logging.Level {
		changes = append(changes, fmt.Sprintf("log level: %s -> %s", old.Logging.Level, new.Logging.Level))
	}
	if old.Versioning.SnapshotInterval != new.Versioning.SnapshotInterval {
		changes = append(changes, fmt.Sprintf("snapshot interval: %s -> %s",
			old.Versioning.SnapshotInterval, new.Versioning.SnapshotInterval))
	}
	if old.Versioning.SnapshotSizeThreshold != new.Versioning.SnapshotSizeThreshold {
		changes = append(changes, fmt.Sprintf("snapshot size threshold: %d -> %d",
			old.Versioning.SnapshotSizeThreshold, new.Versioning.SnapshotSizeThreshold))
	}
	if old.Features.EnableCaching != new.Features.EnableCaching {
		changes = append(changes, fmt.Sprintf("caching: %v -> %v", old.Features.EnableCaching, new.Features.EnableCaching))
	}
	if old.Features.EnableAutoSnapshots != new.Features.EnableAutoSnapshots {
		changes = append(changes, fmt.Sprintf("auto snapshots: %v -> %v",
			old.Features.EnableAutoSnapshots, new.Features.EnableAutoSnapshots))
	}
	if old.RateLimit.RequestsPerMinute != new.RateLimit.RequestsPerMinute {
		changes = append(changes, fmt.Sprintf("rate limit: %d -> %d",
			old.RateLimit.RequestsPerMinute, new.RateLimit.RequestsPerMinute))
	}

	if len(changes) > 0 {
		w.logger.Info("Configuration changes detected", zap.Strings("changes", changes))
	}
}

// isConfigFile checks if a path looks like a configuration file.
func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
