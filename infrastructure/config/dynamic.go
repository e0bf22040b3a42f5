package config

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ComponentReloader applies a configuration change to one component.
type ComponentReloader struct {
	name     string
	reloadFn func(*Config) error
	logger   *zap.Logger
}

// NewComponentReloader creates a reloader for a named component.
func NewComponentReloader(name string, reloadFn func(*Config) error, logger *zap.Logger) *ComponentReloader {
	return &ComponentReloader{
		name:     name,
		reloadFn: reloadFn,
		logger:   logger,
	}
}

// Reload applies the new configuration to the component. Failures are
// logged; one component failing does not stop the others.
func (r *ComponentReloader) Reload(cfg *Config) {
	if err := r.reloadFn(cfg); err != nil {
		r.logger.Error("Failed to reload component",
			zap.String("component", r.name),
			zap.Error(err),
		)
		return
	}
	r.logger.Info("Component reloaded",
		zap.String("component", r.name),
	)
}

// ConfigManager distributes configuration changes to registered
// components. Hot reloading is only enabled in development; in other
// environments GetConfig simply returns the boot configuration.
type ConfigManager struct {
	current   *Config
	watcher   *ConfigWatcher
	reloaders map[string]*ComponentReloader
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewConfigManager creates a manager around the given configuration.
// The loader must be the one that produced cfg so reloads resolve the
// same file hierarchy.
func NewConfigManager(loader *Loader, cfg *Config, logger *zap.Logger) (*ConfigManager, error) {
	manager := &ConfigManager{
		current:   cfg,
		reloaders: make(map[string]*ComponentReloader),
		logger:    logger,
	}

	if !cfg.IsDevelopment() {
		logger.Info("Configuration hot reloading disabled",
			zap.String("environment", string(cfg.Environment)),
		)
		return manager, nil
	}

	watcher, err := NewConfigWatcher(loader, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	watcher.OnChange(manager.handleConfigChange)
	watcher.Start()
	manager.watcher = watcher

	logger.Info("Configuration hot reloading enabled",
		zap.String("environment", string(cfg.Environment)),
	)
	return manager, nil
}

// RegisterComponent registers a component for configuration reloads.
// Registering the same name again replaces the previous reloader.
func (m *ConfigManager) RegisterComponent(name string, reloadFn func(*Config) error) {
	m.mu.Lock()
	m.reloaders[name] = NewComponentReloader(name, reloadFn, m.logger)
	total := len(m.reloaders)
	m.mu.Unlock()

	m.logger.Debug("Registered component for hot reload",
		zap.String("component", name),
		zap.Int("total_components", total),
	)
}

// handleConfigChange fans a new configuration out to every component.
func (m *ConfigManager) handleConfigChange(cfg *Config) {
	m.mu.Lock()
	m.current = cfg
	reloaders := make([]*ComponentReloader, 0, len(m.reloaders))
	for _, reloader := range m.reloaders {
		reloaders = append(reloaders, reloader)
	}
	m.mu.Unlock()

	for _, reloader := range reloaders {
		reloader.Reload(cfg)
	}
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.watcher != nil {
		return m.watcher.GetConfig()
	}
	return m.current
}

// Stop stops the underlying watcher, if hot reloading was enabled.
func (m *ConfigManager) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}
