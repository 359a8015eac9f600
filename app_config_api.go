package main

import (
	"fmt"
	"log/slog"

	"deskmux/internal/config"
)

// GetConfig returns the active configuration.
func (a *App) GetConfig() config.Config {
	return a.currentConfig()
}

// UpdateConfig validates, applies and persists a new configuration. The
// in-memory config updates even when the write fails; the next successful
// save catches up.
func (a *App) UpdateConfig(cfg config.Config) error {
	warnings := cfg.Normalize()
	for _, warning := range warnings {
		slog.Warn("[CONFIG] " + warning)
	}

	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()

	if err := config.Save(a.configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	a.emitRuntimeEvent("config:changed", cfg)
	return nil
}
