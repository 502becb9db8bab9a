package config

import (
	"fmt"
	"sync"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Initialize loads configuration with environment overrides and stores it
// as the process-wide configuration. Calling it again replaces the stored
// configuration only when loading succeeds.
func Initialize(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// GetConfig returns the process-wide configuration, or nil before
// Initialize.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}
