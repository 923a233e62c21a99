package app

import (
	"botfleet/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the config file
	Debug bool

	// ConfigPath is the config file to load; empty means the default location
	ConfigPath string

	// Version is reported by the health endpoint
	Version string

	// Botfleet is the loaded configuration. When set before NewApplication,
	// loading from disk is skipped.
	Botfleet *config.BotfleetConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Version:    version,
	}
}
