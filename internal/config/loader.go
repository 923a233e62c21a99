package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"botfleet/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/botfleet"
	configFileName = "config.yaml"
)

// osUserHomeDir is a package variable so tests can point it elsewhere.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/botfleet/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// LoadConfig loads configuration from the given file. An empty path means the
// default location. A missing file yields the defaults; a malformed or invalid
// file is an error.
func LoadConfig(path string) (BotfleetConfig, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return BotfleetConfig{}, err
		}
		path = p
	}

	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Info("ConfigLoader", "No config found at %s, using defaults", path)
			return config, nil
		}
		return BotfleetConfig{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		// config malformed
		return BotfleetConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	if errs := Validate(config); errs.HasErrors() {
		return BotfleetConfig{}, fmt.Errorf("invalid config %s: %w", path, errs)
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return config, nil
}
