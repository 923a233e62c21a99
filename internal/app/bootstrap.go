package app

import (
	"context"
	"fmt"
	"os"

	"botfleet/internal/config"
	"botfleet/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs the botfleet server.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: Load configuration, initialize logging, setup services
//  2. Execution phase: Serve the lifecycle API
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
//
// The function returns an error if any critical initialization step fails,
// including configuration loading or control-plane client creation.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.InitForCLI(appLogLevel, os.Stderr)

	if cfg.Botfleet == nil {
		botfleetCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load botfleet configuration")
			return nil, fmt.Errorf("failed to load botfleet configuration: %w", err)
		}
		cfg.Botfleet = &botfleetCfg
	}

	opts, err := loggingOptions(cfg.Botfleet.Logging, cfg.Debug)
	if err != nil {
		return nil, err
	}
	logging.Init(opts)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (a *Application) Run(ctx context.Context) error {
	defer logging.Close()
	return runServer(ctx, a.config, a.services)
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// loggingOptions converts the logging section of the config. Debug overrides
// the configured level.
func loggingOptions(cfg config.LoggingConfig, debug bool) (logging.Options, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return logging.Options{}, fmt.Errorf("invalid logging.level: %w", err)
	}
	if debug {
		level = logging.LevelDebug
	}

	format := logging.FormatText
	if cfg.Format == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}

	return logging.Options{
		Level:      level,
		Format:     format,
		Output:     os.Stderr,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	}, nil
}
