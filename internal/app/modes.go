package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"botfleet/internal/config"
	"botfleet/pkg/logging"
)

// runServer serves the lifecycle API until a signal arrives.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
func runServer(ctx context.Context, cfg *Config, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startConfigWatcher(ctx, cfg, services)

	if err := services.Server.Run(ctx, cfg.Botfleet.Server); err != nil {
		logging.Error("Server", err, "Lifecycle API stopped with error")
		return err
	}
	logging.Info("Server", "Lifecycle API stopped")
	return nil
}

// startConfigWatcher watches the config file for hot-reloadable changes.
// Without a config file on disk there is nothing to watch.
func startConfigWatcher(ctx context.Context, cfg *Config, services *Services) {
	path := cfg.ConfigPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		logging.Debug("ConfigWatcher", "Not watching %s: %v", path, err)
		return
	}

	w := config.NewWatcher(path, 0, func(c config.BotfleetConfig) {
		services.ApplyConfig(c, cfg.Debug)
	})
	if err := w.Start(ctx); err != nil {
		logging.Warn("ConfigWatcher", "Configuration hot reload disabled: %v", err)
	}
}
