// Package app bootstraps and runs the botfleet server.
//
// # Bootstrap
//
// NewApplication performs the startup sequence in order:
//
//  1. Console logging at info (debug with --debug) so config errors are visible
//  2. Configuration loading from the given file or ~/.config/botfleet/config.yaml
//  3. Logging reconfiguration from the logging section (level, format, rotated file)
//  4. Service initialization: control-plane client, manifest builder, lifecycle
//     manager and HTTP server
//
// # Running
//
// Run serves the lifecycle API until SIGINT or SIGTERM, then shuts down
// gracefully. While running, the configuration file is watched: edits to the
// language catalog and the log level take effect without a restart. Settings
// that shape already created objects (namespace, managed-by label, server
// address) are only read at startup.
//
// Example:
//
//	cfg := app.NewConfig(false, "/etc/botfleet/config.yaml", version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
package app
