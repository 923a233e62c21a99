// Package logging provides the structured, subsystem-tagged logger used
// throughout botfleet.
//
// The package is a thin layer over Go's standard slog package. Every entry
// carries a subsystem attribute so log aggregation can filter by component.
//
// # Usage
//
//	logging.Init(logging.Options{Level: logging.LevelInfo, Format: logging.FormatJSON})
//
//	logging.Info("Bootstrap", "Loaded configuration from %s", path)
//	logging.Debug("KubeClient", "Creating deployment %s/%s", ns, name)
//	logging.Warn("Lifecycle", "Service cleanup for %s skipped", id)
//	logging.Error("Server", err, "Request failed")
//
// # Subsystems
//
//   - **Bootstrap**: application initialization and shutdown
//   - **Config**: configuration loading and hot reload
//   - **KubeClient**: calls against the control plane
//   - **Lifecycle**: bot lifecycle operations
//   - **Server**: HTTP API requests
//
// # Log Files
//
// When Options.File is set, output is duplicated into a file rotated by size
// through lumberjack. Close flushes it on shutdown.
//
// # Controller-Runtime Integration
//
// Init also installs the same handler as the controller-runtime logger, so
// client-go and controller-runtime messages share format and level.
//
// # Level Changes
//
// SetLevel adjusts the minimum level at runtime; the config watcher uses it
// when the configuration file changes.
package logging
