package config

import "time"

const (
	// DefaultNamespace holds every bot deployment.
	DefaultNamespace = "botfleet-bots"

	// DefaultManagedBy is the managed-by label value stamped on all objects.
	DefaultManagedBy = "botfleet"

	// DefaultWorkDir is where code bundles are unpacked inside bot containers.
	DefaultWorkDir = "/workspace"

	// DefaultMaxBundleBytes keeps the bundle below the 1 MiB ConfigMap limit
	// with room for metadata.
	DefaultMaxBundleBytes = 1000 * 1024
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() BotfleetConfig {
	return BotfleetConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Kubernetes: KubernetesConfig{
			Namespace:      DefaultNamespace,
			RequestTimeout: 30 * time.Second,
			QPS:            20,
			Burst:          40,
		},
		Bots: BotsConfig{
			ManagedBy:      DefaultManagedBy,
			UnpackImage:    "busybox:1.36",
			WorkDir:        DefaultWorkDir,
			MaxBundleBytes: DefaultMaxBundleBytes,
			CPURequest:     "50m",
			MemoryRequest:  "64Mi",
			CPULimit:       "500m",
			MemoryLimit:    "256Mi",
		},
		Languages: DefaultLanguages(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultLanguages returns the built-in language catalog.
func DefaultLanguages() map[string]LanguageConfig {
	return map[string]LanguageConfig{
		"python": {
			DefaultVersion: "3.12",
			Images: map[string]string{
				"3.10": "python:3.10-slim",
				"3.11": "python:3.11-slim",
				"3.12": "python:3.12-slim",
			},
			Install: `if [ -f requirements.txt ]; then pip install --no-cache-dir -r requirements.txt; fi`,
		},
		"node": {
			DefaultVersion: "20",
			Images: map[string]string{
				"18": "node:18-alpine",
				"20": "node:20-alpine",
				"22": "node:22-alpine",
			},
			Install: `if [ -f package.json ]; then npm install --omit=dev; fi`,
		},
		"go": {
			DefaultVersion: "1.23",
			Images: map[string]string{
				"1.22": "golang:1.22-alpine",
				"1.23": "golang:1.23-alpine",
			},
			Install: `if [ -f go.mod ]; then go mod download; fi`,
		},
		"ruby": {
			DefaultVersion: "3.3",
			Images: map[string]string{
				"3.2": "ruby:3.2-slim",
				"3.3": "ruby:3.3-slim",
			},
			Install: `if [ -f Gemfile ]; then bundle install; fi`,
		},
	}
}
