package config

import "time"

// BotfleetConfig is the top-level configuration structure for botfleet.
type BotfleetConfig struct {
	Server     ServerConfig              `yaml:"server"`
	Kubernetes KubernetesConfig          `yaml:"kubernetes"`
	Bots       BotsConfig                `yaml:"bots"`
	Languages  map[string]LanguageConfig `yaml:"languages,omitempty"`
	Logging    LoggingConfig             `yaml:"logging"`
}

// ServerConfig defines the HTTP listener of the lifecycle API.
type ServerConfig struct {
	Host            string        `yaml:"host,omitempty"`            // Host to bind to (default: 0.0.0.0)
	Port            int           `yaml:"port,omitempty"`            // Port to listen on (default: 8080)
	AdminToken      string        `yaml:"adminToken,omitempty"`      // Token for /admin routes; admin API disabled when empty
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`     // Per-request read timeout
	WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`    // Per-request write timeout
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"` // Grace period on SIGTERM
}

// KubernetesConfig defines how the control plane is reached.
type KubernetesConfig struct {
	Kubeconfig     string        `yaml:"kubeconfig,omitempty"`     // Path to kubeconfig; in-cluster config when empty
	Context        string        `yaml:"context,omitempty"`        // Kubeconfig context override
	Namespace      string        `yaml:"namespace,omitempty"`      // Namespace that holds all bots
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"` // HTTP timeout of every control-plane call
	QPS            float32       `yaml:"qps,omitempty"`
	Burst          int           `yaml:"burst,omitempty"`
}

// BotsConfig holds settings applied to every generated manifest.
type BotsConfig struct {
	ManagedBy      string `yaml:"managedBy,omitempty"`      // Value of the managed-by label
	UnpackImage    string `yaml:"unpackImage,omitempty"`    // Image of the init container that unpacks code bundles
	WorkDir        string `yaml:"workDir,omitempty"`        // Mount path of the unpacked bundle
	MaxBundleBytes int    `yaml:"maxBundleBytes,omitempty"` // Upper bound for code bundle size
	CPURequest     string `yaml:"cpuRequest,omitempty"`
	MemoryRequest  string `yaml:"memoryRequest,omitempty"`
	CPULimit       string `yaml:"cpuLimit,omitempty"`
	MemoryLimit    string `yaml:"memoryLimit,omitempty"`
}

// LanguageConfig describes one supported bot language.
type LanguageConfig struct {
	// DefaultVersion is used when a request omits the version.
	DefaultVersion string `yaml:"defaultVersion"`

	// Images maps a version to the container image reference.
	Images map[string]string `yaml:"images"`

	// Install is a shell snippet template that installs dependencies before
	// the start command runs. It is rendered with text/template and sprig.
	Install string `yaml:"install,omitempty"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`
	Format     string `yaml:"format,omitempty"` // "text" or "json"
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty"`
}
