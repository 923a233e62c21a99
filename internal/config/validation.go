package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"

	"botfleet/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a loaded configuration and returns every problem found.
func Validate(cfg BotfleetConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", cfg.Server.Port)
	}

	for _, msg := range validation.IsDNS1123Label(cfg.Kubernetes.Namespace) {
		errs.Add("kubernetes.namespace", msg, cfg.Kubernetes.Namespace)
	}
	if cfg.Kubernetes.RequestTimeout < 0 {
		errs.Add("kubernetes.requestTimeout", "must not be negative", cfg.Kubernetes.RequestTimeout)
	}

	for _, msg := range validation.IsValidLabelValue(cfg.Bots.ManagedBy) {
		errs.Add("bots.managedBy", msg, cfg.Bots.ManagedBy)
	}
	if cfg.Bots.ManagedBy == "" {
		errs.Add("bots.managedBy", "is required")
	}
	if cfg.Bots.UnpackImage == "" {
		errs.Add("bots.unpackImage", "is required")
	}
	if !strings.HasPrefix(cfg.Bots.WorkDir, "/") {
		errs.Add("bots.workDir", "must be an absolute path", cfg.Bots.WorkDir)
	}
	if cfg.Bots.MaxBundleBytes <= 0 || cfg.Bots.MaxBundleBytes > 1024*1024 {
		errs.Add("bots.maxBundleBytes", "must be between 1 and 1048576", cfg.Bots.MaxBundleBytes)
	}
	for field, q := range map[string]string{
		"bots.cpuRequest":    cfg.Bots.CPURequest,
		"bots.memoryRequest": cfg.Bots.MemoryRequest,
		"bots.cpuLimit":      cfg.Bots.CPULimit,
		"bots.memoryLimit":   cfg.Bots.MemoryLimit,
	} {
		if q == "" {
			continue
		}
		if _, err := resource.ParseQuantity(q); err != nil {
			errs.Add(field, err.Error(), q)
		}
	}

	errs = append(errs, ValidateLanguages(cfg.Languages)...)

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		errs.Add("logging.format", "must be text or json", cfg.Logging.Format)
	}

	return errs
}

// ValidateLanguages checks the language catalog on its own; the config watcher
// uses it before swapping a reloaded catalog in.
func ValidateLanguages(languages map[string]LanguageConfig) ValidationErrors {
	var errs ValidationErrors
	if len(languages) == 0 {
		errs.Add("languages", "at least one language is required")
	}
	for name, lang := range languages {
		field := "languages." + name
		for _, msg := range validation.IsValidLabelValue(name) {
			errs.Add(field, msg, name)
		}
		if len(lang.Images) == 0 {
			errs.Add(field+".images", "at least one version is required")
			continue
		}
		if _, ok := lang.Images[lang.DefaultVersion]; !ok {
			errs.Add(field+".defaultVersion", "must name one of the configured versions", lang.DefaultVersion)
		}
		for version, image := range lang.Images {
			if image == "" {
				errs.Add(field+".images."+version, "image must not be empty")
			}
			for _, msg := range validation.IsValidLabelValue(version) {
				errs.Add(field+".images."+version, msg, version)
			}
		}
	}
	return errs
}
