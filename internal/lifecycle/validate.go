package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"botfleet/internal/api"
	"botfleet/internal/manifest"
)

// validateConfig rejects a deploy request before any object is touched.
// All problems are reported together.
func (m *Manager) validateConfig(cfg api.BotConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Name) == "" {
		errs = append(errs, api.NewValidationError("name", "is required"))
	} else if msgs := validation.IsDNS1035Label(manifest.Slugify(cfg.Name)); len(msgs) > 0 {
		errs = append(errs, api.NewValidationError("name", fmt.Sprintf("derived id %q is invalid: %s", manifest.Slugify(cfg.Name), strings.Join(msgs, "; "))))
	}
	if strings.TrimSpace(cfg.Language) == "" {
		errs = append(errs, api.NewValidationError("language", "is required"))
	} else if cfg.Image == "" {
		if _, _, err := m.builder.Catalog().Resolve(cfg.Language, cfg.Version); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, labelValue("userId", cfg.UserID)...)
	errs = append(errs, labelValue("workflowId", cfg.WorkflowID)...)
	errs = append(errs, validateEnv(cfg.Env)...)

	if cfg.Port != nil && (*cfg.Port < 1 || *cfg.Port > 65535) {
		errs = append(errs, api.NewValidationError("port", fmt.Sprintf("%d is outside 1-65535", *cfg.Port)))
	}
	if err := manifest.ValidateBundle(cfg.Code, m.maxBundleBytes); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validateChanges checks the fields an update supplies.
func (m *Manager) validateChanges(changes api.BotChanges) error {
	var errs []error
	if changes.Language != nil && strings.TrimSpace(*changes.Language) == "" {
		errs = append(errs, api.NewValidationError("language", "must not be empty"))
	}
	if changes.Image != nil && strings.TrimSpace(*changes.Image) == "" {
		errs = append(errs, api.NewValidationError("image", "must not be empty"))
	}
	if changes.WorkflowID != nil {
		errs = append(errs, labelValue("workflowId", *changes.WorkflowID)...)
	}
	if changes.Env != nil {
		errs = append(errs, validateEnv(*changes.Env)...)
	}
	if err := manifest.ValidateBundle(changes.Code, m.maxBundleBytes); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateEnv(env []api.EnvVar) []error {
	var errs []error
	seen := make(map[string]bool, len(env))
	for i, e := range env {
		field := fmt.Sprintf("env[%d]", i)
		if msgs := validation.IsEnvVarName(e.Name); len(msgs) > 0 {
			errs = append(errs, api.NewValidationError(field, fmt.Sprintf("invalid name %q: %s", e.Name, strings.Join(msgs, "; "))))
			continue
		}
		if seen[e.Name] {
			errs = append(errs, api.NewValidationError(field, fmt.Sprintf("duplicate name %q", e.Name)))
		}
		seen[e.Name] = true
	}
	return errs
}

func labelValue(field, value string) []error {
	if value == "" {
		return nil
	}
	if msgs := validation.IsValidLabelValue(value); len(msgs) > 0 {
		return []error{api.NewValidationError(field, strings.Join(msgs, "; "))}
	}
	return nil
}
