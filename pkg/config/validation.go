package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Export directories must be unique after cleaning
	seen := map[string]bool{filepath.Clean(cfg.Exports.Directory): true}
	for i, dir := range cfg.Exports.ExtraDirectories {
		clean := filepath.Clean(dir)
		if seen[clean] {
			return fmt.Errorf("exports.extra_directories[%d]: duplicate directory %q", i, dir)
		}
		seen[clean] = true
	}

	// rpcbind must get at least one readiness check
	sup := cfg.Supervisor
	if sup.ReadyPollInterval > sup.ReadyTimeout {
		return fmt.Errorf("supervisor: ready_poll_interval (%v) exceeds ready_timeout (%v)",
			sup.ReadyPollInterval, sup.ReadyTimeout)
	}

	// The metrics server needs a real port
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics: port is required when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
