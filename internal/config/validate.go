package config

import (
	"fmt"
	"strings"
)

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	// Engine validation
	if !isValidEnum(cfg.Engine.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("engine.log_level must be one of %v, got %q", ValidLogLevels, cfg.Engine.LogLevel))
	}
	if cfg.Engine.DataDir == "" {
		errs = append(errs, "engine.data_dir must not be empty")
	}
	if cfg.Engine.MaxPromptToken < 0 {
		errs = append(errs, fmt.Sprintf("engine.max_prompt_tokens must be non-negative, got %d", cfg.Engine.MaxPromptToken))
	}

	// Provider validation
	if !isValidEnum(cfg.Provider.Kind, ValidProviderKinds) {
		errs = append(errs, fmt.Sprintf("provider.kind must be one of %v, got %q", ValidProviderKinds, cfg.Provider.Kind))
	}
	if cfg.Provider.DefaultRemoteKind == "auto" || !isValidEnum(cfg.Provider.DefaultRemoteKind, ValidProviderKinds) {
		errs = append(errs, fmt.Sprintf("provider.default_remote_kind must be a concrete provider kind, got %q", cfg.Provider.DefaultRemoteKind))
	}
	if cfg.Provider.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("provider.timeout must be non-negative, got %d", cfg.Provider.Timeout))
	}
	if cfg.Provider.ProbeTimeoutMs < 0 {
		errs = append(errs, fmt.Sprintf("provider.probe_timeout_ms must be non-negative, got %d", cfg.Provider.ProbeTimeoutMs))
	}

	// Local validation
	if cfg.Local.StartupRetries < 0 {
		errs = append(errs, fmt.Sprintf("local.startup_retries must be non-negative, got %d", cfg.Local.StartupRetries))
	}
	if cfg.Local.StartupIntervalMs < 0 {
		errs = append(errs, fmt.Sprintf("local.startup_interval_ms must be non-negative, got %d", cfg.Local.StartupIntervalMs))
	}
	if cfg.Local.HealthTimeoutMs < 0 {
		errs = append(errs, fmt.Sprintf("local.health_timeout_ms must be non-negative, got %d", cfg.Local.HealthTimeoutMs))
	}

	// Resilience validation
	if cfg.Resilience.RetryMaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("resilience.retry_max_attempts must be at least 1, got %d", cfg.Resilience.RetryMaxAttempts))
	}
	if cfg.Resilience.RetryBaseDelayMs < 0 {
		errs = append(errs, fmt.Sprintf("resilience.retry_base_delay_ms must be non-negative, got %d", cfg.Resilience.RetryBaseDelayMs))
	}
	if cfg.Resilience.RetryMaxDelayMs < cfg.Resilience.RetryBaseDelayMs {
		errs = append(errs, fmt.Sprintf("resilience.retry_max_delay_ms must be >= retry_base_delay_ms, got %d < %d", cfg.Resilience.RetryMaxDelayMs, cfg.Resilience.RetryBaseDelayMs))
	}

	// Cache validation
	if cfg.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Sprintf("cache.max_entries must be at least 1, got %d", cfg.Cache.MaxEntries))
	}

	// API validation
	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port must be between 1 and 65535, got %d", cfg.API.Port))
	}
	if cfg.API.ReadTimeout < 0 {
		errs = append(errs, fmt.Sprintf("api.read_timeout must be non-negative, got %d", cfg.API.ReadTimeout))
	}
	if cfg.API.WriteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("api.write_timeout must be non-negative, got %d", cfg.API.WriteTimeout))
	}
	if cfg.API.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("api.idle_timeout must be non-negative, got %d", cfg.API.IdleTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum reports whether value is present in allowed.
func isValidEnum(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
