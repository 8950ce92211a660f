// Package config provides environment-variable loading with validation and
// fallback semantics shared by the coordinator's configuration layer. A bad
// value never aborts startup; the loader falls back to the default and
// surfaces a warning so operators can spot the misconfiguration.
package config

import (
	"fmt"
	"os"
)

// ConfigLoadResult carries a loaded configuration value together with any
// warnings produced while loading it. FallbackApplied is true when the
// environment value failed validation and the default was used instead.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvWithFallback reads envKey and validates its value with validator
// (nil skips validation). An unset or empty variable yields the default
// silently; a set-but-invalid value yields the default with a warning and
// FallbackApplied set. The function never returns an error, so callers can
// always proceed with a usable value.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey, value, err, defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{Value: value}
}
