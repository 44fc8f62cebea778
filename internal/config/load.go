package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// Environment overrides are applied after the file and before validation.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	envWarnings := loadDotEnv()

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}

		cfg, overrideWarnings, err := applyEnvOverrides(base)
		if err != nil {
			return Loaded{}, err
		}
		validated, err := Validate(cfg)
		if err != nil {
			return Loaded{}, err
		}

		warnings := []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
		warnings = append(warnings, envWarnings...)
		warnings = append(warnings, overrideWarnings...)
		warnings = append(warnings, validated...)
		return Loaded{
			Path:     resolvedPath,
			Config:   cfg,
			Warnings: warnings,
			Exists:   false,
		}, nil
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	cfg, overrideWarnings, err := applyEnvOverrides(cfg)
	if err != nil {
		return Loaded{}, err
	}
	if len(overrideWarnings) > 0 {
		if _, err := Validate(cfg); err != nil {
			return Loaded{}, fmt.Errorf("validate environment overrides: %w", err)
		}
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: append(append(envWarnings, warnings...), overrideWarnings...),
		Exists:   true,
	}, nil
}
