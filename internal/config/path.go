package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "signcast"
	configFileName = "config.jsonc"
)

// ResolvePath returns the config file location: the explicit --config value,
// then $XDG_CONFIG_HOME/signcast, then ~/.config/signcast.
func ResolvePath(explicit string) (string, error) {
	if path := strings.TrimSpace(explicit); path != "" {
		return path, nil
	}

	configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config home: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, appDirName, configFileName), nil
}
