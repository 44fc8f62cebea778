package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvServer      = "SIGNCAST_SERVER"
	EnvCameraInput = "SIGNCAST_CAMERA_INPUT"
)

// dotEnvPath is the working-directory env file consulted before overrides.
var dotEnvPath = ".env"

// loadDotEnv populates unset process variables from .env when present.
func loadDotEnv() []Warning {
	err := godotenv.Load(dotEnvPath)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return []Warning{{Message: fmt.Sprintf("ignoring %s: %v", dotEnvPath, err)}}
}

// applyEnvOverrides lets SIGNCAST_* variables replace file values.
func applyEnvOverrides(cfg Config) (Config, []Warning, error) {
	var warnings []Warning

	if server, ok := os.LookupEnv(EnvServer); ok {
		server = strings.TrimSpace(server)
		if server == "" {
			return Config{}, nil, fmt.Errorf("%s is set but empty", EnvServer)
		}
		cfg.Server.URL = server
		warnings = append(warnings, Warning{Message: fmt.Sprintf("server.url overridden by %s", EnvServer)})
	}

	if input, ok := os.LookupEnv(EnvCameraInput); ok && strings.TrimSpace(input) != "" {
		cfg.Camera.Input = strings.TrimSpace(input)
		warnings = append(warnings, Warning{Message: fmt.Sprintf("camera.input overridden by %s", EnvCameraInput)})
	}

	return cfg, warnings, nil
}
