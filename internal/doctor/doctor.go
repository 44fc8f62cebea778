// Package doctor runs runtime readiness diagnostics for config, tools, camera, and backend.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/signcast/internal/backend"
	"github.com/rbright/signcast/internal/camera"
	"github.com/rbright/signcast/internal/config"
)

const backendTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("%q not found, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime socket directory is set", "XDG_RUNTIME_DIR is empty"))

	switch cfg.Config.Camera.Source {
	case config.SourceFile:
		checks = append(checks, checkFile(cfg.Config.Camera.File))
	default:
		checks = append(checks, checkCommand(cfg.Config.Camera.Command.Argv, "camera.command"))
		checks = append(checks, checkCameraSelection(ctx, cfg.Config))
	}

	if cfg.Config.Indicator.Enable {
		switch cfg.Config.Indicator.Backend {
		case "hypr":
			checks = append(checks, checkBinary("hyprctl", "hypr indicator backend requires hyprctl"))
		default:
			checks = append(checks, checkBinary("busctl", "desktop indicator backend requires busctl"))
		}
	}

	checks = append(checks, checkBackendReady(ctx, cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkFile(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "camera.file", Pass: false, Message: "camera.file is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "camera.file", Pass: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: "camera.file", Pass: false, Message: fmt.Sprintf("%s is a directory", path)}
	}
	return Check{Name: "camera.file", Pass: true, Message: fmt.Sprintf("reading frames from %s", path)}
}

// checkCameraSelection runs live device selection to surface selection/fallback issues.
func checkCameraSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := camera.SelectDevice(ctx, cfg.Camera.Input, cfg.Camera.Fallback)
	if err != nil {
		return Check{Name: "camera.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Device.Name != "" {
		message = fmt.Sprintf("selected %q (%s)", selection.Device.ID, selection.Device.Name)
	}
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "camera.device", Pass: true, Message: message}
}

// checkBackendReady probes the configured prediction server.
func checkBackendReady(ctx context.Context, cfg config.Config) Check {
	if strings.TrimSpace(cfg.Server.URL) == "" {
		return Check{Name: "backend.ready", Pass: false, Message: "server.url is empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()

	client := backend.New(cfg.Server)
	if err := client.Ready(ctx); err != nil {
		return Check{Name: "backend.ready", Pass: false, Message: err.Error()}
	}
	predictURL, _ := client.URLs()
	return Check{Name: "backend.ready", Pass: true, Message: fmt.Sprintf("reachable, predictions go to %s", predictURL)}
}
