// Package hypr wraps the hyprctl notification dispatchers.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const defaultColor = "rgb(89b4fa)"

// Notify sends a Hyprland notification payload.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = defaultColor
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

func runHyprctl(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return nil
}
