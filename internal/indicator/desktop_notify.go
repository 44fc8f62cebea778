package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

// urgency levels from the freedesktop notification spec.
const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// notification is one freedesktop Notify call.
type notification struct {
	AppName   string
	ReplaceID uint32
	Summary   string
	Body      string
	Urgency   byte
	TimeoutMS int
}

// args renders the Notify payload in busctl's positional form.
func (n notification) args() []string {
	return []string{
		"susssasa{sv}i",
		n.AppName,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"", // icon
		n.Summary,
		n.Body,
		"0", // no actions
		"1", "urgency", "y", strconv.Itoa(int(n.Urgency)),
		strconv.Itoa(n.TimeoutMS),
	}
}

// desktopNotify sends n over the user bus and returns the server-assigned ID.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	out, err := busctlCall(ctx, "Notify", n.args()...)
	if err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", err)
	}

	// busctl prints the reply as "<signature> <value>", e.g. "u 42".
	fields := strings.Fields(out)
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// desktopDismiss closes the notification with the given ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctlCall(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", err)
	}
	return nil
}

// busctlCall invokes a method on the notification service and returns trimmed stdout.
func busctlCall(ctx context.Context, method string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyDest, notifyPath, notifyIface, method}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, trimmed)
	}
	return trimmed, nil
}
