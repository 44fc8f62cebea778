package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyRunning reports a responsive owner already holding the socket.
var ErrAlreadyRunning = errors.New("signcast session already running")

// SocketName is the owner socket file inside $XDG_RUNTIME_DIR.
const SocketName = "signcast.sock"

// RuntimeSocketPath returns $XDG_RUNTIME_DIR/signcast.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// AcquireOptions tunes stale-socket recovery.
type AcquireOptions struct {
	// ProbeTimeout bounds the liveness check against an existing socket.
	ProbeTimeout time.Duration
	// Retries is the number of extra listen attempts after removing a stale socket.
	Retries int
	// OnStale is called with the path of each stale socket removed.
	OnStale func(path string)
}

// Acquire listens on path. A socket file left behind by a crashed owner is
// removed and the listen retried; a live owner yields ErrAlreadyRunning.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 200 * time.Millisecond
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := range opts.Retries + 1 {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, err := Probe(ctx, path, opts.ProbeTimeout)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case err != nil:
			return nil, fmt.Errorf("probe existing socket %s: %w", path, err)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if opts.OnStale != nil {
			opts.OnStale(path)
		}

		if attempt < opts.Retries {
			backoff := time.Duration(25*(attempt+1)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, opts.Retries)
}
