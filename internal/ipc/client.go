package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// Send performs one request/response exchange with the owner at path.
// timeout bounds the dial and the whole exchange.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Forward sends req to the owner at path. handled is false when nothing is
// listening, which callers report as "no active session".
func Forward(ctx context.Context, path string, req Request, timeout time.Duration) (resp Response, handled bool, err error) {
	resp, err = Send(ctx, path, req, timeout)
	switch {
	case noOwner(err):
		return Response{}, false, nil
	case err != nil:
		return Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
	case !resp.OK:
		return resp, true, errors.New(resp.Error)
	}
	return resp, true, nil
}

// Probe reports whether a responsive owner is listening on path. An error
// means the socket exists but its liveness could not be determined.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: "status"}, timeout)
	switch {
	case err == nil:
		return true, nil
	case noOwner(err):
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}

// noOwner reports dial failures meaning no process holds the socket.
func noOwner(err error) bool {
	return err != nil && (errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED))
}
