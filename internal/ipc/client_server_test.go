package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startOwner serves handler on a fresh socket and returns its path and a
// stop func that cancels Serve and waits for it to return.
func startOwner(t *testing.T, handler Handler) (string, func()) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), SocketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()

	var stopped atomic.Bool
	stop := func() {
		if stopped.Swap(true) {
			return
		}
		cancel()
		require.NoError(t, <-done)
	}
	t.Cleanup(stop)
	return socketPath, stop
}

// startRawOwner accepts one connection and hands it to fn.
func startRawOwner(t *testing.T, fn func(net.Conn)) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), SocketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return socketPath
}

func TestSendRoundTrip(t *testing.T) {
	var seen atomic.Value
	socketPath, _ := startOwner(t, HandlerFunc(func(_ context.Context, req Request) Response {
		seen.Store(req.Command)
		return Response{OK: true, State: "speaking", Message: "ok", Transcript: "HELLO WORLD", Suggestions: []string{"THERE", "AGAIN"}}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "status", seen.Load())
	require.Equal(t, Response{
		OK:          true,
		State:       "speaking",
		Message:     "ok",
		Transcript:  "HELLO WORLD",
		Suggestions: []string{"THERE", "AGAIN"},
	}, resp)
}

func TestSendCarriesArgs(t *testing.T) {
	socketPath, _ := startOwner(t, HandlerFunc(func(_ context.Context, req Request) Response {
		return Response{OK: true, Message: req.Command + ":" + strings.Join(req.Args, "|")}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: "speak", Args: []string{"GOOD", "MORNING"}}, 200*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "speak:GOOD|MORNING", resp.Message)
}

func TestSendReportsBrokenReplies(t *testing.T) {
	tests := []struct {
		name  string
		owner func(net.Conn)
		want  string
	}{
		{
			name: "garbage reply",
			owner: func(conn net.Conn) {
				_, _ = bufio.NewReader(conn).ReadBytes('\n')
				_, _ = conn.Write([]byte("not-json\n"))
			},
			want: "decode response",
		},
		{
			name: "closed without reply",
			owner: func(conn net.Conn) {
				_, _ = bufio.NewReader(conn).ReadBytes('\n')
			},
			want:  "read response",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			socketPath := startRawOwner(t, tc.owner)
			_, err := Send(context.Background(), socketPath, Request{Command: "status"}, 200*time.Millisecond)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestServeAnswersMalformedRequest(t *testing.T) {
	socketPath, _ := startOwner(t, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")
}

func TestServeRejectsMissingCommand(t *testing.T) {
	var handled atomic.Bool
	socketPath, stop := startOwner(t, HandlerFunc(func(context.Context, Request) Response {
		handled.Store(true)
		return Response{OK: true}
	}))

	resp, err := Send(context.Background(), socketPath, Request{Command: "  "}, 200*time.Millisecond)
	require.NoError(t, err)
	require.False(t, resp.OK)
	require.Equal(t, "decode request: missing command", resp.Error)

	stop()
	require.False(t, handled.Load())
}

func TestProbeTracksOwnerLifetime(t *testing.T) {
	socketPath, stop := startOwner(t, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == "status" {
			return Response{OK: true, State: "idle"}
		}
		return Response{OK: false, Error: "bad"}
	}))

	alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	stop()

	alive, err = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}

func TestForwardWithoutOwnerIsUnhandled(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), SocketName)

	_, handled, err := Forward(context.Background(), socketPath, Request{Command: "clear"}, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, handled)
}

func TestForwardSurfacesOwnerErrors(t *testing.T) {
	socketPath, _ := startOwner(t, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command == "pick" {
			return Response{OK: false, Error: "no suggestion 4"}
		}
		return Response{OK: true, Message: "cleared"}
	}))

	resp, handled, err := Forward(context.Background(), socketPath, Request{Command: "clear"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, "cleared", resp.Message)

	_, handled, err = Forward(context.Background(), socketPath, Request{Command: "pick", Args: []string{"4"}}, 200*time.Millisecond)
	require.True(t, handled)
	require.EqualError(t, err, "no suggestion 4")
}
