package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// requestReadTimeout bounds how long a client may take to send its request line.
const requestReadTimeout = 2 * time.Second

// maxRequestBytes caps one request line.
const maxRequestBytes = 64 << 10

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until ctx ends or the listener closes.
// Each connection carries exactly one request line and one response line.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var conns sync.WaitGroup
	defer conns.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		conns.Add(1)
		go func() {
			defer conns.Done()
			defer conn.Close()
			reply(conn, serveConn(ctx, conn, handler))
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) Response {
	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	line, err := bufio.NewReader(io.LimitReader(conn, maxRequestBytes)).ReadBytes('\n')
	if err != nil {
		return Response{Error: fmt.Sprintf("read request: %v", err)}
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: fmt.Sprintf("decode request: %v", err)}
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Response{Error: "decode request: missing command"}
	}

	return handler.Handle(ctx, req)
}

func reply(conn net.Conn, resp Response) {
	_ = conn.SetWriteDeadline(time.Now().Add(requestReadTimeout))
	_ = json.NewEncoder(conn).Encode(resp)
}
