package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const maxFrameBytes = 8 << 20

// Stream captures MJPEG frames from an ffmpeg child process and keeps the latest.
type Stream struct {
	device Device
	logger *slog.Logger

	cmd    *exec.Cmd
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	latest  Frame
	hasData bool
	stopped bool
	waitErr error

	frames atomic.Int64
}

// StreamOptions configures the ffmpeg capture pipeline.
type StreamOptions struct {
	// Command is the ffmpeg argv prefix (binary plus global flags).
	Command []string
	Width   int
	Height  int
	Logger  *slog.Logger
}

// StartStream launches ffmpeg against the selected device and begins decoding frames.
// The stream runs until ctx is cancelled or Stop is called.
func StartStream(ctx context.Context, device Device, opts StreamOptions) (*Stream, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("camera command is empty")
	}

	argv := streamArgs(device, opts)
	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	var stderr strings.Builder
	cmd.Stderr = &limitedWriter{w: &stderr, remaining: 4096}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("camera stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	s := &Stream{
		device: device,
		logger: opts.Logger,
		cmd:    cmd,
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.readFrames(stdout, &stderr)
	return s, nil
}

// streamArgs builds the full ffmpeg argv for a v4l2 capture to MJPEG on stdout.
func streamArgs(device Device, opts StreamOptions) []string {
	argv := append([]string(nil), opts.Command...)
	argv = append(argv, "-hide_banner", "-loglevel", "error", "-f", "v4l2")
	if opts.Width > 0 && opts.Height > 0 {
		argv = append(argv, "-video_size", strconv.Itoa(opts.Width)+"x"+strconv.Itoa(opts.Height))
	}
	return append(argv, "-i", device.ID, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3", "-")
}

// Device returns the selected capture device.
func (s *Stream) Device() Device {
	return s.device
}

// FramesCaptured reports how many complete frames have been decoded.
func (s *Stream) FramesCaptured() int64 {
	return s.frames.Load()
}

// Latest returns the newest complete frame.
func (s *Stream) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasData
}

// Done is closed once the ffmpeg process exits.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stop terminates ffmpeg and waits for the reader to drain.
func (s *Stream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

func (s *Stream) readFrames(stdout io.Reader, stderr *strings.Builder) {
	defer close(s.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256<<10), maxFrameBytes)
	scanner.Split(splitJPEG)
	for scanner.Scan() {
		data := append([]byte(nil), scanner.Bytes()...)
		s.mu.Lock()
		s.latest = Frame{Data: data, CapturedAt: time.Now()}
		s.hasData = true
		s.mu.Unlock()
		if s.frames.Add(1) == 1 && s.logger != nil {
			s.logger.Info("camera first frame", "device", s.device.ID, "bytes", len(data))
		}
	}
	scanErr := scanner.Err()

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	if !s.stopped && s.ctx.Err() == nil {
		switch {
		case scanErr != nil:
			s.waitErr = fmt.Errorf("read camera frames: %w", scanErr)
		case waitErr != nil:
			s.waitErr = commandError(waitErr, stderr.String())
		}
	}
	err := s.waitErr
	s.mu.Unlock()

	if err != nil && s.logger != nil {
		s.logger.Error("camera stream ended", "device", s.device.ID, "error", err.Error())
	}
}

func commandError(err error, stderr string) error {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return fmt.Errorf("camera process failed: %w", err)
	}
	return fmt.Errorf("camera process failed: %w (%s)", err, trimmed)
}

// limitedWriter keeps the first bytes of child stderr for error reporting.
type limitedWriter struct {
	mu        sync.Mutex
	w         io.Writer
	remaining int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining > 0 {
		chunk := p
		if len(chunk) > l.remaining {
			chunk = chunk[:l.remaining]
		}
		n, _ := l.w.Write(chunk)
		l.remaining -= n
	}
	return len(p), nil
}
