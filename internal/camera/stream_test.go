package camera

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSplitJPEGYieldsCompleteFrames(t *testing.T) {
	first := testJPEG(t, 4, 4)
	second := testJPEG(t, 8, 8)

	stream := append([]byte("noise"), first...)
	stream = append(stream, second...)
	stream = append(stream, second[:len(second)/2]...)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(splitJPEG)

	var frames [][]byte
	for scanner.Scan() {
		frames = append(frames, append([]byte(nil), scanner.Bytes()...))
	}
	require.NoError(t, scanner.Err())
	require.Len(t, frames, 2)
	require.Equal(t, first, frames[0])
	require.Equal(t, second, frames[1])
}

func TestSplitJPEGRequestsMoreDataForPartialFrame(t *testing.T) {
	frame := testJPEG(t, 4, 4)

	advance, token, err := splitJPEG(frame[:len(frame)-1], false)
	require.NoError(t, err)
	require.Nil(t, token)
	require.Equal(t, 0, advance)

	advance, token, err = splitJPEG([]byte{0x00, 0x01, 0xFF}, false)
	require.NoError(t, err)
	require.Nil(t, token)
	require.Equal(t, 2, advance)
}

func TestStreamArgs(t *testing.T) {
	argv := streamArgs(Device{ID: "/dev/video2"}, StreamOptions{Command: []string{"ffmpeg", "-nostdin"}, Width: 640, Height: 480})
	require.Equal(t, []string{
		"ffmpeg", "-nostdin",
		"-hide_banner", "-loglevel", "error", "-f", "v4l2",
		"-video_size", "640x480",
		"-i", "/dev/video2",
		"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3", "-",
	}, argv)
}

func TestStartStreamKeepsLatestFrame(t *testing.T) {
	dir := t.TempDir()
	framePath := filepath.Join(dir, "frame.jpg")
	frame := testJPEG(t, 6, 6)
	require.NoError(t, os.WriteFile(framePath, frame, 0o600))
	t.Setenv("FRAME_FILE", framePath)

	stub := installStub(t, "ffmpeg", `
cat "${FRAME_FILE}" "${FRAME_FILE}"
exec sleep 30
`)

	stream, err := StartStream(context.Background(), Device{ID: "/dev/video0"}, StreamOptions{Command: []string{stub}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return stream.FramesCaptured() == 2
	}, 5*time.Second, 10*time.Millisecond)

	latest, ok := stream.Latest()
	require.True(t, ok)
	require.Equal(t, frame, latest.Data)
	require.False(t, latest.CapturedAt.IsZero())

	require.NoError(t, stream.Stop())
	require.NoError(t, stream.Stop())
}

func TestStartStreamReportsProcessFailure(t *testing.T) {
	stub := installStub(t, "ffmpeg", `
echo 'Cannot open video device' >&2
exit 1
`)

	stream, err := StartStream(context.Background(), Device{ID: "/dev/video9"}, StreamOptions{Command: []string{stub}})
	require.NoError(t, err)

	select {
	case <-stream.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not exit")
	}

	_, ok := stream.Latest()
	require.False(t, ok)

	err = stream.Stop()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Cannot open video device")
}

func TestStartStreamRejectsEmptyCommand(t *testing.T) {
	_, err := StartStream(context.Background(), Device{ID: "/dev/video0"}, StreamOptions{})
	require.Error(t, err)
}

func TestStartStreamStopsOnContextCancel(t *testing.T) {
	stub := installStub(t, "ffmpeg", `exec sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := StartStream(ctx, Device{ID: "/dev/video0"}, StreamOptions{Command: []string{stub}})
	require.NoError(t, err)

	cancel()
	select {
	case <-stream.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not exit after cancel")
	}
}
