package camera

import (
	"bytes"
	"time"
)

// Frame is one still image captured from a source.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// Source yields the most recent frame from an open capture device.
type Source interface {
	// Latest returns the newest frame, or false before the first frame arrives.
	Latest() (Frame, bool)
	// Stop releases the underlying device. It is safe to call more than once.
	Stop() error
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// splitJPEG is a bufio.SplitFunc that yields complete JPEG images from an
// MJPEG byte stream. Bytes before a start-of-image marker are discarded.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// A trailing 0xFF may be the first half of the next marker.
		if n := len(data); n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
