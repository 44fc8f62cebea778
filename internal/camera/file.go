package camera

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileSource serves the current contents of a still image on disk.
// The file is re-read on every call so external tools can replace it.
type FileSource struct {
	path string

	mu      sync.Mutex
	stopped bool
}

// OpenFile validates that path is readable and returns a file-backed source.
func OpenFile(path string) (*FileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open camera file: %w", err)
	}
	return &FileSource{path: path}, nil
}

// Latest reads the file. A missing or unreadable file yields no frame.
func (f *FileSource) Latest() (Frame, bool) {
	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	if stopped {
		return Frame{}, false
	}

	data, err := os.ReadFile(f.path)
	if err != nil || len(data) == 0 {
		return Frame{}, false
	}
	return Frame{Data: data, CapturedAt: time.Now()}, true
}

// Stop marks the source closed.
func (f *FileSource) Stop() error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return nil
}
