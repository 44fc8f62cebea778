package camera

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/signcast/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEncodeDataURLMissingFrameIsEmptyCanvas(t *testing.T) {
	require.Equal(t, "data:,", EncodeDataURL(Frame{}, false, 92))
	require.Equal(t, "data:,", EncodeDataURL(Frame{Data: nil}, true, 92))
}

func TestEncodeDataURLUndecodableFrameIsEmptyCanvas(t *testing.T) {
	require.Equal(t, EmptyDataURL, EncodeDataURL(Frame{Data: []byte("not an image")}, true, 92))
}

func TestEncodeDataURLReencodesAsJPEG(t *testing.T) {
	for name, data := range map[string][]byte{
		"jpeg": testJPEG(t, 16, 12),
		"png":  testPNG(t, 16, 12),
	} {
		t.Run(name, func(t *testing.T) {
			url := EncodeDataURL(Frame{Data: data}, true, 80)
			require.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

			raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/jpeg;base64,"))
			require.NoError(t, err)
			img, err := jpeg.Decode(bytes.NewReader(raw))
			require.NoError(t, err)
			require.Equal(t, 16, img.Bounds().Dx())
			require.Equal(t, 12, img.Bounds().Dy())
		})
	}
}

func TestFileSourceRereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, testPNG(t, 2, 2), 0o600))

	src, err := OpenFile(path)
	require.NoError(t, err)

	frame, ok := src.Latest()
	require.True(t, ok)
	require.NotEmpty(t, frame.Data)

	require.NoError(t, os.Remove(path))
	_, ok = src.Latest()
	require.False(t, ok)

	require.NoError(t, os.WriteFile(path, testPNG(t, 3, 3), 0o600))
	_, ok = src.Latest()
	require.True(t, ok)

	require.NoError(t, src.Stop())
	_, ok = src.Latest()
	require.False(t, ok)
}

func TestOpenFileMissingPathFails(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
}

func TestOpenDispatchesBySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(path, testJPEG(t, 2, 2), 0o600))

	cfg := config.Default().Camera
	cfg.Source = config.SourceFile
	cfg.File = path

	src, selection, err := Open(t.Context(), cfg, nil)
	require.NoError(t, err)
	require.Equal(t, path, selection.Device.ID)
	_, ok := src.Latest()
	require.True(t, ok)

	cfg.Source = "gstreamer"
	_, _, err = Open(t.Context(), cfg, nil)
	require.Error(t, err)
}

func TestUnavailableSourceEncodesEmptyCanvas(t *testing.T) {
	var src Source = Unavailable{}
	frame, ok := src.Latest()
	require.False(t, ok)
	require.Equal(t, "data:,", EncodeDataURL(frame, ok, 80))
	require.NoError(t, src.Stop())
}
