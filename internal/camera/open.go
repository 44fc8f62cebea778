package camera

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbright/signcast/internal/config"
)

// Open acquires the configured frame source once for the process lifetime.
func Open(ctx context.Context, cfg config.CameraConfig, logger *slog.Logger) (Source, Selection, error) {
	switch cfg.Source {
	case config.SourceFile:
		src, err := OpenFile(cfg.File)
		if err != nil {
			return nil, Selection{}, err
		}
		return src, Selection{Device: Device{ID: cfg.File, Name: "file", Available: true}}, nil
	case config.SourceFFmpeg:
		selection, err := SelectDevice(ctx, cfg.Input, cfg.Fallback)
		if err != nil {
			return nil, Selection{}, err
		}
		stream, err := StartStream(ctx, selection.Device, StreamOptions{
			Command: cfg.Command.Argv,
			Width:   cfg.Width,
			Height:  cfg.Height,
			Logger:  logger,
		})
		if err != nil {
			return nil, Selection{}, err
		}
		return stream, selection, nil
	default:
		return nil, Selection{}, fmt.Errorf("unsupported camera source %q", cfg.Source)
	}
}

// Unavailable stands in when no camera could be opened. It never yields a
// frame, so every tick encodes the empty canvas.
type Unavailable struct{}

// Latest implements Source.
func (Unavailable) Latest() (Frame, bool) { return Frame{}, false }

// Stop implements Source.
func (Unavailable) Stop() error { return nil }
