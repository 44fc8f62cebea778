package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minRecommendedIntervalMS is the tick below which overlapping predictions become routine.
const minRecommendedIntervalMS = 250

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateServer(cfg.Server); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Camera.Source)) {
	case SourceFFmpeg:
		if len(cfg.Camera.Command.Argv) == 0 {
			return nil, fmt.Errorf("camera.command must not be empty when camera.source=ffmpeg")
		}
		if strings.TrimSpace(cfg.Camera.File) != "" {
			warnings = append(warnings, Warning{Message: "camera.file is ignored when camera.source=ffmpeg"})
		}
	case SourceFile:
		if strings.TrimSpace(cfg.Camera.File) == "" {
			return nil, fmt.Errorf("camera.file must not be empty when camera.source=file")
		}
	case "":
		return nil, fmt.Errorf("camera.source must not be empty")
	default:
		return nil, fmt.Errorf("camera.source must be one of: ffmpeg, file")
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return nil, fmt.Errorf("camera.width and camera.height must be > 0")
	}

	if cfg.Capture.IntervalMS <= 0 {
		return nil, fmt.Errorf("capture.interval_ms must be > 0")
	}
	if cfg.Capture.IntervalMS < minRecommendedIntervalMS {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"capture.interval_ms=%d is below %dms; prediction requests will routinely overlap",
			cfg.Capture.IntervalMS, minRecommendedIntervalMS,
		)})
	}
	if cfg.Capture.JPEGQuality < 1 || cfg.Capture.JPEGQuality > 100 {
		return nil, fmt.Errorf("capture.jpeg_quality must be between 1 and 100")
	}

	if strings.TrimSpace(cfg.Speech.VoiceAnnouncement) == "" {
		return nil, fmt.Errorf("speech.voice_announcement must not be empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Metrics.Enable && strings.TrimSpace(cfg.Metrics.Listen) == "" {
		return nil, fmt.Errorf("metrics.listen must not be empty when metrics.enable=true")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateServer(server ServerConfig) error {
	raw := strings.TrimSpace(server.URL)
	if raw == "" {
		return fmt.Errorf("server.url must not be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server.url is invalid: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("server.url must include a host")
	}
	if !strings.HasPrefix(strings.TrimSpace(server.PredictPath), "/") {
		return fmt.Errorf("server.predict_path must start with '/'")
	}
	if !strings.HasPrefix(strings.TrimSpace(server.SpeakPath), "/") {
		return fmt.Errorf("server.speak_path must start with '/'")
	}
	if server.TimeoutMS < 0 {
		return fmt.Errorf("server.timeout_ms must be >= 0")
	}
	return nil
}
