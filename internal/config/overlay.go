package config

import (
	"fmt"
	"strings"
)

// fileConfig is the on-disk document shape shared by the JSONC and YAML parsers.
// Pointer fields distinguish "unset" from zero values so defaults survive.
type fileConfig struct {
	Server    *fileServer    `json:"server" yaml:"server"`
	Camera    *fileCamera    `json:"camera" yaml:"camera"`
	Capture   *fileCapture   `json:"capture" yaml:"capture"`
	Speech    *fileSpeech    `json:"speech" yaml:"speech"`
	Indicator *fileIndicator `json:"indicator" yaml:"indicator"`
	Metrics   *fileMetrics   `json:"metrics" yaml:"metrics"`
	Log       *fileLog       `json:"log" yaml:"log"`
}

type fileServer struct {
	URL         *string `json:"url" yaml:"url"`
	PredictPath *string `json:"predict_path" yaml:"predict_path"`
	SpeakPath   *string `json:"speak_path" yaml:"speak_path"`
	TimeoutMS   *int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileCamera struct {
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
	Source   *string `json:"source" yaml:"source"`
	Command  *string `json:"command" yaml:"command"`
	File     *string `json:"file" yaml:"file"`
	Width    *int    `json:"width" yaml:"width"`
	Height   *int    `json:"height" yaml:"height"`
}

type fileCapture struct {
	IntervalMS   *int  `json:"interval_ms" yaml:"interval_ms"`
	JPEGQuality  *int  `json:"jpeg_quality" yaml:"jpeg_quality"`
	DiscardStale *bool `json:"discard_stale" yaml:"discard_stale"`
}

type fileSpeech struct {
	VoiceAnnouncement *string `json:"voice_announcement" yaml:"voice_announcement"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" yaml:"enable"`
	Backend           *string `json:"backend" yaml:"backend"`
	DesktopAppName    *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable"`
	SoundSendFile     *string `json:"sound_send_file" yaml:"sound_send_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file"`
	SoundFailFile     *string `json:"sound_fail_file" yaml:"sound_fail_file"`
	SoundClearFile    *string `json:"sound_clear_file" yaml:"sound_clear_file"`
	TextSpeaking      *string `json:"text_speaking" yaml:"text_speaking"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileMetrics struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Listen *string `json:"listen" yaml:"listen"`
}

type fileLog struct {
	Level   *string `json:"level" yaml:"level"`
	Console *bool   `json:"console" yaml:"console"`
}

// materialize overlays the document onto base and validates the result.
func (payload fileConfig) materialize(base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validatedWarnings...), nil
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if s := payload.Server; s != nil {
		setString(&cfg.Server.URL, s.URL)
		setString(&cfg.Server.PredictPath, s.PredictPath)
		setString(&cfg.Server.SpeakPath, s.SpeakPath)
		setInt(&cfg.Server.TimeoutMS, s.TimeoutMS)
	}

	if c := payload.Camera; c != nil {
		setString(&cfg.Camera.Input, c.Input)
		setString(&cfg.Camera.Fallback, c.Fallback)
		if c.Source != nil {
			cfg.Camera.Source = strings.ToLower(strings.TrimSpace(*c.Source))
		}
		if c.Command != nil {
			raw := *c.Command
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid camera.command: %w", err)
			}
			cfg.Camera.Command = CommandConfig{Raw: raw, Argv: argv}
		}
		setString(&cfg.Camera.File, c.File)
		setInt(&cfg.Camera.Width, c.Width)
		setInt(&cfg.Camera.Height, c.Height)
	}

	if c := payload.Capture; c != nil {
		setInt(&cfg.Capture.IntervalMS, c.IntervalMS)
		setInt(&cfg.Capture.JPEGQuality, c.JPEGQuality)
		setBool(&cfg.Capture.DiscardStale, c.DiscardStale)
		if c.DiscardStale != nil && *c.DiscardStale {
			warnings = append(warnings, Warning{Message: "capture.discard_stale=true drops prediction responses that complete out of order"})
		}
	}

	if s := payload.Speech; s != nil && s.VoiceAnnouncement != nil {
		cfg.Speech.VoiceAnnouncement = strings.TrimSpace(*s.VoiceAnnouncement)
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.Backend, i.Backend)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundSendFile, i.SoundSendFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundFailFile, i.SoundFailFile)
		setString(&cfg.Indicator.SoundClearFile, i.SoundClearFile)
		setString(&cfg.Indicator.TextSpeaking, i.TextSpeaking)
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if m := payload.Metrics; m != nil {
		setBool(&cfg.Metrics.Enable, m.Enable)
		setString(&cfg.Metrics.Listen, m.Listen)
	}

	if l := payload.Log; l != nil {
		if l.Level != nil {
			cfg.Log.Level = strings.ToLower(strings.TrimSpace(*l.Level))
		}
		setBool(&cfg.Log.Console, l.Console)
	}

	return warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
