package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:         "http://127.0.0.1:5000",
			PredictPath: "/predict",
			SpeakPath:   "/speak",
		},
		Camera: CameraConfig{
			Input:    "default",
			Fallback: "default",
			Source:   SourceFFmpeg,
			Command:  CommandConfig{Raw: "ffmpeg", Argv: []string{"ffmpeg"}},
			Width:    640,
			Height:   480,
		},
		Capture: CaptureConfig{
			IntervalMS:  1000,
			JPEGQuality: 92,
		},
		Speech: SpeechConfig{
			VoiceAnnouncement: "Changing voice to female",
		},
		Indicator: IndicatorConfig{
			Enable:         false,
			Backend:        "desktop",
			DesktopAppName: "signcast",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Metrics: MetricsConfig{
			Enable: false,
			Listen: "127.0.0.1:9464",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
