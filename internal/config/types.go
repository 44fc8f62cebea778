// Package config resolves, parses, validates, and defaults signcast configuration.
package config

// Config is the fully materialized runtime configuration used by signcast.
type Config struct {
	Server    ServerConfig
	Camera    CameraConfig
	Capture   CaptureConfig
	Speech    SpeechConfig
	Indicator IndicatorConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

// ServerConfig locates the prediction and speech endpoints.
type ServerConfig struct {
	URL         string
	PredictPath string
	SpeakPath   string
	// TimeoutMS of 0 leaves request lifetime to the transport defaults.
	TimeoutMS int
}

// CameraConfig controls preferred and fallback capture-device selection.
type CameraConfig struct {
	Input    string
	Fallback string
	Source   string
	Command  CommandConfig
	File     string
	Width    int
	Height   int
}

// CaptureConfig controls the prediction tick loop.
type CaptureConfig struct {
	IntervalMS   int
	JPEGQuality  int
	DiscardStale bool
}

// SpeechConfig controls speech endpoint requests.
type SpeechConfig struct {
	VoiceAnnouncement string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundSendFile     string
	SoundCompleteFile string
	SoundFailFile     string
	SoundClearFile    string
	TextSpeaking      string
	ErrorTimeoutMS    int
}

// MetricsConfig controls the optional metrics/state HTTP listener.
type MetricsConfig struct {
	Enable bool
	Listen string
}

// LogConfig controls log verbosity and the optional console sink.
type LogConfig struct {
	Level   string
	Console bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	SourceFFmpeg = "ffmpeg"
	SourceFile   = "file"
)
