// Package config resolves, parses, validates, and defaults murmur configuration.
package config

// Config is the fully materialized runtime configuration used by murmur.
type Config struct {
	Gesture    GestureConfig
	Audio      AudioConfig
	Ducking    DuckingConfig
	Silence    SilenceConfig
	Transcribe TranscribeConfig
	Debug      DebugConfig
}

// GestureConfig controls trigger selection and classification timing.
// Durations are milliseconds.
type GestureConfig struct {
	Combo                string
	HoldThresholdMS      int
	DoubleTapThresholdMS int
	TapMaxMS             int
	IdleFloorMS          int
	RecordingFloorMS     int
	DebounceMS           int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// DuckingConfig controls system volume behavior around recording.
type DuckingConfig struct {
	Enable bool
	FadeMS int
}

// SilenceConfig controls the pre-transcription silence gate.
type SilenceConfig struct {
	Enable             bool
	MeanThreshold      float64
	DeviationThreshold float64
}

// TranscribeConfig controls the speech-to-text collaborator.
type TranscribeConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Language  string
	TimeoutMS int
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
