package config

import (
	"fmt"
	"strings"

	"github.com/ymiyake/murmur/internal/gesture"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Gesture.Combo) == "" {
		return nil, fmt.Errorf("gesture.combo must not be empty")
	}
	if _, err := gesture.ParseCombo(cfg.Gesture.Combo); err != nil {
		return nil, fmt.Errorf("gesture.combo: %w", err)
	}
	if cfg.Gesture.HoldThresholdMS <= 0 {
		return nil, fmt.Errorf("gesture.hold_threshold_ms must be > 0")
	}
	if cfg.Gesture.DoubleTapThresholdMS <= 0 {
		return nil, fmt.Errorf("gesture.double_tap_threshold_ms must be > 0")
	}
	if cfg.Gesture.TapMaxMS <= 0 {
		return nil, fmt.Errorf("gesture.tap_max_ms must be > 0")
	}
	if cfg.Gesture.IdleFloorMS < 0 {
		return nil, fmt.Errorf("gesture.idle_floor_ms must be >= 0")
	}
	if cfg.Gesture.RecordingFloorMS < 0 {
		return nil, fmt.Errorf("gesture.recording_floor_ms must be >= 0")
	}
	if cfg.Gesture.IdleFloorMS >= cfg.Gesture.TapMaxMS {
		return nil, fmt.Errorf("gesture.idle_floor_ms must be below gesture.tap_max_ms")
	}
	if cfg.Gesture.DebounceMS < 0 {
		return nil, fmt.Errorf("gesture.debounce_ms must be >= 0")
	}
	if cfg.Gesture.RecordingFloorMS > cfg.Gesture.IdleFloorMS {
		warnings = append(warnings, Warning{
			Message: "gesture.recording_floor_ms is above gesture.idle_floor_ms; stopping will be harder than starting",
		})
	}

	if cfg.Ducking.FadeMS < 0 {
		return nil, fmt.Errorf("ducking.fade_ms must be >= 0")
	}
	if cfg.Silence.MeanThreshold < 0 || cfg.Silence.MeanThreshold > 1 {
		return nil, fmt.Errorf("silence.mean_threshold must be within [0, 1]")
	}
	if cfg.Silence.DeviationThreshold < 0 || cfg.Silence.DeviationThreshold > 1 {
		return nil, fmt.Errorf("silence.deviation_threshold must be within [0, 1]")
	}
	if cfg.Transcribe.TimeoutMS < 0 {
		return nil, fmt.Errorf("transcribe.timeout_ms must be >= 0")
	}
	if cfg.Transcribe.APIKey == "" && cfg.Transcribe.Endpoint != "" {
		warnings = append(warnings, Warning{
			Message: "transcribe.endpoint is set but transcribe.api_key is empty; transcription stays disabled",
		})
	}

	return warnings, nil
}
