package config

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLegacy reads the original flat key=value format. Unknown keys are
// warnings, malformed values are errors.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base
	warnings := make([]Warning, 0)

	for i, rawLine := range strings.Split(content, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			warnings = append(warnings, Warning{
				Line:    lineNo,
				Message: fmt.Sprintf("ignoring line without '=': %q", line),
			})
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if err := applyLegacyKey(&cfg, key, value, lineNo, &warnings); err != nil {
			return Config{}, nil, err
		}
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func applyLegacyKey(cfg *Config, key, value string, lineNo int, warnings *[]Warning) error {
	switch key {
	case "gesture.combo":
		cfg.Gesture.Combo = value
	case "gesture.hold_threshold_ms":
		return setLegacyInt(&cfg.Gesture.HoldThresholdMS, key, value, lineNo)
	case "gesture.double_tap_threshold_ms":
		return setLegacyInt(&cfg.Gesture.DoubleTapThresholdMS, key, value, lineNo)
	case "gesture.tap_max_ms":
		return setLegacyInt(&cfg.Gesture.TapMaxMS, key, value, lineNo)
	case "gesture.idle_floor_ms":
		return setLegacyInt(&cfg.Gesture.IdleFloorMS, key, value, lineNo)
	case "gesture.recording_floor_ms":
		return setLegacyInt(&cfg.Gesture.RecordingFloorMS, key, value, lineNo)
	case "gesture.debounce_ms":
		return setLegacyInt(&cfg.Gesture.DebounceMS, key, value, lineNo)
	case "audio.input":
		cfg.Audio.Input = value
	case "audio.fallback":
		cfg.Audio.Fallback = value
	case "ducking.enable":
		return setLegacyBool(&cfg.Ducking.Enable, key, value, lineNo)
	case "ducking.fade_ms":
		return setLegacyInt(&cfg.Ducking.FadeMS, key, value, lineNo)
	case "silence.enable":
		return setLegacyBool(&cfg.Silence.Enable, key, value, lineNo)
	case "silence.mean_threshold":
		return setLegacyFloat(&cfg.Silence.MeanThreshold, key, value, lineNo)
	case "silence.deviation_threshold":
		return setLegacyFloat(&cfg.Silence.DeviationThreshold, key, value, lineNo)
	case "transcribe.endpoint":
		cfg.Transcribe.Endpoint = value
	case "transcribe.api_key":
		cfg.Transcribe.APIKey = value
	case "transcribe.model":
		cfg.Transcribe.Model = value
	case "transcribe.language":
		cfg.Transcribe.Language = value
	case "transcribe.timeout_ms":
		return setLegacyInt(&cfg.Transcribe.TimeoutMS, key, value, lineNo)
	case "debug.audio_dump":
		return setLegacyBool(&cfg.Debug.EnableAudioDump, key, value, lineNo)
	default:
		*warnings = append(*warnings, Warning{
			Line:    lineNo,
			Message: fmt.Sprintf("unknown config key %q", key),
		})
	}
	return nil
}

func setLegacyInt(dst *int, key, value string, lineNo int) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("line %d: %s expects an integer, got %q", lineNo, key, value)
	}
	*dst = parsed
	return nil
}

func setLegacyFloat(dst *float64, key, value string, lineNo int) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("line %d: %s expects a number, got %q", lineNo, key, value)
	}
	*dst = parsed
	return nil
}

func setLegacyBool(dst *bool, key, value string, lineNo int) error {
	switch strings.ToLower(value) {
	case "true", "yes", "on", "1":
		*dst = true
	case "false", "no", "off", "0":
		*dst = false
	default:
		return fmt.Errorf("line %d: %s expects a boolean, got %q", lineNo, key, value)
	}
	return nil
}
