package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Gesture    *jsoncGesture    `json:"gesture"`
	Audio      *jsoncAudio      `json:"audio"`
	Ducking    *jsoncDucking    `json:"ducking"`
	Silence    *jsoncSilence    `json:"silence"`
	Transcribe *jsoncTranscribe `json:"transcribe"`
	Debug      *jsoncDebug      `json:"debug"`
}

type jsoncGesture struct {
	Combo                *string `json:"combo"`
	HoldThresholdMS      *int    `json:"hold_threshold_ms"`
	DoubleTapThresholdMS *int    `json:"double_tap_threshold_ms"`
	TapMaxMS             *int    `json:"tap_max_ms"`
	IdleFloorMS          *int    `json:"idle_floor_ms"`
	RecordingFloorMS     *int    `json:"recording_floor_ms"`
	DebounceMS           *int    `json:"debounce_ms"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncDucking struct {
	Enable *bool `json:"enable"`
	FadeMS *int  `json:"fade_ms"`
}

type jsoncSilence struct {
	Enable             *bool    `json:"enable"`
	MeanThreshold      *float64 `json:"mean_threshold"`
	DeviationThreshold *float64 `json:"deviation_threshold"`
}

type jsoncTranscribe struct {
	Endpoint  *string `json:"endpoint"`
	APIKey    *string `json:"api_key"`
	Model     *string `json:"model"`
	Language  *string `json:"language"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, validatedWarnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.Gesture != nil {
		if payload.Gesture.Combo != nil {
			cfg.Gesture.Combo = strings.TrimSpace(*payload.Gesture.Combo)
		}
		if payload.Gesture.HoldThresholdMS != nil {
			cfg.Gesture.HoldThresholdMS = *payload.Gesture.HoldThresholdMS
		}
		if payload.Gesture.DoubleTapThresholdMS != nil {
			cfg.Gesture.DoubleTapThresholdMS = *payload.Gesture.DoubleTapThresholdMS
		}
		if payload.Gesture.TapMaxMS != nil {
			cfg.Gesture.TapMaxMS = *payload.Gesture.TapMaxMS
		}
		if payload.Gesture.IdleFloorMS != nil {
			cfg.Gesture.IdleFloorMS = *payload.Gesture.IdleFloorMS
		}
		if payload.Gesture.RecordingFloorMS != nil {
			cfg.Gesture.RecordingFloorMS = *payload.Gesture.RecordingFloorMS
		}
		if payload.Gesture.DebounceMS != nil {
			cfg.Gesture.DebounceMS = *payload.Gesture.DebounceMS
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Ducking != nil {
		if payload.Ducking.Enable != nil {
			cfg.Ducking.Enable = *payload.Ducking.Enable
		}
		if payload.Ducking.FadeMS != nil {
			cfg.Ducking.FadeMS = *payload.Ducking.FadeMS
		}
	}

	if payload.Silence != nil {
		if payload.Silence.Enable != nil {
			cfg.Silence.Enable = *payload.Silence.Enable
		}
		if payload.Silence.MeanThreshold != nil {
			cfg.Silence.MeanThreshold = *payload.Silence.MeanThreshold
		}
		if payload.Silence.DeviationThreshold != nil {
			cfg.Silence.DeviationThreshold = *payload.Silence.DeviationThreshold
		}
	}

	if payload.Transcribe != nil {
		if payload.Transcribe.Endpoint != nil {
			cfg.Transcribe.Endpoint = strings.TrimSpace(*payload.Transcribe.Endpoint)
		}
		if payload.Transcribe.APIKey != nil {
			cfg.Transcribe.APIKey = strings.TrimSpace(*payload.Transcribe.APIKey)
		}
		if payload.Transcribe.Model != nil {
			cfg.Transcribe.Model = strings.TrimSpace(*payload.Transcribe.Model)
		}
		if payload.Transcribe.Language != nil {
			cfg.Transcribe.Language = strings.TrimSpace(*payload.Transcribe.Language)
		}
		if payload.Transcribe.TimeoutMS != nil {
			cfg.Transcribe.TimeoutMS = *payload.Transcribe.TimeoutMS
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
