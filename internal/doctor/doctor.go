// Package doctor runs runtime readiness diagnostics for config, gesture,
// audio, ducking, and transcription.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ymiyake/murmur/internal/audio"
	"github.com/ymiyake/murmur/internal/config"
	"github.com/ymiyake/murmur/internal/duck"
	"github.com/ymiyake/murmur/internal/gesture"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("%q not found, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available for control socket", "XDG_RUNTIME_DIR is empty"))

	checks = append(checks, checkGesture(cfg.Config))
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkMixer(cfg.Config))
	checks = append(checks, checkTranscribe(cfg.Config))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkGesture parses the configured combo and reports which classifier
// mode it selects.
func checkGesture(cfg config.Config) Check {
	combo, err := gesture.ParseCombo(cfg.Gesture.Combo)
	if err != nil {
		return Check{Name: "gesture.combo", Pass: false, Message: err.Error()}
	}
	mode := "combo mode"
	if gesture.IsSingleModifier(cfg.Gesture.Combo) {
		mode = "single-modifier mode (tap/hold/double-tap)"
	}
	return Check{Name: "gesture.combo", Pass: true, Message: fmt.Sprintf("%q parsed, %s", combo.String(), mode)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkMixer connects to the sink mixer used for ducking and mute.
func checkMixer(cfg config.Config) Check {
	if !cfg.Ducking.Enable {
		return Check{Name: "ducking.mixer", Pass: true, Message: "ducking disabled"}
	}

	mixer, err := duck.NewPulseMixer()
	if err != nil {
		return Check{Name: "ducking.mixer", Pass: false, Message: err.Error()}
	}
	defer func() { _ = mixer.Close() }()

	levels, err := mixer.Levels()
	if err != nil {
		return Check{Name: "ducking.mixer", Pass: false, Message: err.Error()}
	}
	return Check{Name: "ducking.mixer", Pass: true, Message: fmt.Sprintf("%d sink(s) visible", len(levels))}
}

// checkTranscribe reports whether speech-to-text is configured. A missing
// API key degrades to the disabled transcriber, so it is not a failure.
func checkTranscribe(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Transcribe.APIKey) == "" {
		return Check{Name: "transcribe", Pass: true, Message: "api key not set, transcription disabled"}
	}
	return Check{
		Name: "transcribe",
		Pass: true,
		Message: fmt.Sprintf("configured endpoint=%q model=%q",
			cfg.Transcribe.Endpoint, cfg.Transcribe.Model),
	}
}
