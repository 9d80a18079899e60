// Package hotkey adapts platform input hooks to the gesture event stream.
// Two backends exist: a registered-combo backend for multi-key triggers and
// a raw hook backend for single-modifier timing gestures.
package hotkey

import (
	"errors"

	"github.com/ymiyake/murmur/internal/gesture"
)

// ErrRegistration reports that the OS rejected the hook or hotkey
// registration. The caller keeps its previous configuration.
var ErrRegistration = errors.New("hotkey registration failed")

// Source delivers key events to a sink on an OS-owned hook goroutine until
// stopped. The sink must return quickly and never block.
type Source interface {
	Start(sink func(gesture.KeyEvent)) error
	Stop() error
}

// NewSource selects the backend that matches the parsed combo: raw hook
// for single modifiers (press/release timing matters), registered combo
// hotkey otherwise.
func NewSource(combo gesture.Combo, single bool) (Source, error) {
	if single {
		return NewRawSource(combo.String()), nil
	}
	return NewComboSource(combo)
}
