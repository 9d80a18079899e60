// Package gesture classifies global keyboard events into recording and
// mute commands. Classification runs inline on the hook thread under one
// short-held lock; side effects are emitted as commands for the control
// thread to execute.
package gesture

import (
	"fmt"
	"sync"
	"time"

	"github.com/ymiyake/murmur/internal/fsm"
)

// Edge is the direction of a key transition.
type Edge int

const (
	KeyDown Edge = iota + 1
	KeyUp
)

// KeyEvent is one raw input event as delivered by the OS hook.
type KeyEvent struct {
	Name string
	Edge Edge
	At   time.Time
}

// Command is a classified side effect for the control thread.
type Command int

const (
	StartRecording Command = iota + 1
	StopRecording
	ToggleMute
	// CancelRecording is never produced by classification; the control
	// surface enqueues it to discard an open recording.
	CancelRecording
)

func (c Command) String() string {
	switch c {
	case StartRecording:
		return "start_recording"
	case StopRecording:
		return "stop_recording"
	case ToggleMute:
		return "toggle_mute"
	case CancelRecording:
		return "cancel_recording"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Config is the immutable per-session gesture configuration.
type Config struct {
	// Combo is the trigger: a multi-key combo ("ctrl+shift+space") toggles
	// recording per press; a bare modifier ("right shift") uses
	// hold/tap/double-tap timing.
	Combo string
	// HoldThreshold is the press duration after which a held key starts
	// recording.
	HoldThreshold time.Duration
	// DoubleTapThreshold is the maximum gap between two qualifying taps.
	DoubleTapThreshold time.Duration
	// TapMax is the longest press still classified as a tap.
	TapMax time.Duration
	// IdleFloor rejects accidental brushes when no recording is active.
	IdleFloor time.Duration
	// RecordingFloor rejects key bounce while recording; looser than
	// IdleFloor because stopping must feel instantaneous.
	RecordingFloor time.Duration
	// Debounce suppresses repeated combo triggers in combo mode.
	Debounce time.Duration
}

// DefaultConfig returns the stock gesture timing profile.
func DefaultConfig() Config {
	return Config{
		Combo:              "ctrl+shift+space",
		HoldThreshold:      200 * time.Millisecond,
		DoubleTapThreshold: 600 * time.Millisecond,
		TapMax:             500 * time.Millisecond,
		IdleFloor:          20 * time.Millisecond,
		RecordingFloor:     5 * time.Millisecond,
		Debounce:           200 * time.Millisecond,
	}
}

// Classifier turns a stream of KeyEvents into commands. One instance owns
// the gesture state exclusively; replace the whole instance to reconfigure.
type Classifier struct {
	cfg    Config
	emit   func(Command)
	single bool
	combo  Combo
	target string

	mu          sync.Mutex
	state       fsm.State
	pressed     bool
	pressedAt   time.Time
	lastTap     time.Time
	lastTrigger time.Time
	holdFired   bool
	holdGen     int
	holdTimer   *time.Timer
}

// NewClassifier validates the configured combo and builds a classifier in
// the idle state. Malformed combos return ErrBadCombo and no classifier.
func NewClassifier(cfg Config, emit func(Command)) (*Classifier, error) {
	if emit == nil {
		return nil, fmt.Errorf("gesture: emit callback is required")
	}
	combo, err := ParseCombo(cfg.Combo)
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		cfg:    cfg,
		emit:   emit,
		combo:  combo,
		single: IsSingleModifier(cfg.Combo),
		state:  fsm.StateIdle,
	}
	if c.single {
		c.target = NormalizeKey(cfg.Combo)
	}
	return c, nil
}

// Single reports whether the classifier runs in single-modifier mode.
func (c *Classifier) Single() bool {
	return c.single
}

// Combo returns the parsed trigger combo.
func (c *Classifier) Combo() Combo {
	return c.combo
}

// State returns the current gesture state snapshot.
func (c *Classifier) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleKey classifies one raw key event. Safe to call from the hook
// thread: it holds the classifier lock only for this one event and never
// performs I/O.
func (c *Classifier) HandleKey(ev KeyEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.single {
		switch ev.Edge {
		case KeyDown:
			c.singleDown(ev)
		case KeyUp:
			c.singleUp(ev)
		}
		return
	}
	if ev.Edge == KeyDown {
		c.comboDown(ev)
	}
	// Release events are not significant in combo mode.
}

// ForceIdle reverts the classifier to idle. The controller calls this when
// a start command failed at the device so gesture state and reality never
// diverge.
func (c *Classifier) ForceIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelHold()
	c.pressed = false
	c.holdFired = false
	c.lastTap = time.Time{}
	c.state, _ = fsm.Transition(c.state, fsm.EventReset)
}

// comboDown toggles recording on a full-combo press, debounced against the
// last accepted trigger.
func (c *Classifier) comboDown(ev KeyEvent) {
	if NormalizeKey(ev.Name) != c.combo.String() {
		return
	}
	if !c.lastTrigger.IsZero() && ev.At.Sub(c.lastTrigger) < c.cfg.Debounce {
		return
	}

	if c.state == fsm.StateRecording {
		if c.apply(fsm.EventToggleStop, StopRecording) {
			c.lastTrigger = ev.At
		}
		return
	}
	if c.apply(fsm.EventToggleStart, StartRecording) {
		c.lastTrigger = ev.At
	}
}

// singleDown records press time and arms the hold timer unless a recording
// is already active (presses during recording only matter on release).
func (c *Classifier) singleDown(ev KeyEvent) {
	if NormalizeKey(ev.Name) != c.target || c.pressed {
		return
	}
	c.pressed = true
	c.pressedAt = ev.At
	c.holdFired = false

	if c.state == fsm.StateRecording {
		c.apply(fsm.EventPress)
		return
	}
	if !c.apply(fsm.EventPress) {
		return
	}

	c.holdGen++
	gen := c.holdGen
	c.holdTimer = time.AfterFunc(c.cfg.HoldThreshold, func() {
		c.holdExpired(gen)
	})
}

// singleUp classifies the release into noise, tap, double-tap, or stop.
func (c *Classifier) singleUp(ev KeyEvent) {
	if NormalizeKey(ev.Name) != c.target || !c.pressed {
		return
	}
	c.pressed = false
	c.cancelHold()
	elapsed := ev.At.Sub(c.pressedAt)

	if c.holdFired {
		// This press started the active recording; releasing it stops.
		c.holdFired = false
		c.apply(fsm.EventReleaseStop, StopRecording)
		if elapsed < c.cfg.TapMax {
			c.lastTap = ev.At
		}
		return
	}

	floor := c.cfg.IdleFloor
	if c.state == fsm.StateRecording {
		floor = c.cfg.RecordingFloor
	}

	if elapsed <= floor || elapsed >= c.cfg.TapMax {
		switch c.state {
		case fsm.StateHoldArmed:
			event := fsm.EventReleaseNoise
			if c.tapArmedAt(ev.At) {
				event = fsm.EventReleaseNoiseTap
			}
			c.apply(event)
		case fsm.StateRecording:
			c.apply(fsm.EventReleaseLong)
		}
		return
	}

	switch c.state {
	case fsm.StateRecording:
		// A single tap always stops an active recording.
		c.apply(fsm.EventReleaseStop, StopRecording)
	case fsm.StateHoldArmed:
		if c.tapArmedAt(ev.At) {
			c.apply(fsm.EventReleaseTapSecond, ToggleMute, StartRecording)
		} else {
			c.apply(fsm.EventReleaseTapFirst)
		}
	}
	c.lastTap = ev.At
}

// holdExpired fires on the hold timer goroutine. Generation and state
// checks drop stale fires that raced a release or a reconfigure.
func (c *Classifier) holdExpired(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.holdGen || !c.pressed {
		return
	}
	if c.apply(fsm.EventHoldElapsed, StartRecording) {
		c.holdFired = true
	}
}

// tapArmedAt reports whether a previous qualifying tap is still inside the
// double-tap window at the given instant.
func (c *Classifier) tapArmedAt(at time.Time) bool {
	return !c.lastTap.IsZero() && at.Sub(c.lastTap) < c.cfg.DoubleTapThreshold
}

// apply transitions the state machine and emits commands only when the
// edge is valid for the current state.
func (c *Classifier) apply(event fsm.Event, commands ...Command) bool {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return false
	}
	c.state = next
	for _, command := range commands {
		c.emit(command)
	}
	return true
}

// cancelHold invalidates any pending hold timer.
func (c *Classifier) cancelHold() {
	c.holdGen++
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
}
