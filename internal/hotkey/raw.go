package hotkey

import (
	"fmt"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/ymiyake/murmur/internal/gesture"
)

// RawSource taps the global keyboard hook and forwards every press and
// release of the target key. Needed for single-modifier gestures, where
// registered hotkeys cannot observe release timing.
type RawSource struct {
	target string

	mu      sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewRawSource builds a raw hook source filtered to one normalized key name.
func NewRawSource(target string) *RawSource {
	return &RawSource{target: gesture.NormalizeKey(target)}
}

// Start installs the global hook and pumps events to the sink until Stop.
func (s *RawSource) Start(sink func(gesture.KeyEvent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("%w: raw hook already started", ErrRegistration)
	}
	if sink == nil {
		return fmt.Errorf("%w: event sink is required", ErrRegistration)
	}

	events := hook.Start()
	if events == nil {
		return fmt.Errorf("%w: global hook unavailable", ErrRegistration)
	}

	s.started = true
	s.done = make(chan struct{})
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				keyEvent, relevant := s.translate(ev)
				if relevant {
					sink(keyEvent)
				}
			}
		}
	}()
	return nil
}

// Stop uninstalls the hook and waits for the pump goroutine.
func (s *RawSource) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.done)
	s.mu.Unlock()

	hook.End()
	s.wg.Wait()
	return nil
}

// translate maps one hook event to a gesture event, filtering to the
// target key. Auto-repeat holds are surfaced as downs; the classifier
// ignores repeats while pressed.
func (s *RawSource) translate(ev hook.Event) (gesture.KeyEvent, bool) {
	var edge gesture.Edge
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		edge = gesture.KeyDown
	case hook.KeyUp:
		edge = gesture.KeyUp
	default:
		return gesture.KeyEvent{}, false
	}

	name := rawKeyName(ev.Rawcode)
	if name != s.target {
		return gesture.KeyEvent{}, false
	}
	return gesture.KeyEvent{Name: name, Edge: edge, At: ev.When}, true
}

// rawKeyName resolves a platform rawcode to a normalized key name,
// preferring the left/right-aware modifier table over the generic lookup.
func rawKeyName(rawcode uint16) string {
	if name, ok := modifierRawcodes[rawcode]; ok {
		return name
	}
	return gesture.NormalizeKey(hook.RawcodetoKeychar(rawcode))
}
