package hotkey

import (
	"fmt"
	"sync"
	"time"

	xhotkey "golang.design/x/hotkey"

	"github.com/ymiyake/murmur/internal/gesture"
)

// ComboSource registers a system-wide hotkey and emits one Down event per
// trigger. Registered hotkeys never see releases of individual keys, which
// is fine: combo mode only reacts to presses.
type ComboSource struct {
	combo gesture.Combo
	hk    *xhotkey.Hotkey

	mu      sync.Mutex
	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewComboSource translates the parsed combo into platform modifier and key
// codes. Unknown names surface as ErrRegistration before any OS call.
func NewComboSource(combo gesture.Combo) (*ComboSource, error) {
	modifiers := make([]xhotkey.Modifier, 0, len(combo.Modifiers))
	for _, name := range combo.Modifiers {
		mod, ok := modifierCodes[name]
		if !ok {
			return nil, fmt.Errorf("%w: modifier %q not supported on this platform", ErrRegistration, name)
		}
		modifiers = append(modifiers, mod)
	}

	key, ok := keyCodes[combo.Key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q not supported", ErrRegistration, combo.Key)
	}

	return &ComboSource{
		combo: combo,
		hk:    xhotkey.New(modifiers, key),
	}, nil
}

// Start registers the hotkey and pumps trigger events to the sink.
func (s *ComboSource) Start(sink func(gesture.KeyEvent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("%w: combo source already started", ErrRegistration)
	}
	if sink == nil {
		return fmt.Errorf("%w: event sink is required", ErrRegistration)
	}

	if err := s.hk.Register(); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistration, err)
	}

	s.started = true
	s.done = make(chan struct{})
	s.wg.Add(1)

	name := s.combo.String()
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case <-s.hk.Keydown():
				sink(gesture.KeyEvent{Name: name, Edge: gesture.KeyDown, At: time.Now()})
			}
		}
	}()
	return nil
}

// Stop unregisters the hotkey and waits for the pump goroutine.
func (s *ComboSource) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.done)
	s.mu.Unlock()

	err := s.hk.Unregister()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("unregister hotkey: %w", err)
	}
	return nil
}
