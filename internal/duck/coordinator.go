// Package duck lowers system playback volume around a recording session
// and restores the prior state deterministically afterward.
package duck

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// fadeSteps is the fixed number of discrete volume steps per ramp.
const fadeSteps = 10

// Level is one playback entity's volume and mute state. Volume is
// normalized to [0, 1].
type Level struct {
	Volume float64
	Muted  bool
}

// Mixer abstracts the platform volume/mute API over named playback
// entities. Implementations must tolerate entities disappearing between
// Levels and Set calls.
type Mixer interface {
	Levels() (map[string]Level, error)
	SetVolume(id string, volume float64) error
	SetMute(id string, muted bool) error
}

// Coordinator owns the volume snapshot taken at fade-out and guarantees it
// is restored exactly once. Ramps run on a dedicated cancellable goroutine;
// overlapping ramp requests cancel the previous ramp instead of racing it.
type Coordinator struct {
	mixer  Mixer
	logger *slog.Logger

	mu       sync.Mutex
	snapshot map[string]Level
	muted    bool
	cancel   chan struct{}
	gen      uint64
	wg       sync.WaitGroup
	closed   bool
}

// NewCoordinator builds a coordinator over the given mixer. A nil mixer
// selects the no-op backend so recording never depends on ducking.
func NewCoordinator(mixer Mixer, logger *slog.Logger) *Coordinator {
	if mixer == nil {
		mixer = NewNoopMixer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{mixer: mixer, logger: logger}
}

// FadeOut captures the current volume state (unless a snapshot is already
// held) and ramps playback down to zero over the given duration. A second
// fade-out before a fade-in re-triggers the ramp but never overwrites the
// still-valid snapshot with already-ducked values.
func (c *Coordinator) FadeOut(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	current, err := c.mixer.Levels()
	if err != nil {
		c.logger.Warn("mixer unavailable, skipping fade-out", "error", err)
		return
	}
	if c.snapshot == nil {
		c.snapshot = current
	}

	// Ramp from wherever the volume is now. A re-entrant fade-out must not
	// jump back to the snapshot value before descending again.
	targets := make(map[string]Level, len(c.snapshot))
	for id, level := range c.snapshot {
		targets[id] = Level{Volume: 0, Muted: level.Muted}
	}
	c.startRampLocked(current, targets, duration, false)
}

// FadeIn ramps playback back up to the snapshot captured at fade-out and
// consumes the snapshot when the ramp completes. Without a snapshot the
// target defaults to full volume.
func (c *Coordinator) FadeIn(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	current, err := c.mixer.Levels()
	if err != nil {
		c.logger.Warn("mixer unavailable, skipping fade-in", "error", err)
		c.snapshot = nil
		return
	}

	targets := c.snapshot
	if targets == nil {
		targets = make(map[string]Level, len(current))
		for id, level := range current {
			targets[id] = Level{Volume: 1, Muted: level.Muted}
		}
	}
	c.startRampLocked(current, targets, duration, true)
}

// startRampLocked cancels any in-flight ramp and launches a new one. Each
// ramp carries a generation so a superseded ramp that already finished
// stepping cannot consume a snapshot a newer fade-out still relies on.
// Caller holds c.mu.
func (c *Coordinator) startRampLocked(start, targets map[string]Level, duration time.Duration, consume bool) {
	c.cancelRampLocked()

	cancel := make(chan struct{})
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		interval := duration / fadeSteps
		for step := 1; step <= fadeSteps; step++ {
			select {
			case <-cancel:
				return
			case <-time.After(interval):
			}
			fraction := float64(step) / fadeSteps
			for id, target := range targets {
				from := start[id].Volume
				volume := from + (target.Volume-from)*fraction
				if err := c.mixer.SetVolume(id, volume); err != nil {
					c.logger.Debug("set volume failed", "entity", id, "error", err)
				}
			}
		}
		if !consume {
			return
		}
		for id, target := range targets {
			if err := c.mixer.SetMute(id, target.Muted); err != nil {
				c.logger.Debug("restore mute failed", "entity", id, "error", err)
			}
		}
		c.mu.Lock()
		if gen == c.gen {
			c.snapshot = nil
		}
		c.mu.Unlock()
	}()
}

// cancelRampLocked stops the in-flight ramp goroutine. Caller holds c.mu.
func (c *Coordinator) cancelRampLocked() {
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

// Mute is the binary fallback: hard-mute every playback entity.
func (c *Coordinator) Mute() error {
	return c.setMuted(true)
}

// Unmute reverses Mute.
func (c *Coordinator) Unmute() error {
	return c.setMuted(false)
}

// ToggleMute flips the binary mute state and reports the new state.
func (c *Coordinator) ToggleMute() (bool, error) {
	c.mu.Lock()
	target := !c.muted
	c.mu.Unlock()
	if err := c.setMuted(target); err != nil {
		return !target, err
	}
	return target, nil
}

// IsMuted reports the binary mute state last set through this coordinator.
func (c *Coordinator) IsMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Coordinator) setMuted(muted bool) error {
	levels, err := c.mixer.Levels()
	if err != nil {
		return fmt.Errorf("read mixer levels: %w", err)
	}
	for id := range levels {
		if err := c.mixer.SetMute(id, muted); err != nil {
			return fmt.Errorf("set mute on %q: %w", id, err)
		}
	}
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
	return nil
}

// Close cancels any in-flight ramp and restores an outstanding snapshot
// immediately. Recording teardown calls this so volume never stays ducked
// past process exit.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.cancelRampLocked()
	snapshot := c.snapshot
	c.snapshot = nil
	c.mu.Unlock()

	c.wg.Wait()

	for id, level := range snapshot {
		if err := c.mixer.SetVolume(id, level.Volume); err != nil {
			c.logger.Warn("restore volume failed", "entity", id, "error", err)
		}
		if err := c.mixer.SetMute(id, level.Muted); err != nil {
			c.logger.Warn("restore mute failed", "entity", id, "error", err)
		}
	}
	return nil
}
