package duck

import "sync"

// NoopMixer satisfies Mixer without touching any platform API. It tracks a
// single synthetic entity in memory so fade and mute flows remain fully
// exercisable on hosts with no mixer at all.
type NoopMixer struct {
	mu     sync.Mutex
	levels map[string]Level
}

// NewNoopMixer returns a mixer with one full-volume entity.
func NewNoopMixer() *NoopMixer {
	return &NoopMixer{
		levels: map[string]Level{
			"default": {Volume: 1},
		},
	}
}

func (m *NoopMixer) Levels() (map[string]Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Level, len(m.levels))
	for id, level := range m.levels {
		out[id] = level
	}
	return out, nil
}

func (m *NoopMixer) SetVolume(id string, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	level := m.levels[id]
	level.Volume = volume
	m.levels[id] = level
	return nil
}

func (m *NoopMixer) SetMute(id string, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	level := m.levels[id]
	level.Muted = muted
	m.levels[id] = level
	return nil
}
