package duck

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// volumeNorm is the PulseAudio volume value for 100%.
const volumeNorm = 0x10000

// PulseMixer drives sink volume and mute over the native Pulse protocol.
// Entities are sinks, keyed by sink name.
type PulseMixer struct {
	client *pulse.Client

	mu       sync.Mutex
	channels map[string]int
}

// NewPulseMixer connects to the Pulse server. Callers fall back to the
// no-op mixer when this fails; ducking is never a precondition for
// recording.
func NewPulseMixer() (*PulseMixer, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("murmur"),
		pulse.ClientApplicationIconName("audio-volume-high"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return &PulseMixer{
		client:   client,
		channels: make(map[string]int),
	}, nil
}

// Levels reads every sink's current volume and mute state.
func (m *PulseMixer) Levels() (map[string]Level, error) {
	var sinks pulseproto.GetSinkInfoListReply
	if err := m.client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinks); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	levels := make(map[string]Level, len(sinks))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		levels[sink.SinkName] = Level{
			Volume: averageVolume(sink.ChannelVolumes),
			Muted:  sink.Mute,
		}
		m.channels[sink.SinkName] = len(sink.ChannelVolumes)
	}
	return levels, nil
}

// SetVolume sets all channels of the named sink to the given level.
func (m *PulseMixer) SetVolume(id string, volume float64) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	m.mu.Lock()
	n := m.channels[id]
	m.mu.Unlock()
	if n == 0 {
		n = 2
	}

	volumes := make(pulseproto.ChannelVolumes, n)
	for i := range volumes {
		volumes[i] = uint32(volume * volumeNorm)
	}

	err := m.client.RawRequest(&pulseproto.SetSinkVolume{
		SinkIndex:      pulseproto.Undefined,
		SinkName:       id,
		ChannelVolumes: volumes,
	}, nil)
	if err != nil {
		return fmt.Errorf("set sink %q volume: %w", id, err)
	}
	return nil
}

// SetMute sets the named sink's mute flag.
func (m *PulseMixer) SetMute(id string, muted bool) error {
	err := m.client.RawRequest(&pulseproto.SetSinkMute{
		SinkIndex: pulseproto.Undefined,
		SinkName:  id,
		Mute:      muted,
	}, nil)
	if err != nil {
		return fmt.Errorf("set sink %q mute: %w", id, err)
	}
	return nil
}

// Close releases the Pulse connection.
func (m *PulseMixer) Close() error {
	m.client.Close()
	return nil
}

// averageVolume collapses per-channel volumes to one normalized value.
func averageVolume(volumes pulseproto.ChannelVolumes) float64 {
	if len(volumes) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range volumes {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(volumes)) / volumeNorm
}
