//go:build portaudio

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortaudioStream is an alternative capture backend for hosts without a
// Pulse server. It reads from the default input device in the same
// 16kHz mono s16 format the Pulse backend produces.
type PortaudioStream struct {
	stream *portaudio.Stream
	buf    []int16

	mu      sync.Mutex
	started bool
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

// OpenPortaudioStream initializes portaudio and opens the default input
// stream. The stream is idle until Start.
func OpenPortaudioStream() (*PortaudioStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	s := &PortaudioStream{
		buf:  make([]int16, frameSizeBytes/2),
		done: make(chan struct{}),
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), len(s.buf), s.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio input stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Start begins capture, delivering frameSizeBytes slices to onFrame from a
// reader goroutine.
func (s *PortaudioStream) Start(onFrame func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("portaudio stream already stopped")
	}
	if s.started {
		return fmt.Errorf("portaudio stream already started")
	}
	if onFrame == nil {
		return fmt.Errorf("frame sink is required")
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start portaudio stream: %w", err)
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			default:
			}
			if err := s.stream.Read(); err != nil {
				return
			}
			frame := make([]byte, len(s.buf)*2)
			for i, sample := range s.buf {
				binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
			}
			onFrame(frame)
		}
	}()
	return nil
}

// Stop halts the reader goroutine and releases portaudio.
func (s *PortaudioStream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.done)
	if started {
		_ = s.stream.Stop()
	}
	s.wg.Wait()
	_ = s.stream.Close()
	_ = portaudio.Terminate()
	return nil
}
