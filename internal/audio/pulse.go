package audio

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the fixed capture rate: 16kHz mono s16.
	SampleRate = 16000

	frameSizeBytes = 640 // 20ms @ 16kHz mono s16
)

// PulseStream captures fixed-size PCM frames from one Pulse source and
// hands them to a caller-supplied frame sink. Frames are delivered on the
// Pulse driver goroutine; the sink must be fast and must not call back
// into the stream.
type PulseStream struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	onFrame func([]byte)
	stopCh  chan struct{}

	mu      sync.Mutex
	pending []byte
	started bool
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// OpenPulseStream connects to the Pulse server and resolves the selected
// source. The stream is created but idle until Start.
func OpenPulseStream(selected Device) (*PulseStream, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	s := &PulseStream{
		device: selected,
		client: client,
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(frameSizeBytes),
		pulse.RecordMediaName("murmur dictation"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Device returns capture metadata for logging and diagnostics.
func (s *PulseStream) Device() Device {
	return s.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (s *PulseStream) BytesCaptured() int64 {
	return s.bytes.Load()
}

// Start begins capture, delivering frameSizeBytes slices to onFrame.
func (s *PulseStream) Start(onFrame func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("pulse stream already stopped")
	}
	if s.started {
		return fmt.Errorf("pulse stream already started")
	}
	if onFrame == nil {
		return fmt.Errorf("frame sink is required")
	}
	s.onFrame = onFrame
	s.started = true
	s.stream.Start()
	return nil
}

// Stop halts capture, flushes the residual partial frame, and releases the
// Pulse connection. Safe to call more than once.
func (s *PulseStream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	if s.client != nil {
		s.client.Close()
	}

	s.inflight.Wait()

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	sink := s.onFrame
	s.mu.Unlock()

	if len(pending) > 0 && sink != nil {
		frame := make([]byte, len(pending))
		copy(frame, pending)
		sink(frame)
	}
	return nil
}

// onPCM receives raw Pulse buffers and emits frameSizeBytes slices to the sink.
func (s *PulseStream) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-s.stopCh:
		return 0, io.EOF
	default:
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as s.stopped to avoid Add/Wait races.
	s.inflight.Add(1)

	s.pending = append(s.pending, buffer...)
	frames := make([][]byte, 0, len(s.pending)/frameSizeBytes)
	for len(s.pending) >= frameSizeBytes {
		frame := make([]byte, frameSizeBytes)
		copy(frame, s.pending[:frameSizeBytes])
		s.pending = s.pending[frameSizeBytes:]
		frames = append(frames, frame)
	}
	sink := s.onFrame
	s.mu.Unlock()
	defer s.inflight.Done()

	s.bytes.Add(int64(len(buffer)))

	for _, frame := range frames {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		default:
		}
		sink(frame)
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
