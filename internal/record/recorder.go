// Package record owns the capture lifecycle: opening at most one stream at
// a time, accumulating PCM frames, and producing a finished clip on stop.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ymiyake/murmur/internal/audio"
)

// ErrAlreadyRecording is returned by Start while a stream is open.
var ErrAlreadyRecording = errors.New("recording already in progress")

// Stream is one open capture session. Implementations deliver fixed-size
// PCM frames to the sink passed to Start from their own driver goroutine.
type Stream interface {
	Start(onFrame func([]byte)) error
	Stop() error
}

// OpenStream opens a capture stream against the configured device. Errors
// here are device errors: the recorder stays idle and reports them upward.
type OpenStream func(ctx context.Context) (Stream, error)

// Clip is the result of one finished recording. PCM may be empty when the
// stream produced no frames; that is not an error.
type Clip struct {
	PCM        []byte
	Duration   time.Duration
	SampleRate int
}

// Recorder enforces the at-most-one-open-stream invariant and buffers
// frames between Start and Stop. Frame appends take only the buffer lock,
// never the recorder lock, so capture is not stalled by control traffic.
type Recorder struct {
	open    OpenStream
	logger  *slog.Logger
	onLevel func(float64)

	mu        sync.Mutex
	stream    Stream
	buf       *frameBuffer
	startedAt time.Time
}

// Option configures optional recorder behavior.
type Option func(*Recorder)

// WithLevelObserver registers a callback invoked per frame with the mean
// absolute sample level in [0, 1]. Called on the driver goroutine.
func WithLevelObserver(fn func(float64)) Option {
	return func(r *Recorder) {
		r.onLevel = fn
	}
}

// NewRecorder builds an idle recorder over the given stream opener.
func NewRecorder(open OpenStream, logger *slog.Logger, opts ...Option) (*Recorder, error) {
	if open == nil {
		return nil, fmt.Errorf("stream opener is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{open: open, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Recording reports whether a stream is currently open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Start opens a stream and begins buffering frames. A second Start while
// one is open returns ErrAlreadyRecording and leaves the open stream
// untouched.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return ErrAlreadyRecording
	}

	stream, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("open capture stream: %w", err)
	}

	buf := &frameBuffer{}
	onLevel := r.onLevel
	sink := func(frame []byte) {
		buf.append(frame)
		if onLevel != nil {
			onLevel(MeanLevel(frame))
		}
	}

	if err := stream.Start(sink); err != nil {
		_ = stream.Stop()
		return fmt.Errorf("start capture stream: %w", err)
	}

	r.stream = stream
	r.buf = buf
	r.startedAt = time.Now()
	r.logger.Info("recording started")
	return nil
}

// Stop closes the open stream and returns everything buffered since Start.
// An empty buffer yields an empty clip, not an error, and stopping while
// idle is a valid no-op that returns an empty clip.
func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	stream := r.stream
	buf := r.buf
	startedAt := r.startedAt
	r.stream = nil
	r.buf = nil
	r.mu.Unlock()

	if stream == nil {
		return Clip{}, nil
	}

	// Stop flushes any residual partial frame into the buffer before
	// returning, so take() sees the complete capture.
	err := stream.Stop()
	pcm := buf.take()

	clip := Clip{
		PCM:        pcm,
		Duration:   time.Since(startedAt),
		SampleRate: audio.SampleRate,
	}
	if err != nil {
		return clip, fmt.Errorf("stop capture stream: %w", err)
	}

	r.logger.Info("recording stopped",
		"bytes", len(pcm),
		"duration", clip.Duration.Round(time.Millisecond).String())
	return clip, nil
}

// frameBuffer accumulates PCM under its own lock so appends from the
// driver goroutine never contend with recorder control calls.
type frameBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *frameBuffer) append(frame []byte) {
	b.mu.Lock()
	b.data = append(b.data, frame...)
	b.mu.Unlock()
}

func (b *frameBuffer) take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.data
	b.data = nil
	return data
}
