// Package engine wires the gesture classifier, dispatcher, recorder, and
// ducking coordinator into one lifecycle: classify on the hook goroutine,
// execute side effects on the control goroutine, capture on the driver
// goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ymiyake/murmur/internal/config"
	"github.com/ymiyake/murmur/internal/dispatch"
	"github.com/ymiyake/murmur/internal/duck"
	"github.com/ymiyake/murmur/internal/gesture"
	"github.com/ymiyake/murmur/internal/hotkey"
	"github.com/ymiyake/murmur/internal/record"
	"github.com/ymiyake/murmur/internal/transcribe"
)

// Options bundles the engine's collaborators. Zero fields select real
// backends; tests inject fakes.
type Options struct {
	Config       config.Config
	Logger       *slog.Logger
	OpenStream   record.OpenStream
	Mixer        duck.Mixer
	Transcriber  transcribe.Transcriber
	NewSource    func(gesture.Combo, bool) (hotkey.Source, error)
	OnCommand    func(gesture.Command)
	OnTranscript func(transcribe.Result)
	OnLevel      func(float64)
}

// Engine owns the recording/ducking orchestration state. All side effects
// run on the single goroutine draining the dispatch queue.
type Engine struct {
	logger       *slog.Logger
	queue        *dispatch.Queue
	recorder     *record.Recorder
	ducker       *duck.Coordinator
	transcriber  transcribe.Transcriber
	newSource    func(gesture.Combo, bool) (hotkey.Source, error)
	onCommand    func(gesture.Command)
	onTranscript func(transcribe.Result)

	mu         sync.Mutex
	cfg        config.Config
	classifier *gesture.Classifier
	source     hotkey.Source
	listening  bool
	closed     bool

	tasks sync.WaitGroup
}

// New builds an engine from validated configuration. A malformed combo
// fails construction; nothing is registered with the OS yet.
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Transcriber == nil {
		opts.Transcriber = transcribe.Disabled{}
	}
	if opts.NewSource == nil {
		opts.NewSource = hotkey.NewSource
	}
	if opts.OpenStream == nil {
		return nil, fmt.Errorf("engine: stream opener is required")
	}

	e := &Engine{
		logger:       opts.Logger,
		queue:        dispatch.NewQueue(0, opts.Logger),
		ducker:       duck.NewCoordinator(opts.Mixer, opts.Logger),
		transcriber:  opts.Transcriber,
		newSource:    opts.NewSource,
		onCommand:    opts.OnCommand,
		onTranscript: opts.OnTranscript,
		cfg:          opts.Config,
	}

	recorder, err := record.NewRecorder(opts.OpenStream, opts.Logger,
		record.WithLevelObserver(opts.OnLevel))
	if err != nil {
		return nil, err
	}
	e.recorder = recorder

	classifier, err := gesture.NewClassifier(gestureConfigFrom(opts.Config.Gesture), e.emit)
	if err != nil {
		return nil, err
	}
	e.classifier = classifier
	return e, nil
}

// Configure atomically replaces the gesture configuration. On a malformed
// combo the previous configuration stays active and listening continues
// uninterrupted.
func (e *Engine) Configure(cfg config.Config) error {
	classifier, err := gesture.NewClassifier(gestureConfigFrom(cfg.Gesture), e.emit)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("engine is closed")
	}

	wasListening := e.listening
	if wasListening {
		if err := e.stopListeningLocked(); err != nil {
			return err
		}
	}

	e.cfg = cfg
	e.classifier = classifier

	if wasListening {
		if err := e.startListeningLocked(); err != nil {
			return err
		}
	}
	e.logger.Info("gesture configuration applied", "combo", cfg.Gesture.Combo)
	return nil
}

// StartListening registers the input hook and begins classifying events.
func (e *Engine) StartListening() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("engine is closed")
	}
	if e.listening {
		return nil
	}
	return e.startListeningLocked()
}

func (e *Engine) startListeningLocked() error {
	source, err := e.newSource(e.classifier.Combo(), e.classifier.Single())
	if err != nil {
		return err
	}
	if err := source.Start(e.handleKey); err != nil {
		return err
	}
	e.source = source
	e.listening = true
	e.logger.Info("listening for gesture", "combo", e.cfg.Gesture.Combo)
	return nil
}

// StopListening unregisters the input hook. Recording state is untouched.
func (e *Engine) StopListening() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.listening {
		return nil
	}
	return e.stopListeningLocked()
}

func (e *Engine) stopListeningLocked() error {
	err := e.source.Stop()
	e.source = nil
	e.listening = false
	if err != nil {
		return fmt.Errorf("stop input source: %w", err)
	}
	return nil
}

// handleKey runs on the hook goroutine. It fetches the current classifier
// under a short lock and classifies inline; side effects leave through the
// queue.
func (e *Engine) handleKey(ev gesture.KeyEvent) {
	e.mu.Lock()
	classifier := e.classifier
	e.mu.Unlock()
	classifier.HandleKey(ev)
}

// emit is the classifier's command sink; it never blocks the hook
// goroutine.
func (e *Engine) emit(cmd gesture.Command) {
	e.queue.Enqueue(cmd)
}

// Run drains the command queue until the context is cancelled. Side
// effects execute here, one command at a time, in arrival order.
func (e *Engine) Run(ctx context.Context) {
	e.queue.Run(ctx, func(cmd gesture.Command) {
		e.handleCommand(ctx, cmd)
	})
}

func (e *Engine) handleCommand(ctx context.Context, cmd gesture.Command) {
	if e.onCommand != nil {
		e.onCommand(cmd)
	}

	switch cmd {
	case gesture.StartRecording:
		e.handleStart(ctx)
	case gesture.StopRecording:
		e.handleStop(ctx)
	case gesture.CancelRecording:
		e.handleCancel()
	case gesture.ToggleMute:
		e.handleToggleMute()
	}
}

// handleStart fades system audio down and opens the capture stream. A
// device failure rolls the classifier back to idle and reverses the fade
// so gesture state never diverges from reality.
func (e *Engine) handleStart(ctx context.Context) {
	fade := e.fadeDuration()
	if fade >= 0 {
		e.ducker.FadeOut(fade)
	}

	if err := e.recorder.Start(ctx); err != nil {
		if errors.Is(err, record.ErrAlreadyRecording) {
			e.logger.Warn("start ignored, recording already open")
			return
		}
		e.logger.Error("microphone open failed", "error", err)
		e.classifierNow().ForceIdle()
		if fade >= 0 {
			e.ducker.FadeIn(fade)
		}
	}
}

// handleStop closes the stream, restores system audio, gates silence, and
// hands real speech to the transcriber off the control goroutine. Stops can
// arrive from outside the gesture path (IPC, shutdown), so the classifier
// is forced back to idle; when the classifier itself emitted the stop it is
// already there.
func (e *Engine) handleStop(ctx context.Context) {
	clip, err := e.recorder.Stop()
	if fade := e.fadeDuration(); fade >= 0 {
		e.ducker.FadeIn(fade)
	}
	e.classifierNow().ForceIdle()
	if err != nil {
		e.logger.Error("capture teardown failed", "error", err)
		if len(clip.PCM) == 0 {
			return
		}
	}
	if len(clip.PCM) == 0 {
		// Stop with nothing open or nothing captured is a valid no-op.
		return
	}

	silence := e.silenceConfig()
	if silence.Enable && !record.HasSpeech(clip.PCM, silence.MeanThreshold, silence.DeviationThreshold) {
		e.logger.Info("clip gated as silence", "bytes", len(clip.PCM))
		return
	}

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		result, err := e.transcriber.Transcribe(ctx, clip)
		if err != nil {
			if errors.Is(err, transcribe.ErrNotConfigured) {
				e.logger.Info("transcription disabled, dropping clip", "bytes", len(clip.PCM))
				return
			}
			e.logger.Error("transcription failed", "error", err)
			return
		}
		e.logger.Info("transcription complete", "chars", len(result.Text))
		if e.onTranscript != nil {
			e.onTranscript(result)
		}
	}()
}

// handleCancel closes any open stream and discards the clip without
// transcription. The classifier is forced back to idle so the next press
// starts fresh.
func (e *Engine) handleCancel() {
	clip, err := e.recorder.Stop()
	if fade := e.fadeDuration(); fade >= 0 {
		e.ducker.FadeIn(fade)
	}
	e.classifierNow().ForceIdle()
	if err != nil {
		e.logger.Error("capture teardown failed", "error", err)
		return
	}
	if len(clip.PCM) > 0 {
		e.logger.Info("recording cancelled", "bytes", len(clip.PCM))
	}
}

func (e *Engine) handleToggleMute() {
	muted, err := e.ducker.ToggleMute()
	if err != nil {
		e.logger.Warn("mute toggle failed", "error", err)
		return
	}
	e.logger.Info("system mute toggled", "muted", muted)
}

// Status reports the current gesture state and binary mute state.
func (e *Engine) Status() (string, bool) {
	return string(e.classifierNow().State()), e.ducker.IsMuted()
}

// RequestStop enqueues a stop command from outside the gesture path
// (IPC, shutdown). Safe from any goroutine.
func (e *Engine) RequestStop() {
	e.queue.Enqueue(gesture.StopRecording)
}

// RequestCancel enqueues a cancel command; the open recording, if any, is
// discarded without transcription.
func (e *Engine) RequestCancel() {
	e.queue.Enqueue(gesture.CancelRecording)
}

// RequestToggleMute enqueues a mute toggle from outside the gesture path.
func (e *Engine) RequestToggleMute() {
	e.queue.Enqueue(gesture.ToggleMute)
}

// Close stops listening, closes any open recording, restores the volume
// snapshot, and waits for in-flight transcriptions.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var firstErr error
	if e.listening {
		firstErr = e.stopListeningLocked()
	}
	e.mu.Unlock()

	if _, err := e.recorder.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.ducker.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	e.tasks.Wait()
	return firstErr
}

func (e *Engine) classifierNow() *gesture.Classifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier
}

func (e *Engine) fadeDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cfg.Ducking.Enable {
		return -1
	}
	return time.Duration(e.cfg.Ducking.FadeMS) * time.Millisecond
}

func (e *Engine) silenceConfig() config.SilenceConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Silence
}

// gestureConfigFrom converts persisted millisecond settings to runtime
// durations.
func gestureConfigFrom(cfg config.GestureConfig) gesture.Config {
	return gesture.Config{
		Combo:              cfg.Combo,
		HoldThreshold:      time.Duration(cfg.HoldThresholdMS) * time.Millisecond,
		DoubleTapThreshold: time.Duration(cfg.DoubleTapThresholdMS) * time.Millisecond,
		TapMax:             time.Duration(cfg.TapMaxMS) * time.Millisecond,
		IdleFloor:          time.Duration(cfg.IdleFloorMS) * time.Millisecond,
		RecordingFloor:     time.Duration(cfg.RecordingFloorMS) * time.Millisecond,
		Debounce:           time.Duration(cfg.DebounceMS) * time.Millisecond,
	}
}
