package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ymiyake/murmur/internal/config"
	"github.com/ymiyake/murmur/internal/duck"
	"github.com/ymiyake/murmur/internal/fsm"
	"github.com/ymiyake/murmur/internal/gesture"
	"github.com/ymiyake/murmur/internal/hotkey"
	"github.com/ymiyake/murmur/internal/ipc"
	"github.com/ymiyake/murmur/internal/record"
	"github.com/ymiyake/murmur/internal/transcribe"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStream struct {
	mu   sync.Mutex
	sink func([]byte)
}

func (f *fakeStream) Start(onFrame func([]byte)) error {
	f.mu.Lock()
	f.sink = onFrame
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Stop() error { return nil }

func (f *fakeStream) push(frame []byte) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	sink(frame)
}

type fakeSource struct {
	mu   sync.Mutex
	sink func(gesture.KeyEvent)
}

func (f *fakeSource) Start(sink func(gesture.KeyEvent)) error {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) Stop() error { return nil }

func (f *fakeSource) press(name string, at time.Time) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	sink(gesture.KeyEvent{Name: name, Edge: gesture.KeyDown, At: at})
}

type fakeTranscriber struct {
	results chan record.Clip
}

func (f *fakeTranscriber) Transcribe(_ context.Context, clip record.Clip) (transcribe.Result, error) {
	f.results <- clip
	return transcribe.Result{Text: "ok"}, nil
}

func loudFrame() []byte {
	frame := make([]byte, 6400)
	high, low := int16(8000), int16(-8000)
	for i := 0; i < len(frame); i += 4 {
		binary.LittleEndian.PutUint16(frame[i:], uint16(high))
		binary.LittleEndian.PutUint16(frame[i+2:], uint16(low))
	}
	return frame
}

func testOptions(stream *fakeStream, source *fakeSource) Options {
	cfg := config.Default()
	cfg.Ducking.FadeMS = 5
	return Options{
		Config:     cfg,
		Logger:     quietLogger(),
		OpenStream: func(context.Context) (record.Stream, error) { return stream, nil },
		Mixer:      duck.NewNoopMixer(),
		NewSource: func(gesture.Combo, bool) (hotkey.Source, error) {
			return source, nil
		},
	}
}

func startEngine(t *testing.T, opts Options) (*Engine, context.CancelFunc) {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() {
		cancel()
		_ = e.Close()
	})
	return e, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEngineComboToggleRecordsAndTranscribes(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{}
	transcriber := &fakeTranscriber{results: make(chan record.Clip, 1)}

	opts := testOptions(stream, source)
	opts.Transcriber = transcriber

	e, _ := startEngine(t, opts)
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateRecording)
	})
	waitFor(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.sink != nil
	})

	stream.push(loudFrame())

	source.press("ctrl+shift+space", time.Now().Add(time.Second))
	select {
	case clip := <-transcriber.results:
		require.Equal(t, loudFrame(), clip.PCM)
	case <-time.After(2 * time.Second):
		t.Fatal("clip never reached transcriber")
	}

	state, _ := e.Status()
	require.Equal(t, string(fsm.StateIdle), state)
}

func TestEngineSilentClipIsGated(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{}
	transcriber := &fakeTranscriber{results: make(chan record.Clip, 1)}

	opts := testOptions(stream, source)
	opts.Transcriber = transcriber

	e, _ := startEngine(t, opts)
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	waitFor(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.sink != nil
	})
	stream.push(make([]byte, 6400))

	source.press("ctrl+shift+space", time.Now().Add(time.Second))
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateIdle)
	})

	select {
	case <-transcriber.results:
		t.Fatal("silent clip should not reach transcriber")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEngineDeviceErrorRollsBackToIdle(t *testing.T) {
	source := &fakeSource{}
	deviceErr := errors.New("device busy")

	opts := testOptions(&fakeStream{}, source)
	opts.OpenStream = func(context.Context) (record.Stream, error) { return nil, deviceErr }

	e, _ := startEngine(t, opts)
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateIdle)
	})

	// The classifier accepts a fresh start attempt afterwards.
	source.press("ctrl+shift+space", time.Now().Add(time.Second))
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateIdle)
	})
}

func TestEngineExternalStopResetsGestureState(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{}
	e, _ := startEngine(t, testOptions(stream, source))
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateRecording)
	})

	// A stop arriving over the control socket must bring the gesture state
	// back to idle along with the capture session.
	e.RequestStop()
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateIdle)
	})

	// The next press starts a fresh recording instead of being swallowed
	// as a spurious stop.
	source.press("ctrl+shift+space", time.Now().Add(time.Second))
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateRecording)
	})
}

func TestEngineCancelDiscardsClip(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{}
	transcriber := &fakeTranscriber{results: make(chan record.Clip, 1)}

	opts := testOptions(stream, source)
	opts.Transcriber = transcriber

	e, _ := startEngine(t, opts)
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	waitFor(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.sink != nil
	})
	stream.push(loudFrame())

	e.RequestCancel()
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateIdle)
	})

	select {
	case <-transcriber.results:
		t.Fatal("cancelled clip should not reach transcriber")
	case <-time.After(100 * time.Millisecond):
	}

	// A fresh start is accepted after cancel.
	source.press("ctrl+shift+space", time.Now().Add(time.Second))
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateRecording)
	})
}

func TestEngineStopWithoutStartIsNoOp(t *testing.T) {
	e, _ := startEngine(t, testOptions(&fakeStream{}, &fakeSource{}))

	e.RequestStop()
	time.Sleep(50 * time.Millisecond)

	state, _ := e.Status()
	require.Equal(t, string(fsm.StateIdle), state)
}

func TestEngineToggleMute(t *testing.T) {
	e, _ := startEngine(t, testOptions(&fakeStream{}, &fakeSource{}))

	e.RequestToggleMute()
	waitFor(t, func() bool {
		_, muted := e.Status()
		return muted
	})

	e.RequestToggleMute()
	waitFor(t, func() bool {
		_, muted := e.Status()
		return !muted
	})
}

func TestEngineConfigureRejectsBadCombo(t *testing.T) {
	e, _ := startEngine(t, testOptions(&fakeStream{}, &fakeSource{}))

	cfg := config.Default()
	cfg.Gesture.Combo = "space+ctrl"
	require.ErrorIs(t, e.Configure(cfg), gesture.ErrBadCombo)

	// Previous configuration still classifies.
	state, _ := e.Status()
	require.Equal(t, string(fsm.StateIdle), state)
}

func TestEngineConfigureSwapsClassifier(t *testing.T) {
	source := &fakeSource{}
	e, _ := startEngine(t, testOptions(&fakeStream{}, source))
	require.NoError(t, e.StartListening())

	cfg := config.Default()
	cfg.Gesture.Combo = "ctrl+alt+m"
	require.NoError(t, e.Configure(cfg))

	source.press("ctrl+alt+m", time.Now())
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateRecording)
	})
}

func TestEngineOnCommandObserver(t *testing.T) {
	source := &fakeSource{}
	var mu sync.Mutex
	var seen []gesture.Command

	opts := testOptions(&fakeStream{}, source)
	opts.OnCommand = func(cmd gesture.Command) {
		mu.Lock()
		seen = append(seen, cmd)
		mu.Unlock()
	}

	e, _ := startEngine(t, opts)
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	source.press("ctrl+shift+space", time.Now().Add(time.Second))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []gesture.Command{gesture.StartRecording, gesture.StopRecording}, seen)
}

func TestEngineHandlerCommands(t *testing.T) {
	e, _ := startEngine(t, testOptions(&fakeStream{}, &fakeSource{}))
	handler := e.Handler()

	resp := handler.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateIdle), resp.State)

	resp = handler.Handle(context.Background(), ipc.Request{Command: "mute"})
	require.True(t, resp.OK)
	waitFor(t, func() bool {
		_, muted := e.Status()
		return muted
	})

	resp = handler.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, resp.OK)

	resp = handler.Handle(context.Background(), ipc.Request{Command: "cancel"})
	require.True(t, resp.OK)
	require.Contains(t, resp.Message, "cancel")

	resp = handler.Handle(context.Background(), ipc.Request{Command: "mystery"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}

func TestEngineCloseWithOpenRecording(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{}
	e, cancel := startEngine(t, testOptions(stream, source))
	require.NoError(t, e.StartListening())

	source.press("ctrl+shift+space", time.Now())
	waitFor(t, func() bool {
		state, _ := e.Status()
		return state == string(fsm.StateRecording)
	})

	cancel()
	require.NoError(t, e.Close())
	// Second close is idempotent.
	require.NoError(t, e.Close())
}
