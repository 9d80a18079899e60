package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ymiyake/murmur/internal/audio"
	"github.com/ymiyake/murmur/internal/cli"
	"github.com/ymiyake/murmur/internal/config"
	"github.com/ymiyake/murmur/internal/doctor"
	"github.com/ymiyake/murmur/internal/duck"
	"github.com/ymiyake/murmur/internal/engine"
	"github.com/ymiyake/murmur/internal/ipc"
	"github.com/ymiyake/murmur/internal/logging"
	"github.com/ymiyake/murmur/internal/record"
	"github.com/ymiyake/murmur/internal/transcribe"
	"github.com/ymiyake/murmur/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New(parsed.Debug)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, "cancel")
	case cli.CommandMute:
		return r.forwardOrFail(ctx, "mute")
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger, filepath.Dir(logRuntime.Path))
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		state := resp.State
		if state == "" {
			state = "idle"
		}
		if resp.Muted {
			state += " (muted)"
		}
		fmt.Fprintln(r.Stdout, state)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active murmur session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRun owns the long-lived session: one control socket, one engine,
// one hotkey hook. It returns when the context is cancelled by a signal.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger, stateDir string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: murmur session already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	var mixer duck.Mixer
	pulseMixer, err := duck.NewPulseMixer()
	if err != nil {
		logger.Warn("sink mixer unavailable, ducking and mute disabled", "error", err.Error())
	} else {
		mixer = pulseMixer
		defer func() { _ = pulseMixer.Close() }()
	}

	transcriber := r.buildTranscriber(cfg, logger, stateDir)

	eng, err := engine.New(engine.Options{
		Config:      cfg,
		Logger:      logger,
		OpenStream:  defaultOpenStream(cfg, logger),
		Mixer:       mixer,
		Transcriber: transcriber,
		OnTranscript: func(result transcribe.Result) {
			text := strings.TrimSpace(result.Text)
			if text != "" {
				fmt.Fprintln(r.Stdout, text)
			}
		},
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = eng.Close() }()

	if err := eng.StartListening(); err != nil {
		fmt.Fprintf(r.Stderr, "error: register hotkey: %v\n", err)
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, eng.Handler())
	}()

	eng.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("session ended")
	return 0
}

// buildTranscriber wires the Whisper client, degrading to the disabled
// transcriber when no API key is configured. Audio dump wraps whichever
// transcriber is active.
func (r Runner) buildTranscriber(cfg config.Config, logger *slog.Logger, stateDir string) transcribe.Transcriber {
	var transcriber transcribe.Transcriber

	whisper, err := transcribe.NewWhisper(transcribe.WhisperConfig{
		Endpoint: cfg.Transcribe.Endpoint,
		APIKey:   cfg.Transcribe.APIKey,
		Model:    cfg.Transcribe.Model,
		Language: cfg.Transcribe.Language,
		Timeout:  time.Duration(cfg.Transcribe.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		if errors.Is(err, transcribe.ErrNotConfigured) {
			logger.Info("transcription disabled, no api key configured")
		} else {
			logger.Error("transcriber setup failed", "error", err.Error())
		}
		transcriber = transcribe.Disabled{}
	} else {
		transcriber = whisper
	}

	if cfg.Debug.EnableAudioDump {
		transcriber = dumpingTranscriber{
			inner:  transcriber,
			dir:    filepath.Join(stateDir, "dumps"),
			logger: logger,
		}
	}
	return transcriber
}

// dumpingTranscriber writes each clip to a timestamped WAV file before
// delegating. Dump failures never block transcription.
type dumpingTranscriber struct {
	inner  transcribe.Transcriber
	dir    string
	logger *slog.Logger
}

func (d dumpingTranscriber) Transcribe(ctx context.Context, clip record.Clip) (transcribe.Result, error) {
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		d.logger.Warn("audio dump dir failed", "error", err.Error())
	} else {
		path := filepath.Join(d.dir, time.Now().Format("20060102-150405.000")+".wav")
		if err := os.WriteFile(path, record.EncodeWAV(clip), 0o600); err != nil {
			d.logger.Warn("audio dump failed", "error", err.Error())
		} else {
			d.logger.Debug("audio dump written", "path", path, "bytes", len(clip.PCM))
		}
	}
	return d.inner.Transcribe(ctx, clip)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
