// Package transcribe hands finished clips to an external speech-to-text
// service. The engine treats it as a collaborator: transcription failures
// never affect gesture or recording state.
package transcribe

import (
	"context"
	"errors"

	"github.com/ymiyake/murmur/internal/record"
)

// ErrNotConfigured is returned when no transcription backend is set up.
var ErrNotConfigured = errors.New("transcription is not configured")

// Result is one finished transcription.
type Result struct {
	Text     string
	Language string
}

// Transcriber converts a recorded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip record.Clip) (Result, error)
}

// Disabled satisfies Transcriber when no backend is configured, so the
// recording flow stays exercisable without credentials.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, record.Clip) (Result, error) {
	return Result{}, ErrNotConfigured
}
