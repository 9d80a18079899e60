//go:build !portaudio

package app

import (
	"context"
	"log/slog"

	"github.com/ymiyake/murmur/internal/audio"
	"github.com/ymiyake/murmur/internal/config"
	"github.com/ymiyake/murmur/internal/record"
)

// defaultOpenStream resolves the configured Pulse input source and opens a
// capture stream on it.
func defaultOpenStream(cfg config.Config, logger *slog.Logger) record.OpenStream {
	return func(ctx context.Context) (record.Stream, error) {
		selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn("device selection fallback", "warning", selection.Warning)
		}
		return audio.OpenPulseStream(selection.Device)
	}
}
