//go:build portaudio

package app

import (
	"context"
	"log/slog"

	"github.com/ymiyake/murmur/internal/audio"
	"github.com/ymiyake/murmur/internal/config"
	"github.com/ymiyake/murmur/internal/record"
)

// defaultOpenStream opens the system default input through PortAudio.
// Device preferences are ignored on this backend.
func defaultOpenStream(cfg config.Config, logger *slog.Logger) record.OpenStream {
	return func(context.Context) (record.Stream, error) {
		if cfg.Audio.Input != "" && cfg.Audio.Input != "default" {
			logger.Warn("portaudio backend uses the system default input", "requested", cfg.Audio.Input)
		}
		return audio.OpenPortaudioStream()
	}
}
