package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Gesture: GestureConfig{
			Combo:                "ctrl+shift+space",
			HoldThresholdMS:      200,
			DoubleTapThresholdMS: 600,
			TapMaxMS:             500,
			IdleFloorMS:          20,
			RecordingFloorMS:     5,
			DebounceMS:           200,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Ducking: DuckingConfig{
			Enable: true,
			FadeMS: 300,
		},
		Silence: SilenceConfig{
			Enable:             true,
			MeanThreshold:      0.01,
			DeviationThreshold: 0.005,
		},
		Transcribe: TranscribeConfig{
			Model:     "whisper-1",
			TimeoutMS: 60000,
		},
		Debug: DebugConfig{},
	}
}
