package audioio

import (
	"fmt"
	"log/slog"
)

// NewDevice creates a capture device for cfg.Backend.
// BackendAuto selects PortAudio.
func NewDevice(cfg Config, logger *slog.Logger) (Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto || backend == "" {
		backend = BackendPortAudio
	}

	logger.Info("creating audio device",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"chunk_frames", cfg.ChunkFrames,
	)

	switch backend {
	case BackendMock:
		return NewMockDevice(cfg, logger), nil
	case BackendPortAudio:
		return newPortAudioDevice(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// AvailableBackends returns the selectable backends.
func AvailableBackends() []Backend {
	return []Backend{BackendPortAudio, BackendMock}
}
