// Package audioio captures fixed-duration microphone windows.
//
// Backends:
//   - PortAudio - default input device on the robot or a dev machine
//   - Mock - CI/testing without hardware
//
// The device is opened for every sample window and released afterwards, so
// other processes may use the microphone between cycles.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendAuto selects PortAudio.
	BackendAuto Backend = "auto"
	// BackendPortAudio captures through the PortAudio default input.
	BackendPortAudio Backend = "portaudio"
	// BackendMock generates synthetic audio.
	BackendMock Backend = "mock"
)

// Config holds capture configuration.
type Config struct {
	// Backend specifies which backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the capture rate in Hz.
	// Default: 44100
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of input channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// ChunkFrames is the number of frames read per device call.
	// Default: 1024
	ChunkFrames int `yaml:"chunk_frames" json:"chunk_frames"`
}

// DefaultConfig returns mono 16-bit capture at 44.1 kHz in 1024-frame chunks.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendAuto,
		SampleRate:  44100,
		Channels:    1,
		ChunkFrames: 1024,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("only mono capture is supported, got %d channels", c.Channels)
	}
	if c.ChunkFrames <= 0 {
		return fmt.Errorf("chunk_frames must be positive, got %d", c.ChunkFrames)
	}
	switch c.Backend {
	case BackendAuto, BackendPortAudio, BackendMock, "":
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	return nil
}

// ChunkDuration returns the wall time covered by one chunk.
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(float64(c.ChunkFrames) / float64(c.SampleRate) * float64(time.Second))
}

// FramesFor returns the number of frames needed to cover d.
func (c *Config) FramesFor(d time.Duration) int {
	return int(float64(c.SampleRate) * d.Seconds())
}
