package audioio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Utterance is one captured window and its loudness.
type Utterance struct {
	// Samples are mono PCM16 samples.
	Samples []int16

	// SampleRate of Samples in Hz.
	SampleRate int

	// Loudness is the RMS of Samples in raw sample units (0..32767).
	Loudness float64
}

// Empty reports whether the utterance carries no audio.
func (u Utterance) Empty() bool {
	return len(u.Samples) == 0
}

// Duration returns the captured wall time.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(u.Samples)) / float64(u.SampleRate) * float64(time.Second))
}

// WAV encodes the utterance as a 16-bit mono RIFF/WAVE file.
func (u Utterance) WAV() ([]byte, error) {
	return EncodeWAV(u.Samples, u.SampleRate)
}

// RMS returns sqrt(mean(x^2)) over the samples, 0 for no samples.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Sampler captures fixed-duration windows from a Device.
type Sampler struct {
	dev    Device
	cfg    Config
	logger *slog.Logger
}

// NewSampler creates a sampler over dev.
func NewSampler(dev Device, cfg Config, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		dev:    dev,
		cfg:    cfg,
		logger: logger.With("component", "audioio.sampler", "backend", dev.Name()),
	}
}

// Probe opens and closes the device once. Used at startup so a missing
// microphone fails fast instead of degrading every cycle.
func (s *Sampler) Probe() error {
	st, err := s.dev.Open()
	if err != nil {
		return err
	}
	return st.Close()
}

// Sample opens the device, reads whole chunks until d is covered, releases
// the device and returns the window with its loudness. It blocks for d.
//
// Any open or read failure returns an empty zero-loudness utterance along
// with the error; callers treat it as a quiet cycle.
func (s *Sampler) Sample(ctx context.Context, d time.Duration) (Utterance, error) {
	want := s.cfg.FramesFor(d)
	chunk := s.cfg.ChunkFrames
	chunks := (want + chunk - 1) / chunk
	if chunks == 0 {
		return Utterance{SampleRate: s.cfg.SampleRate}, nil
	}

	st, err := s.dev.Open()
	if err != nil {
		return Utterance{SampleRate: s.cfg.SampleRate}, fmt.Errorf("open capture: %w", err)
	}

	samples := make([]int16, chunks*chunk)
	start := time.Now()
	var readErr error
	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}
		if err := st.Read(samples[i*chunk : (i+1)*chunk]); err != nil {
			readErr = fmt.Errorf("read chunk %d: %w", i, err)
			break
		}
	}
	if err := st.Close(); err != nil {
		s.logger.Warn("close capture stream failed", "error", err)
	}
	if readErr != nil {
		return Utterance{SampleRate: s.cfg.SampleRate}, readErr
	}

	u := Utterance{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Loudness:   RMS(samples),
	}
	s.logger.Debug("sampled",
		"frames", len(samples),
		"loudness", u.Loudness,
		"elapsed", time.Since(start),
	)
	return u, nil
}

// IsDeviceError reports whether err came from acquiring the device rather
// than from a single read.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable)
}
