package audioio

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockDevice is a mock capture device for testing and off-robot development.
// It generates silence, a sine wave, or a scripted constant level per window.
type MockDevice struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	levels    []int16
	opens     int
	openErr   error
	readErr   error
	failAfter int
	realtime  bool
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0

	chunksRead atomic.Int64
}

// MockDeviceOption configures a MockDevice.
type MockDeviceOption func(*MockDevice)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockDeviceOption {
	return func(m *MockDevice) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithLevels scripts one constant-magnitude window per Open. The signal
// alternates sign, so its RMS equals the level. After the script runs out
// the device falls back to silence or the sine wave.
func WithLevels(levels ...int16) MockDeviceOption {
	return func(m *MockDevice) {
		m.levels = append(m.levels, levels...)
	}
}

// WithOpenError makes every Open fail with err.
func WithOpenError(err error) MockDeviceOption {
	return func(m *MockDevice) {
		m.openErr = err
	}
}

// WithReadError makes reads fail with err after n successful chunks.
func WithReadError(n int, err error) MockDeviceOption {
	return func(m *MockDevice) {
		m.failAfter = n
		m.readErr = err
	}
}

// WithRealtime makes each read block for the chunk duration.
func WithRealtime() MockDeviceOption {
	return func(m *MockDevice) {
		m.realtime = true
	}
}

// NewMockDevice creates a new mock capture device.
func NewMockDevice(cfg Config, logger *slog.Logger, opts ...MockDeviceOption) *MockDevice {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockDevice{cfg: cfg, logger: logger, amplitude: 0.5}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a synthetic stream.
func (m *MockDevice) Open() (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrDeviceUnavailable
	}
	if m.openErr != nil {
		return nil, errors.Join(ErrDeviceUnavailable, m.openErr)
	}

	s := &mockStream{dev: m, level: -1}
	if m.opens < len(m.levels) {
		s.level = int(m.levels[m.opens])
	}
	m.opens++
	return s, nil
}

// Opens returns how many streams were opened.
func (m *MockDevice) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// ChunksRead returns the total number of chunks delivered.
func (m *MockDevice) ChunksRead() int64 {
	return m.chunksRead.Load()
}

// Name returns "mock".
func (m *MockDevice) Name() string {
	return string(BackendMock)
}

// Close releases resources.
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type mockStream struct {
	dev    *MockDevice
	level  int // -1 means unscripted
	phase  float64
	reads  int
	closed bool
}

func (s *mockStream) Read(buf []int16) error {
	if s.closed {
		return ErrDeviceUnavailable
	}
	m := s.dev
	if m.readErr != nil && s.reads >= m.failAfter {
		return m.readErr
	}
	s.reads++

	switch {
	case s.level >= 0:
		for i := range buf {
			if i%2 == 0 {
				buf[i] = int16(s.level)
			} else {
				buf[i] = int16(-s.level)
			}
		}
	case m.frequency > 0:
		for i := range buf {
			v := m.amplitude * math.Sin(2*math.Pi*m.frequency*s.phase/float64(m.cfg.SampleRate))
			buf[i] = int16(v * 32767)
			s.phase++
			if s.phase >= float64(m.cfg.SampleRate) {
				s.phase = 0
			}
		}
	default:
		clear(buf)
	}

	if m.realtime {
		time.Sleep(m.cfg.ChunkDuration())
	}
	m.chunksRead.Add(1)
	return nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

var (
	_ Device = (*MockDevice)(nil)
	_ Device = (*PortAudioDevice)(nil)
)
