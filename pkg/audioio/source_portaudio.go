package audioio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice captures from the system default input device.
type PortAudioDevice struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newPortAudioDevice(cfg Config, logger *slog.Logger) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %v", ErrDeviceUnavailable, err)
	}
	return &PortAudioDevice{cfg: cfg, logger: logger}, nil
}

// Open starts a blocking input stream on the default device.
func (d *PortAudioDevice) Open() (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("%w: device closed", ErrDeviceUnavailable)
	}

	buf := make([]int16, d.cfg.ChunkFrames*d.cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(d.cfg.Channels, 0, float64(d.cfg.SampleRate), d.cfg.ChunkFrames, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: start: %v", ErrDeviceUnavailable, err)
	}

	return &portAudioStream{stream: stream, buf: buf}, nil
}

// Name returns "portaudio".
func (d *PortAudioDevice) Name() string {
	return string(BackendPortAudio)
}

// Close terminates PortAudio.
func (d *PortAudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream *portaudio.Stream
	buf    []int16
}

// Read blocks for one chunk. Input overflow is reported by PortAudio as an
// error; the chunk is still filled and the caller decides.
func (s *portAudioStream) Read(buf []int16) error {
	if len(buf) != len(s.buf) {
		return fmt.Errorf("read buffer has %d samples, stream expects %d", len(buf), len(s.buf))
	}
	if err := s.stream.Read(); err != nil {
		return fmt.Errorf("portaudio read: %w", err)
	}
	copy(buf, s.buf)
	return nil
}

func (s *portAudioStream) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	if stopErr != nil {
		return stopErr
	}
	return closeErr
}
