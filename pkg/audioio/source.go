package audioio

import (
	"errors"
	"io"
)

// ErrDeviceUnavailable is returned when the capture device cannot be opened.
var ErrDeviceUnavailable = errors.New("audioio: capture device unavailable")

// Device opens capture streams on a microphone or other input.
type Device interface {
	// Open acquires the device and starts capturing.
	Open() (Stream, error)

	// Name returns the backend name (e.g., "portaudio", "mock").
	Name() string

	// Close releases backend resources. Streams must be closed first.
	io.Closer
}

// Stream is one open capture session.
type Stream interface {
	// Read fills buf with the next chunk of PCM16 samples, blocking until
	// the chunk is available. len(buf) must equal the configured chunk size.
	Read(buf []int16) error

	// Close stops capture and releases the device.
	io.Closer
}
