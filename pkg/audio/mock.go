package audio

import (
	"context"
	"sync"
	"time"
)

// MockOutput records plays. With Realtime set it blocks for each clip's
// duration, otherwise for Delay.
type MockOutput struct {
	Realtime bool
	Delay    time.Duration
	Err      error

	mu    sync.Mutex
	plays []PCM
}

// Play records pcm and waits.
func (m *MockOutput) Play(ctx context.Context, pcm PCM) error {
	m.mu.Lock()
	m.plays = append(m.plays, pcm)
	err := m.Err
	m.mu.Unlock()

	wait := m.Delay
	if m.Realtime {
		wait = pcm.Duration()
	}
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// Plays returns everything played so far.
func (m *MockOutput) Plays() []PCM {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PCM(nil), m.plays...)
}

// Name returns "mock".
func (m *MockOutput) Name() string {
	return "mock"
}

// Close is a no-op.
func (m *MockOutput) Close() error {
	return nil
}

var (
	_ Output = (*MockOutput)(nil)
	_ Output = (*SpeakerOutput)(nil)
	_ Output = (*RTPOutput)(nil)
)
