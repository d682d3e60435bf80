package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Player decodes clips and speech and plays them on an Output, one at a time.
type Player struct {
	out    Output
	logger *slog.Logger

	mu       sync.Mutex // serializes playback
	speaking atomic.Bool

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// NewPlayer creates a player on out.
func NewPlayer(out Output, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		out:    out,
		logger: logger.With("component", "audio.player", "output", out.Name()),
	}
}

// PlayFile plays an MP3 file to completion.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read clip: %w", err)
	}
	return p.PlayMP3(ctx, data)
}

// PlayMP3 plays MP3 bytes to completion.
func (p *Player) PlayMP3(ctx context.Context, data []byte) error {
	pcm, err := DecodeMP3(data)
	if err != nil {
		return err
	}
	return p.PlayPCM(ctx, pcm)
}

// PlayPCM plays decoded audio. Concurrent calls queue behind each other.
func (p *Player) PlayPCM(ctx context.Context, pcm PCM) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.speaking.Store(true)
	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	defer func() {
		p.speaking.Store(false)
		if p.OnPlaybackEnd != nil {
			p.OnPlaybackEnd()
		}
	}()

	start := time.Now()
	if err := p.out.Play(ctx, pcm); err != nil {
		return fmt.Errorf("play on %s: %w", p.out.Name(), err)
	}
	p.logger.Debug("played", "duration", pcm.Duration(), "elapsed", time.Since(start))
	return nil
}

// IsSpeaking reports whether audio is playing.
func (p *Player) IsSpeaking() bool {
	return p.speaking.Load()
}

// Close releases the output.
func (p *Player) Close() error {
	return p.out.Close()
}
