package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-emo/pkg/audio"
	"github.com/teslashibe/go-emo/pkg/audioio"
)

// Playback plays synthesized audio to completion.
type Playback interface {
	PlayMP3(ctx context.Context, data []byte) error
	PlayPCM(ctx context.Context, pcm audio.PCM) error
}

// Voice synthesizes text and plays it.
type Voice struct {
	provider Provider
	player   Playback
	logger   *slog.Logger
}

// NewVoice creates a voice over provider and player.
func NewVoice(provider Provider, player Playback, logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		provider: provider,
		player:   player,
		logger:   logger.With("component", "tts.voice"),
	}
}

// Speak synthesizes text and blocks until playback finished. Blank text is
// a no-op.
func (v *Voice) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	start := time.Now()

	result, err := v.provider.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	switch result.Format.Encoding {
	case EncodingMP3:
		err = v.player.PlayMP3(ctx, result.Audio)
	case EncodingPCM24:
		err = v.player.PlayPCM(ctx, audio.PCM{
			Samples:    audioio.BytesToSamples(result.Audio),
			SampleRate: result.Format.SampleRate,
		})
	default:
		err = fmt.Errorf("unsupported encoding %q", result.Format.Encoding)
	}
	if err != nil {
		return fmt.Errorf("play speech: %w", err)
	}

	v.logger.Debug("spoke",
		"chars", len(text),
		"synth_ms", result.LatencyMs,
		"elapsed", time.Since(start),
	)
	return nil
}
