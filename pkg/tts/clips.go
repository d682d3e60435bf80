package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const providerClips = "clips"

// Clips serves pre-recorded MP3 files for fixed phrases such as the
// processing and quiet prompts, so they still play when the speech API is
// unreachable.
type Clips struct {
	dir     string
	phrases map[string]string
}

// NewClips maps phrases to file names under dir. Phrase matching ignores
// case and surrounding space.
func NewClips(dir string, phrases map[string]string) *Clips {
	m := make(map[string]string, len(phrases))
	for text, file := range phrases {
		m[normalizePhrase(text)] = file
	}
	return &Clips{dir: dir, phrases: m}
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Synthesize returns the recording for text or ErrUnknownPhrase.
func (c *Clips) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	file, ok := c.phrases[normalizePhrase(text)]
	if !ok {
		return nil, WrapError(providerClips, ErrUnknownPhrase)
	}
	data, err := os.ReadFile(filepath.Join(c.dir, file))
	if err != nil {
		return nil, WrapError(providerClips, fmt.Errorf("read %s: %w", file, err))
	}
	return &AudioResult{
		Audio:     data,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: SampleRateFromEncoding(EncodingMP3), Channels: 1},
		CharCount: len(text),
	}, nil
}

// Health checks that the clip directory exists.
func (c *Clips) Health(ctx context.Context) error {
	if _, err := os.Stat(c.dir); err != nil {
		return WrapError(providerClips, err)
	}
	return nil
}

// Close is a no-op.
func (c *Clips) Close() error {
	return nil
}

var _ Provider = (*Clips)(nil)
