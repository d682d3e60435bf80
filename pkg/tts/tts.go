// Package tts turns reply text into speech audio.
//
// Providers synthesize complete audio buffers. OpenAI is the primary voice;
// Clips serves pre-recorded phrases when the network is down; Cache keeps
// phrases that repeat every turn; Chain tries providers in order. Voice
// plays the result and returns once the phrase has been heard.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceNova),
//	)
//	voice := tts.NewVoice(provider, player, nil)
//	_ = voice.Speak(ctx, "Hello world")
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated playback duration, zero when unknown.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// EncodingPCM24 is raw 24kHz mono PCM16 little-endian.
	EncodingPCM24 Encoding = "pcm"
	// EncodingMP3 is MP3 at the provider's native rate.
	EncodingMP3 Encoding = "mp3"
)

// SampleRateFromEncoding returns the nominal sample rate of enc.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}
