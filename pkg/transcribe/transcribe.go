// Package transcribe converts captured utterances to text.
package transcribe

import (
	"context"
	"errors"

	"github.com/teslashibe/go-emo/pkg/audioio"
)

var (
	// ErrNoSpeech means the service heard nothing intelligible.
	ErrNoSpeech = errors.New("transcribe: no speech detected")

	// ErrUnavailable wraps service and transport failures.
	ErrUnavailable = errors.New("transcribe: service unavailable")
)

// Transcriber turns an utterance into text. Both ErrNoSpeech and
// ErrUnavailable mean "no actionable input" to callers.
type Transcriber interface {
	Transcribe(ctx context.Context, u audioio.Utterance) (string, error)
}

// Func adapts a function to Transcriber.
type Func func(ctx context.Context, u audioio.Utterance) (string, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, u audioio.Utterance) (string, error) {
	return f(ctx, u)
}
