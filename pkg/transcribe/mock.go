package transcribe

import (
	"context"
	"sync"

	"github.com/teslashibe/go-emo/pkg/audioio"
)

// Mock returns scripted results in order, then ErrNoSpeech.
type Mock struct {
	mu      sync.Mutex
	results []Result
	calls   int
}

// Result is one scripted transcription outcome.
type Result struct {
	Text string
	Err  error
}

// NewMock creates a mock with scripted results.
func NewMock(results ...Result) *Mock {
	return &Mock{results: results}
}

// Heard is shorthand for a successful transcription.
func Heard(text string) Result {
	return Result{Text: text}
}

// Transcribe returns the next scripted result.
func (m *Mock) Transcribe(ctx context.Context, u audioio.Utterance) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i >= len(m.results) {
		return "", ErrNoSpeech
	}
	r := m.results[i]
	return r.Text, r.Err
}

// Calls returns how many times Transcribe was called.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ Transcriber = (*Mock)(nil)
