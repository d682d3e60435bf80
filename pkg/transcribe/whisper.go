package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-emo/internal/httpc"
	"github.com/teslashibe/go-emo/pkg/audioio"
)

// Config configures the Whisper adapter.
type Config struct {
	APIKey   string
	BaseURL  string // empty for api.openai.com
	Model    string // default whisper-1
	Language string // ISO-639-1 hint, empty to autodetect
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Whisper transcribes through the OpenAI audio transcription endpoint.
type Whisper struct {
	client   *openai.Client
	model    string
	language string
	logger   *slog.Logger
}

// NewWhisper creates a Whisper adapter.
func NewWhisper(cfg Config) (*Whisper, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key required", ErrUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpc.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &Whisper{
		client:   openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		language: cfg.Language,
		logger:   cfg.Logger.With("component", "transcribe.whisper"),
	}, nil
}

// Transcribe uploads the utterance as WAV. Empty audio and empty
// transcripts return ErrNoSpeech; request failures wrap ErrUnavailable.
func (w *Whisper) Transcribe(ctx context.Context, u audioio.Utterance) (string, error) {
	if u.Empty() {
		return "", ErrNoSpeech
	}

	wav, err := u.WAV()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wav),
		Language: w.language,
	})
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	w.logger.Debug("transcribed",
		"chars", len(text),
		"audio", u.Duration(),
		"latency", time.Since(start),
	)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// classify wraps err in ErrUnavailable, keeping the status code when the
// API returned one.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %v", ErrUnavailable, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ Transcriber = (*Whisper)(nil)
