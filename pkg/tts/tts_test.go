package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-emo/pkg/audio"
	"github.com/teslashibe/go-emo/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.SampleRate != 24000 {
			t.Errorf("expected 24000 sample rate, got %d", result.Format.SampleRate)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		_ = mock.Health(ctx)
		if len(mock.Calls()) != 2 {
			t.Errorf("expected 2 calls, got %d", len(mock.Calls()))
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 50*time.Millisecond)

	start := time.Now()
	if _, err := mock.Synthesize(context.Background(), "Hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected at least 50ms latency, got %v", elapsed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := mock.Synthesize(ctx, "Hello"); err == nil {
		t.Error("expected context deadline error")
	}
}

func TestConfig(t *testing.T) {
	cfg := tts.DefaultConfig()
	if cfg.VoiceID != tts.VoiceNova || cfg.ModelID != tts.ModelTTS1 {
		t.Errorf("unexpected defaults: %s %s", cfg.VoiceID, cfg.ModelID)
	}
	if err := cfg.Validate(); err != tts.ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}

	cfg.Apply(tts.WithAPIKey("k"), tts.WithVoice(""), tts.WithTimeout(5*time.Second))
	if err := cfg.Validate(); err != tts.ErrNoVoiceID {
		t.Errorf("expected ErrNoVoiceID, got %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
}

func TestAPIError(t *testing.T) {
	err := &tts.APIError{StatusCode: 429, Message: "rate limited", Provider: "openai"}
	if !err.IsRateLimited() || !err.IsRetryable() {
		t.Error("expected 429 to be rate limited and retryable")
	}
	if (&tts.APIError{StatusCode: 401}).IsRetryable() {
		t.Error("401 must not be retryable")
	}

	withCode := &tts.APIError{StatusCode: 400, Message: "bad request", Code: "invalid_input", Provider: "openai"}
	if withCode.Error() != "tts [openai]: API error 400 (invalid_input): bad request" {
		t.Errorf("unexpected error message: %s", withCode.Error())
	}
}

func TestProviderError(t *testing.T) {
	inner := errors.New("connection failed")
	err := tts.WrapError("openai", inner)

	if err.Error() != "tts [openai]: connection failed" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to match inner")
	}
	if tts.WrapError("openai", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("ID3fake-mp3"))
	}))
	defer srv.Close()

	p, err := tts.NewOpenAI(tts.WithAPIKey("test-key"), tts.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "I am fine.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != "ID3fake-mp3" || result.Format.Encoding != tts.EncodingMP3 {
		t.Errorf("unexpected result: %+v", result)
	}
	if got["voice"] != "nova" || got["model"] != "tts-1" || got["input"] != "I am fine." || got["response_format"] != "mp3" {
		t.Errorf("unexpected request body: %v", got)
	}

	if _, err := p.Synthesize(context.Background(), "   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAIRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))
	if _, err := p.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestOpenAIUnauthorizedNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))
	_, err := p.Synthesize(context.Background(), "hi")

	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
		t.Fatalf("expected unauthorized APIError, got %v", err)
	}
	if apiErr.Code != "invalid_api_key" {
		t.Errorf("code = %q", apiErr.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	if _, err := tts.NewChain(nil); err != tts.ErrProviderUnavailable {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}

	t.Run("First provider succeeds", func(t *testing.T) {
		mock1, mock2 := tts.NewMock(), tts.NewMock()
		chain, _ := tts.NewChain(nil, mock1, mock2)

		if _, err := chain.Synthesize(ctx, "Hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock1.CallCount("Synthesize") != 1 || mock2.CallCount("Synthesize") != 0 {
			t.Error("expected only the first provider to be called")
		}
	})

	t.Run("Fallback on failure", func(t *testing.T) {
		chain, _ := tts.NewChain(nil, tts.WithError(errors.New("offline")), tts.NewMock())
		if result, err := chain.Synthesize(ctx, "Hello"); err != nil || result == nil {
			t.Fatalf("expected fallback result, got %v", err)
		}
	})

	t.Run("All providers fail", func(t *testing.T) {
		first := errors.New("fail 1")
		chain, _ := tts.NewChain(nil, tts.WithError(first), tts.WithError(errors.New("fail 2")))

		_, err := chain.Synthesize(ctx, "Hello")
		var ce *tts.ChainError
		if !errors.As(err, &ce) || len(ce.Errors) != 2 {
			t.Fatalf("expected ChainError with 2 errors, got %v", err)
		}
		if !errors.Is(err, first) {
			t.Error("chain error should match every provider error")
		}
	})
}

func TestClips(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "processing.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	clips := tts.NewClips(dir, map[string]string{
		"I am processing your request, please wait.": "processing.mp3",
		"Please be quiet.":                           "quiet.mp3",
	})
	ctx := context.Background()

	r, err := clips.Synthesize(ctx, "  i am processing your request, please wait. ")
	if err != nil || string(r.Audio) != "mp3" {
		t.Fatalf("expected recording, got %v", err)
	}
	if _, err := clips.Synthesize(ctx, "Something else"); !errors.Is(err, tts.ErrUnknownPhrase) {
		t.Errorf("expected ErrUnknownPhrase, got %v", err)
	}
	if _, err := clips.Synthesize(ctx, "Please be quiet."); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected missing file error, got %v", err)
	}
	if err := clips.Health(ctx); err != nil {
		t.Errorf("unexpected health error: %v", err)
	}
}

func TestCache(t *testing.T) {
	mock := tts.NewMock()
	cache := tts.NewCache(mock, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "a", "b", "c", "a"} {
		if _, err := cache.Synthesize(ctx, text); err != nil {
			t.Fatal(err)
		}
	}
	// "a" was evicted by "c", so it is synthesized twice.
	if mock.CallCount("Synthesize") != 4 {
		t.Errorf("expected 4 synth calls, got %d", mock.CallCount("Synthesize"))
	}
	if cache.Hits() != 1 || cache.Len() != 2 {
		t.Errorf("hits=%d len=%d", cache.Hits(), cache.Len())
	}

	failing := tts.NewCache(tts.WithError(errors.New("down")), 2)
	if _, err := failing.Synthesize(ctx, "x"); err == nil || failing.Len() != 0 {
		t.Error("errors must not be cached")
	}
}

type recordingPlayback struct {
	mp3 [][]byte
	pcm []audio.PCM
}

func (r *recordingPlayback) PlayMP3(ctx context.Context, data []byte) error {
	r.mp3 = append(r.mp3, data)
	return nil
}

func (r *recordingPlayback) PlayPCM(ctx context.Context, pcm audio.PCM) error {
	r.pcm = append(r.pcm, pcm)
	return nil
}

func TestVoiceSpeak(t *testing.T) {
	ctx := context.Background()

	t.Run("PCM provider", func(t *testing.T) {
		play := &recordingPlayback{}
		v := tts.NewVoice(tts.NewMock(), play, nil)
		if err := v.Speak(ctx, "Hi"); err != nil {
			t.Fatal(err)
		}
		if len(play.pcm) != 1 || play.pcm[0].SampleRate != 24000 || len(play.pcm[0].Samples) != 960 {
			t.Errorf("unexpected pcm plays: %+v", play.pcm)
		}
	})

	t.Run("MP3 provider", func(t *testing.T) {
		mock := tts.NewMock()
		mock.SynthesizeFunc = func(ctx context.Context, text string) (*tts.AudioResult, error) {
			return &tts.AudioResult{Audio: []byte("mp3"), Format: tts.AudioFormat{Encoding: tts.EncodingMP3}}, nil
		}
		play := &recordingPlayback{}
		if err := tts.NewVoice(mock, play, nil).Speak(ctx, "Hi"); err != nil {
			t.Fatal(err)
		}
		if len(play.mp3) != 1 {
			t.Errorf("expected one mp3 play, got %d", len(play.mp3))
		}
	})

	t.Run("Blank text is a no-op", func(t *testing.T) {
		mock := tts.NewMock()
		if err := tts.NewVoice(mock, &recordingPlayback{}, nil).Speak(ctx, "  "); err != nil {
			t.Fatal(err)
		}
		if mock.CallCount("Synthesize") != 0 {
			t.Error("blank text must not be synthesized")
		}
	})

	t.Run("Synthesis failure", func(t *testing.T) {
		play := &recordingPlayback{}
		err := tts.NewVoice(tts.WithError(errors.New("down")), play, nil).Speak(ctx, "Hi")
		if err == nil || len(play.pcm)+len(play.mp3) != 0 {
			t.Error("expected error and no playback")
		}
	})
}
