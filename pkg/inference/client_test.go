package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const okCompletion = `{
	"id": "test-id",
	"model": "gpt-4",
	"choices": [{"message": {"role": "assistant", "content": "I am fine. [happy]"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestClientChat(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okCompletion))
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL+"/"),
		WithAPIKey("test-key"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewSystemMessage("be brief"),
			NewUserMessage("Hello"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "I am fine. [happy]" || resp.Message.Role != RoleAssistant {
		t.Errorf("Unexpected message: %+v", resp.Message)
	}
	if resp.FinishReason != "stop" || resp.Usage.TotalTokens != 15 {
		t.Errorf("Unexpected metadata: %+v", resp)
	}
	if got.Model != "gpt-4" || got.MaxTokens != 256 || len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("Unexpected request: %+v", got)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","code":"rate_limit"}}`))
			return
		}
		w.Write([]byte(okCompletion))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithRetry(2, time.Millisecond))
	if _, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}}); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.IsUnauthorized() && apiErr.Message == "bad key"
		}},
		{"server error exhausts retries", http.StatusBadGateway, `oops`, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.IsRetryable()
		}},
		{"no choices", http.StatusOK, `{"choices":[]}`, func(err error) bool {
			return errors.Is(err, ErrEmptyResponse)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewClient(WithBaseURL(server.URL), WithRetry(1, time.Millisecond))
			_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClientValidation(t *testing.T) {
	if _, err := NewClient(WithModel("")); !errors.Is(err, ErrNoModel) {
		t.Errorf("expected ErrNoModel, got %v", err)
	}
}

func TestChainFallsBack(t *testing.T) {
	primary := WithError(&APIError{StatusCode: 429, Provider: "client"})
	fallback := NewMock("from fallback")

	chain, err := NewChain(nil, primary, fallback)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := chain.Chat(context.Background(), &ChatRequest{})
	if err != nil || resp.Message.Content != "from fallback" {
		t.Fatalf("unexpected result: %v %v", resp, err)
	}
	if primary.CallCount("Chat") != 1 || fallback.CallCount("Chat") != 1 {
		t.Error("expected both providers to be tried once")
	}

	allFail, _ := NewChain(nil, WithError(errors.New("a")), WithError(errors.New("b")))
	_, err = allFail.Chat(context.Background(), &ChatRequest{})
	var ce *ChainError
	if !errors.As(err, &ce) || len(ce.Errors) != 2 {
		t.Errorf("expected ChainError, got %v", err)
	}

	if _, err := NewChain(nil); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestMockRecordsRequests(t *testing.T) {
	m := NewMock("ok")
	req := &ChatRequest{Messages: []Message{NewUserMessage("hello")}}
	if _, err := m.Chat(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	last := m.LastCall()
	if last == nil || last.Request != req {
		t.Error("expected request to be recorded")
	}
	m.Reset()
	if len(m.Calls()) != 0 {
		t.Error("expected calls to be cleared")
	}
}
