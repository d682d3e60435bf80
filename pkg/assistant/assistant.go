// Package assistant asks the chat service for a reply and splits the
// trailing emotion tag from the text to speak.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-emo/pkg/emotions"
	"github.com/teslashibe/go-emo/pkg/inference"
)

// ErrEmptyReply is returned when the service answers with nothing to say.
var ErrEmptyReply = errors.New("assistant: empty reply")

// Reply is a parsed assistant answer.
type Reply struct {
	// Text is spoken to the user.
	Text string

	// Emotion is the expression to render while speaking.
	Emotion emotions.Emotion

	// Tag is the raw lower-cased tag, empty when the reply carried none.
	Tag string
}

// Options configures an Assistant.
type Options struct {
	SystemPrompt string
	Model        string
	MaxTokens    int
	Logger       *slog.Logger
}

// Assistant wraps a chat provider with a fixed system prompt.
type Assistant struct {
	provider inference.Provider
	opts     Options
	logger   *slog.Logger
}

// New creates an Assistant over provider.
func New(provider inference.Provider, opts Options) *Assistant {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		provider: provider,
		opts:     opts,
		logger:   logger.With("component", "assistant"),
	}
}

// Ask sends text with the system prompt and parses the answer.
func (a *Assistant) Ask(ctx context.Context, text string) (Reply, error) {
	messages := make([]inference.Message, 0, 2)
	if a.opts.SystemPrompt != "" {
		messages = append(messages, inference.NewSystemMessage(a.opts.SystemPrompt))
	}
	messages = append(messages, inference.NewUserMessage(text))

	resp, err := a.provider.Chat(ctx, &inference.ChatRequest{
		Messages:  messages,
		Model:     a.opts.Model,
		MaxTokens: a.opts.MaxTokens,
	})
	if err != nil {
		return Reply{Emotion: emotions.Neutral}, fmt.Errorf("chat: %w", err)
	}

	reply := ParseReply(resp.Message.Content)
	if strings.TrimSpace(reply.Text) == "" {
		return reply, ErrEmptyReply
	}
	a.logger.Debug("reply",
		"emotion", reply.Emotion,
		"tag", reply.Tag,
		"latency_ms", resp.LatencyMs,
		"tokens", resp.Usage.TotalTokens,
	)
	return reply, nil
}

// ParseReply splits a trailing " [<emotion>]" tag from raw. The tag is
// trimmed and lower-cased and the text before it is trimmed. A reply that
// does not end with a bracketed tag, or whose tag is not a known emotion, is
// spoken verbatim with the neutral emotion.
func ParseReply(raw string) Reply {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasSuffix(trimmed, "]") {
		return Reply{Text: raw, Emotion: emotions.Neutral}
	}
	i := strings.LastIndex(trimmed, " [")
	if i < 0 {
		return Reply{Text: raw, Emotion: emotions.Neutral}
	}

	tag := strings.ToLower(strings.TrimSpace(trimmed[i+2 : len(trimmed)-1]))
	e, err := emotions.ParseEmotion(tag)
	if err != nil {
		return Reply{Text: raw, Emotion: emotions.Neutral, Tag: tag}
	}
	return Reply{
		Text:    strings.TrimSpace(trimmed[:i]),
		Emotion: e,
		Tag:     tag,
	}
}
