package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-emo/pkg/assistant"
	"github.com/teslashibe/go-emo/pkg/audioio"
	"github.com/teslashibe/go-emo/pkg/emotions"
	"github.com/teslashibe/go-emo/pkg/transcribe"
)

// Sampler captures one utterance.
type Sampler interface {
	Sample(ctx context.Context, d time.Duration) (audioio.Utterance, error)
}

// Asker answers a transcript.
type Asker interface {
	Ask(ctx context.Context, text string) (assistant.Reply, error)
}

// Feedback speaks and shows replies.
type Feedback interface {
	Acknowledge(ctx context.Context) error
	Deliver(ctx context.Context, text string, e emotions.Emotion) error
	Express(ctx context.Context, e emotions.Emotion)
}

// Deps are the collaborators of a Loop.
type Deps struct {
	Sampler     Sampler
	Transcriber transcribe.Transcriber
	Assistant   Asker
	Feedback    Feedback
}

// Options configures a Loop.
type Options struct {
	Rules          Rules
	SampleDuration time.Duration
	CyclePause     time.Duration
	Clock          Clock
	Observer       Observer
	Logger         *slog.Logger
}

// DefaultOptions returns the stock loop timing.
func DefaultOptions() Options {
	return Options{
		Rules:          DefaultRules(),
		SampleDuration: 5 * time.Second,
		CyclePause:     time.Second,
	}
}

// Loop is the control loop. Run drives it from a single goroutine; State
// may be read concurrently.
type Loop struct {
	deps   Deps
	opts   Options
	clock  Clock
	logger *slog.Logger

	state State

	mu        sync.RWMutex
	published State
}

// NewLoop creates a loop that starts awake with the current time as the
// last interaction.
func NewLoop(deps Deps, opts Options) *Loop {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Observer == nil {
		opts.Observer = Observers(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	l := &Loop{
		deps:   deps,
		opts:   opts,
		clock:  opts.Clock,
		logger: opts.Logger.With("component", "session"),
	}
	l.state = State{Mode: Awake, LastInteractionAt: l.clock.Now()}
	l.published = l.state
	return l
}

// State returns the state as of the last transition.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.published
}

// Run cycles until ctx is done. Cancellation is observed between cycles
// and during the pause; a cycle in progress runs to completion.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("session started", "mode", l.state.Mode, "wake_word", l.opts.Rules.WakeWord)
	for {
		if ctx.Err() != nil {
			break
		}
		l.Step(ctx)
		if err := l.clock.Sleep(ctx, l.opts.CyclePause); err != nil {
			break
		}
	}
	l.logger.Info("session stopped", "mode", l.state.Mode)
	return nil
}

// Step runs one sampling cycle.
func (l *Loop) Step(ctx context.Context) {
	l.opts.Observer.CycleStarted(l.state)

	if l.apply(ctx, Event{Kind: EventTick, At: l.clock.Now()}) == ActionSleep {
		l.logger.Info("no interaction, going to sleep",
			"idle", l.clock.Now().Sub(l.state.LastInteractionAt).Round(time.Second))
	}

	utt, err := l.deps.Sampler.Sample(ctx, l.opts.SampleDuration)
	if err != nil {
		l.logger.Warn("capture failed", "error", err)
	}
	l.opts.Observer.Sampled(utt.Loudness)

	switch l.apply(ctx, Event{Kind: EventSampled, At: l.clock.Now(), Loudness: utt.Loudness}) {
	case ActionShush:
		l.logger.Info("environment is too loud", "loudness", utt.Loudness)
		return
	case ActionTranscribe:
	default:
		return
	}

	text, err := l.deps.Transcriber.Transcribe(ctx, utt)
	switch {
	case err == nil:
		l.opts.Observer.Transcribed(OutcomeText)
	case errors.Is(err, transcribe.ErrNoSpeech):
		l.logger.Debug("no speech detected")
		l.opts.Observer.Transcribed(OutcomeNoSpeech)
		return
	default:
		l.logger.Warn("transcription unavailable", "error", err)
		l.opts.Observer.Transcribed(OutcomeUnavailable)
		return
	}
	l.logger.Debug("heard", "transcript", text)

	if l.apply(ctx, Event{Kind: EventHeard, At: l.clock.Now(), Transcript: text}) != ActionTurn {
		return
	}
	if l.turn(ctx, text) {
		l.apply(ctx, Event{Kind: EventTurnDone, At: l.clock.Now()})
	}
}

// apply feeds ev to the rules, stores the new state and starts background
// expressions.
func (l *Loop) apply(ctx context.Context, ev Event) Action {
	prev := l.state
	next, action := l.opts.Rules.Next(prev, ev)
	l.state = next

	l.mu.Lock()
	l.published = next
	l.mu.Unlock()

	switch action {
	case ActionSleep:
		l.deps.Feedback.Express(ctx, emotions.Sleep)
	case ActionShush:
		l.deps.Feedback.Express(ctx, emotions.Shush)
	}
	if prev.Mode != next.Mode || action == ActionSleep || action == ActionShush {
		l.logger.Debug("transition", "from", prev.Mode, "mode", next.Mode, "action", action)
		l.opts.Observer.Transitioned(prev, next, action)
	}
	return action
}

// turn acknowledges, asks and delivers. It reports whether a reply was
// delivered; voice and render failures still count as delivered.
func (l *Loop) turn(ctx context.Context, text string) bool {
	t := Turn{
		ID:         uuid.NewString(),
		Transcript: text,
		StartedAt:  l.clock.Now(),
		Emotion:    emotions.Neutral,
	}
	logger := l.logger.With("turn_id", t.ID)
	logger.Info("interaction", "transcript", text)

	_ = l.deps.Feedback.Acknowledge(ctx)

	reply, err := l.deps.Assistant.Ask(ctx, text)
	if err != nil {
		logger.Warn("assistant unavailable", "error", err)
		t.Result = ResultFailed
		t.Error = err.Error()
		t.Duration = l.clock.Now().Sub(t.StartedAt)
		l.opts.Observer.TurnFinished(t)
		return false
	}
	t.Reply = reply.Text
	t.Emotion = reply.Emotion
	if reply.Tag != "" && reply.Tag != reply.Emotion.String() {
		logger.Info("unknown emotion tag, using neutral", "tag", reply.Tag)
	}

	if err := l.deps.Feedback.Deliver(ctx, reply.Text, reply.Emotion); err != nil {
		t.Error = err.Error()
	}
	t.Result = ResultDelivered
	t.Duration = l.clock.Now().Sub(t.StartedAt)
	logger.Info("delivered", "emotion", reply.Emotion, "elapsed", t.Duration)
	l.opts.Observer.TurnFinished(t)
	return true
}
