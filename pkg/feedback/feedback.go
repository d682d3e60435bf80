// Package feedback coordinates what the companion says with what it shows.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// Renderer plays an expression to completion.
type Renderer interface {
	Render(ctx context.Context, e emotions.Emotion, loops int) error
}

// Speaker speaks text and returns once playback finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Options configures an Orchestrator.
type Options struct {
	// Loops is the number of times each expression sequence is played.
	Loops int

	// ProcessingPhrase is spoken by Acknowledge.
	ProcessingPhrase string

	Logger *slog.Logger
}

// Orchestrator runs narration and expressions.
type Orchestrator struct {
	renderer Renderer
	speaker  Speaker
	spawner  *Spawner
	opts     Options
	logger   *slog.Logger
}

// New creates an Orchestrator. Background expressions are started on spawner.
func New(renderer Renderer, speaker Speaker, spawner *Spawner, opts Options) *Orchestrator {
	if opts.Loops <= 0 {
		opts.Loops = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if spawner == nil {
		spawner = NewSpawner(opts.Logger)
	}
	return &Orchestrator{
		renderer: renderer,
		speaker:  speaker,
		spawner:  spawner,
		opts:     opts,
		logger:   opts.Logger.With("component", "feedback"),
	}
}

// Acknowledge speaks the processing phrase.
func (o *Orchestrator) Acknowledge(ctx context.Context) error {
	if err := o.speaker.Speak(ctx, o.opts.ProcessingPhrase); err != nil {
		o.logger.Warn("acknowledge failed", "error", err)
		return fmt.Errorf("acknowledge: %w", err)
	}
	return nil
}

// Deliver renders e on its own goroutine while speaking text on the caller's
// goroutine, and returns once both are done. Failures of either side are
// logged and joined; the other side still runs to completion.
func (o *Orchestrator) Deliver(ctx context.Context, text string, e emotions.Emotion) error {
	start := time.Now()

	rendered := make(chan error, 1)
	go func() {
		rendered <- o.renderer.Render(ctx, e, o.opts.Loops)
	}()

	speakErr := o.speaker.Speak(ctx, text)
	if speakErr != nil {
		o.logger.Warn("narration failed", "emotion", e, "error", speakErr)
		speakErr = fmt.Errorf("speak: %w", speakErr)
	}

	renderErr := <-rendered
	if renderErr != nil {
		o.logger.Warn("expression failed", "emotion", e, "error", renderErr)
		renderErr = fmt.Errorf("render %s: %w", e, renderErr)
	}

	o.logger.Debug("delivered", "emotion", e, "elapsed", time.Since(start))
	return errors.Join(speakErr, renderErr)
}

// Express starts e in the background and returns immediately.
func (o *Orchestrator) Express(ctx context.Context, e emotions.Emotion) {
	o.spawner.Go(ctx, e.String(), func(ctx context.Context) {
		if err := o.renderer.Render(ctx, e, o.opts.Loops); err != nil {
			o.logger.Warn("background expression failed", "emotion", e, "error", err)
		}
	})
}

// Spawner returns the spawner used for background expressions.
func (o *Orchestrator) Spawner() *Spawner {
	return o.spawner
}
