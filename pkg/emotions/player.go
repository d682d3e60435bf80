package emotions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Display shows one frame on the panel.
type Display interface {
	Show(frame Frame) error
}

// Actuator moves both channels to a pose.
type Actuator interface {
	SetPose(p Pose) error
}

// ClipPlayer plays an audio file to completion.
type ClipPlayer interface {
	PlayFile(ctx context.Context, path string) error
}

// Speaker speaks a phrase and returns once it has been heard.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// PlayerOptions configures a Player.
type PlayerOptions struct {
	// StepInterval is the hold time after each (frame, pose) step (default: 100ms).
	StepInterval time.Duration

	// Range bounds actuator positions (default: DefaultPulseRange).
	Range PulseRange

	// ShushClip is the audio file played for Shush.
	ShushClip string

	// QuietPhrase is spoken after the shush clip.
	QuietPhrase string

	// Sleep waits between steps. Tests replace it; defaults to time.Sleep.
	Sleep func(time.Duration)

	Logger *slog.Logger
}

// DefaultPlayerOptions returns the reference timing and range.
func DefaultPlayerOptions() PlayerOptions {
	return PlayerOptions{
		StepInterval: 100 * time.Millisecond,
		Range:        DefaultPulseRange,
		QuietPhrase:  "Please be quiet.",
		Sleep:        time.Sleep,
		Logger:       slog.Default(),
	}
}

// Player renders emotions to the display and actuator.
//
// A Player holds no per-render state, so concurrent Render calls are allowed;
// they interleave on the peripherals.
type Player struct {
	lib      *Library
	display  Display
	actuator Actuator
	clips    ClipPlayer
	voice    Speaker
	opts     PlayerOptions
	logger   *slog.Logger
}

// NewPlayer creates a player. clips and voice are only used for Shush and
// may be nil when Shush is never rendered.
func NewPlayer(lib *Library, display Display, actuator Actuator, clips ClipPlayer, voice Speaker, opts PlayerOptions) *Player {
	def := DefaultPlayerOptions()
	if opts.StepInterval <= 0 {
		opts.StepInterval = def.StepInterval
	}
	if opts.Range == (PulseRange{}) {
		opts.Range = def.Range
	}
	if opts.QuietPhrase == "" {
		opts.QuietPhrase = def.QuietPhrase
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}

	return &Player{
		lib:      lib,
		display:  display,
		actuator: actuator,
		clips:    clips,
		voice:    voice,
		opts:     opts,
		logger:   opts.Logger.With("component", "emotions.player"),
	}
}

// Steps returns the (frame, pose) sequence rendered for one loop of e.
func (p *Player) Steps(e Emotion) ([]Step, error) {
	names, err := p.lib.FrameNames(e)
	if err != nil {
		return nil, err
	}
	poses, err := Poses(e, p.opts.Range)
	if err != nil {
		return nil, err
	}
	return Sequence(names, poses)
}

// Render plays e loops times. For animated emotions each step shows the
// frame, moves both channels and holds for the step interval. Shush plays
// the clip and then speaks the quiet phrase; loops is ignored.
//
// A missing or empty frame directory returns an error wrapping ErrNoFrames
// without touching the peripherals. Peripheral errors on individual steps do
// not stop the animation; they are joined into the returned error.
func (p *Player) Render(ctx context.Context, e Emotion, loops int) error {
	if e == Shush {
		return p.shush(ctx)
	}

	steps, err := p.Steps(e)
	if err != nil {
		return err
	}

	// Frames are decoded once per call and dropped afterwards.
	frames := make(map[string]Frame, len(steps))
	var errs []error

	start := time.Now()
	for loop := 0; loop < loops; loop++ {
		for _, st := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}

			frame, ok := frames[st.Frame]
			if !ok {
				frame, err = p.lib.LoadFrame(e, st.Frame)
				if err != nil {
					errs = append(errs, err)
				} else {
					frames[st.Frame] = frame
					ok = true
				}
			}
			if ok {
				if err := p.display.Show(frame); err != nil {
					errs = append(errs, fmt.Errorf("show %s: %w", st.Frame, err))
				}
			}
			if err := p.actuator.SetPose(st.Pose); err != nil {
				errs = append(errs, fmt.Errorf("set pose %v: %w", st.Pose, err))
			}

			p.opts.Sleep(p.opts.StepInterval)
		}
	}

	p.logger.Debug("expression rendered",
		"emotion", e.String(),
		"loops", loops,
		"steps", len(steps),
		"elapsed", time.Since(start),
		"errors", len(errs),
	)
	return errors.Join(errs...)
}

// shush plays the fixed clip to completion and then speaks the quiet phrase.
func (p *Player) shush(ctx context.Context) error {
	var errs []error
	if p.clips != nil && p.opts.ShushClip != "" {
		if err := p.clips.PlayFile(ctx, p.opts.ShushClip); err != nil {
			errs = append(errs, fmt.Errorf("shush clip: %w", err))
		}
	}
	if p.voice != nil {
		if err := p.voice.Speak(ctx, p.opts.QuietPhrase); err != nil {
			errs = append(errs, fmt.Errorf("shush phrase: %w", err))
		}
	}
	return errors.Join(errs...)
}
