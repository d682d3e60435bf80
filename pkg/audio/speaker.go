package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// DefaultSpeakerRate is the sound card rate; sources are resampled to it.
const DefaultSpeakerRate = 44100

var (
	speakerOnce sync.Once
	speakerErr  error
)

// SpeakerOutput plays through the local sound card.
type SpeakerOutput struct {
	rate beep.SampleRate
}

// NewSpeakerOutput initializes the sound card at rate Hz. The speaker is
// process-global; the first rate wins.
func NewSpeakerOutput(rate int) (*SpeakerOutput, error) {
	if rate <= 0 {
		rate = DefaultSpeakerRate
	}
	sr := beep.SampleRate(rate)
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("init speaker: %w", speakerErr)
	}
	return &SpeakerOutput{rate: sr}, nil
}

// Play mixes pcm into the speaker and waits for it to drain.
func (s *SpeakerOutput) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}

	var src beep.Streamer = pcm.streamer()
	if beep.SampleRate(pcm.SampleRate) != s.rate {
		src = beep.Resample(4, beep.SampleRate(pcm.SampleRate), s.rate, src)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Name returns "speaker".
func (s *SpeakerOutput) Name() string {
	return "speaker"
}

// Close stops anything still playing.
func (s *SpeakerOutput) Close() error {
	speaker.Clear()
	return nil
}
