package session

import (
	"time"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// Transcription outcomes reported to observers.
const (
	OutcomeText        = "text"
	OutcomeNoSpeech    = "no_speech"
	OutcomeUnavailable = "unavailable"
)

// Turn results reported to observers.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// Turn describes one interaction turn.
type Turn struct {
	ID         string           `json:"id"`
	Transcript string           `json:"transcript"`
	Reply      string           `json:"reply,omitempty"`
	Emotion    emotions.Emotion `json:"emotion"`
	Result     string           `json:"result"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
}

// Observer receives loop events. Calls come from the control goroutine and
// must not block.
type Observer interface {
	CycleStarted(s State)
	Sampled(loudness float64)
	Transitioned(from, to State, action Action)
	Transcribed(outcome string)
	TurnFinished(t Turn)
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) CycleStarted(s State) {
	for _, ob := range o {
		ob.CycleStarted(s)
	}
}

func (o Observers) Sampled(loudness float64) {
	for _, ob := range o {
		ob.Sampled(loudness)
	}
}

func (o Observers) Transitioned(from, to State, action Action) {
	for _, ob := range o {
		ob.Transitioned(from, to, action)
	}
}

func (o Observers) Transcribed(outcome string) {
	for _, ob := range o {
		ob.Transcribed(outcome)
	}
}

func (o Observers) TurnFinished(t Turn) {
	for _, ob := range o {
		ob.TurnFinished(t)
	}
}

var _ Observer = Observers(nil)
