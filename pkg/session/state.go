// Package session runs the companion's sampling loop.
//
// The decision logic is the pure Rules.Next transition function; Loop owns
// the single State value and performs the actions Next returns.
package session

import (
	"strings"
	"time"
	"unicode"
)

// Mode is the companion's coarse state.
type Mode int

const (
	Awake Mode = iota
	Sleeping
)

func (m Mode) String() string {
	switch m {
	case Awake:
		return "awake"
	case Sleeping:
		return "sleeping"
	}
	return "unknown"
}

// MarshalText renders the mode name in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is owned by the control goroutine.
type State struct {
	Mode              Mode      `json:"mode"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// EventKind identifies an Event.
type EventKind int

const (
	// EventTick starts a cycle.
	EventTick EventKind = iota
	// EventSampled carries the loudness of a capture.
	EventSampled
	// EventHeard carries a transcript.
	EventHeard
	// EventTurnDone marks a delivered interaction turn.
	EventTurnDone
)

// Event is an input to Next.
type Event struct {
	Kind       EventKind
	At         time.Time
	Loudness   float64
	Transcript string
}

// Action is what the loop must do after a transition.
type Action int

const (
	ActionNone Action = iota
	// ActionSleep starts the sleep expression in the background.
	ActionSleep
	// ActionShush starts the shush expression in the background.
	ActionShush
	// ActionTranscribe sends the captured audio for transcription.
	ActionTranscribe
	// ActionTurn runs an interaction turn with the transcript.
	ActionTurn
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSleep:
		return "sleep"
	case ActionShush:
		return "shush"
	case ActionTranscribe:
		return "transcribe"
	case ActionTurn:
		return "turn"
	}
	return "unknown"
}

// Rules parameterize the transition function.
type Rules struct {
	WakeWord       string
	IdleTimeout    time.Duration
	NoiseThreshold float64
}

// DefaultRules returns the stock wake word and thresholds.
func DefaultRules() Rules {
	return Rules{
		WakeWord:       "loki",
		IdleTimeout:    120 * time.Second,
		NoiseThreshold: 5000,
	}
}

// Next computes the state following ev under the default rules.
func Next(s State, ev Event) (State, Action) {
	return DefaultRules().Next(s, ev)
}

// Next computes the state following ev and the action to perform.
//
// An awake companion falls asleep on the tick after IdleTimeout has passed
// since the last interaction. While sleeping a loud sample is shushed and
// counts as an interaction; loudness is checked before the transcript. A
// transcript containing the wake word wakes the companion and requests a
// turn; only EventTurnDone advances LastInteractionAt for turns.
func (r Rules) Next(s State, ev Event) (State, Action) {
	switch ev.Kind {
	case EventTick:
		if s.Mode == Awake && ev.At.Sub(s.LastInteractionAt) > r.IdleTimeout {
			s.Mode = Sleeping
			return s, ActionSleep
		}
		return s, ActionNone

	case EventSampled:
		if s.Mode == Sleeping && ev.Loudness > r.NoiseThreshold {
			s.LastInteractionAt = ev.At
			return s, ActionShush
		}
		return s, ActionTranscribe

	case EventHeard:
		if MatchesWakeWord(ev.Transcript, r.WakeWord) {
			s.Mode = Awake
			return s, ActionTurn
		}
		return s, ActionNone

	case EventTurnDone:
		s.Mode = Awake
		s.LastInteractionAt = ev.At
		return s, ActionNone
	}
	return s, ActionNone
}

// MatchesWakeWord reports whether transcript contains word as a whole word,
// ignoring case. Words are runs of letters and digits.
func MatchesWakeWord(transcript, word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	fields := strings.FieldsFunc(transcript, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if strings.EqualFold(f, word) {
			return true
		}
	}
	return false
}
