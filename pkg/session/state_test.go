package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchesWakeWord(t *testing.T) {
	tests := []struct {
		transcript string
		want       bool
	}{
		{"Loki", true},
		{"LOKI, hi", true},
		{"please loki respond", true},
		{"hey Loki!", true},
		{"lok", false},
		{"lokii", false},
		{"loki's", true},
		{"", false},
		{"hello there", false},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesWakeWord(tt.transcript, "loki"))
		})
	}
	assert.False(t, MatchesWakeWord("anything", "  "))
}

func TestNext(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	awake := State{Mode: Awake, LastInteractionAt: t0}
	asleep := State{Mode: Sleeping, LastInteractionAt: t0}

	tests := []struct {
		name   string
		state  State
		event  Event
		want   State
		action Action
	}{
		{
			name:   "awake within idle timeout",
			state:  awake,
			event:  Event{Kind: EventTick, At: t0.Add(120 * time.Second)},
			want:   awake,
			action: ActionNone,
		},
		{
			name:   "awake past idle timeout sleeps",
			state:  awake,
			event:  Event{Kind: EventTick, At: t0.Add(121 * time.Second)},
			want:   asleep,
			action: ActionSleep,
		},
		{
			name:   "sleeping tick does not sleep again",
			state:  asleep,
			event:  Event{Kind: EventTick, At: t0.Add(time.Hour)},
			want:   asleep,
			action: ActionNone,
		},
		{
			name:   "sleeping and loud shushes",
			state:  asleep,
			event:  Event{Kind: EventSampled, At: t0.Add(time.Minute), Loudness: 6000},
			want:   State{Mode: Sleeping, LastInteractionAt: t0.Add(time.Minute)},
			action: ActionShush,
		},
		{
			name:   "sleeping at threshold transcribes",
			state:  asleep,
			event:  Event{Kind: EventSampled, At: t0.Add(time.Minute), Loudness: 5000},
			want:   asleep,
			action: ActionTranscribe,
		},
		{
			name:   "awake and loud transcribes",
			state:  awake,
			event:  Event{Kind: EventSampled, At: t0.Add(time.Minute), Loudness: 9000},
			want:   awake,
			action: ActionTranscribe,
		},
		{
			name:   "sleeping wake word wakes",
			state:  asleep,
			event:  Event{Kind: EventHeard, Transcript: "Loki are you there"},
			want:   State{Mode: Awake, LastInteractionAt: t0},
			action: ActionTurn,
		},
		{
			name:   "awake without wake word",
			state:  awake,
			event:  Event{Kind: EventHeard, Transcript: "what time is it"},
			want:   awake,
			action: ActionNone,
		},
		{
			name:   "turn done records interaction",
			state:  awake,
			event:  Event{Kind: EventTurnDone, At: t0.Add(10 * time.Second)},
			want:   State{Mode: Awake, LastInteractionAt: t0.Add(10 * time.Second)},
			action: ActionNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, action := Next(tt.state, tt.event)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.action, action)
		})
	}
}
