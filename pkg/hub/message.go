// Package hub fans companion events out to websocket subscribers.
package hub

import (
	"encoding/json"
	"time"
)

// Event is the JSON envelope sent to subscribers.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Event types.
const (
	EventStatus     = "status"
	EventTransition = "transition"
	EventLoudness   = "loudness"
	EventTurn       = "turn"
	EventExpression = "expression"
)

func encode(e Event) ([]byte, error) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	return json.Marshal(e)
}
