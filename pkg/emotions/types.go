// Package emotions provides the companion's expressive repertoire.
//
// An Emotion is one of a closed set of variants. Every variant except Shush
// owns a directory of display frames and an authored table of two-channel
// actuator poses; the Player steps frames and poses in lockstep. Shush plays
// a fixed audio clip followed by a spoken phrase instead.
package emotions

import (
	"image"
	"strings"
)

// Emotion is a named expressive variant.
type Emotion int

const (
	// Neutral is the zero value and the fallback for unknown tags.
	Neutral Emotion = iota
	Happy
	Sad
	Angry
	Blink
	Excited
	Dizzy
	Sleep
	Shush
)

var names = [...]string{
	Neutral: "neutral",
	Happy:   "happy",
	Sad:     "sad",
	Angry:   "angry",
	Blink:   "blink",
	Excited: "excited",
	Dizzy:   "dizzy",
	Sleep:   "sleep",
	Shush:   "shush",
}

// String returns the lower-case variant name, which is also the asset
// directory name.
func (e Emotion) String() string {
	if e < 0 || int(e) >= len(names) {
		return "unknown"
	}
	return names[e]
}

// Animated reports whether the variant is rendered as frames and poses.
func (e Emotion) Animated() bool {
	return e != Shush && e.Valid()
}

// Valid reports whether e is one of the known variants.
func (e Emotion) Valid() bool {
	return e >= 0 && int(e) < len(names)
}

// MarshalText implements encoding.TextMarshaler.
func (e Emotion) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Emotion) UnmarshalText(b []byte) error {
	v, err := ParseEmotion(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseEmotion resolves a raw tag to a variant. The tag is trimmed and
// matched case-insensitively. Unknown tags return ErrUnknownEmotion.
func ParseEmotion(tag string) (Emotion, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for i, n := range names {
		if n == tag {
			return Emotion(i), nil
		}
	}
	return Neutral, &UnknownEmotionError{Tag: tag}
}

// All returns every variant in declaration order.
func All() []Emotion {
	out := make([]Emotion, len(names))
	for i := range names {
		out[i] = Emotion(i)
	}
	return out
}

// Pose is a two-channel actuator position, each value a 12-bit pulse
// position out of a 4096-step range.
type Pose struct {
	A int `json:"a"`
	B int `json:"b"`
}

// PulseRange bounds actuator positions.
type PulseRange struct {
	Min int
	Max int
}

// DefaultPulseRange is the servo range of the reference build.
var DefaultPulseRange = PulseRange{Min: 150, Max: 600}

// Clamp restricts both channels of p to the range.
func (r PulseRange) Clamp(p Pose) Pose {
	return Pose{A: clampInt(p.A, r.Min, r.Max), B: clampInt(p.B, r.Min, r.Max)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Frame is a display bitmap and the file it came from.
type Frame struct {
	Name  string
	Image image.Image
}

// Step is one tick of an animation: a frame name and the paired pose.
type Step struct {
	Frame string `json:"frame"`
	Pose  Pose   `json:"pose"`
}
