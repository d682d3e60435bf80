package emotions

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEmotion is matched by errors.Is for any UnknownEmotionError.
	ErrUnknownEmotion = errors.New("unknown emotion")

	// ErrNoFrames is returned when an emotion's frame directory is missing or empty.
	ErrNoFrames = errors.New("no frames for emotion")

	// ErrNotAnimated is returned when frames or poses are requested for Shush.
	ErrNotAnimated = errors.New("emotion has no animation")
)

// UnknownEmotionError carries the tag that failed to parse.
type UnknownEmotionError struct {
	Tag string
}

func (e *UnknownEmotionError) Error() string {
	return fmt.Sprintf("unknown emotion %q", e.Tag)
}

// Is makes errors.Is(err, ErrUnknownEmotion) match.
func (e *UnknownEmotionError) Is(target error) bool {
	return target == ErrUnknownEmotion
}
