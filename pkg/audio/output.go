// Package audio plays speech and clips on the companion's speaker.
//
// Compressed audio is decoded to PCM once, then handed to an Output: the
// local sound card, or an RTP/Opus stream to a speaker elsewhere on the
// network.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
)

// PCM is mono 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playback length.
func (p PCM) Duration() time.Duration {
	if p.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(p.Samples)) / float64(p.SampleRate) * float64(time.Second))
}

// Output plays PCM to completion.
type Output interface {
	// Play blocks until the audio has been played or ctx is done.
	Play(ctx context.Context, pcm PCM) error

	// Name identifies the output in logs (e.g., "speaker", "rtp").
	Name() string

	io.Closer
}

// DecodeMP3 decodes an MP3 stream to mono PCM at its native rate.
func DecodeMP3(data []byte) (PCM, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return PCM{}, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	pcm := PCM{SampleRate: int(format.SampleRate)}
	buf := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(buf)
		for _, s := range buf[:n] {
			pcm.Samples = append(pcm.Samples, floatToInt16((s[0]+s[1])/2))
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return PCM{}, fmt.Errorf("decode mp3: %w", err)
	}
	return pcm, nil
}

func floatToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// streamer adapts PCM to a beep.Streamer (both channels carry the signal).
func (p PCM) streamer() beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(p.Samples) {
			return 0, false
		}
		n := 0
		for n < len(samples) && pos < len(p.Samples) {
			v := float64(p.Samples[pos]) / 32768
			samples[n][0], samples[n][1] = v, v
			n++
			pos++
		}
		return n, true
	})
}
