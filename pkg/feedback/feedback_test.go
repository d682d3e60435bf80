package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

type slowRenderer struct {
	delay time.Duration
	err   error

	mu    sync.Mutex
	calls []emotions.Emotion
	loops []int
}

func (r *slowRenderer) Render(ctx context.Context, e emotions.Emotion, loops int) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	r.calls = append(r.calls, e)
	r.loops = append(r.loops, loops)
	r.mu.Unlock()
	return r.err
}

func (r *slowRenderer) rendered() []emotions.Emotion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emotions.Emotion(nil), r.calls...)
}

type slowSpeaker struct {
	delay time.Duration
	err   error

	mu    sync.Mutex
	texts []string
}

func (s *slowSpeaker) Speak(ctx context.Context, text string) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	return s.err
}

func TestDeliverWaitsForLongerSide(t *testing.T) {
	tests := []struct {
		name      string
		narration time.Duration
		render    time.Duration
	}{
		{"expression longer", 10 * time.Millisecond, 80 * time.Millisecond},
		{"narration longer", 80 * time.Millisecond, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &slowRenderer{delay: tt.render}
			s := &slowSpeaker{delay: tt.narration}
			o := New(r, s, nil, Options{Loops: 2})

			start := time.Now()
			require.NoError(t, o.Deliver(context.Background(), "I am fine.", emotions.Happy))
			elapsed := time.Since(start)

			assert.GreaterOrEqual(t, elapsed, max(tt.narration, tt.render))
			assert.Less(t, elapsed, tt.narration+tt.render)
			assert.Equal(t, []emotions.Emotion{emotions.Happy}, r.rendered())
			assert.Equal(t, []int{2}, r.loops)
			assert.Equal(t, []string{"I am fine."}, s.texts)
		})
	}
}

func TestDeliverVoiceFailureStillRenders(t *testing.T) {
	voiceErr := errors.New("speaker gone")
	r := &slowRenderer{delay: 20 * time.Millisecond}
	o := New(r, &slowSpeaker{err: voiceErr}, nil, Options{})

	err := o.Deliver(context.Background(), "hi", emotions.Sad)
	assert.ErrorIs(t, err, voiceErr)
	assert.Equal(t, []emotions.Emotion{emotions.Sad}, r.rendered())
}

func TestAcknowledgeSpeaksProcessingPhrase(t *testing.T) {
	s := &slowSpeaker{}
	o := New(&slowRenderer{}, s, nil, Options{ProcessingPhrase: "I am processing your request, please wait."})

	require.NoError(t, o.Acknowledge(context.Background()))
	assert.Equal(t, []string{"I am processing your request, please wait."}, s.texts)
}

func TestExpressReturnsImmediately(t *testing.T) {
	r := &slowRenderer{delay: 50 * time.Millisecond}
	sp := NewSpawner(nil)
	o := New(r, &slowSpeaker{}, sp, Options{})

	start := time.Now()
	o.Express(context.Background(), emotions.Sleep)
	o.Express(context.Background(), emotions.Sleep)
	assert.Less(t, time.Since(start), 25*time.Millisecond)

	sp.Wait()
	assert.Equal(t, 2, sp.Started())
	assert.Equal(t, 0, sp.Active())
	assert.Len(t, r.rendered(), 2)
}

func TestSpawnerRecoversPanic(t *testing.T) {
	sp := NewSpawner(nil)
	sp.Go(context.Background(), "boom", func(context.Context) { panic("boom") })
	sp.Wait()
	assert.Equal(t, 0, sp.Active())
}
