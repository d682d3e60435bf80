package audio

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCMDuration(t *testing.T) {
	assert.Equal(t, time.Second, PCM{Samples: make([]int16, 24000), SampleRate: 24000}.Duration())
	assert.Zero(t, PCM{}.Duration())
}

func TestPCMStreamer(t *testing.T) {
	pcm := PCM{Samples: []int16{16384, -16384, 0}, SampleRate: 8000}
	s := pcm.streamer()

	buf := make([][2]float64, 2)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 2, n)
	assert.InDelta(t, 0.5, buf[0][0], 1e-9)
	assert.Equal(t, buf[0][0], buf[0][1])
	assert.InDelta(t, -0.5, buf[1][0], 1e-9)

	n, ok = s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = s.Stream(buf)
	assert.False(t, ok)
}

func TestDecodeMP3RejectsGarbage(t *testing.T) {
	_, err := DecodeMP3([]byte("not an mp3"))
	assert.Error(t, err)
}

func TestPlayerMissingFile(t *testing.T) {
	p := NewPlayer(&MockOutput{}, nil)
	err := p.PlayFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPlayerSerializesPlayback(t *testing.T) {
	out := &MockOutput{Delay: 30 * time.Millisecond}
	p := NewPlayer(out, nil)

	var starts int
	var mu sync.Mutex
	p.OnPlaybackStart = func() {
		mu.Lock()
		starts++
		mu.Unlock()
	}

	pcm := PCM{Samples: make([]int16, 10), SampleRate: 8000}
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.PlayPCM(context.Background(), pcm))
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Len(t, out.Plays(), 2)
	assert.Equal(t, 2, starts)
	assert.False(t, p.IsSpeaking())
}

func TestRTPOutputPacketizes(t *testing.T) {
	ln, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	out, err := NewRTPOutput(ln.LocalAddr().String())
	require.NoError(t, err)
	defer out.Close()

	// 100ms at 24kHz becomes five 20ms frames at 48kHz.
	pcm := PCM{Samples: make([]int16, 2400), SampleRate: 24000}
	go func() {
		_ = out.Play(context.Background(), pcm)
	}()

	buf := make([]byte, 1500)
	var pkts []rtp.Packet
	for len(pkts) < 5 {
		require.NoError(t, ln.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := ln.ReadFrom(buf)
		require.NoError(t, err)

		var pkt rtp.Packet
		require.NoError(t, pkt.Unmarshal(buf[:n]))
		pkts = append(pkts, pkt)
	}

	assert.True(t, pkts[0].Marker)
	for i, pkt := range pkts {
		assert.Equal(t, uint8(opusPayloadType), pkt.PayloadType)
		assert.Equal(t, pkts[0].SSRC, pkt.SSRC)
		assert.Equal(t, pkts[0].SequenceNumber+uint16(i), pkt.SequenceNumber)
		assert.Equal(t, pkts[0].Timestamp+uint32(i*opusFrame), pkt.Timestamp)
		assert.NotEmpty(t, pkt.Payload)
	}
}
