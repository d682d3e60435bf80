package audio

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-emo/pkg/audioio"
)

const (
	opusRate        = 48000
	opusFrame       = 960 // 20ms at 48kHz
	opusPayloadType = 96
	maxOpusPacket   = 1275
)

// RTPOutput streams Opus over RTP/UDP, the same format a GStreamer
// "udpsrc ! rtpopusdepay ! opusdec" receiver on the robot expects.
type RTPOutput struct {
	addr string
	conn net.Conn
	enc  *opus.Encoder
	ssrc uint32

	mu  sync.Mutex
	seq uint16
	ts  uint32
}

// NewRTPOutput dials addr ("host:port").
func NewRTPOutput(addr string) (*RTPOutput, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial rtp %s: %w", addr, err)
	}
	enc, err := opus.NewEncoder(opusRate, 1, opus.AppVoIP)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	return &RTPOutput{
		addr: addr,
		conn: conn,
		enc:  enc,
		ssrc: rand.Uint32(),
		seq:  uint16(rand.Uint32()),
		ts:   rand.Uint32(),
	}, nil
}

// Play encodes pcm in 20ms Opus frames and sends them paced in real time.
func (o *RTPOutput) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	samples := audioio.Resample(pcm.Samples, pcm.SampleRate, opusRate)
	if rem := len(samples) % opusFrame; rem != 0 {
		samples = append(samples, make([]int16, opusFrame-rem)...)
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	payload := make([]byte, maxOpusPacket)
	for i := 0; i < len(samples); i += opusFrame {
		n, err := o.enc.Encode(samples[i:i+opusFrame], payload)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}

		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == 0,
				PayloadType:    opusPayloadType,
				SequenceNumber: o.seq,
				Timestamp:      o.ts,
				SSRC:           o.ssrc,
			},
			Payload: payload[:n],
		}
		raw, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("rtp marshal: %w", err)
		}
		if _, err := o.conn.Write(raw); err != nil {
			return fmt.Errorf("rtp send: %w", err)
		}
		o.seq++
		o.ts += opusFrame

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Name returns "rtp".
func (o *RTPOutput) Name() string {
	return "rtp"
}

// Close closes the socket.
func (o *RTPOutput) Close() error {
	return o.conn.Close()
}
