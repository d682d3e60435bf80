package robot

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

type pwmCall struct {
	channel int
	off     gpio.Duty
}

type fakePWM struct {
	freq  physic.Frequency
	calls []pwmCall
	err   error
}

func (f *fakePWM) SetPwmFreq(freq physic.Frequency) error {
	f.freq = freq
	return nil
}

func (f *fakePWM) SetPwm(channel int, on, off gpio.Duty) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, pwmCall{channel, off})
	return nil
}

func TestDuty16(t *testing.T) {
	tests := []struct {
		pos  int
		want uint16
	}{
		{0, 0},
		{150, 2399},
		{375, 5999},
		{600, 9599},
		{2048, 32767},
		{4096, 0xFFFF},
	}
	for _, tt := range tests {
		if got := Duty16(tt.pos); got != tt.want {
			t.Errorf("Duty16(%d) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestPCA9685SetPose(t *testing.T) {
	dev := &fakePWM{}
	a, err := newPCA9685(dev, 60*physic.Hertz, emotions.DefaultPulseRange, nil)
	if err != nil {
		t.Fatalf("newPCA9685: %v", err)
	}
	if dev.freq != 60*physic.Hertz {
		t.Errorf("freq = %v, want 60Hz", dev.freq)
	}

	if err := a.SetPose(emotions.Pose{A: 150, B: 600}); err != nil {
		t.Fatalf("SetPose: %v", err)
	}
	want := []pwmCall{{ChannelA, 150}, {ChannelB, 600}}
	if len(dev.calls) != 2 || dev.calls[0] != want[0] || dev.calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", dev.calls, want)
	}
}

func TestPCA9685ClampsPositions(t *testing.T) {
	dev := &fakePWM{}
	a, _ := newPCA9685(dev, 0, emotions.DefaultPulseRange, nil)

	if err := a.SetPose(emotions.Pose{A: 10, B: 4000}); err != nil {
		t.Fatalf("SetPose: %v", err)
	}
	if got := a.Pose(); got != (emotions.Pose{A: 150, B: 600}) {
		t.Errorf("Pose() = %+v, want clamped", got)
	}
	if dev.freq != DefaultPWMFrequency {
		t.Errorf("freq = %v, want default", dev.freq)
	}
}

func TestPCA9685Error(t *testing.T) {
	boom := errors.New("nack")
	a, _ := newPCA9685(&fakePWM{err: boom}, 0, emotions.DefaultPulseRange, nil)
	if err := a.SetPose(emotions.Pose{A: 300, B: 300}); !errors.Is(err, boom) {
		t.Errorf("SetPose error = %v, want %v", err, boom)
	}
}

// recordConn captures SPI writes.
type recordConn struct {
	writes [][]byte
}

func (c *recordConn) String() string                 { return "record" }
func (c *recordConn) Duplex() conn.Duplex            { return conn.Half }
func (c *recordConn) TxPackets(p []spi.Packet) error { return nil }
func (c *recordConn) Tx(w, r []byte) error {
	c.writes = append(c.writes, append([]byte(nil), w...))
	return nil
}

func TestILI9341Show(t *testing.T) {
	c := &recordConn{}
	dc := &gpiotest.Pin{N: "DC"}
	d, err := NewILI9341(c, dc, nil, 4, 2, nil)
	if err != nil {
		t.Fatalf("NewILI9341: %v", err)
	}
	c.writes = nil

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 0xFF, A: 0xFF})
		}
	}
	if err := d.Show(emotions.Frame{Name: "000.png", Image: img}); err != nil {
		t.Fatalf("Show: %v", err)
	}

	// column, page and write commands each precede their parameters.
	if len(c.writes) != 6 {
		t.Fatalf("writes = %d, want 6", len(c.writes))
	}
	if c.writes[0][0] != cmdColumnAddr || c.writes[2][0] != cmdPageAddr || c.writes[4][0] != cmdMemWrite {
		t.Errorf("unexpected command order: %x %x %x", c.writes[0], c.writes[2], c.writes[4])
	}
	pixels := c.writes[5]
	if len(pixels) != 4*2*2 {
		t.Fatalf("pixel bytes = %d, want 16", len(pixels))
	}
	if pixels[0] != 0xF8 || pixels[1] != 0x00 {
		t.Errorf("red pixel = %x%x, want f800", pixels[0], pixels[1])
	}
}

func TestILI9341ChunksLargeWrites(t *testing.T) {
	c := &recordConn{}
	d, err := NewILI9341(c, &gpiotest.Pin{N: "DC"}, nil, 240, 320, nil)
	if err != nil {
		t.Fatalf("NewILI9341: %v", err)
	}
	c.writes = nil

	if err := d.Show(emotions.Frame{Name: "x", Image: image.NewRGBA(image.Rect(0, 0, 240, 320))}); err != nil {
		t.Fatalf("Show: %v", err)
	}
	total := 0
	for _, w := range c.writes[5:] {
		if len(w) > maxTxSize {
			t.Fatalf("write of %d bytes exceeds %d", len(w), maxTxSize)
		}
		total += len(w)
	}
	if total != 240*320*2 {
		t.Errorf("pixel bytes = %d, want %d", total, 240*320*2)
	}
}

func TestOpenMock(t *testing.T) {
	hw, err := Open(Config{Driver: DriverMock}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer hw.Close()
	if err := hw.Actuator.SetPose(emotions.Pose{A: 200, B: 200}); err != nil {
		t.Errorf("SetPose: %v", err)
	}
	if _, err := Open(Config{Driver: "serial"}, nil); !errors.Is(err, ErrPeripheral) {
		t.Errorf("unknown driver error = %v", err)
	}
}
