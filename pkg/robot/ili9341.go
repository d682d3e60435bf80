package robot

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// ILI9341 command bytes.
const (
	cmdSoftReset  = 0x01
	cmdSleepOut   = 0x11
	cmdDisplayOn  = 0x29
	cmdColumnAddr = 0x2A
	cmdPageAddr   = 0x2B
	cmdMemWrite   = 0x2C
	cmdMemAccess  = 0x36
	cmdPixelFmt   = 0x3A
)

// maxTxSize is the largest SPI write the kernel driver accepts by default.
const maxTxSize = 4096

// ILI9341 is a 240x320 SPI TFT panel.
type ILI9341 struct {
	conn   spi.Conn
	dc     gpio.PinOut
	rst    gpio.PinOut
	width  int
	height int
	logger *slog.Logger

	mu  sync.Mutex
	buf []byte
}

// NewILI9341 resets and initializes the panel. dc selects data or command;
// rst may be nil when the reset line is not wired.
func NewILI9341(conn spi.Conn, dc, rst gpio.PinOut, width, height int, logger *slog.Logger) (*ILI9341, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &ILI9341{
		conn:   conn,
		dc:     dc,
		rst:    rst,
		width:  width,
		height: height,
		logger: logger.With("component", "robot.ili9341"),
		buf:    make([]byte, width*height*2),
	}
	if err := d.init(); err != nil {
		return nil, fmt.Errorf("%w: init display: %v", ErrPeripheral, err)
	}
	return d, nil
}

func (d *ILI9341) init() error {
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return err
		}
		time.Sleep(120 * time.Millisecond)
	}
	if err := d.command(cmdSoftReset); err != nil {
		return err
	}
	time.Sleep(150 * time.Millisecond)
	if err := d.command(cmdSleepOut); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)
	// 16 bits per pixel, BGR order, portrait.
	if err := d.command(cmdPixelFmt, 0x55); err != nil {
		return err
	}
	if err := d.command(cmdMemAccess, 0x48); err != nil {
		return err
	}
	return d.command(cmdDisplayOn)
}

// command sends cmd with DC low followed by its parameters with DC high.
func (d *ILI9341) command(cmd byte, params ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	return d.data(params)
}

func (d *ILI9341) data(p []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(p) > 0 {
		n := min(len(p), maxTxSize)
		if err := d.conn.Tx(p[:n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Show draws f across the full panel. Images of another size are drawn at
// the origin and the rest of the panel is cleared.
func (d *ILI9341) Show(f emotions.Frame) error {
	if f.Image == nil {
		return fmt.Errorf("frame %q has no image", f.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	toRGB565(d.buf, f.Image, d.width, d.height)

	w, h := uint16(d.width-1), uint16(d.height-1)
	if err := d.command(cmdColumnAddr, 0, 0, byte(w>>8), byte(w)); err != nil {
		return fmt.Errorf("set window: %w", err)
	}
	if err := d.command(cmdPageAddr, 0, 0, byte(h>>8), byte(h)); err != nil {
		return fmt.Errorf("set window: %w", err)
	}
	if err := d.command(cmdMemWrite); err != nil {
		return fmt.Errorf("memory write: %w", err)
	}
	if err := d.data(d.buf); err != nil {
		return fmt.Errorf("push frame %q: %w", f.Name, err)
	}
	return nil
}

// Size returns the panel resolution.
func (d *ILI9341) Size() (int, int) {
	return d.width, d.height
}

// toRGB565 packs img into dst as big-endian RGB565, width*height pixels.
func toRGB565(dst []byte, img image.Image, width, height int) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds() != image.Rect(0, 0, width, height) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := rgba.PixOffset(x, y)
			r, g, b := rgba.Pix[o], rgba.Pix[o+1], rgba.Pix[o+2]
			c := uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
			dst[i] = byte(c >> 8)
			dst[i+1] = byte(c)
			i += 2
		}
	}
}

var _ Display = (*ILI9341)(nil)
