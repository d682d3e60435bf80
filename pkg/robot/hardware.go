package robot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// Drivers accepted by Open.
const (
	DriverPeriph = "periph"
	DriverMock   = "mock"
)

// Config describes the buses and pins of the peripherals.
type Config struct {
	Driver string

	// I2CBus names the bus of the PWM controller; empty picks the first.
	I2CBus       string
	PWMFrequency int
	Range        emotions.PulseRange

	// SPIPort names the display port; empty picks the first.
	SPIPort    string
	SPISpeedHz int64
	DCPin      string
	ResetPin   string
	Width      int
	Height     int
}

// Hardware holds the opened peripherals.
type Hardware struct {
	Display  Display
	Actuator Actuator

	closers []io.Closer
	logger  *slog.Logger
}

// Open acquires the peripherals named by cfg. Any failure is wrapped in
// ErrPeripheral.
func Open(cfg Config, logger *slog.Logger) (*Hardware, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "robot")

	switch cfg.Driver {
	case DriverMock:
		m := NewMock()
		logger.Info("using mock peripherals")
		return &Hardware{Display: m, Actuator: m, logger: logger}, nil
	case DriverPeriph, "":
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrPeripheral, cfg.Driver)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %v", ErrPeripheral, err)
	}
	hw := &Hardware{logger: logger}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("%w: open i2c %q: %v", ErrPeripheral, cfg.I2CBus, err)
	}
	hw.closers = append(hw.closers, bus)

	dev, err := pca9685.NewI2C(bus, pca9685.I2CAddr)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("%w: pca9685: %v", ErrPeripheral, err)
	}
	act, err := NewPCA9685(dev, physic.Frequency(cfg.PWMFrequency)*physic.Hertz, cfg.Range, logger)
	if err != nil {
		hw.Close()
		return nil, err
	}
	hw.Actuator = act

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("%w: open spi %q: %v", ErrPeripheral, cfg.SPIPort, err)
	}
	hw.closers = append(hw.closers, port)

	conn, err := port.Connect(physic.Frequency(cfg.SPISpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("%w: spi connect: %v", ErrPeripheral, err)
	}
	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		hw.Close()
		return nil, fmt.Errorf("%w: no gpio %q", ErrPeripheral, cfg.DCPin)
	}
	var rst gpio.PinOut
	if cfg.ResetPin != "" {
		p := gpioreg.ByName(cfg.ResetPin)
		if p == nil {
			hw.Close()
			return nil, fmt.Errorf("%w: no gpio %q", ErrPeripheral, cfg.ResetPin)
		}
		rst = p
	}
	disp, err := NewILI9341(conn, dc, rst, cfg.Width, cfg.Height, logger)
	if err != nil {
		hw.Close()
		return nil, err
	}
	hw.Display = disp

	logger.Info("peripherals ready",
		"i2c", cfg.I2CBus,
		"spi", cfg.SPIPort,
		"pwm_hz", cfg.PWMFrequency,
		"display", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	)
	return hw, nil
}

// Close releases the buses.
func (h *Hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}
