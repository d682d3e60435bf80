package robot

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// PCA9685 channels driving the two actuators.
const (
	ChannelA = 0
	ChannelB = 1
)

// DefaultPWMFrequency is the servo refresh rate.
const DefaultPWMFrequency = 60 * physic.Hertz

// pwmDriver is the subset of *pca9685.Dev the actuator uses.
type pwmDriver interface {
	SetPwmFreq(freq physic.Frequency) error
	SetPwm(channel int, on, off gpio.Duty) error
}

// Duty16 converts a 12-bit pulse position to a 16-bit duty cycle.
func Duty16(position int) uint16 {
	if position <= 0 {
		return 0
	}
	if position >= 4096 {
		return 0xFFFF
	}
	return uint16(position * 0xFFFF / 4096)
}

// offCount converts a 16-bit duty cycle back to the chip's 12-bit off count.
func offCount(duty uint16) gpio.Duty {
	return gpio.Duty((uint32(duty) + 1) >> 4)
}

// PCA9685 drives the two servo channels of a PCA9685 PWM controller.
type PCA9685 struct {
	dev    pwmDriver
	rng    emotions.PulseRange
	logger *slog.Logger

	mu   sync.Mutex
	last emotions.Pose
}

// NewPCA9685 configures dev at freq and returns the actuator. Positions are
// clamped to rng.
func NewPCA9685(dev *pca9685.Dev, freq physic.Frequency, rng emotions.PulseRange, logger *slog.Logger) (*PCA9685, error) {
	return newPCA9685(dev, freq, rng, logger)
}

func newPCA9685(dev pwmDriver, freq physic.Frequency, rng emotions.PulseRange, logger *slog.Logger) (*PCA9685, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if freq == 0 {
		freq = DefaultPWMFrequency
	}
	if err := dev.SetPwmFreq(freq); err != nil {
		return nil, fmt.Errorf("%w: set pwm frequency: %v", ErrPeripheral, err)
	}
	return &PCA9685{
		dev:    dev,
		rng:    rng,
		logger: logger.With("component", "robot.pca9685"),
	}, nil
}

// SetPose moves both channels to p.
func (a *PCA9685) SetPose(p emotions.Pose) error {
	p = a.rng.Clamp(p)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.dev.SetPwm(ChannelA, 0, offCount(Duty16(p.A))); err != nil {
		return fmt.Errorf("channel %d: %w", ChannelA, err)
	}
	if err := a.dev.SetPwm(ChannelB, 0, offCount(Duty16(p.B))); err != nil {
		return fmt.Errorf("channel %d: %w", ChannelB, err)
	}
	a.last = p
	return nil
}

// Pose returns the last commanded pose.
func (a *PCA9685) Pose() emotions.Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

var _ Actuator = (*PCA9685)(nil)
