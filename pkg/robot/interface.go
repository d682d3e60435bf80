// Package robot drives the companion's peripherals: the face display and the
// two-channel actuator controller.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package robot

import (
	"errors"

	"github.com/teslashibe/go-emo/pkg/emotions"
)

// ErrPeripheral marks failures to acquire or initialize a peripheral. They
// are fatal at startup.
var ErrPeripheral = errors.New("robot: peripheral unavailable")

// Display shows one bitmap at a time.
type Display interface {
	Show(f emotions.Frame) error
}

// Actuator commands both actuator channels.
type Actuator interface {
	SetPose(p emotions.Pose) error
}

// Body is the composite of all peripherals.
// Use this when you need both outputs, for example in an expression player.
type Body interface {
	Display
	Actuator
}

// Ensure the periph drivers implement the interfaces.
var (
	_ emotions.Display  = (Display)(nil)
	_ emotions.Actuator = (Actuator)(nil)
)
