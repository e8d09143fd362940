package peltier

import (
	"errors"

	"github.com/itohio/peltiator/pkg/l298n"
)

var (
	// ErrNotConnected is returned by operations on a closed device.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by Connect on an open device.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrTimeout is returned when a response does not arrive in time.
	ErrTimeout = errors.New("timed out")
	// ErrDevice wraps an "ERR ..." response of the controller.
	ErrDevice = errors.New("device error")
)

// Device defines the interface for dual peltier controllers (real or mocked).
type Device interface {
	Connect() error
	Close() error
	IsConnected() bool

	// Initialize and Shutdown leave both plates at the same target.
	Initialize() error
	Identify() (string, error)
	Shutdown() error

	// SendCommand sends a raw command line and returns everything the
	// controller answered.
	SendCommand(cmd string) (string, error)
	SetPIDMode(ch l298n.Channel, on bool) error
	SetTarget(ch l298n.Channel, celsius float64) error
	SetGradient(grad float64) error
	Status() (Status, error)
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
