// Package hal defines the board capabilities drivers are built on: digital
// pins, analog inputs, a microsecond clock and blocking waits.
package hal

import "time"

const (
	// MaxFineDelay is the longest wait, in microseconds, handed to the fine
	// delay primitive. Longer waits use millisecond granularity so the fine
	// primitive's argument never overflows.
	MaxFineDelay = 16383
	// MinFineDelay is the shortest fine wait in microseconds. Shorter waits are
	// unreliable on the reference hardware and are rounded up.
	MinFineDelay = 3
)

// Pin identifies a logical pin on the board.
type Pin int

// Mode is a pin direction.
type Mode uint8

const (
	Input Mode = iota
	Output
)

func (m Mode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Level is a digital pin level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// PinController configures and drives digital pins.
type PinController interface {
	SetMode(pin Pin, mode Mode) error
	Write(pin Pin, level Level) error
}

// AnalogReader samples an analog input. The returned value is the raw ADC
// count; its scale depends on the backend.
type AnalogReader interface {
	ReadAnalog(pin Pin) (uint16, error)
}

// Clock is a free-running microsecond counter. It wraps around, so callers
// must compute elapsed time as an unsigned difference.
type Clock interface {
	Micros() uint32
}

// Waiter blocks the caller for a fixed time.
type Waiter interface {
	DelayMillis(ms uint32)
	DelayMicros(us uint16)
}

// Delay blocks for d using the coarse primitive above MaxFineDelay and the
// fine one otherwise. Coarse waits truncate to whole milliseconds.
func Delay(w Waiter, d time.Duration) {
	us := float64(d) / float64(time.Microsecond)
	if us > MaxFineDelay {
		w.DelayMillis(uint32(us * 1e-3))
		return
	}
	if us < MinFineDelay {
		us = MinFineDelay
	}
	w.DelayMicros(uint16(us))
}
