// Package l298n drives an L298N dual full bridge as two signed duty-cycle
// channels sharing one timed period.
package l298n

import (
	"fmt"
	"math"
	"time"

	"github.com/itohio/peltiator/pkg/hal"
)

// Channel selects one of the two bridges.
type Channel int

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	if c == ChannelB {
		return "B"
	}
	return "A"
}

// Pins are the three inputs of one bridge.
type Pins struct {
	Forward hal.Pin // IN1/IN3
	Reverse hal.Pin // IN2/IN4
	Enable  hal.Pin // ENA/ENB
}

type channel struct {
	Pins
	active bool
}

// Driver is a two-channel L298N driver.
//
// Drive blocks for the whole period; it is meant for a single control loop.
// Not safe for concurrent use.
type Driver struct {
	pins hal.PinController
	wait hal.Waiter
	ch   [2]channel
}

// New creates a Driver with both channels inactive.
func New(pins hal.PinController, wait hal.Waiter) *Driver {
	return &Driver{pins: pins, wait: wait}
}

// ConfigureChannelA records the pins of bridge A and marks it active.
func (d *Driver) ConfigureChannelA(forward, reverse, enable hal.Pin) {
	d.Configure(ChannelA, Pins{Forward: forward, Reverse: reverse, Enable: enable})
}

// ConfigureChannelB records the pins of bridge B and marks it active.
func (d *Driver) ConfigureChannelB(forward, reverse, enable hal.Pin) {
	d.Configure(ChannelB, Pins{Forward: forward, Reverse: reverse, Enable: enable})
}

// Configure records the pins of ch and marks it active. It only stores the
// assignment; pins are touched by Begin.
func (d *Driver) Configure(ch Channel, p Pins) {
	d.ch[ch] = channel{Pins: p, active: true}
}

// Active reports whether ch was configured.
func (d *Driver) Active(ch Channel) bool {
	return d.ch[ch].active
}

// Begin arms every active channel: pins to output, direction pins low, enable
// high.
func (d *Driver) Begin() error {
	for i := range d.ch {
		c := &d.ch[i]
		if !c.active {
			continue
		}
		for _, p := range []hal.Pin{c.Forward, c.Reverse, c.Enable} {
			if err := d.pins.SetMode(p, hal.Output); err != nil {
				return fmt.Errorf("l298n: channel %s: %w", Channel(i), err)
			}
		}
		if err := d.write(c.Forward, hal.Low); err != nil {
			return err
		}
		if err := d.write(c.Reverse, hal.Low); err != nil {
			return err
		}
		if err := d.write(c.Enable, hal.High); err != nil {
			return err
		}
	}
	return nil
}

// Drive runs one period. Each duty is clamped to [-1, 1]; its sign selects the
// direction and its magnitude the fraction of period the channel is on. Both
// pulses start together at the beginning of the period, the shorter one ends
// first, and the remainder of the period is idle. Inactive channels count as
// zero duty and their pins are never written.
//
// Zero-length intervals are skipped instead of waiting hal.MinFineDelay, so
// full or equal duties do not stretch the period.
func (d *Driver) Drive(dutyA, dutyB float64, period time.Duration) error {
	if period < 0 {
		period = 0
	}
	duty := [2]float64{Clamp(dutyA), Clamp(dutyB)}
	var on [2]time.Duration
	for i := range d.ch {
		if !d.ch[i].active {
			duty[i] = 0
		}
		on[i] = time.Duration(float64(period) * math.Abs(duty[i]))
	}

	t1, t2, t3 := Intervals(on[0], on[1], period)

	// Shorter pulse first; ties turn B off first.
	first, second := ChannelB, ChannelA
	if on[0] < on[1] {
		first, second = ChannelA, ChannelB
	}

	for i := range d.ch {
		if err := d.pulseOn(Channel(i), duty[i]); err != nil {
			return err
		}
	}
	d.delay(t1)
	if err := d.pulseOff(first, duty[first]); err != nil {
		return err
	}
	d.delay(t2)
	if err := d.pulseOff(second, duty[second]); err != nil {
		return err
	}
	d.delay(t3)
	return nil
}

// Intervals splits period into the three waits of a drive cycle: both on,
// only the longer on, both off.
func Intervals(onA, onB, period time.Duration) (t1, t2, t3 time.Duration) {
	t1 = min(onA, onB)
	t2 = onB - onA
	if t2 < 0 {
		t2 = -t2
	}
	t3 = period - max(onA, onB)
	return t1, t2, t3
}

// Clamp limits a duty fraction to [-1, 1].
func Clamp(duty float64) float64 {
	switch {
	case math.IsNaN(duty):
		return 0
	case duty > 1:
		return 1
	case duty < -1:
		return -1
	}
	return duty
}

// pulseOn starts the ON pulse of ch. The opposing direction pin is dropped
// first so both are never high together. A zero duty leaves both low.
func (d *Driver) pulseOn(ch Channel, duty float64) error {
	c := d.ch[ch]
	if !c.active {
		return nil
	}
	if duty == 0 {
		if err := d.write(c.Forward, hal.Low); err != nil {
			return err
		}
		return d.write(c.Reverse, hal.Low)
	}
	off, on := c.Reverse, c.Forward
	if duty < 0 {
		off, on = c.Forward, c.Reverse
	}
	if err := d.write(off, hal.Low); err != nil {
		return err
	}
	return d.write(on, hal.High)
}

func (d *Driver) pulseOff(ch Channel, duty float64) error {
	c := d.ch[ch]
	if !c.active || duty == 0 {
		return nil
	}
	if duty < 0 {
		return d.write(c.Reverse, hal.Low)
	}
	return d.write(c.Forward, hal.Low)
}

// delay skips empty intervals so that a cycle never exceeds its period by the
// fine primitive's minimum wait.
func (d *Driver) delay(t time.Duration) {
	if t <= 0 {
		return
	}
	hal.Delay(d.wait, t)
}

func (d *Driver) write(pin hal.Pin, level hal.Level) error {
	if err := d.pins.Write(pin, level); err != nil {
		return fmt.Errorf("l298n: write pin %d %s: %w", pin, level, err)
	}
	return nil
}
