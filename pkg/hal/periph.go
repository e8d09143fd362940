package hal

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Periph adapts periph.io GPIO pins to a PinController. Pins are looked up in
// the map given to NewPeriph; unknown pins are an error.
type Periph struct {
	pins map[Pin]gpio.PinIO
}

var _ PinController = (*Periph)(nil)

func NewPeriph(pins map[Pin]gpio.PinIO) *Periph {
	m := make(map[Pin]gpio.PinIO, len(pins))
	for k, v := range pins {
		m[k] = v
	}
	return &Periph{pins: m}
}

// PeriphName is the periph registry name of pin number n.
func PeriphName(n Pin) string {
	return fmt.Sprintf("GPIO%d", n)
}

// OpenPeriph resolves pins in the periph GPIO registry by PeriphName. Pins
// are registered by the periph host drivers linked into the binary.
func OpenPeriph(pins ...Pin) (*Periph, error) {
	m := make(map[Pin]gpio.PinIO, len(pins))
	for _, pin := range pins {
		gp := gpioreg.ByName(PeriphName(pin))
		if gp == nil {
			return nil, fmt.Errorf("hal: periph pin %s not registered", PeriphName(pin))
		}
		m[pin] = gp
	}
	return &Periph{pins: m}, nil
}

func (p *Periph) lookup(pin Pin) (gpio.PinIO, error) {
	gp, ok := p.pins[pin]
	if !ok || gp == nil {
		return nil, fmt.Errorf("hal: no periph pin mapped to %d", pin)
	}
	return gp, nil
}

// SetMode drives outputs low on configuration, matching a freshly reset MCU.
func (p *Periph) SetMode(pin Pin, mode Mode) error {
	gp, err := p.lookup(pin)
	if err != nil {
		return err
	}
	switch mode {
	case Output:
		err = gp.Out(gpio.Low)
	default:
		err = gp.In(gpio.PullNoChange, gpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("hal: set %s mode on %s: %w", mode, gp, err)
	}
	return nil
}

func (p *Periph) Write(pin Pin, level Level) error {
	gp, err := p.lookup(pin)
	if err != nil {
		return err
	}
	if err := gp.Out(gpio.Level(level)); err != nil {
		return fmt.Errorf("hal: write %s: %w", gp, err)
	}
	return nil
}
