//go:build tinygo

package hal

import "machine"

// Machine drives pins and ADC channels of the board TinyGo was built for.
// ADC samples are 16-bit scaled regardless of the hardware resolution.
type Machine struct {
	adcs map[Pin]machine.ADC
}

var (
	_ PinController = (*Machine)(nil)
	_ AnalogReader  = (*Machine)(nil)
)

func NewMachine() *Machine {
	machine.InitADC()
	return &Machine{adcs: make(map[Pin]machine.ADC)}
}

func (m *Machine) SetMode(pin Pin, mode Mode) error {
	p := machine.Pin(pin)
	if mode == Output {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		return nil
	}
	adc := machine.ADC{Pin: p}
	adc.Configure(machine.ADCConfig{})
	m.adcs[pin] = adc
	return nil
}

func (m *Machine) Write(pin Pin, level Level) error {
	machine.Pin(pin).Set(bool(level))
	return nil
}

func (m *Machine) ReadAnalog(pin Pin) (uint16, error) {
	adc, ok := m.adcs[pin]
	if !ok {
		adc = machine.ADC{Pin: machine.Pin(pin)}
	}
	return adc.Get(), nil
}
