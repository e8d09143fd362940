// Package thermistor reads temperature from an NTC thermistor in a voltage
// divider using a Steinhart-Hart style calibration polynomial.
package thermistor

import (
	"errors"
	"fmt"
	"math"

	"github.com/itohio/peltiator/pkg/hal"
)

const (
	// DefaultVRef is the ADC reference voltage in volts.
	DefaultVRef = 5.0
	// DefaultMaxSample is the full-scale count of a 10-bit ADC.
	DefaultMaxSample = 1023
	// AbsoluteZero is 0 K in degrees Celsius.
	AbsoluteZero = -273.15
)

// ErrSingularReading is returned when a reading falls on a singularity of
// the conversion: the divider voltage reaches the reference, or the derived
// resistance or temperature is not physical.
var ErrSingularReading = errors.New("thermistor: singular reading")

// Calibration holds the thermistor constants.
//
//	T[K] = Scale / (A + B·x + C·x²), x = log10(R / R25)
//
// A zero Scale means 1, which suits coefficients given in 1/K. Coefficients
// given in 1e-3/K take Scale 1000; this includes the constants of the
// Arduino thermistor sketches, whose conversion uses a numerator of 1000.
type Calibration struct {
	A      float64 `yaml:"a"`
	B      float64 `yaml:"b"`
	C      float64 `yaml:"c"`
	R25    float64 `yaml:"r25"`     // Thermistor resistance at 25°C (Ω)
	RFixed float64 `yaml:"r_fixed"` // Divider resistor (Ω)
	Scale  float64 `yaml:"scale,omitempty"`
}

func (c Calibration) scale() float64 {
	if c.Scale == 0 {
		return 1
	}
	return c.Scale
}

// Temperature converts a thermistor resistance to degrees Celsius.
func (c Calibration) Temperature(r float64) (float64, error) {
	if !(r > 0) || math.IsInf(r, 0) || !(c.R25 > 0) {
		return math.NaN(), fmt.Errorf("%w: resistance %g Ω", ErrSingularReading, r)
	}
	x := math.Log10(r / c.R25)
	den := c.A + c.B*x + c.C*x*x
	kelvin := c.scale() / den
	if !(kelvin > 0) || math.IsInf(kelvin, 0) {
		return math.NaN(), fmt.Errorf("%w: resistance %g Ω maps to %g K", ErrSingularReading, r, kelvin)
	}
	return kelvin + AbsoluteZero, nil
}

// Resistance is the inverse of Temperature. It picks the root of the
// calibration quadratic nearest to R25.
func (c Calibration) Resistance(celsius float64) (float64, error) {
	kelvin := celsius - AbsoluteZero
	if !(kelvin > 0) {
		return math.NaN(), fmt.Errorf("%w: temperature %g°C", ErrSingularReading, celsius)
	}
	// C·x² + B·x + (A − Scale/T) = 0
	k := c.A - c.scale()/kelvin
	var x float64
	if c.C == 0 {
		if c.B == 0 {
			return math.NaN(), fmt.Errorf("%w: calibration has no temperature dependence", ErrSingularReading)
		}
		x = -k / c.B
	} else {
		disc := c.B*c.B - 4*c.C*k
		if disc < 0 {
			return math.NaN(), fmt.Errorf("%w: temperature %g°C outside calibration", ErrSingularReading, celsius)
		}
		sq := math.Sqrt(disc)
		x1 := (-c.B + sq) / (2 * c.C)
		x2 := (-c.B - sq) / (2 * c.C)
		x = x1
		if math.Abs(x2) < math.Abs(x1) {
			x = x2
		}
	}
	return c.R25 * math.Pow(10, x), nil
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithReference sets the ADC reference voltage and full-scale sample value.
func WithReference(vref float64, maxSample uint16) Option {
	return func(s *Sensor) {
		s.vref = vref
		s.maxSample = maxSample
	}
}

// WithOversampling averages n ADC samples per reading.
func WithOversampling(n int) Option {
	return func(s *Sensor) {
		if n > 0 {
			s.samples = n
		}
	}
}

// Sensor is a thermistor on an analog input.
//
// Not safe for concurrent use.
type Sensor struct {
	adc  hal.AnalogReader
	pins hal.PinController
	cal  Calibration
	pin  hal.Pin

	vref      float64
	maxSample uint16
	samples   int
}

// New creates a Sensor. The calibration is copied and never changes.
func New(adc hal.AnalogReader, pins hal.PinController, cal Calibration, opts ...Option) *Sensor {
	s := &Sensor{
		adc:       adc,
		pins:      pins,
		cal:       cal,
		vref:      DefaultVRef,
		maxSample: DefaultMaxSample,
		samples:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calibration returns the sensor constants.
func (s *Sensor) Calibration() Calibration {
	return s.cal
}

// Begin binds the analog pin and configures it as an input.
func (s *Sensor) Begin(pin hal.Pin) error {
	s.pin = pin
	if err := s.pins.SetMode(pin, hal.Input); err != nil {
		return fmt.Errorf("thermistor: configure pin %d: %w", pin, err)
	}
	return nil
}

// ReadVoltage samples the divider and converts the count to volts.
func (s *Sensor) ReadVoltage() (float64, error) {
	var sum float64
	for i := 0; i < s.samples; i++ {
		v, err := s.adc.ReadAnalog(s.pin)
		if err != nil {
			return 0, fmt.Errorf("thermistor: read pin %d: %w", s.pin, err)
		}
		sum += float64(v)
	}
	return sum / float64(s.samples) * s.vref / float64(s.maxSample), nil
}

// ReadResistance returns the thermistor resistance in ohms.
func (s *Sensor) ReadResistance() (float64, error) {
	v, err := s.ReadVoltage()
	if err != nil {
		return 0, err
	}
	return s.resistance(v)
}

// ReadTemperature returns the thermistor temperature in degrees Celsius.
func (s *Sensor) ReadTemperature() (float64, error) {
	r, err := s.ReadResistance()
	if err != nil {
		return math.NaN(), err
	}
	return s.cal.Temperature(r)
}

func (s *Sensor) resistance(v float64) (float64, error) {
	if v >= s.vref {
		return math.Inf(1), fmt.Errorf("%w: %g V at reference %g V", ErrSingularReading, v, s.vref)
	}
	return v * s.cal.RFixed / (s.vref - v), nil
}

// Count returns the raw ADC count the divider produces at celsius. It is
// the forward model of ReadTemperature and is used to simulate a sensor.
func (s *Sensor) Count(celsius float64) (uint16, error) {
	r, err := s.cal.Resistance(celsius)
	if err != nil {
		return 0, err
	}
	v := s.vref * r / (r + s.cal.RFixed)
	n := math.Round(v / s.vref * float64(s.maxSample))
	if n > float64(s.maxSample) {
		n = float64(s.maxSample)
	}
	return uint16(n), nil
}
