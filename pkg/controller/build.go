package controller

import (
	"fmt"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/hal"
	"github.com/itohio/peltiator/pkg/l298n"
	"github.com/itohio/peltiator/pkg/thermistor"
)

// Board bundles the capabilities a Controller is built on. Bridge, when set,
// drives the L298N inputs instead of Pins.
type Board struct {
	Pins   hal.PinController
	Bridge hal.PinController
	ADC    hal.AnalogReader
	Clock  hal.Clock
	Wait   hal.Waiter
}

func (b Board) bridgePins() hal.PinController {
	if b.Bridge != nil {
		return b.Bridge
	}
	return b.Pins
}

// Build wires a Controller from cfg: configures the bridge channels whose pins
// are set, begins all three thermistors and arms the bridge.
func Build(cfg *config.Config, b Board) (*Controller, error) {
	bridge := l298n.New(b.bridgePins(), b.Wait)
	if p := cfg.Bridge.ChannelA; p.Configured() {
		bridge.ConfigureChannelA(hal.Pin(p.Forward), hal.Pin(p.Reverse), hal.Pin(p.Enable))
	}
	if p := cfg.Bridge.ChannelB; p.Configured() {
		bridge.ConfigureChannelB(hal.Pin(p.Forward), hal.Pin(p.Reverse), hal.Pin(p.Enable))
	}

	var sensors [numSensors]*thermistor.Sensor
	for i, th := range []config.ThermistorConfig{cfg.Thermistors.A, cfg.Thermistors.B, cfg.Thermistors.C} {
		s := NewSensor(cfg, th, b)
		if err := s.Begin(hal.Pin(th.Pin)); err != nil {
			return nil, fmt.Errorf("controller: thermistor %c: %w", 'A'+i, err)
		}
		sensors[i] = s
	}

	c := New(bridge, Sensors{A: sensors[SensorA], B: sensors[SensorB], C: sensors[SensorC]}, b.Clock, Options{
		Identity: cfg.Identity,
		Period:   cfg.Bridge.Period,
		Kp:       cfg.PID.Kp,
		Ki:       cfg.PID.Ki,
		Kd:       cfg.PID.Kd,
	})
	if err := c.Begin(); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	return c, nil
}

// NewSensor creates a thermistor with the ADC front end of cfg. It does not
// call Begin.
func NewSensor(cfg *config.Config, th config.ThermistorConfig, b Board) *thermistor.Sensor {
	return thermistor.New(b.ADC, b.Pins, th.Calibration,
		thermistor.WithReference(cfg.ADC.VRef, cfg.ADC.MaxSample),
		thermistor.WithOversampling(cfg.ADC.Oversample),
	)
}
