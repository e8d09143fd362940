package peltier

import (
	"fmt"
	"io"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/hal"
)

// openBridge returns the pins the simulated controller drives its bridge
// through. A nil controller means the simulated board. The closer, if any,
// releases the pins.
func openBridge(cfg config.BridgeConfig) (hal.PinController, io.Closer, error) {
	switch cfg.Backend {
	case "", config.BackendSim:
		return nil, nil, nil
	case config.BackendGPIOChip:
		chip, err := hal.OpenChip(cfg.Chip)
		if err != nil {
			return nil, nil, err
		}
		return chip, chip, nil
	case config.BackendPeriph:
		p, err := hal.OpenPeriph(bridgePins(cfg)...)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown bridge backend %q", cfg.Backend)
}

func bridgePins(cfg config.BridgeConfig) []hal.Pin {
	var pins []hal.Pin
	for _, ch := range []config.ChannelPins{cfg.ChannelA, cfg.ChannelB} {
		if !ch.Configured() {
			continue
		}
		pins = append(pins, hal.Pin(ch.Forward), hal.Pin(ch.Reverse), hal.Pin(ch.Enable))
	}
	return pins
}
