//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/controller"
	"github.com/itohio/peltiator/pkg/hal"
)

var (
	uart = machine.UART0

	// Serial buffer for reading lines
	serialBuffer [LINE_MAX]byte
	serialPos    int
	overflow     bool
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	board := hal.NewMachine()
	sys := hal.NewSystem()

	ctrl, err := controller.Build(boardConfig(), controller.Board{
		Pins:  board,
		ADC:   board,
		Clock: sys,
		Wait:  sys,
	})
	if err != nil {
		for {
			println("init failed:", err.Error())
			time.Sleep(time.Second)
		}
	}

	// Main loop: commands are handled between drive periods.
	for {
		processSerial(ctrl)
		if err := ctrl.Step(); err != nil {
			println("step failed:", err.Error())
		}
	}
}

// boardConfig is the default configuration with this board's wiring.
func boardConfig() *config.Config {
	cfg := config.Default()
	cfg.ADC.VRef = ADC_REFERENCE_V
	cfg.ADC.MaxSample = ADC_MAX_SAMPLE
	cfg.ADC.Oversample = ADC_OVERSAMPLE
	cfg.Bridge.ChannelA = config.ChannelPins{Forward: int(PIN_A_FORWARD), Reverse: int(PIN_A_REVERSE), Enable: int(PIN_A_ENABLE)}
	cfg.Bridge.ChannelB = config.ChannelPins{Forward: int(PIN_B_FORWARD), Reverse: int(PIN_B_REVERSE), Enable: int(PIN_B_ENABLE)}
	cfg.Thermistors.A.Pin = int(PIN_THERM_A)
	cfg.Thermistors.B.Pin = int(PIN_THERM_B)
	cfg.Thermistors.C.Pin = int(PIN_THERM_C)
	return cfg
}

// processSerial feeds complete lines to the controller and prints the
// responses. Lines longer than LINE_MAX are rejected.
func processSerial(ctrl *controller.Controller) {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			switch {
			case overflow:
				writeLine("ERR line too long")
			case serialPos > 0:
				if resp := ctrl.Respond(string(serialBuffer[:serialPos])); resp != "" {
					writeLine(resp)
				}
			}
			serialPos = 0
			overflow = false
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			overflow = true
		}
	}
}

func writeLine(s string) {
	uart.Write([]byte(s))
	uart.Write([]byte{'\n'})
}
