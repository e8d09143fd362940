//go:build tinygo

package main

import "machine"

const (
	// ADC configuration. machine.ADC.Get scales every reading to 16 bits.
	ADC_REFERENCE_V = 3.3
	ADC_MAX_SAMPLE  = 65535
	ADC_OVERSAMPLE  = 8

	// Bridge channel A (plate A)
	PIN_A_FORWARD = machine.D2
	PIN_A_REVERSE = machine.D3
	PIN_A_ENABLE  = machine.D4

	// Bridge channel B (plate B)
	PIN_B_FORWARD = machine.D5
	PIN_B_REVERSE = machine.D6
	PIN_B_ENABLE  = machine.D7

	// Thermistor dividers: plates A and B, ambient C
	PIN_THERM_A = machine.A8
	PIN_THERM_B = machine.A9
	PIN_THERM_C = machine.A10

	// Serial configuration
	// A status document is ~300 bytes; at 115200 baud it takes ~26 ms.
	UART_BAUD_RATE = 115200

	// Longest accepted command line.
	LINE_MAX = 64
)
