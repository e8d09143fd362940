//go:build !linux

package hal

import "fmt"

// Chip is unavailable outside Linux.
type Chip struct{}

var _ PinController = (*Chip)(nil)

func OpenChip(name string) (*Chip, error) {
	return nil, fmt.Errorf("hal: gpio chip %s unsupported on this platform", name)
}

func (c *Chip) SetMode(pin Pin, mode Mode) error {
	return fmt.Errorf("hal: gpio unsupported on this platform")
}

func (c *Chip) Write(pin Pin, level Level) error {
	return fmt.Errorf("hal: gpio unsupported on this platform")
}

func (c *Chip) Close() error { return nil }
