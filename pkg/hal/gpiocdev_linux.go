//go:build linux

package hal

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// DefaultConsumer is the consumer label attached to requested lines.
const DefaultConsumer = "peltiator"

// Chip drives pins through the Linux GPIO character device. Pin numbers are
// line offsets on the chip.
type Chip struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[Pin]*gpiocdev.Line
}

var _ PinController = (*Chip)(nil)

// OpenChip opens a GPIO chip such as "gpiochip0" or "/dev/gpiochip0".
func OpenChip(name string) (*Chip, error) {
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("hal: open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: c, lines: make(map[Pin]*gpiocdev.Line)}, nil
}

// SetMode requests the line in the given direction, releasing any earlier
// request for the same line.
func (c *Chip) SetMode(pin Pin, mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var opt gpiocdev.LineReqOption = gpiocdev.AsInput
	if mode == Output {
		opt = gpiocdev.AsOutput(0)
	}

	if l, ok := c.lines[pin]; ok {
		_ = l.Close()
		delete(c.lines, pin)
	}

	l, err := c.chip.RequestLine(int(pin), opt, gpiocdev.WithConsumer(DefaultConsumer))
	if err != nil {
		return fmt.Errorf("hal: request line %d: %w", pin, err)
	}
	c.lines[pin] = l
	return nil
}

func (c *Chip) Write(pin Pin, level Level) error {
	c.mu.Lock()
	l, ok := c.lines[pin]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("hal: line %d not requested", pin)
	}
	v := 0
	if level == High {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		return fmt.Errorf("hal: set line %d: %w", pin, err)
	}
	return nil
}

// Close drives every output low and releases all lines and the chip.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pin, l := range c.lines {
		_ = l.SetValue(0)
		_ = l.Close()
		delete(c.lines, pin)
	}
	if c.chip == nil {
		return nil
	}
	err := c.chip.Close()
	c.chip = nil
	return err
}
