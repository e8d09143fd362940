package gpib

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SCPI commands of a bench multimeter measuring DC voltage.
const (
	cmdConfigureVDC = "CONF:VOLT:DC"
	cmdRead         = "READ?"
	cmdIdentify     = "*IDN?"
)

// DMM is a digital multimeter behind a Prologix controller, set up for DC
// voltage. It owns its controller connection between Open and Close.
type DMM struct {
	address string
	gpib    int
	eos     int
	timeout time.Duration

	mu    sync.Mutex
	ctrl  *Controller
	inst  *Instrument
	ident string
}

// NewDMM creates a multimeter client for the instrument at primary address
// gpibAddr on the controller at address.
func NewDMM(address string, gpibAddr, eos int, timeout time.Duration) *DMM {
	return &DMM{address: address, gpib: gpibAddr, eos: eos, timeout: timeout}
}

// Open connects to the controller, identifies the meter and configures a DC
// voltage measurement.
func (d *DMM) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl != nil {
		return nil
	}
	ctrl, err := Dial(d.address, d.timeout)
	if err != nil {
		return err
	}
	inst := NewInstrument(ctrl, d.gpib, d.eos)
	ident, err := inst.Exchange(cmdIdentify)
	if err != nil {
		ctrl.Close()
		return fmt.Errorf("gpib: identify meter at %d: %w", d.gpib, err)
	}
	if err := inst.Send(cmdConfigureVDC); err != nil {
		ctrl.Close()
		return fmt.Errorf("gpib: configure meter: %w", err)
	}
	d.ctrl, d.inst, d.ident = ctrl, inst, strings.TrimSpace(ident)
	return nil
}

// Identity returns the identification reported on Open.
func (d *DMM) Identity() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ident
}

// ReadVoltage triggers one measurement and returns it in volts.
func (d *DMM) ReadVoltage() (float64, error) {
	d.mu.Lock()
	inst := d.inst
	d.mu.Unlock()
	if inst == nil {
		return 0, ErrClosed
	}

	resp, err := inst.Exchange(cmdRead)
	if err != nil {
		return 0, err
	}
	// Some meters answer with several comma separated fields; the reading
	// comes first.
	field, _, _ := strings.Cut(strings.TrimSpace(resp), ",")
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("gpib: bad reading %q: %w", resp, err)
	}
	return v, nil
}

// Close releases the controller connection.
func (d *DMM) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return nil
	}
	err := d.ctrl.Close()
	d.ctrl, d.inst = nil, nil
	return err
}
