package peltier

import (
	"fmt"
	"log"
	"math"
	"sync"
)

// Voltmeter measures the sample voltage recorded with every status.
type Voltmeter interface {
	Open() error
	ReadVoltage() (float64, error)
	Close() error
}

// Metered is a Device whose Status also carries a Voltmeter reading. The
// voltmeter is opened and closed with the device.
type Metered struct {
	Device
	meter Voltmeter

	mu     sync.Mutex
	faulty bool
}

var _ Device = (*Metered)(nil)

// WithVoltmeter wraps dev so that Status fills Voltage from meter.
func WithVoltmeter(dev Device, meter Voltmeter) *Metered {
	return &Metered{Device: dev, meter: meter}
}

// Connect connects the device and then opens the voltmeter.
func (m *Metered) Connect() error {
	if err := m.Device.Connect(); err != nil {
		return err
	}
	if err := m.meter.Open(); err != nil {
		m.Device.Close()
		return fmt.Errorf("failed to open voltmeter: %w", err)
	}
	return nil
}

// Close closes the voltmeter and the device.
func (m *Metered) Close() error {
	if err := m.meter.Close(); err != nil {
		log.Printf("Voltmeter close failed: %v", err)
	}
	return m.Device.Close()
}

// Status reads the device status and the voltage. A failed voltage read
// leaves Voltage NaN and is logged once until the meter recovers.
func (m *Metered) Status() (Status, error) {
	s, err := m.Device.Status()
	if err != nil {
		return s, err
	}

	v, err := m.meter.ReadVoltage()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if !m.faulty {
			log.Printf("Voltage read failed: %v", err)
		}
		m.faulty = true
		s.Voltage = math.NaN()
		return s, nil
	}
	if m.faulty {
		log.Printf("Voltmeter recovered")
	}
	m.faulty = false
	s.Voltage = v
	return s, nil
}
