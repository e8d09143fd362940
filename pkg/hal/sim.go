package hal

import (
	"fmt"
	"sync"
	"time"
)

// Event is a logged pin write.
type Event struct {
	At    uint32 // Sim clock in microseconds
	Pin   Pin
	Level Level
}

// Sim is an in-memory board. Waits advance a virtual microsecond clock instead
// of sleeping, and every pin write is logged with the virtual time it happened.
//
// Sim is safe for concurrent use.
type Sim struct {
	mu     sync.Mutex
	now    uint32
	modes  map[Pin]Mode
	levels map[Pin]Level
	analog map[Pin]uint16
	events []Event

	// Pins listed here fail SetMode/Write/ReadAnalog with an error.
	faulty map[Pin]bool
}

var (
	_ PinController = (*Sim)(nil)
	_ AnalogReader  = (*Sim)(nil)
	_ Clock         = (*Sim)(nil)
	_ Waiter        = (*Sim)(nil)
)

// NewSim creates a simulated board with the clock set to start.
func NewSim(start uint32) *Sim {
	return &Sim{
		now:    start,
		modes:  make(map[Pin]Mode),
		levels: make(map[Pin]Level),
		analog: make(map[Pin]uint16),
		faulty: make(map[Pin]bool),
	}
}

func (s *Sim) SetMode(pin Pin, mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faulty[pin] {
		return fmt.Errorf("sim: pin %d faulty", pin)
	}
	s.modes[pin] = mode
	return nil
}

func (s *Sim) Write(pin Pin, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faulty[pin] {
		return fmt.Errorf("sim: pin %d faulty", pin)
	}
	s.levels[pin] = level
	s.events = append(s.events, Event{At: s.now, Pin: pin, Level: level})
	return nil
}

func (s *Sim) ReadAnalog(pin Pin) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faulty[pin] {
		return 0, fmt.Errorf("sim: pin %d faulty", pin)
	}
	return s.analog[pin], nil
}

func (s *Sim) Micros() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Sim) DelayMillis(ms uint32) {
	s.Advance(time.Duration(ms) * time.Millisecond)
}

func (s *Sim) DelayMicros(us uint16) {
	s.Advance(time.Duration(us) * time.Microsecond)
}

// Advance moves the virtual clock forward by d. The counter wraps like the
// hardware one.
func (s *Sim) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += uint32(d / time.Microsecond)
	s.mu.Unlock()
}

// SetAnalog sets the raw value returned by ReadAnalog for pin.
func (s *Sim) SetAnalog(pin Pin, v uint16) {
	s.mu.Lock()
	s.analog[pin] = v
	s.mu.Unlock()
}

// SetFaulty makes every operation on pin fail.
func (s *Sim) SetFaulty(pin Pin, faulty bool) {
	s.mu.Lock()
	s.faulty[pin] = faulty
	s.mu.Unlock()
}

// Mode returns the configured mode of pin and whether it was ever set.
func (s *Sim) Mode(pin Pin) (Mode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modes[pin]
	return m, ok
}

// Level returns the last level written to pin.
func (s *Sim) Level(pin Pin) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[pin]
}

// Events returns a copy of the write log.
func (s *Sim) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Touched reports whether pin was ever configured or written.
func (s *Sim) Touched(pin Pin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modes[pin]; ok {
		return true
	}
	for _, e := range s.events {
		if e.Pin == pin {
			return true
		}
	}
	return false
}

// ClearEvents drops the write log but keeps current levels.
func (s *Sim) ClearEvents() {
	s.mu.Lock()
	s.events = s.events[:0]
	s.mu.Unlock()
}

// HighTime sums the time pin spent high according to the write log, up to the
// current virtual time. It never observes two overlapping high spans.
func (s *Sim) HighTime(pin Pin) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		total  uint32
		high   bool
		rising uint32
	)
	for _, e := range s.events {
		if e.Pin != pin {
			continue
		}
		switch {
		case e.Level == High && !high:
			high = true
			rising = e.At
		case e.Level == Low && high:
			high = false
			total += e.At - rising
		}
	}
	if high {
		total += s.now - rising
	}
	return time.Duration(total) * time.Microsecond
}

// BothHigh reports whether a and b were ever high at the same instant,
// including momentarily between two writes at the same timestamp.
func (s *Sim) BothHigh(a, b Pin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var la, lb Level
	for _, e := range s.events {
		switch e.Pin {
		case a:
			la = e.Level
		case b:
			lb = e.Level
		default:
			continue
		}
		if la == High && lb == High {
			return true
		}
	}
	return false
}
