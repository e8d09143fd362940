package hal

import "time"

// System is a Clock and Waiter backed by the Go runtime timer.
type System struct {
	start time.Time
}

var (
	_ Clock  = (*System)(nil)
	_ Waiter = (*System)(nil)
)

// NewSystem returns a System whose microsecond counter starts at zero now.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Micros returns microseconds since NewSystem, truncated to 32 bits.
func (s *System) Micros() uint32 {
	return uint32(time.Since(s.start) / time.Microsecond)
}

func (s *System) DelayMillis(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (s *System) DelayMicros(us uint16) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
