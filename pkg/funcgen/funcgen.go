// Package funcgen samples periodic functions against a microsecond clock.
package funcgen

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/itohio/peltiator/pkg/hal"
)

// ErrNotImplemented is returned by Compute for waveform kinds that are
// declared but not implemented.
var ErrNotImplemented = errors.New("funcgen: waveform not implemented")

// Kind names a waveform.
type Kind int

const (
	Off Kind = iota
	Sine
	Square
	Triangle
	Sawtooth
)

func (k Kind) String() string {
	switch k {
	case Off:
		return "off"
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Sawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Waveform is a configured periodic function. The set of implementations is
// closed; see OffWave, SineWave, SquareWave, TriangleWave and SawtoothWave.
type Waveform interface {
	Kind() Kind
	waveform()
}

// Params holds the parameters shared by the periodic waveforms.
type Params struct {
	Freq  float64 // Hz
	Amp   float64
	Phase float64 // radians
}

type OffWave struct{}

type SineWave struct{ Params }

// SquareWave, TriangleWave and SawtoothWave are reserved: Compute rejects them
// with ErrNotImplemented.
type (
	SquareWave   struct{ Params }
	TriangleWave struct{ Params }
	SawtoothWave struct{ Params }
)

func (OffWave) Kind() Kind      { return Off }
func (SineWave) Kind() Kind     { return Sine }
func (SquareWave) Kind() Kind   { return Square }
func (TriangleWave) Kind() Kind { return Triangle }
func (SawtoothWave) Kind() Kind { return Sawtooth }

func (OffWave) waveform()      {}
func (SineWave) waveform()     {}
func (SquareWave) waveform()   {}
func (TriangleWave) waveform() {}
func (SawtoothWave) waveform() {}

// Generator evaluates a Waveform at the time elapsed since its last reset.
//
// Not safe for concurrent use.
type Generator struct {
	clock hal.Clock
	wave  Waveform
	t0    uint32
}

// New returns a Generator with output off.
func New(clock hal.Clock) *Generator {
	g := &Generator{clock: clock}
	g.SetOff()
	return g
}

// Set installs w and resets the time reference. A nil w switches output off.
func (g *Generator) Set(w Waveform) {
	if w == nil {
		w = OffWave{}
	}
	g.wave = w
	g.ResetTime()
}

// SetOff disables output.
func (g *Generator) SetOff() {
	g.Set(OffWave{})
}

// SetSine configures a zero-phase sine wave.
func (g *Generator) SetSine(freq, amp float64) {
	g.SetSinePhase(freq, amp, 0)
}

// SetSinePhase configures a sine wave with the given phase in radians.
func (g *Generator) SetSinePhase(freq, amp, phase float64) {
	g.Set(SineWave{Params{Freq: freq, Amp: amp, Phase: phase}})
}

// ResetTime re-anchors the time origin to now.
func (g *Generator) ResetTime() {
	g.t0 = g.clock.Micros()
}

// Waveform returns the installed waveform.
func (g *Generator) Waveform() Waveform {
	return g.wave
}

// Elapsed returns the time since the last reset. The microsecond counter may
// have wrapped in between; the unsigned difference is still correct as long as
// less than one full counter period passed.
func (g *Generator) Elapsed() time.Duration {
	return time.Duration(g.clock.Micros()-g.t0) * time.Microsecond
}

// Compute returns the instantaneous output value.
func (g *Generator) Compute() (float64, error) {
	t := g.Elapsed().Seconds()

	switch w := g.wave.(type) {
	case OffWave:
		return 0.0, nil
	case SineWave:
		return w.Amp * math.Sin(2.0*math.Pi*w.Freq*t+w.Phase), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotImplemented, w.Kind())
	}
}
