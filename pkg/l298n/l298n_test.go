package l298n

import (
	"math"
	"testing"
	"time"

	"github.com/itohio/peltiator/pkg/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	in1, in2, ena hal.Pin = 2, 3, 4
	in3, in4, enb hal.Pin = 5, 6, 7
)

// resolution covers the fine delay minimum and coarse ms truncation used by
// the test periods.
const resolution = 5 * time.Microsecond

func newDriver(t *testing.T, a, b bool) (*Driver, *hal.Sim) {
	t.Helper()
	sim := hal.NewSim(0)
	d := New(sim, sim)
	if a {
		d.ConfigureChannelA(in1, in2, ena)
	}
	if b {
		d.ConfigureChannelB(in3, in4, enb)
	}
	require.NoError(t, d.Begin())
	return d, sim
}

func TestBegin(t *testing.T) {
	_, sim := newDriver(t, true, true)

	for _, p := range []hal.Pin{in1, in2, ena, in3, in4, enb} {
		m, ok := sim.Mode(p)
		require.True(t, ok, "pin %d", p)
		assert.Equal(t, hal.Output, m, "pin %d", p)
	}
	assert.Equal(t, hal.Low, sim.Level(in1))
	assert.Equal(t, hal.Low, sim.Level(in2))
	assert.Equal(t, hal.High, sim.Level(ena))
	assert.Equal(t, hal.Low, sim.Level(in3))
	assert.Equal(t, hal.Low, sim.Level(in4))
	assert.Equal(t, hal.High, sim.Level(enb))
}

func TestConfigure_BeforeBeginTouchesNothing(t *testing.T) {
	sim := hal.NewSim(0)
	d := New(sim, sim)
	d.ConfigureChannelA(in1, in2, ena)
	assert.True(t, d.Active(ChannelA))
	assert.False(t, d.Active(ChannelB))
	assert.Empty(t, sim.Events())
	assert.False(t, sim.Touched(in1))
}

func TestDrive_OnlyChannelA_NeverTouchesB(t *testing.T) {
	d, sim := newDriver(t, true, false)

	for _, duties := range [][2]float64{{0.5, 0.9}, {-0.3, -1}, {1, 0}, {0, 0.2}} {
		require.NoError(t, d.Drive(duties[0], duties[1], 20*time.Millisecond))
	}
	for _, p := range []hal.Pin{in3, in4, enb} {
		assert.False(t, sim.Touched(p), "pin %d", p)
	}
}

func TestDrive_SingleChannelHighTime(t *testing.T) {
	tests := []struct {
		name   string
		duty   float64
		period time.Duration
		pin    hal.Pin
		other  hal.Pin
		wantOn time.Duration
	}{
		{"forward half", 0.5, 100 * time.Millisecond, in1, in2, 50 * time.Millisecond},
		{"reverse quarter", -0.25, 100 * time.Millisecond, in2, in1, 25 * time.Millisecond},
		{"fine period", 0.5, 2 * time.Millisecond, in1, in2, 1 * time.Millisecond},
		{"full forward", 1, 40 * time.Millisecond, in1, in2, 40 * time.Millisecond},
		{"zero", 0, 40 * time.Millisecond, in1, in2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sim := newDriver(t, true, false)
			sim.ClearEvents()
			start := sim.Micros()

			require.NoError(t, d.Drive(tt.duty, 0, tt.period))

			assert.InDelta(t, float64(tt.wantOn), float64(sim.HighTime(tt.pin)), float64(resolution))
			assert.Equal(t, time.Duration(0), sim.HighTime(tt.other))
			assert.InDelta(t, float64(tt.period), float64(time.Duration(sim.Micros()-start)*time.Microsecond), float64(resolution))
			assert.Equal(t, hal.Low, sim.Level(tt.pin), "pulse must end inside the period")
		})
	}
}

func TestDrive_ClampsOutOfRange(t *testing.T) {
	for _, duty := range []float64{1.5, 10, -1.5, -100} {
		d, sim := newDriver(t, true, false)
		sim.ClearEvents()
		require.NoError(t, d.Drive(duty, 0, 50*time.Millisecond))

		pin := in1
		if duty < 0 {
			pin = in2
		}
		assert.InDelta(t, float64(50*time.Millisecond), float64(sim.HighTime(pin)), float64(resolution), "duty %v", duty)
	}
}

func TestDrive_TwoChannels(t *testing.T) {
	tests := []struct {
		name         string
		dutyA, dutyB float64
		pinA, pinB   hal.Pin
	}{
		{"A shorter", 0.3, 0.6, in1, in3},
		{"B shorter", 0.8, -0.2, in1, in4},
		{"equal", -0.5, -0.5, in2, in4},
		{"A off", 0, 0.7, in1, in3},
	}

	const period = 100 * time.Millisecond
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sim := newDriver(t, true, true)
			sim.ClearEvents()
			require.NoError(t, d.Drive(tt.dutyA, tt.dutyB, period))

			wantA := time.Duration(float64(period) * math.Abs(tt.dutyA))
			wantB := time.Duration(float64(period) * math.Abs(tt.dutyB))
			assert.InDelta(t, float64(wantA), float64(sim.HighTime(tt.pinA)), float64(resolution))
			assert.InDelta(t, float64(wantB), float64(sim.HighTime(tt.pinB)), float64(resolution))
		})
	}
}

func TestDrive_ZeroIntervalsSkipped(t *testing.T) {
	// Equal full duties leave t2 and t3 empty; the cycle must last exactly
	// one period with no minimum fine waits added.
	for _, duty := range [][2]float64{{1, 1}, {-1, 1}, {0, 0}} {
		d, sim := newDriver(t, true, true)
		start := sim.Micros()
		require.NoError(t, d.Drive(duty[0], duty[1], 10*time.Millisecond))
		assert.Equal(t, uint32(10000), sim.Micros()-start, "duty %v", duty)
	}
}

func TestDrive_PulsesAlignedAtPeriodStart(t *testing.T) {
	d, sim := newDriver(t, true, true)
	sim.ClearEvents()
	start := sim.Micros()
	require.NoError(t, d.Drive(0.3, -0.6, 100*time.Millisecond))

	var riseA, riseB uint32
	for _, e := range sim.Events() {
		if e.Level != hal.High {
			continue
		}
		switch e.Pin {
		case in1:
			riseA = e.At
		case in4:
			riseB = e.At
		}
	}
	assert.Equal(t, start, riseA)
	assert.Equal(t, start, riseB)
}

func TestDrive_DirectionPinsNeverBothHigh(t *testing.T) {
	d, sim := newDriver(t, true, true)
	duties := []float64{1, -1, 0.4, -0.4, 0, -0.9, 0.9, -0.1}
	for i := range duties {
		require.NoError(t, d.Drive(duties[i], duties[len(duties)-1-i], 10*time.Millisecond))
	}
	assert.False(t, sim.BothHigh(in1, in2))
	assert.False(t, sim.BothHigh(in3, in4))
}

func TestDrive_EnableStaysHigh(t *testing.T) {
	d, sim := newDriver(t, true, true)
	sim.ClearEvents()
	require.NoError(t, d.Drive(0.5, -0.5, 10*time.Millisecond))
	for _, e := range sim.Events() {
		assert.NotEqual(t, ena, e.Pin)
		assert.NotEqual(t, enb, e.Pin)
	}
}

func TestDrive_PinErrorPropagates(t *testing.T) {
	d, sim := newDriver(t, true, false)
	sim.SetFaulty(in1, true)
	err := d.Drive(0.5, 0, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "l298n")
}

func TestBegin_PinErrorPropagates(t *testing.T) {
	sim := hal.NewSim(0)
	sim.SetFaulty(ena, true)
	d := New(sim, sim)
	d.ConfigureChannelA(in1, in2, ena)
	assert.Error(t, d.Begin())
}

func TestIntervals(t *testing.T) {
	tests := []struct {
		onA, onB, period time.Duration
		t1, t2, t3       time.Duration
	}{
		{30, 60, 100, 30, 30, 40},
		{60, 30, 100, 30, 30, 40},
		{50, 50, 100, 50, 0, 50},
		{0, 0, 100, 0, 0, 100},
		{100, 0, 100, 0, 100, 0},
	}
	for _, tt := range tests {
		t1, t2, t3 := Intervals(tt.onA, tt.onB, tt.period)
		assert.Equal(t, tt.t1, t1)
		assert.Equal(t, tt.t2, t2)
		assert.Equal(t, tt.t3, t3)
		assert.Equal(t, tt.period, t1+t2+t3)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(2))
	assert.Equal(t, -1.0, Clamp(-2))
	assert.Equal(t, 0.25, Clamp(0.25))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
}
