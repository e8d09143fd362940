package scope

import (
	"math"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/itohio/peltiator/pkg/controller"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(n int, step time.Duration) []peltier.Status {
	t0 := time.Unix(1000, 0)
	out := make([]peltier.Status, n)
	for i := range out {
		out[i] = peltier.Status{
			Timestamp: t0.Add(time.Duration(i) * step),
			Voltage:   math.NaN(),
			Status: controller.Status{
				TargetA:   30,
				TargetB:   20,
				MeasuredA: 25 + float64(i)*0.1,
				MeasuredB: 25 - float64(i)*0.1,
				MeasuredC: math.NaN(),
				OutputA:   1,
				OutputB:   -1,
			},
		}
	}
	return out
}

func TestScope_AutoScale(t *testing.T) {
	test.NewTempApp(t)
	s := New(10 * time.Second)

	s.UpdateData(history(50, time.Second))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.LessOrEqual(t, s.yMin, float32(20))
	assert.GreaterOrEqual(t, s.yMax, float32(30))
	assert.Greater(t, s.yStep, float32(0))
	assert.Equal(t, time.Unix(1000, 0), s.tMin)
	assert.InDelta(t, 49, s.span, 1e-4)
}

func TestScope_VoltageAxis(t *testing.T) {
	test.NewTempApp(t)
	s := New(time.Minute)

	s.UpdateData(history(10, time.Second))
	s.mu.RLock()
	assert.False(t, s.hasVoltage)
	s.mu.RUnlock()

	recs := history(10, time.Second)
	for i := range recs {
		recs[i].Voltage = 0.001 * float64(i)
	}
	s.UpdateData(recs)

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.True(t, s.hasVoltage)
	assert.LessOrEqual(t, s.vMin, float32(0))
	assert.GreaterOrEqual(t, s.vMax, float32(0.009))
	// Voltages do not stretch the temperature axis.
	assert.Greater(t, s.yMin, float32(10))
}

func TestScope_MinimumWindow(t *testing.T) {
	test.NewTempApp(t)
	s := New(0)
	s.UpdateData(history(3, time.Second))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.InDelta(t, DefaultWindow.Seconds(), s.span, 1e-4)
}

func TestScope_Downsamples(t *testing.T) {
	test.NewTempApp(t)
	s := New(time.Minute)
	s.UpdateData(history(5000, 10*time.Millisecond))

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Len(t, s.display, s.maxDisplayPoints)
}

func TestScope_Render(t *testing.T) {
	test.NewTempApp(t)
	s := New(time.Minute)
	s.Resize(fyne.NewSize(600, 400))

	r := test.WidgetRenderer(s)
	require.NotNil(t, r)
	empty := len(r.Objects())

	s.UpdateData(history(20, time.Second))
	r.Refresh()
	assert.Greater(t, len(r.Objects()), empty)
	assert.Equal(t, fyne.NewSize(400, 300), r.MinSize())
}
