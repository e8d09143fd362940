package scope

import (
	"time"

	"fyne.io/fyne/v2"
	"github.com/chewxy/math32"
)

// viewport maps time and values onto the plot rectangle. Temperatures use
// yMin..yMax, voltages vMin..vMax and duties the fixed -1..1 axis.
type viewport struct {
	x, y, w, h float32
	yMin, yMax float32
	vMin, vMax float32
	tMin       time.Time
	span       float32 // seconds
}

func (v viewport) xAt(t time.Time) float32 {
	if v.span <= 0 {
		return v.x
	}
	return v.x + float32(t.Sub(v.tMin).Seconds())/v.span*v.w
}

func (v viewport) yAt(val float32) float32 {
	return v.scale(val, v.yMin, v.yMax)
}

func (v viewport) voltAt(val float32) float32 {
	return v.scale(val, v.vMin, v.vMax)
}

func (v viewport) scale(val, lo, hi float32) float32 {
	if hi <= lo {
		return v.y + v.h/2
	}
	return v.y + v.h - (val-lo)/(hi-lo)*v.h
}

// at maps val on axis to a vertical position.
func (v viewport) at(axis Axis, val float32) float32 {
	switch axis {
	case AxisDuty:
		return v.dutyAt(val)
	case AxisVoltage:
		return v.voltAt(val)
	}
	return v.yAt(val)
}

func (v viewport) dutyAt(d float32) float32 {
	return v.y + v.h - (clampDuty(d)+1)/2*v.h
}

func clampDuty(d float32) float32 {
	return math32.Max(-1, math32.Min(1, d))
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// runs splits pts into connected runs, breaking wherever ok is false. Runs
// shorter than two points are dropped.
func runs(pts []fyne.Position, ok []bool) [][]fyne.Position {
	var (
		out [][]fyne.Position
		cur []fyne.Position
	)
	for i, p := range pts {
		if !ok[i] {
			if len(cur) > 1 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

// niceRange widens lo..hi to multiples of a 1, 2 or 5 decade step giving
// about ticks divisions.
func niceRange(lo, hi float32, ticks int) (float32, float32, float32) {
	if ticks < 1 {
		ticks = 1
	}
	if !finite(lo) || !finite(hi) {
		return 0, 1, 1.0 / float32(ticks)
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi-lo < 1e-3 {
		lo, hi = lo-0.5, hi+0.5
	}

	raw := (hi - lo) / float32(ticks)
	exp := math32.Floor(math32.Log10(raw))
	base := math32.Pow(10, exp)
	var step float32
	switch f := raw / base; {
	case f <= 1:
		step = base
	case f <= 2:
		step = 2 * base
	case f <= 5:
		step = 5 * base
	default:
		step = 10 * base
	}
	return math32.Floor(lo/step) * step, math32.Ceil(hi/step) * step, step
}
