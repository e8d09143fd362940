package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/chewxy/math32"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/itohio/peltiator/pkg/record"
)

// DefaultWindow is the minimum time span shown.
const DefaultWindow = 60 * time.Second

// Axis selects the scale a Trace is drawn against.
type Axis int

const (
	// AxisTemperature is the autoscaled °C axis on the left.
	AxisTemperature Axis = iota
	// AxisDuty is the fixed -1..1 output axis on the right.
	AxisDuty
	// AxisVoltage is the autoscaled sample voltage axis, labelled on the
	// right when any voltage was recorded.
	AxisVoltage
)

// Trace is one plotted series of the status history.
type Trace struct {
	Name  string
	Color color.Color
	Width float32
	Axis  Axis
	Value func(s peltier.Status) float64
}

// DefaultTraces plots both plates and their targets, ambient, both outputs
// and the sample voltage.
var DefaultTraces = []Trace{
	{Name: "A target", Color: color.RGBA{R: 120, G: 50, B: 50, A: 255}, Width: 1, Value: func(s peltier.Status) float64 { return s.TargetA }},
	{Name: "B target", Color: color.RGBA{R: 50, G: 70, B: 120, A: 255}, Width: 1, Value: func(s peltier.Status) float64 { return s.TargetB }},
	{Name: "A", Color: color.RGBA{R: 255, G: 90, B: 60, A: 255}, Width: 2, Value: func(s peltier.Status) float64 { return s.MeasuredA }},
	{Name: "B", Color: color.RGBA{R: 80, G: 160, B: 255, A: 255}, Width: 2, Value: func(s peltier.Status) float64 { return s.MeasuredB }},
	{Name: "C", Color: color.RGBA{R: 170, G: 170, B: 170, A: 255}, Width: 1.5, Value: func(s peltier.Status) float64 { return s.MeasuredC }},
	{Name: "out A", Color: color.RGBA{R: 255, G: 165, B: 0, A: 160}, Width: 1, Axis: AxisDuty, Value: func(s peltier.Status) float64 { return s.OutputA }},
	{Name: "out B", Color: color.RGBA{R: 0, G: 200, B: 180, A: 160}, Width: 1, Axis: AxisDuty, Value: func(s peltier.Status) float64 { return s.OutputB }},
	{Name: "V", Color: voltageColor, Width: 1.5, Axis: AxisVoltage, Value: func(s peltier.Status) float64 { return s.Voltage }},
}

var voltageColor = color.RGBA{R: 230, G: 220, B: 60, A: 255}

// ScopeWidget is a Fyne widget plotting the temperature history.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration
	traces []Trace

	// Data (protected by mu)
	mu      sync.RWMutex
	display []peltier.Status

	yMin, yMax, yStep float32
	vMin, vMax, vStep float32
	hasVoltage        bool
	tMin              time.Time
	span              float32

	maxDisplayPoints int
}

// New creates a ScopeWidget showing at least window of history. A zero
// window selects DefaultWindow.
func New(window time.Duration) *ScopeWidget {
	if window <= 0 {
		window = DefaultWindow
	}
	s := &ScopeWidget{
		window:           window,
		traces:           DefaultTraces,
		display:          make([]peltier.Status, 0, 1000),
		maxDisplayPoints: 1000,
	}
	s.updateAutoScale()
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData replaces the plotted history. Call it from the UI goroutine
// (fyne.Do) when records arrive from a Recorder callback.
func (s *ScopeWidget) UpdateData(records []peltier.Status) {
	s.mu.Lock()
	s.display = record.Downsample(s.display, records, s.maxDisplayPoints)
	s.updateAutoScale()
	s.mu.Unlock()

	s.Refresh()
}

// updateAutoScale fits the temperature and voltage axes to the finite
// values of their traces.
func (s *ScopeWidget) updateAutoScale() {
	lo, hi, ok := s.extent(AxisTemperature)
	if !ok {
		lo, hi = 20, 30
	}
	margin := (hi - lo) * 0.1
	s.yMin, s.yMax, s.yStep = niceRange(lo-margin, hi+margin, 8)

	lo, hi, s.hasVoltage = s.extent(AxisVoltage)
	if !s.hasVoltage {
		lo, hi = 0, 1
	}
	margin = (hi - lo) * 0.1
	s.vMin, s.vMax, s.vStep = niceRange(lo-margin, hi+margin, 4)

	s.tMin = time.Now()
	span := s.window
	if n := len(s.display); n > 0 {
		s.tMin = s.display[0].Timestamp
		if d := s.display[n-1].Timestamp.Sub(s.tMin); d > span {
			span = d
		}
	}
	s.span = float32(span.Seconds())
}

// extent returns the range of the finite values drawn against axis.
func (s *ScopeWidget) extent(axis Axis) (lo, hi float32, ok bool) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for _, rec := range s.display {
		for _, tr := range s.traces {
			if tr.Axis != axis {
				continue
			}
			v := float32(tr.Value(rec))
			if !finite(v) {
				continue
			}
			lo = math32.Min(lo, v)
			hi = math32.Max(hi, v)
		}
	}
	return lo, hi, lo <= hi
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
