package scope

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/peltiator/pkg/peltier"
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// scopeRenderer renders the scope widget. Objects are rebuilt on every
// Refresh.
type scopeRenderer struct {
	scope *ScopeWidget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws grid, traces and legend.
func (r *scopeRenderer) Refresh() {
	s := r.scope
	s.mu.RLock()
	records := s.display
	yMin, yMax, yStep := s.yMin, s.yMax, s.yStep
	vMin, vMax, vStep := s.vMin, s.vMax, s.vStep
	hasVoltage := s.hasVoltage
	tMin, span := s.tMin, s.span
	traces := s.traces
	s.mu.RUnlock()

	r.objects = []fyne.CanvasObject{r.bg}

	size := s.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	const (
		marginLeft   = 60
		marginRight  = 110
		marginTop    = 20
		marginBottom = 40
	)
	v := viewport{
		x:    marginLeft,
		y:    marginTop,
		w:    size.Width - marginLeft - marginRight,
		h:    size.Height - marginTop - marginBottom,
		yMin: yMin,
		yMax: yMax,
		vMin: vMin,
		vMax: vMax,
		tMin: tMin,
		span: span,
	}
	if v.w <= 0 || v.h <= 0 {
		return
	}

	r.drawGrid(v, yStep)
	if hasVoltage {
		r.drawVoltageAxis(v, vStep)
	}
	for _, tr := range traces {
		r.drawTrace(v, tr, records)
	}
	r.drawLegend(v, traces)
}

func (r *scopeRenderer) drawGrid(v viewport, yStep float32) {
	// Temperature axis on the left.
	if yStep > 0 {
		for t := v.yMin; t <= v.yMax+yStep/2; t += yStep {
			y := v.yAt(t)
			r.hline(v, y)
			r.label(fmt.Sprintf("%.1f°C", t), v.x-5, y-6, fyne.TextAlignTrailing)
		}
	}

	// Duty axis on the right.
	for _, d := range []float32{-1, -0.5, 0, 0.5, 1} {
		r.label(fmt.Sprintf("%+.1f", d), v.x+v.w+5, v.dutyAt(d)-6, fyne.TextAlignLeading)
	}

	const numVLines = 10
	for i := range numVLines + 1 {
		x := v.x + float32(i)*v.w/numVLines
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, v.y)
		line.Position2 = fyne.NewPos(x, v.y+v.h)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		secs := float32(i) * v.span / numVLines
		r.label(fmt.Sprintf("%.0fs", secs), x-10, v.y+v.h+5, fyne.TextAlignCenter)
	}
}

// drawVoltageAxis labels the voltage scale right of the duty labels.
func (r *scopeRenderer) drawVoltageAxis(v viewport, vStep float32) {
	if vStep <= 0 {
		return
	}
	for u := v.vMin; u <= v.vMax+vStep/2; u += vStep {
		text := canvas.NewText(fmt.Sprintf("%.3gV", u), voltageColor)
		text.TextSize = 10
		text.Move(fyne.NewPos(v.x+v.w+50, v.voltAt(u)-6))
		r.objects = append(r.objects, text)
	}
}

func (r *scopeRenderer) drawTrace(v viewport, tr Trace, records []peltier.Status) {
	if len(records) < 2 {
		return
	}

	pts := make([]fyne.Position, len(records))
	ok := make([]bool, len(records))
	for i, rec := range records {
		val := float32(tr.Value(rec))
		ok[i] = finite(val)
		if !ok[i] {
			continue
		}
		pts[i] = fyne.NewPos(v.xAt(rec.Timestamp), v.at(tr.Axis, val))
	}

	for _, run := range runs(pts, ok) {
		for i := range len(run) - 1 {
			line := canvas.NewLine(tr.Color)
			line.Position1 = run[i]
			line.Position2 = run[i+1]
			line.StrokeWidth = tr.Width
			r.objects = append(r.objects, line)
		}
	}
}

func (r *scopeRenderer) drawLegend(v viewport, traces []Trace) {
	x := v.x + 10
	for _, tr := range traces {
		text := canvas.NewText(tr.Name, tr.Color)
		text.TextSize = 11
		text.Move(fyne.NewPos(x, v.y+5))
		r.objects = append(r.objects, text)
		x += float32(len(tr.Name))*7 + 12
	}
}

func (r *scopeRenderer) hline(v viewport, y float32) {
	line := canvas.NewLine(gridColor)
	line.Position1 = fyne.NewPos(v.x, y)
	line.Position2 = fyne.NewPos(v.x+v.w, y)
	line.StrokeWidth = 1
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) label(s string, x, y float32, align fyne.TextAlign) {
	text := canvas.NewText(s, labelColor)
	text.TextSize = 10
	text.Alignment = align
	text.Move(fyne.NewPos(x, y))
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}
