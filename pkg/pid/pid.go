package pid

import "time"

// Controller is a PID controller with clamped output.
//
// The integral term stops accumulating while the output is saturated in the
// direction of the error.
//
// Not safe for concurrent use.
type Controller struct {
	kp, ki, kd float64
	setpoint   float64
	outMin     float64
	outMax     float64

	integral  float64
	prevError float64
	havePrev  bool
}

// New returns a controller with output limits [-1, 1].
func New(kp, ki, kd float64) *Controller {
	return &Controller{kp: kp, ki: ki, kd: kd, outMin: -1, outMax: 1}
}

func (p *Controller) SetOutputLimits(min, max float64) {
	p.outMin = min
	p.outMax = max
}

// SetGains changes the gains without resetting accumulated state.
func (p *Controller) SetGains(kp, ki, kd float64) {
	p.kp, p.ki, p.kd = kp, ki, kd
}

// Set changes the setpoint and resets the controller state.
func (p *Controller) Set(setpoint float64) {
	p.setpoint = setpoint
	p.Reset()
}

// Track changes the setpoint keeping integral state, for setpoints that move
// continuously.
func (p *Controller) Track(setpoint float64) {
	p.setpoint = setpoint
}

func (p *Controller) Setpoint() float64 {
	return p.setpoint
}

func (p *Controller) Reset() {
	p.integral = 0
	p.prevError = 0
	p.havePrev = false
}

func (p *Controller) UpdateDuration(measurement float64, dt time.Duration) float64 {
	if dt <= 0 {
		// No time => no update.
		return 0
	}
	sec := dt.Seconds()
	err := p.setpoint - measurement

	derivative := 0.0
	if p.havePrev {
		derivative = (err - p.prevError) / sec
	}
	p.prevError = err
	p.havePrev = true

	integral := p.integral + err*sec
	out := p.kp*err + p.ki*integral + p.kd*derivative
	switch {
	case out > p.outMax:
		out = p.outMax
		if err < 0 {
			p.integral = integral
		}
	case out < p.outMin:
		out = p.outMin
		if err > 0 {
			p.integral = integral
		}
	default:
		p.integral = integral
	}
	return out
}
