package controller

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/itohio/peltiator/pkg/funcgen"
	"github.com/itohio/peltiator/pkg/hal"
	"github.com/itohio/peltiator/pkg/l298n"
	"github.com/itohio/peltiator/pkg/pid"
	"github.com/itohio/peltiator/pkg/thermistor"
)

const (
	// DefaultTarget is the setpoint of both plates after reset (°C).
	DefaultTarget = 25.0
	// DefaultPeriod is the drive period used when Options.Period is zero.
	DefaultPeriod = 100 * time.Millisecond
)

// Sensor index into Status/readings.
const (
	SensorA = iota
	SensorB
	SensorC
	numSensors
)

// Options configure a Controller.
type Options struct {
	Identity   string
	Period     time.Duration
	Kp, Ki, Kd float64
}

// Sensors are the plate thermistors A and B and the ambient thermistor C.
// Any of them may be nil.
type Sensors struct {
	A, B, C *thermistor.Sensor
}

// Status is a snapshot of the control loops.
type Status struct {
	TargetA   float64 `yaml:"temperatureA_target"`
	TargetB   float64 `yaml:"temperatureB_target"`
	MeasuredA float64 `yaml:"temperatureA_measured"`
	MeasuredB float64 `yaml:"temperatureB_measured"`
	MeasuredC float64 `yaml:"temperatureC_measured"`
	OutputA   float64 `yaml:"chanA_output"`
	OutputB   float64 `yaml:"chanB_output"`
	PIDA      bool    `yaml:"pidA_mode"`
	PIDB      bool    `yaml:"pidB_mode"`
}

type loop struct {
	pid    *pid.Controller
	mod    *funcgen.Generator
	target float64 // base setpoint, before modulation
	auto   bool
	output float64
}

func (l *loop) setpoint() (float64, error) {
	m, err := l.mod.Compute()
	if err != nil {
		return l.target, err
	}
	return l.target + m, nil
}

// Controller runs two temperature loops, one per bridge channel. Positive
// duty heats a plate.
//
// Exec and Status may be called concurrently with Step; Step itself must be
// called from a single goroutine.
type Controller struct {
	mu      sync.Mutex
	opts    Options
	clock   hal.Clock
	bridge  *l298n.Driver
	sensors [numSensors]*thermistor.Sensor

	loops    [2]loop
	measured [numSensors]float64
	faulty   [numSensors]bool
	lastStep uint32
	stepped  bool
}

// New creates a Controller with both PIDs off and targets at DefaultTarget.
func New(bridge *l298n.Driver, sensors Sensors, clock hal.Clock, opts Options) *Controller {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	c := &Controller{
		opts:    opts,
		clock:   clock,
		bridge:  bridge,
		sensors: [numSensors]*thermistor.Sensor{sensors.A, sensors.B, sensors.C},
	}
	for i := range c.loops {
		p := pid.New(opts.Kp, opts.Ki, opts.Kd)
		p.Set(DefaultTarget)
		c.loops[i] = loop{pid: p, mod: funcgen.New(clock), target: DefaultTarget}
	}
	for i := range c.measured {
		c.measured[i] = math.NaN()
	}
	return c
}

// Begin arms the bridge.
func (c *Controller) Begin() error {
	return c.bridge.Begin()
}

// Period returns the drive period of one Step.
func (c *Controller) Period() time.Duration {
	return c.opts.Period
}

// Step runs one control period: sample all sensors, update the loops that are
// in PID mode and drive the bridge. It blocks for the drive period.
func (c *Controller) Step() error {
	c.mu.Lock()

	now := c.clock.Micros()
	dt := c.opts.Period
	if c.stepped {
		dt = time.Duration(now-c.lastStep) * time.Microsecond
	}
	c.lastStep = now
	c.stepped = true

	c.sample()

	for i := range c.loops {
		l := &c.loops[i]
		sp, err := l.setpoint()
		if err != nil {
			log.Printf("Channel %s modulation disabled: %v", l298n.Channel(i), err)
			l.mod.SetOff()
		}
		l.pid.Track(sp)
		if !l.auto {
			continue
		}
		if math.IsNaN(c.measured[i]) {
			l.output = 0
			continue
		}
		l.output = l.pid.UpdateDuration(c.measured[i], dt)
	}
	dutyA, dutyB := c.loops[0].output, c.loops[1].output
	period := c.opts.Period
	c.mu.Unlock()

	return c.bridge.Drive(dutyA, dutyB, period)
}

// sample reads every sensor. A failed read stores NaN and is logged once
// until the sensor recovers.
func (c *Controller) sample() {
	for i, s := range c.sensors {
		if s == nil {
			c.measured[i] = math.NaN()
			continue
		}
		t, err := s.ReadTemperature()
		if err != nil {
			if !c.faulty[i] {
				log.Printf("Thermistor %c read failed: %v", 'A'+i, err)
			}
			c.faulty[i] = true
			c.measured[i] = math.NaN()
			continue
		}
		if c.faulty[i] {
			log.Printf("Thermistor %c recovered", 'A'+i)
		}
		c.faulty[i] = false
		c.measured[i] = t
	}
}

// Status returns a snapshot. Targets include any active modulation.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	spA, _ := c.loops[0].setpoint()
	spB, _ := c.loops[1].setpoint()
	return Status{
		TargetA:   spA,
		TargetB:   spB,
		MeasuredA: c.measured[SensorA],
		MeasuredB: c.measured[SensorB],
		MeasuredC: c.measured[SensorC],
		OutputA:   c.loops[0].output,
		OutputB:   c.loops[1].output,
		PIDA:      c.loops[0].auto,
		PIDB:      c.loops[1].auto,
	}
}

// SetTarget sets the base setpoint of ch.
func (c *Controller) SetTarget(ch l298n.Channel, celsius float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTarget(ch, celsius)
}

func (c *Controller) setTarget(ch l298n.Channel, celsius float64) {
	l := &c.loops[ch]
	l.target = celsius
	l.pid.Set(celsius)
}

// SetGradient spreads both targets symmetrically by grad around their mean.
func (c *Controller) SetGradient(grad float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mean := (c.loops[0].target + c.loops[1].target) / 2
	c.setTarget(l298n.ChannelA, mean+grad/2)
	c.setTarget(l298n.ChannelB, mean-grad/2)
}

// SetPID switches ch between PID and manual mode. Both transitions zero the
// output and reset the PID state.
func (c *Controller) SetPID(ch l298n.Channel, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := &c.loops[ch]
	if l.auto == on {
		return
	}
	l.auto = on
	l.output = 0
	l.pid.Reset()
}

// SetOutput sets the manual duty of ch. It fails while ch is in PID mode.
func (c *Controller) SetOutput(ch l298n.Channel, duty float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := &c.loops[ch]
	if l.auto {
		return errPIDActive(ch)
	}
	l.output = l298n.Clamp(duty)
	return nil
}

// SetModulation installs a waveform added to the base target of ch.
func (c *Controller) SetModulation(ch l298n.Channel, w funcgen.Waveform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loops[ch].mod.Set(w)
}
