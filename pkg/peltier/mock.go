package peltier

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/controller"
	"github.com/itohio/peltiator/pkg/hal"
	"github.com/itohio/peltiator/pkg/l298n"
	"github.com/itohio/peltiator/pkg/thermistor"
)

// Mock simulates the controller board in process: the real controller runs
// over simulated pins while a lumped thermal model of the two plates feeds
// the simulated ADC. With a gpiochip or periph bridge backend the drive goes
// out on real GPIO lines, which turns the mock into a bench driver for an
// L298N board.
type Mock struct {
	cfg *config.Config

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool

	sim     *hal.Sim
	bridge  io.Closer
	ctrl    *controller.Controller
	sensors [3]*thermistor.Sensor
	pins    [3]hal.Pin
	plant   plant
}

// NewMock creates a mocked device. A nil cfg uses config.Default.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Mock{cfg: cfg}
}

// Connect builds the simulated board and starts the control loop.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}

	cfg := *m.cfg
	if cfg.Mock.Period > 0 {
		cfg.Bridge.Period = cfg.Mock.Period
	}

	bridge, closer, err := openBridge(cfg.Bridge)
	if err != nil {
		return fmt.Errorf("failed to open bridge pins: %w", err)
	}

	sim := hal.NewSim(0)
	sys := hal.NewSystem()
	board := controller.Board{Pins: sim, Bridge: bridge, ADC: sim, Clock: sys, Wait: sys}

	m.sim = sim
	m.plant = newPlant(cfg.Mock)
	for i, th := range []config.ThermistorConfig{cfg.Thermistors.A, cfg.Thermistors.B, cfg.Thermistors.C} {
		m.sensors[i] = controller.NewSensor(&cfg, th, board)
		m.pins[i] = hal.Pin(th.Pin)
	}
	m.updateADC(0)

	ctrl, err := controller.Build(&cfg, board)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return fmt.Errorf("failed to build simulated controller: %w", err)
	}
	m.ctrl = ctrl
	m.bridge = closer

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.connected = true

	go m.run(ctx)

	return nil
}

// Close stops the control loop.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	bridge := m.bridge
	m.bridge = nil
	m.mu.Unlock()

	<-done
	if bridge != nil {
		return bridge.Close()
	}
	return nil
}

// IsConnected returns whether the mock is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Initialize levels the plates.
func (m *Mock) Initialize() error {
	_, err := m.exec(InitCommand)
	return err
}

// Shutdown leaves the plates at a common target.
func (m *Mock) Shutdown() error {
	_, err := m.exec(InitCommand)
	return err
}

// Identify returns the identification string.
func (m *Mock) Identify() (string, error) {
	return m.exec("*IDN?")
}

// SendCommand runs cmd and returns the response the firmware would print.
func (m *Mock) SendCommand(cmd string) (string, error) {
	ctrl, err := m.controller()
	if err != nil {
		return "", err
	}
	resp := ctrl.Respond(cmd)
	if resp == "" {
		return "", nil
	}
	return resp + "\n", nil
}

// SetPIDMode switches the PID loop of ch.
func (m *Mock) SetPIDMode(ch l298n.Channel, on bool) error {
	_, err := m.exec(pidCommand(ch, on))
	return err
}

// SetTarget sets the target temperature of ch.
func (m *Mock) SetTarget(ch l298n.Channel, celsius float64) error {
	_, err := m.exec(targetCommand(ch, celsius))
	return err
}

// SetGradient spreads the targets by grad around their mean.
func (m *Mock) SetGradient(grad float64) error {
	_, err := m.exec(gradCommand(grad))
	return err
}

// Status returns the simulated controller status.
func (m *Mock) Status() (Status, error) {
	ctrl, err := m.controller()
	if err != nil {
		return Status{}, err
	}
	return newStatus(ctrl.Status()), nil
}

// Plate returns the simulated plate temperatures A, B and ambient C.
func (m *Mock) Plate() [3]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plant.temps
}

func (m *Mock) controller() (*controller.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	return m.ctrl, nil
}

func (m *Mock) exec(cmd string) (string, error) {
	ctrl, err := m.controller()
	if err != nil {
		return "", err
	}
	resp, err := ctrl.Exec(cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDevice, err)
	}
	return strings.TrimSpace(resp), nil
}

// run steps the controller and integrates the plant over each step.
func (m *Mock) run(ctx context.Context) {
	defer close(m.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in mock control loop: %v", r)
		}
	}()

	start := time.Now()
	last := start
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.ctrl.Step(); err != nil {
			// A failed drive returns early; hold the period so a broken
			// bridge does not spin the loop.
			log.Printf("Mock controller step failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.ctrl.Period()):
			}
		}

		now := time.Now()
		s := m.ctrl.Status()

		m.mu.Lock()
		m.plant.step(s.OutputA, s.OutputB, now.Sub(last).Seconds())
		m.updateADC(now.Sub(start))
		m.mu.Unlock()

		last = now
	}
}

// updateADC sets the simulated counts from the plant temperatures with a
// small deterministic ripple.
func (m *Mock) updateADC(elapsed time.Duration) {
	t := elapsed.Seconds()
	for i, s := range m.sensors {
		noise := (math.Sin(t*7.1+float64(i)) + math.Cos(t*3.7)) * m.plant.cfg.NoiseLevel * 0.5
		n, err := s.Count(m.plant.temps[i] + noise)
		if err != nil {
			continue
		}
		m.sim.SetAnalog(m.pins[i], n)
	}
}

// plant is a lumped model of two plates on a shared heat sink. Positive duty
// heats a plate.
type plant struct {
	cfg   config.MockConfig
	temps [3]float64
}

func newPlant(cfg config.MockConfig) plant {
	return plant{cfg: cfg, temps: [3]float64{cfg.Ambient, cfg.Ambient, cfg.Ambient}}
}

func (p *plant) step(dutyA, dutyB, dt float64) {
	if dt <= 0 {
		return
	}
	a, b, amb := p.temps[0], p.temps[1], p.cfg.Ambient
	da := p.cfg.HeatRate*dutyA - p.cfg.LossRate*(a-amb) - p.cfg.Coupling*(a-b)
	db := p.cfg.HeatRate*dutyB - p.cfg.LossRate*(b-amb) - p.cfg.Coupling*(b-a)
	p.temps[0] = a + da*dt
	p.temps[1] = b + db*dt
	p.temps[2] = amb
}
