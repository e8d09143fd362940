package config

import (
	"fmt"
	"os"
	"time"

	"github.com/itohio/peltiator/pkg/thermistor"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	ADC         ADCConfig         `yaml:"adc"`
	Thermistors ThermistorsConfig `yaml:"thermistors"`
	PID         PIDConfig         `yaml:"pid"`
	Record      RecordConfig      `yaml:"record"`
	Mock        MockConfig        `yaml:"mock"`
	DMM         DMMConfig         `yaml:"dmm"`
	Identity    string            `yaml:"identity"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// ChannelPins are the L298N inputs of one bridge channel.
type ChannelPins struct {
	Forward int `yaml:"forward"`
	Reverse int `yaml:"reverse"`
	Enable  int `yaml:"enable"`
}

// Bridge pin backends of the simulated controller.
const (
	BackendSim      = "sim"
	BackendGPIOChip = "gpiochip"
	BackendPeriph   = "periph"
)

// BridgeConfig contains the dual H-bridge wiring and drive period.
// A channel with all pins zero is left unconfigured.
//
// Backend selects what the simulated controller drives the bridge pins
// through: the simulated board, a Linux GPIO chip or periph.io pins. The
// thermistors always stay simulated.
type BridgeConfig struct {
	ChannelA ChannelPins   `yaml:"channel_a"`
	ChannelB ChannelPins   `yaml:"channel_b"`
	Period   time.Duration `yaml:"period"`
	Backend  string        `yaml:"backend"`
	Chip     string        `yaml:"chip"`
}

// ADCConfig describes the analog front end.
type ADCConfig struct {
	VRef       float64 `yaml:"vref"`
	MaxSample  uint16  `yaml:"max_sample"`
	Oversample int     `yaml:"oversample"`
}

// ThermistorConfig binds a calibration to an analog pin.
type ThermistorConfig struct {
	Pin         int                    `yaml:"pin"`
	Calibration thermistor.Calibration `yaml:"calibration"`
}

// ThermistorsConfig holds the two plate sensors and the ambient sensor.
type ThermistorsConfig struct {
	A ThermistorConfig `yaml:"a"`
	B ThermistorConfig `yaml:"b"`
	C ThermistorConfig `yaml:"c"`
}

// PIDConfig contains the temperature loop gains. Output is a duty fraction.
type PIDConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// RecordConfig contains host side recording parameters.
type RecordConfig struct {
	WindowSeconds float64       `yaml:"window_seconds"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// MockConfig contains the simulated thermal plant.
type MockConfig struct {
	Ambient    float64       `yaml:"ambient"`     // Ambient temperature (°C)
	HeatRate   float64       `yaml:"heat_rate"`   // °C/s at full duty
	LossRate   float64       `yaml:"loss_rate"`   // 1/s relaxation towards ambient
	Coupling   float64       `yaml:"coupling"`    // 1/s heat exchange between plates
	NoiseLevel float64       `yaml:"noise_level"` // °C
	Period     time.Duration `yaml:"period"`      // Simulated drive period
}

// DMMConfig locates a multimeter behind a Prologix GPIB-Ethernet
// controller. An empty Address disables voltage recording.
type DMMConfig struct {
	Address     string        `yaml:"address"` // host or host:port
	GPIBAddress int           `yaml:"gpib_address"`
	EOS         int           `yaml:"eos"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultCalibration is a 10 kΩ NTC in a 10 kΩ divider.
var DefaultCalibration = thermistor.Calibration{
	A:      3.35e-3,
	B:      2.57e-4,
	C:      2.62e-6,
	R25:    10000,
	RFixed: 10000,
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyACM0",
			BaudRate:    115200,
			ReadTimeout: 250 * time.Millisecond,
		},
		Bridge: BridgeConfig{
			ChannelA: ChannelPins{Forward: 2, Reverse: 3, Enable: 9},
			ChannelB: ChannelPins{Forward: 4, Reverse: 5, Enable: 10},
			Period:   100 * time.Millisecond,
			Backend:  BackendSim,
			Chip:     "gpiochip0",
		},
		ADC: ADCConfig{
			VRef:       thermistor.DefaultVRef,
			MaxSample:  thermistor.DefaultMaxSample,
			Oversample: 4,
		},
		Thermistors: ThermistorsConfig{
			A: ThermistorConfig{Pin: 14, Calibration: DefaultCalibration},
			B: ThermistorConfig{Pin: 15, Calibration: DefaultCalibration},
			C: ThermistorConfig{Pin: 16, Calibration: DefaultCalibration},
		},
		PID: PIDConfig{
			Kp: 0.5,
			Ki: 0.05,
			Kd: 0.0,
		},
		Record: RecordConfig{
			WindowSeconds: 600,
			PollInterval:  time.Second,
		},
		Mock: MockConfig{
			Ambient:    22.0,
			HeatRate:   2.0,
			LossRate:   0.05,
			Coupling:   0.02,
			NoiseLevel: 0.02,
			Period:     50 * time.Millisecond,
		},
		DMM: DMMConfig{
			GPIBAddress: 16,
			EOS:         2,
			Timeout:     time.Second,
		},
		Identity: "peltiator dual peltier PID controller",
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Bridge.Period == 0 {
		c.Bridge.Period = def.Bridge.Period
	}
	if c.Bridge.Backend == "" {
		c.Bridge.Backend = def.Bridge.Backend
	}
	if c.Bridge.Chip == "" {
		c.Bridge.Chip = def.Bridge.Chip
	}

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}
	if c.ADC.MaxSample == 0 {
		c.ADC.MaxSample = def.ADC.MaxSample
	}
	if c.ADC.Oversample <= 0 {
		c.ADC.Oversample = 1
	}

	for _, th := range []*ThermistorConfig{&c.Thermistors.A, &c.Thermistors.B, &c.Thermistors.C} {
		if th.Calibration == (thermistor.Calibration{}) {
			th.Calibration = DefaultCalibration
		}
	}

	if c.Record.WindowSeconds == 0 {
		c.Record.WindowSeconds = def.Record.WindowSeconds
	}
	if c.Record.PollInterval == 0 {
		c.Record.PollInterval = def.Record.PollInterval
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.HeatRate == 0 {
		c.Mock.HeatRate = def.Mock.HeatRate
	}
	if c.Mock.LossRate == 0 {
		c.Mock.LossRate = def.Mock.LossRate
	}

	if c.DMM.GPIBAddress == 0 {
		c.DMM.GPIBAddress = def.DMM.GPIBAddress
	}
	if c.DMM.Timeout == 0 {
		c.DMM.Timeout = def.DMM.Timeout
	}

	if c.Identity == "" {
		c.Identity = def.Identity
	}
}

// Configured reports whether any pin of the channel is set.
func (p ChannelPins) Configured() bool {
	return p != (ChannelPins{})
}
