package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Bridge.Period)
	assert.Greater(t, cfg.Serial.ReadTimeout, cfg.Bridge.Period)
	assert.Equal(t, BackendSim, cfg.Bridge.Backend)
	assert.Empty(t, cfg.DMM.Address)
	assert.Equal(t, 16, cfg.DMM.GPIBAddress)
	assert.True(t, cfg.Bridge.ChannelA.Configured())
	assert.True(t, cfg.Bridge.ChannelB.Configured())
	assert.Equal(t, 5.0, cfg.ADC.VRef)
	assert.Equal(t, uint16(1023), cfg.ADC.MaxSample)
	assert.Equal(t, DefaultCalibration, cfg.Thermistors.A.Calibration)
	assert.Equal(t, 3.35e-3, cfg.Thermistors.C.Calibration.A)
	assert.Equal(t, float64(10000), cfg.Thermistors.B.Calibration.RFixed)
	assert.Equal(t, time.Second, cfg.Record.PollInterval)
	assert.NotEmpty(t, cfg.Identity)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
  baud_rate: 9600

bridge:
  channel_a: {forward: 7, reverse: 8, enable: 6}
  period: 250ms
  backend: gpiochip
  chip: gpiochip1

adc:
  vref: 3.3
  max_sample: 65535

thermistors:
  a:
    pin: 26
    calibration: {a: 3.354, b: 0.2569, c: 0.00262, r25: 10000, r_fixed: 4700, scale: 1000}

pid:
  kp: 1.5
  ki: 0.1

record:
  window_seconds: 30
  poll_interval: 2s

dmm:
  address: "192.168.1.50:1234"
  gpib_address: 22
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, ChannelPins{Forward: 7, Reverse: 8, Enable: 6}, cfg.Bridge.ChannelA)
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.Period)
	assert.Equal(t, BackendGPIOChip, cfg.Bridge.Backend)
	assert.Equal(t, "gpiochip1", cfg.Bridge.Chip)
	assert.Equal(t, "192.168.1.50:1234", cfg.DMM.Address)
	assert.Equal(t, 22, cfg.DMM.GPIBAddress)
	assert.Equal(t, time.Second, cfg.DMM.Timeout)
	assert.Equal(t, 3.3, cfg.ADC.VRef)
	assert.Equal(t, uint16(65535), cfg.ADC.MaxSample)
	assert.Equal(t, 26, cfg.Thermistors.A.Pin)
	assert.Equal(t, 4700.0, cfg.Thermistors.A.Calibration.RFixed)
	assert.Equal(t, 1000.0, cfg.Thermistors.A.Calibration.Scale)
	assert.Equal(t, 1.5, cfg.PID.Kp)
	assert.Equal(t, 30.0, cfg.Record.WindowSeconds)
	assert.Equal(t, 2*time.Second, cfg.Record.PollInterval)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultCalibration, cfg.Thermistors.B.Calibration)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("serial: [unterminated"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnsureDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ensureDefaults()

	def := Default()
	assert.Equal(t, def.Serial, cfg.Serial)
	assert.Equal(t, def.Bridge.Period, cfg.Bridge.Period)
	assert.Equal(t, def.ADC.VRef, cfg.ADC.VRef)
	assert.Equal(t, 1, cfg.ADC.Oversample)
	assert.Equal(t, DefaultCalibration, cfg.Thermistors.A.Calibration)
	assert.Equal(t, DefaultCalibration, cfg.Thermistors.C.Calibration)
	assert.Equal(t, def.Identity, cfg.Identity)
	assert.False(t, cfg.Bridge.ChannelA.Configured())
}

func TestSaveLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Serial.Port = "COM7"
	cfg.Bridge.ChannelB = ChannelPins{}
	cfg.PID.Kd = 0.25
	require.NoError(t, cfg.Save(p))

	loaded, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "COM7", loaded.Serial.Port)
	assert.False(t, loaded.Bridge.ChannelB.Configured())
	assert.Equal(t, 0.25, loaded.PID.Kd)
	assert.Equal(t, cfg.Bridge.Period, loaded.Bridge.Period)
}
