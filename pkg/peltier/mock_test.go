package peltier

import (
	"strings"
	"testing"
	"time"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/l298n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastMockConfig() *config.Config {
	cfg := config.Default()
	cfg.ADC.Oversample = 1
	cfg.Mock.Period = 5 * time.Millisecond
	cfg.Mock.HeatRate = 50
	cfg.Mock.NoiseLevel = 0
	return cfg
}

func TestMock_ConnectClose(t *testing.T) {
	m := NewMock(fastMockConfig())
	assert.False(t, m.IsConnected())
	_, err := m.Status()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, m.Connect())
	assert.True(t, m.IsConnected())
	assert.ErrorIs(t, m.Connect(), ErrAlreadyConnected)

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
	assert.NoError(t, m.Close())
	assert.ErrorIs(t, m.SetGradient(1), ErrNotConnected)

	// Reconnecting starts a fresh board.
	require.NoError(t, m.Connect())
	defer m.Close()
	s, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, 25.0, s.TargetA)
}

func TestMock_NilConfig(t *testing.T) {
	m := NewMock(nil)
	assert.Equal(t, config.Default().Identity, m.cfg.Identity)
}

func TestMock_Commands(t *testing.T) {
	cfg := fastMockConfig()
	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	idn, err := m.Identify()
	require.NoError(t, err)
	assert.Equal(t, cfg.Identity, idn)

	require.NoError(t, m.Initialize())
	require.NoError(t, m.SetTarget(l298n.ChannelA, 28))
	require.NoError(t, m.SetTarget(l298n.ChannelB, 22))
	require.NoError(t, m.SetGradient(2))

	s, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, 26.0, s.TargetA)
	assert.Equal(t, 24.0, s.TargetB)
	assert.False(t, s.Timestamp.IsZero())

	resp, err := m.SendCommand("*IDN?")
	require.NoError(t, err)
	assert.Equal(t, cfg.Identity+"\n", resp)

	resp, err = m.SendCommand("BOGUS")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp, "ERR "), resp)

	resp, err = m.SendCommand("STATUS?")
	require.NoError(t, err)
	doc, err := ParseStatus(resp)
	require.NoError(t, err)
	assert.Equal(t, 26.0, doc.TargetA)

	_, err = m.exec("TEMP_A warm")
	assert.ErrorIs(t, err, ErrDevice)
}

func TestMock_PIDHeatsPlate(t *testing.T) {
	cfg := fastMockConfig()
	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	require.NoError(t, m.SetTarget(l298n.ChannelA, cfg.Mock.Ambient+5))
	require.NoError(t, m.SetTarget(l298n.ChannelB, cfg.Mock.Ambient-5))
	require.NoError(t, m.SetPIDMode(l298n.ChannelA, true))
	require.NoError(t, m.SetPIDMode(l298n.ChannelB, true))

	require.Eventually(t, func() bool {
		p := m.Plate()
		return p[0] > cfg.Mock.Ambient+1 && p[1] < cfg.Mock.Ambient-1
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		s, err := m.Status()
		return err == nil && s.MeasuredA > s.MeasuredB
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Shutdown())
}

func TestPlant_Step(t *testing.T) {
	cfg := config.MockConfig{Ambient: 20, HeatRate: 2, LossRate: 0.1, Coupling: 0}
	p := newPlant(cfg)

	p.step(1, -1, 1)
	assert.InDelta(t, 22, p.temps[0], 1e-9)
	assert.InDelta(t, 18, p.temps[1], 1e-9)
	assert.Equal(t, 20.0, p.temps[2])

	// Without drive both plates relax towards ambient.
	for i := 0; i < 100; i++ {
		p.step(0, 0, 1)
	}
	assert.InDelta(t, 20, p.temps[0], 0.01)
	assert.InDelta(t, 20, p.temps[1], 0.01)

	p.step(1, 1, 0)
	assert.InDelta(t, 20, p.temps[0], 0.01)
}

func TestPlant_Coupling(t *testing.T) {
	p := newPlant(config.MockConfig{Ambient: 20, Coupling: 0.5})
	p.temps[0], p.temps[1] = 30, 10
	p.step(0, 0, 0.1)
	assert.InDelta(t, 29, p.temps[0], 1e-9)
	assert.InDelta(t, 11, p.temps[1], 1e-9)
}
