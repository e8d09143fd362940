package peltier

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// countingPin counts writes on top of a gpiotest pin and fails them on
// demand.
type countingPin struct {
	*gpiotest.Pin
	highs atomic.Int32
	outs  atomic.Int32
	fail  atomic.Bool
}

func (p *countingPin) Out(l gpio.Level) error {
	p.outs.Add(1)
	if p.fail.Load() {
		return errors.New("line busy")
	}
	if l == gpio.High {
		p.highs.Add(1)
	}
	return p.Pin.Out(l)
}

func registerPins(t *testing.T, nums ...int) map[int]*countingPin {
	t.Helper()
	out := make(map[int]*countingPin, len(nums))
	for _, n := range nums {
		p := &countingPin{Pin: &gpiotest.Pin{N: hal.PeriphName(hal.Pin(n)), Num: n}}
		require.NoError(t, gpioreg.Register(p))
		t.Cleanup(func() { gpioreg.Unregister(p.N) })
		out[n] = p
	}
	return out
}

func TestMock_PeriphBridge(t *testing.T) {
	cfg := fastMockConfig()
	cfg.Bridge.Backend = config.BackendPeriph
	cfg.Bridge.ChannelA = config.ChannelPins{Forward: 80, Reverse: 81, Enable: 82}
	cfg.Bridge.ChannelB = config.ChannelPins{}
	pins := registerPins(t, 80, 81, 82)

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.Equal(t, gpio.High, pins[82].Read(), "enable armed")

	_, err := m.SendCommand("OUT_A 0.5")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return pins[80].highs.Load() > 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, pins[81].highs.Load())
}

func TestMock_BridgeFaultHoldsPeriod(t *testing.T) {
	cfg := fastMockConfig()
	cfg.Mock.Period = 10 * time.Millisecond
	cfg.Bridge.Backend = config.BackendPeriph
	cfg.Bridge.ChannelA = config.ChannelPins{Forward: 83, Reverse: 84, Enable: 85}
	cfg.Bridge.ChannelB = config.ChannelPins{}
	pins := registerPins(t, 83, 84, 85)

	m := NewMock(cfg)
	require.NoError(t, m.Connect())
	defer m.Close()

	pins[84].fail.Store(true)
	time.Sleep(20 * time.Millisecond)
	before := pins[84].outs.Load()
	time.Sleep(100 * time.Millisecond)

	// One failed write per held period, not a busy loop.
	assert.LessOrEqual(t, pins[84].outs.Load()-before, int32(20))
}

func TestMock_PeriphBridgeMissingPins(t *testing.T) {
	cfg := fastMockConfig()
	cfg.Bridge.Backend = config.BackendPeriph
	cfg.Bridge.ChannelA = config.ChannelPins{Forward: 90, Reverse: 91, Enable: 92}

	m := NewMock(cfg)
	err := m.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPIO90")
	assert.False(t, m.IsConnected())
}

func TestOpenBridge(t *testing.T) {
	pins, closer, err := openBridge(config.BridgeConfig{Backend: config.BackendSim})
	require.NoError(t, err)
	assert.Nil(t, pins)
	assert.Nil(t, closer)

	_, _, err = openBridge(config.BridgeConfig{Backend: config.BackendGPIOChip, Chip: "gpiochip-missing"})
	assert.Error(t, err)

	_, _, err = openBridge(config.BridgeConfig{Backend: "parport"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parport")
}

func TestBridgePins(t *testing.T) {
	cfg := config.BridgeConfig{ChannelB: config.ChannelPins{Forward: 4, Reverse: 5, Enable: 10}}
	assert.Equal(t, []hal.Pin{4, 5, 10}, bridgePins(cfg))
}
