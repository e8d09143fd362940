package gpib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMM_ReadVoltage(t *testing.T) {
	p := newPrologix(t, map[string]string{
		"*IDN?": "FAKE,DMM,0,1.0",
		"READ?": "+1.250000E-03",
	})
	d := NewDMM(p.addr(), 16, EOSLF, time.Second)
	require.NoError(t, d.Open())
	defer d.Close()

	assert.Equal(t, "FAKE,DMM,0,1.0", d.Identity())
	assert.Contains(t, p.received(), "CONF:VOLT:DC")

	v, err := d.ReadVoltage()
	require.NoError(t, err)
	assert.InDelta(t, 1.25e-3, v, 1e-12)
}

func TestDMM_MultiFieldReading(t *testing.T) {
	p := newPrologix(t, map[string]string{
		"*IDN?": "FAKE",
		"READ?": "-2.5E+00,+1.0E+02,+0",
	})
	d := NewDMM(p.addr(), 16, EOSLF, time.Second)
	require.NoError(t, d.Open())
	defer d.Close()

	v, err := d.ReadVoltage()
	require.NoError(t, err)
	assert.Equal(t, -2.5, v)
}

func TestDMM_BadReading(t *testing.T) {
	p := newPrologix(t, map[string]string{
		"*IDN?": "FAKE",
		"READ?": "OVLD",
	})
	d := NewDMM(p.addr(), 16, EOSLF, time.Second)
	require.NoError(t, d.Open())
	defer d.Close()

	_, err := d.ReadVoltage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OVLD")
}

func TestDMM_NotOpen(t *testing.T) {
	d := NewDMM("127.0.0.1:1", 16, EOSLF, time.Second)
	_, err := d.ReadVoltage()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, d.Close())
}

func TestDMM_OpenWithoutMeter(t *testing.T) {
	p := newPrologix(t, nil)
	d := NewDMM(p.addr(), 16, EOSLF, 50*time.Millisecond)
	assert.Error(t, d.Open())

	_, err := d.ReadVoltage()
	assert.ErrorIs(t, err, ErrClosed)
}
