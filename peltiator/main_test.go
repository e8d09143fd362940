package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/itohio/peltiator/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{in: "0", want: []float64{0}},
		{in: "0, 2.5,-1", want: []float64{0, 2.5, -1}},
		{in: "1,,2,", want: []float64{1, 2}},
		{in: "", wantErr: true},
		{in: "1,x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSchedule(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDevice(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &peltier.Mock{}, newDevice(cfg, true))
	assert.IsType(t, &peltier.Serial{}, newDevice(cfg, false))

	cfg.DMM.Address = "192.168.1.50"
	dev := newDevice(cfg, true)
	require.IsType(t, &peltier.Metered{}, dev)
	assert.IsType(t, &peltier.Mock{}, dev.(*peltier.Metered).Device)
}

func TestHeadlessRun(t *testing.T) {
	cfg := config.Default()
	cfg.Mock.Period = 5 * time.Millisecond
	cfg.Record.PollInterval = 10 * time.Millisecond
	out := filepath.Join(t.TempDir(), "run.csv")

	run := headlessRun{
		cfg:        cfg,
		device:     peltier.NewMock(cfg),
		gradients:  []float64{0, 2},
		duration:   50 * time.Millisecond,
		output:     out,
		sampleName: "test",
	}
	require.NoError(t, run.Run(context.Background()))
	assert.False(t, run.device.IsConnected())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "#,sample_name,test\n")
	assert.Contains(t, text, "#,gradients,0 2\n")
	assert.Contains(t, text, strings.Join(record.Columns, ",")+"\n")
	assert.Contains(t, text, ",NaN\n", "no voltmeter")

	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Greater(t, len(lines), 6)
}

func TestFormatStatus(t *testing.T) {
	st := peltier.Status{Voltage: math.NaN()}
	assert.NotContains(t, formatStatus(st), "V ")

	st.Voltage = 0.0125
	assert.Contains(t, formatStatus(st), "V 0.0125")
}
