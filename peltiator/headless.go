package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/peltiator/pkg/config"
	"github.com/itohio/peltiator/pkg/peltier"
	"github.com/itohio/peltiator/pkg/record"
)

// headlessRun runs a gradient schedule and exports the records as CSV.
type headlessRun struct {
	cfg        *config.Config
	device     peltier.Device
	gradients  []float64
	duration   time.Duration
	output     string
	sampleName string
}

// Run connects, runs the schedule, levels the plates and writes the CSV. The
// records collected so far are written even if the schedule is interrupted.
func (h headlessRun) Run(ctx context.Context) error {
	if err := h.device.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer h.device.Close()

	if err := h.device.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if idn, err := h.device.Identify(); err == nil {
		log.Printf("Connected to %s", idn)
	} else {
		log.Printf("Identify failed: %v", err)
	}

	start := time.Now()
	rec := record.New(0)
	runErr := peltier.RunSchedule(ctx, h.device, h.gradients, h.cfg.Record.PollInterval, h.duration,
		func(grad float64, s peltier.Status) {
			log.Printf("grad %.2f: A %.2f/%.2f B %.2f/%.2f C %.2f out %+.2f %+.2f V %.6g",
				grad, s.MeasuredA, s.TargetA, s.MeasuredB, s.TargetB, s.MeasuredC, s.OutputA, s.OutputB, s.Voltage)
			rec.Add(s)
		})

	if err := h.device.Shutdown(); err != nil {
		log.Printf("Shutdown failed: %v", err)
	}

	if err := h.export(start, rec.Records()); err != nil {
		return err
	}
	return runErr
}

func (h headlessRun) export(start time.Time, records []peltier.Status) error {
	var w io.Writer = os.Stdout
	if h.output != "" {
		f, err := os.Create(h.output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", h.output, err)
		}
		defer f.Close()
		w = f
	}

	meta := append(record.DefaultMeta(h.sampleName, start),
		record.Meta{Key: "gradients", Value: formatSchedule(h.gradients)},
		record.Meta{Key: "step_duration", Value: h.duration.String()},
	)
	return record.WriteCSV(w, meta, records)
}

// parseSchedule parses a comma separated list of gradients.
func parseSchedule(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", field)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no gradients in %q", s)
	}
	return out, nil
}

func formatSchedule(gradients []float64) string {
	parts := make([]string, len(gradients))
	for i, g := range gradients {
		parts[i] = strconv.FormatFloat(g, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
