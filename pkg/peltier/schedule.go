package peltier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// StatusFunc receives each status polled during a schedule step.
type StatusFunc func(grad float64, s Status)

// RunSchedule applies each gradient in turn and polls the status every
// period for duration. Failed polls are logged and skipped; losing the
// connection ends the schedule.
func RunSchedule(ctx context.Context, dev Device, gradients []float64, period, duration time.Duration, onStatus StatusFunc) error {
	if period <= 0 {
		return fmt.Errorf("schedule: invalid sampling period %v", period)
	}
	log.Printf("Running gradient schedule %v: sampling every %v for %v", gradients, period, duration)

	for _, grad := range gradients {
		log.Printf("Setting gradient: %.2f", grad)
		if err := dev.SetGradient(grad); err != nil {
			return fmt.Errorf("schedule: set gradient %g: %w", grad, err)
		}
		if err := poll(ctx, dev, grad, period, duration, onStatus); err != nil {
			return err
		}
	}
	return nil
}

func poll(ctx context.Context, dev Device, grad float64, period, duration time.Duration, onStatus StatusFunc) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s, err := dev.Status()
		if errors.Is(err, ErrNotConnected) {
			return fmt.Errorf("schedule: %w", err)
		}
		if err != nil {
			log.Printf("Status poll failed: %v", err)
			continue
		}
		if onStatus != nil {
			onStatus(grad, s)
		}
	}
	return nil
}
