package record

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/itohio/peltiator/pkg/peltier"
)

// Recorder keeps a time-windowed FIFO of status records, oldest first.
type Recorder struct {
	window time.Duration

	mu      sync.RWMutex
	records []peltier.Status

	cbMu      sync.RWMutex
	callbacks []func(records []peltier.Status)
}

// New creates a Recorder keeping records younger than window. A zero window
// keeps everything.
func New(window time.Duration) *Recorder {
	return &Recorder{window: window}
}

// Add appends s, drops records that fell out of the window and notifies the
// update callbacks.
func (r *Recorder) Add(s peltier.Status) {
	r.mu.Lock()
	r.records = append(r.records, s)
	if r.window > 0 {
		cutoff := s.Timestamp.Add(-r.window)
		i := 0
		for i < len(r.records) && !r.records[i].Timestamp.After(cutoff) {
			i++
		}
		if i > 0 {
			r.records = append(r.records[:0], r.records[i:]...)
		}
	}
	r.mu.Unlock()

	r.notifyCallbacks()
}

// Records returns a copy of the buffered records.
func (r *Recorder) Records() []peltier.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]peltier.Status, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of buffered records.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Clear drops all records and notifies the update callbacks.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()

	r.notifyCallbacks()
}

// OnUpdate registers a callback invoked after every change with a copy of
// the records.
func (r *Recorder) OnUpdate(callback func(records []peltier.Status)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, callback)
}

// Poll adds a status from dev every interval until ctx is done or dev is
// disconnected. Failed polls are logged and skipped.
func (r *Recorder) Poll(ctx context.Context, dev peltier.Device, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s, err := dev.Status()
		if errors.Is(err, peltier.ErrNotConnected) {
			return err
		}
		if err != nil {
			log.Printf("Status poll failed: %v", err)
			continue
		}
		r.Add(s)
	}
}

func (r *Recorder) notifyCallbacks() {
	records := r.Records()

	r.cbMu.RLock()
	callbacks := make([]func([]peltier.Status), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(records)
		}
	}
}
