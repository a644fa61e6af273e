// Package preview polls the camera for live frames independently of the trial
// workflow.
package preview

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"
)

// DefaultInterval is the preview refresh period.
const DefaultInterval = 50 * time.Millisecond

// Source yields the current camera frame.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (image.Image, error)

// Frame calls f.
func (f SourceFunc) Frame(ctx context.Context) (image.Image, error) { return f(ctx) }

// Ticker refreshes the latest preview frame on a fixed interval. A failed
// fetch is reported and the loop keeps going.
type Ticker struct {
	Source   Source
	Interval time.Duration
	// OnFrame receives each fetched frame. It must not block for long.
	OnFrame func(image.Image)
	// OnError receives fetch failures along with the running failure count.
	OnError func(err error, failures int)

	latest   atomic.Pointer[image.Image]
	frames   atomic.Int64
	failures atomic.Int64
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (t *Ticker) Run(ctx context.Context) error {
	if t.Source == nil {
		return errors.New("preview: nil source")
	}
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

func (t *Ticker) poll(ctx context.Context) {
	frame, err := t.Source.Frame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		n := t.failures.Add(1)
		if t.OnError != nil {
			t.OnError(err, int(n))
		}
		return
	}
	if frame == nil {
		return
	}
	t.latest.Store(&frame)
	t.frames.Add(1)
	if t.OnFrame != nil {
		t.OnFrame(frame)
	}
}

// Latest returns the most recent frame, or nil before the first success.
func (t *Ticker) Latest() image.Image {
	p := t.latest.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Stats reports the number of delivered frames and failed fetches.
func (t *Ticker) Stats() (frames, failures int) {
	return int(t.frames.Load()), int(t.failures.Load())
}
