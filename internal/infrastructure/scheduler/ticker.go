// Package scheduler provides the cooperative tick driver behind the sweep
// and autopilot entry points.
package scheduler

import (
	"context"
	"time"

	"CardForge/internal/ports"
)

// TickerScheduler fires a job on a fixed interval. Start is non-blocking and
// fires once immediately; Stop cancels the goroutine and is safe to call
// before Start or twice.
type TickerScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

var _ ports.Scheduler = (*TickerScheduler)(nil)

// NewTickerScheduler builds a stopped scheduler.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	return &TickerScheduler{interval: interval}
}

// Start launches the tick loop. A second Start on a running scheduler is a
// no-op, so a driver cannot be doubled up by a restart race.
func (s *TickerScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the tick loop.
func (s *TickerScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
