package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Loop drives one autopilot goroutine per started user. The goroutine ticks
// faster than any check interval and calls RunOnce each tick; the persisted
// interval gate inside RunOnce decides whether a tick actually runs, so the
// database stays the single authority on timing and enablement.
type Loop struct {
	autopilot *Autopilot
	settings  settingsToggler
	tick      time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	running map[string]*loopHandle
}

// loopHandle is one user's live goroutine: cancel aborts the in-flight cycle,
// done closes when run has returned.
type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type settingsToggler interface {
	SetEnabled(ctx context.Context, userID string, enabled bool) error
}

// NewLoop wires the controller. tick is the base poll period, not the user's
// check interval.
func NewLoop(autopilot *Autopilot, settings settingsToggler, tick time.Duration, logger *slog.Logger) *Loop {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Loop{
		autopilot: autopilot,
		settings:  settings,
		tick:      tick,
		logger:    logger.With("component", "loop"),
		running:   make(map[string]*loopHandle),
	}
}

// Start enables the user's autopilot and launches its loop goroutine. Calling
// Start on an already running user only re-persists the enabled flag.
func (l *Loop) Start(ctx context.Context, userID string) error {
	if err := l.settings.SetEnabled(ctx, userID, true); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.running[userID]; ok {
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	handle := &loopHandle{cancel: cancel, done: make(chan struct{})}
	l.running[userID] = handle
	go l.run(loopCtx, userID, handle.done)
	l.logger.Info("loop started", "user", userID)
	return nil
}

// Stop disables the user's autopilot, cancels its goroutine, and joins it:
// any in-flight cycle is aborted through its context and Stop does not return
// until the goroutine has exited. Stopping a user that is not running still
// persists the disabled flag.
func (l *Loop) Stop(ctx context.Context, userID string) error {
	if err := l.settings.SetEnabled(ctx, userID, false); err != nil {
		return err
	}

	l.mu.Lock()
	handle, ok := l.running[userID]
	if ok {
		delete(l.running, userID)
	}
	l.mu.Unlock()
	if !ok {
		return nil
	}

	handle.cancel()
	<-handle.done
	l.logger.Info("loop stopped", "user", userID)
	return nil
}

// StopAll cancels and joins every loop goroutine without touching persisted
// flags, so the loops resume after a restart. Used on shutdown.
func (l *Loop) StopAll() {
	l.mu.Lock()
	handles := make([]*loopHandle, 0, len(l.running))
	for userID, handle := range l.running {
		handles = append(handles, handle)
		delete(l.running, userID)
	}
	l.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
		<-handle.done
	}
}

// Running reports whether the user's loop goroutine is alive.
func (l *Loop) Running(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[userID]
	return ok
}

func (l *Loop) run(ctx context.Context, userID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	l.tickOnce(ctx, userID)
	for {
		select {
		case <-ticker.C:
			l.tickOnce(ctx, userID)
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) tickOnce(ctx context.Context, userID string) {
	tickCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	_, err := l.autopilot.RunOnce(tickCtx, userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotDue), errors.Is(err, ErrDisabled):
		// Expected most ticks; the persisted gate did its job.
	case ctx.Err() != nil:
		// Canceled by stop; the abort is intentional, not a failure.
	default:
		l.logger.Error("tick failed", "user", userID, "error", err)
	}
}
