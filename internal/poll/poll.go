// Package poll runs the bounded-interval background refresh loop that is
// active only while a job is live.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickFunc performs one status refresh. Errors are logged by the loop and
// never stop it; each call is already bounded by the transport's own
// timeout and retry policy.
type TickFunc func(ctx context.Context) error

// Scheduler owns the single poll loop. Activate while active is a no-op,
// so no duplicate intervals can ever run.
type Scheduler struct {
	tick   TickFunc
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler around the given refresh func.
func New(tick TickFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{tick: tick, logger: logger}
}

// Activate starts the loop with the given interval. No-op when already
// running.
func (s *Scheduler) Activate(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, interval, done)
	s.logger.Debug("poll loop activated", "interval", interval)
}

// Deactivate stops the loop. It only cancels and returns; it must be
// callable from inside a tick (a refresh that observes a terminal job
// deactivates its own loop). An in-flight tick sees its context cancelled
// and must not apply its result.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.logger.Debug("poll loop deactivated")
}

// Active reports whether the loop is currently running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("status refresh failed", "error", err)
			}
		}
	}
}
