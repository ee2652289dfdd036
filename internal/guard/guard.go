// Package guard serializes user-triggered mutating operations behind a
// single in-flight lock plus a post-success cooldown, the defense against
// duplicate submissions from repeated clicks or slow round-trips.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRejected means the guard refused the operation locally; no network
// call was issued. The UI must present this as "already in progress",
// never as a backend failure.
var ErrRejected = errors.New("operation rejected")

// DefaultCooldown is the post-success window during which duplicate-prone
// operations are rejected even though the lock is free.
const DefaultCooldown = 2 * time.Second

// duplicateProne lists the operations that get a cooldown after success.
// Everything else only holds the lock for its own duration.
var duplicateProne = map[string]bool{
	"enqueue":          true,
	"schedule-run-now": true,
}

// Guard is the single mutation gate for queue and schedule operations.
type Guard struct {
	cooldown time.Duration
	now      func() time.Time

	mu            sync.Mutex
	busy          bool
	cooldownUntil time.Time
}

// New creates a guard. A non-positive cooldown falls back to the default.
func New(cooldown time.Duration) *Guard {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Guard{cooldown: cooldown, now: time.Now}
}

// Attempt runs fn under the lock. It rejects immediately, without calling
// fn, while another operation is in flight or the cooldown window is open.
// The lock is released on every path; fn's error passes through untouched
// so callers can surface backend failures.
func (g *Guard) Attempt(ctx context.Context, op string, fn func(context.Context) error) error {
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w: another operation is in flight", op, ErrRejected)
	}
	if now := g.now(); now.Before(g.cooldownUntil) {
		g.mu.Unlock()
		return fmt.Errorf("%s: %w: cooling down for %s", op, ErrRejected, g.cooldownUntil.Sub(now).Round(time.Millisecond))
	}
	g.busy = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}()

	err := fn(ctx)

	if err == nil && duplicateProne[op] {
		g.mu.Lock()
		g.cooldownUntil = g.now().Add(g.cooldown)
		g.mu.Unlock()
	}
	return err
}

// Pending reports whether an operation is currently in flight. Drives the
// UI's "operation pending" control disabling.
func (g *Guard) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// CoolingDown reports whether the post-success cooldown window is open.
func (g *Guard) CoolingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.cooldownUntil)
}
