package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOptions is returned when a window or request ceiling is not positive
var ErrInvalidOptions = errors.New("invalid rate limit options")

// Options describes one fixed window
type Options struct {
	Window      time.Duration
	MaxRequests int
}

// Validate checks the window and ceiling
func (o Options) Validate() error {
	if o.Window <= 0 {
		return fmt.Errorf("%w: window must be positive", ErrInvalidOptions)
	}
	if o.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive", ErrInvalidOptions)
	}
	return nil
}

// Result is the decision for one call
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, never negative
func (r Result) RetryAfter(now time.Time) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Store counts calls per key inside a fixed window
type Store interface {
	/* Increment adds one call to key and returns the count inside the current window
	 * A window opens on the first call after the previous one reset
	 */
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter applies fixed-window limits on top of a Store
type Limiter struct {
	store Store
}

// New creates a limiter backed by store
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check records a call for identifier and reports whether it is allowed
func (l *Limiter) Check(ctx context.Context, identifier string, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	count, resetAt, err := l.store.Increment(ctx, identifier, opts.Window)
	if err != nil {
		return Result{}, fmt.Errorf("incrementing rate limit counter: %w", err)
	}

	remaining := opts.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(opts.MaxRequests),
		Limit:     opts.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
