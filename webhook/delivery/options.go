package delivery

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultTimeout bounds a single attempt
	DefaultTimeout = 10 * time.Second
	// DefaultMaxAttempts is the attempt budget when none is given
	DefaultMaxAttempts = 3
	// DefaultInitialBackoff is the wait before the second attempt; it doubles after that
	DefaultInitialBackoff = 2 * time.Second
	// UserAgent identifies the sender on every request
	UserAgent = "MES-Webhooks/1.0"

	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderDelivery  = "X-Webhook-Delivery"
)

// Option configures an Engine
type Option func(*Engine)

// WithHTTPClient replaces the default SSRF-guarded client; nil keeps the default
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithURLValidator replaces the default URL validator
func WithURLValidator(v URLValidator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithTimeout sets the default per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxPayloadBytes sets the serialized body ceiling
func WithMaxPayloadBytes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPayloadBytes = n
		}
	}
}

// WithInitialBackoff sets the wait before the second attempt
func WithInitialBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.initialBackoff = d
		}
	}
}

// WithTimerFactory replaces the timer used for backoff waits
func WithTimerFactory(f func() backoff.Timer) Option {
	return func(e *Engine) {
		e.newTimer = f
	}
}

// WithClock replaces time.Now for latency measurement
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithObserver reports every final delivery result
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

type sendOptions struct {
	maxAttempts int
	healthGate  bool
	trackHealth bool
	deadLetter  bool
	writeLog    bool
}

func defaultSendOptions() sendOptions {
	return sendOptions{
		maxAttempts: DefaultMaxAttempts,
		healthGate:  true,
		trackHealth: true,
		deadLetter:  true,
		writeLog:    true,
	}
}

// SendOption adjusts a single Send call
type SendOption func(*sendOptions)

// WithMaxAttempts sets the attempt budget; values below 1 are ignored
func WithMaxAttempts(n int) SendOption {
	return func(o *sendOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithoutHealthGate sends even when the endpoint's score is below the gate
func WithoutHealthGate() SendOption {
	return func(o *sendOptions) {
		o.healthGate = false
	}
}

// WithoutHealthTracking leaves the health tracker untouched
func WithoutHealthTracking() SendOption {
	return func(o *sendOptions) {
		o.trackHealth = false
	}
}

// WithoutDeadLetter does not push exhausted deliveries to the dead letter queue
func WithoutDeadLetter() SendOption {
	return func(o *sendOptions) {
		o.deadLetter = false
	}
}

// WithoutDeliveryLog skips the delivery log sink
func WithoutDeliveryLog() SendOption {
	return func(o *sendOptions) {
		o.writeLog = false
	}
}
