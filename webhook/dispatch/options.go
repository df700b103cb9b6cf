package dispatch

import (
	"strings"

	"golang.org/x/time/rate"
)

// DefaultReplayRate paces bulk dead-letter replays (deliveries per second)
const DefaultReplayRate = 5

// Priority is an advisory hint carried with a trigger
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityLow    Priority = "low"
)

// NewPriority parses a priority, falling back to PriorityNormal
func NewPriority(str string) Priority {
	switch Priority(strings.ToLower(str)) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

func (p Priority) String() string {
	return string(p)
}

type triggerOptions struct {
	idempotencyKey string
	priority       Priority
}

// TriggerOption adjusts a single trigger
type TriggerOption func(*triggerOptions)

// WithIdempotencyKey replays the stored result for repeated keys
func WithIdempotencyKey(key string) TriggerOption {
	return func(o *triggerOptions) {
		o.idempotencyKey = key
	}
}

// WithPriority tags the trigger; it is logged but does not reorder deliveries
func WithPriority(p Priority) TriggerOption {
	return func(o *triggerOptions) {
		o.priority = p
	}
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithDefaultMaxAttempts sets the attempt budget of endpoints that do not carry their own
func WithDefaultMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithReplayLimiter replaces the limiter pacing RetryAllDeadLetters
func WithReplayLimiter(l *rate.Limiter) ServiceOption {
	return func(s *Service) {
		s.replayLimiter = l
	}
}
