package deadletter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"golang.org/x/time/rate"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted
const DefaultCapacity = 1000

// ErrNotFound is returned when no entry has the requested id
var ErrNotFound = errors.New("dead letter entry not found")

// RedeliverFunc performs one delivery attempt for a dead-lettered entry
type RedeliverFunc func(ctx context.Context, entry webhook.DeadLetterEntry) webhook.DeliveryResult

/* Queue is a bounded FIFO of deliveries that exhausted their attempts
 * Pushing beyond capacity evicts the oldest entry
 */
type Queue struct {
	mu       sync.Mutex
	entries  []webhook.DeadLetterEntry
	capacity int
	now      func() time.Time
}

// Option configures a Queue
type Option func(*Queue)

// WithCapacity overrides DefaultCapacity
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// New creates an empty queue
func New(opts ...Option) *Queue {
	q := &Queue{
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends a failed delivery and returns the stored entry
func (q *Queue) Push(endpoint webhook.Endpoint, p payload.Payload, deliveryErr string, attempts int) webhook.DeadLetterEntry {
	now := q.now()
	entry := webhook.DeadLetterEntry{
		ID:            uuid.New().String(),
		EndpointID:    endpoint.ID,
		EndpointName:  endpoint.Name,
		EndpointURL:   endpoint.URL,
		Payload:       p,
		Error:         deliveryErr,
		Attempts:      attempts,
		CreatedAt:     now,
		LastAttemptAt: now,
		Endpoint:      endpoint,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry)
	if over := len(q.entries) - q.capacity; over > 0 {
		clear(q.entries[:over])
		q.entries = q.entries[over:]
	}
	return entry
}

// List returns a snapshot of the entries, oldest first
func (q *Queue) List() []webhook.DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]webhook.DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Get returns the entry with id
func (q *Queue) Get(id string) (webhook.DeadLetterEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.indexOf(id); i >= 0 {
		return q.entries[i], nil
	}
	return webhook.DeadLetterEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Len returns the number of entries
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear removes every entry and returns how many were removed
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	q.entries = nil
	return n
}

/* Retry runs one redelivery for the entry with id
 * Success removes the entry; a failed attempt bumps its attempt count, error and last attempt time.
 * A result that made no attempt (skipped or rejected) leaves the entry untouched.
 * The lock is not held while redeliver runs.
 */
func (q *Queue) Retry(ctx context.Context, id string, redeliver RedeliverFunc) (webhook.DeliveryResult, error) {
	entry, err := q.Get(id)
	if err != nil {
		return webhook.DeliveryResult{}, err
	}

	result := redeliver(ctx, entry)

	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(id)
	if i < 0 {
		// evicted or cleared while the attempt was in flight
		return result, nil
	}
	if result.Success {
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return result, nil
	}
	if result.Attempts == 0 {
		return result, nil
	}
	q.entries[i].Attempts++
	q.entries[i].Error = result.Error
	q.entries[i].LastAttemptAt = q.now()
	return result, nil
}

// RetryAllResult summarizes a bulk replay
type RetryAllResult struct {
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RetryAll replays every current entry once, waiting on limiter between attempts
func (q *Queue) RetryAll(ctx context.Context, limiter *rate.Limiter, redeliver RedeliverFunc) (RetryAllResult, error) {
	var out RetryAllResult
	for _, entry := range q.List() {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return out, fmt.Errorf("waiting for replay slot: %w", err)
			}
		}
		res, err := q.Retry(ctx, entry.ID, redeliver)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		out.Retried++
		if res.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

func (q *Queue) indexOf(id string) int {
	for i := range q.entries {
		if q.entries[i].ID == id {
			return i
		}
	}
	return -1
}
