package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
)

// DefaultTTL is how long a dispatch result is replayed for the same key
const DefaultTTL = 24 * time.Hour

// ErrEmptyKey is returned when an empty key is stored
var ErrEmptyKey = errors.New("idempotency key cannot be empty")

// Record is a cached dispatch result
type Record struct {
	Response  webhook.DispatchResult `json:"response"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists records by key
type Store interface {
	// Get returns the record for key; found is false when the key is unknown
	Get(ctx context.Context, key string) (rec Record, found bool, err error)
	Set(ctx context.Context, key string, rec Record) error
}

// Cache replays dispatch results for repeated idempotency keys
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache on top of store
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

/* Check returns the cached response for key when it has not expired
 * Records past their expiry are treated as misses even if no sweep removed them yet
 */
func (c *Cache) Check(ctx context.Context, key string) (webhook.DispatchResult, bool, error) {
	if key == "" {
		return webhook.DispatchResult{}, false, nil
	}
	rec, found, err := c.store.Get(ctx, key)
	if err != nil {
		return webhook.DispatchResult{}, false, fmt.Errorf("reading idempotency record: %w", err)
	}
	if !found || rec.Expired(c.now()) {
		return webhook.DispatchResult{}, false, nil
	}
	return rec.Response, true, nil
}

// Store saves response under key, overwriting any previous record
func (c *Cache) Store(ctx context.Context, key string, response webhook.DispatchResult) error {
	if key == "" {
		return ErrEmptyKey
	}
	rec := Record{
		Response:  response,
		ExpiresAt: c.now().Add(c.ttl),
	}
	if err := c.store.Set(ctx, key, rec); err != nil {
		return fmt.Errorf("writing idempotency record: %w", err)
	}
	return nil
}

// TTL returns the configured time to live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
