package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook/idempotency"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "webhook:idempotency" // String naming: webhook:idempotency:{key}
	rateLimitPrefix   = "webhook:ratelimit"   // Counter naming: webhook:ratelimit:{identifier}
)

// IdempotencyStore implements idempotency.Store with one expiring string per key
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore shares the repository's connection
func (r *Repository) NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{client: r.client}
}

// Get implements idempotency.Store
func (s *IdempotencyStore) Get(ctx context.Context, key string) (idempotency.Record, bool, error) {
	raw, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, fmt.Errorf("getting idempotency record: %w", err)
	}

	var rec idempotency.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return idempotency.Record{}, false, fmt.Errorf("unmarshaling idempotency record: %w", err)
	}
	return rec, true, nil
}

// Set implements idempotency.Store; Redis expires the key at rec.ExpiresAt
func (s *IdempotencyStore) Set(ctx context.Context, key string, rec idempotency.Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl < time.Millisecond {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("setting idempotency record: %w", err)
	}
	return nil
}

/* incrementScript opens a window on the first call and returns {count, pttl}
 * A counter left without expiry is given one so it cannot block forever
 */
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimitStore implements ratelimit.Store with INCR and PEXPIRE
type RateLimitStore struct {
	client *redis.Client
}

// NewRateLimitStore shares the repository's connection
func (r *Repository) NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{client: r.client}
}

// Increment implements ratelimit.Store
func (s *RateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	vals, err := incrementScript.Run(ctx, s.client, []string{rateLimitKey(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit reply: %v", vals)
	}
	return vals[0], time.Now().Add(time.Duration(vals[1]) * time.Millisecond), nil
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("%s:%s", idempotencyPrefix, key)
}

func rateLimitKey(identifier string) string {
	return fmt.Sprintf("%s:%s", rateLimitPrefix, identifier)
}
