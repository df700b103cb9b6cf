package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.DeliveryLogger
 * Every outcome is appended to a capped stream for tailing
 * The latest outcome per delivery id is kept in a hash with a TTL for lookups
 */

const (
	logStream          = "webhook:logs"     // Stream of every logged outcome
	deliveryHashPrefix = "webhook:delivery" // Hash naming: webhook:delivery:{delivery_id}

	// DefaultStreamMaxLen caps the log stream (approximate trimming)
	DefaultStreamMaxLen = 100_000
	// DefaultDeliveryTTL is how long a delivery hash is kept
	DefaultDeliveryTTL = 7 * 24 * time.Hour
)

// ErrDeliveryNotFound is returned when no hash exists for a delivery id
var ErrDeliveryNotFound = webhook.ErrDeliveryNotFound

type Repository struct {
	client       *redis.Client
	streamMaxLen int64
	deliveryTTL  time.Duration
}

// Option configures a Repository
type Option func(*Repository)

// WithStreamMaxLen overrides DefaultStreamMaxLen
func WithStreamMaxLen(n int64) Option {
	return func(r *Repository) {
		if n > 0 {
			r.streamMaxLen = n
		}
	}
}

// WithDeliveryTTL overrides DefaultDeliveryTTL
func WithDeliveryTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		if ttl > 0 {
			r.deliveryTTL = ttl
		}
	}
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int, opts ...Option) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	r := &Repository{
		client:       client,
		streamMaxLen: DefaultStreamMaxLen,
		deliveryTTL:  DefaultDeliveryTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Log appends entry to the stream and replaces the delivery hash
func (r *Repository) Log(ctx context.Context, entry webhook.DeliveryLog) error {
	fields, err := toFields(entry)
	if err != nil {
		return err
	}

	hashKey := deliveryKey(entry.DeliveryID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hashKey)
		pipe.HSet(ctx, hashKey, fields)
		pipe.Expire(ctx, hashKey, r.deliveryTTL)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: logStream,
			MaxLen: r.streamMaxLen,
			Approx: true,
			Values: fields,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing delivery log: %w", err)
	}
	return nil
}

// Healthcheck pings Redis
func (r *Repository) Healthcheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// GetDelivery returns the latest logged outcome for deliveryID
func (r *Repository) GetDelivery(ctx context.Context, deliveryID string) (webhook.DeliveryLog, error) {
	data, err := r.client.HGetAll(ctx, deliveryKey(deliveryID)).Result()
	if err != nil {
		return webhook.DeliveryLog{}, fmt.Errorf("getting delivery: %w", err)
	}
	if len(data) == 0 {
		return webhook.DeliveryLog{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, deliveryID)
	}
	return fromFields(data)
}

// RecentLogs returns up to count outcomes from the stream, newest first
func (r *Repository) RecentLogs(ctx context.Context, count int64) ([]webhook.DeliveryLog, error) {
	msgs, err := r.client.XRevRangeN(ctx, logStream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("reading log stream: %w", err)
	}

	logs := make([]webhook.DeliveryLog, 0, len(msgs))
	for _, msg := range msgs {
		data := make(map[string]string, len(msg.Values))
		for k, v := range msg.Values {
			if s, ok := v.(string); ok {
				data[k] = s
			}
		}
		entry, err := fromFields(data)
		if err != nil {
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations
func (r *Repository) GetClient() *redis.Client {
	return r.client
}

// Helper functions

func deliveryKey(deliveryID string) string {
	return fmt.Sprintf("%s:%s", deliveryHashPrefix, deliveryID)
}

// toFields flattens entry; nil status, body and error are left out
func toFields(entry webhook.DeliveryLog) (map[string]any, error) {
	body, err := entry.Payload.Bytes()
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	fields := map[string]any{
		"endpoint_id":   entry.EndpointID,
		"event_type":    entry.EventType,
		"payload":       string(body),
		"latency_ms":    entry.LatencyMs,
		"delivery_id":   entry.DeliveryID,
		"attempt_count": entry.AttemptCount,
		"created_at":    entry.CreatedAt.UnixMilli(),
	}
	if entry.StatusCode != nil {
		fields["status_code"] = *entry.StatusCode
	}
	if entry.ResponseBody != nil {
		fields["response_body"] = *entry.ResponseBody
	}
	if entry.Error != nil {
		fields["error"] = *entry.Error
	}
	return fields, nil
}

func fromFields(data map[string]string) (webhook.DeliveryLog, error) {
	entry := webhook.DeliveryLog{
		EndpointID:   data["endpoint_id"],
		EventType:    data["event_type"],
		LatencyMs:    parseInt64(data["latency_ms"]),
		DeliveryID:   data["delivery_id"],
		AttemptCount: int(parseInt64(data["attempt_count"])),
		CreatedAt:    time.UnixMilli(parseInt64(data["created_at"])),
	}
	if raw := data["payload"]; raw != "" {
		p, err := payload.Parse([]byte(raw))
		if err != nil {
			return webhook.DeliveryLog{}, fmt.Errorf("unmarshaling payload: %w", err)
		}
		entry.Payload = p
	}
	if v, ok := data["status_code"]; ok {
		code := int(parseInt64(v))
		entry.StatusCode = &code
	}
	if v, ok := data["response_body"]; ok {
		entry.ResponseBody = &v
	}
	if v, ok := data["error"]; ok {
		entry.Error = &v
	}
	return entry, nil
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// LogStreamLength returns the number of entries in the delivery log stream
func (r *Repository) LogStreamLength(ctx context.Context) (int64, error) {
	n, err := r.client.XLen(ctx, logStream).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("reading log stream length: %w", err)
	}
	return n, nil
}
