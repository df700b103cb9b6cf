package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/redis/go-redis/v9"
)

/* PublishHealth writes this instance's health stats so operators can see every instance
 * Keys expire after ttl; an instance that stops publishing disappears on its own
 */
func (r *Repository) PublishHealth(ctx context.Context, instanceID string, snapshot map[string]webhook.HealthStats, score func(webhook.HealthStats) int, ttl time.Duration) error {
	if len(snapshot) == 0 {
		return nil
	}
	now := time.Now()
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for endpointID, stats := range snapshot {
			data, err := json.Marshal(webhook.InstanceHealth{
				InstanceID:  instanceID,
				EndpointID:  endpointID,
				Stats:       stats,
				Score:       score(stats),
				PublishedAt: now,
			})
			if err != nil {
				return fmt.Errorf("marshaling endpoint health: %w", err)
			}
			pipe.Set(ctx, healthKey(endpointID, instanceID), data, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing endpoint health: %w", err)
	}
	return nil
}

// GetPublishedHealth returns every live instance's view of endpointID
func (r *Repository) GetPublishedHealth(ctx context.Context, endpointID string) ([]webhook.InstanceHealth, error) {
	byEndpoint, err := r.scanHealth(ctx, fmt.Sprintf("webhook:health:%s:*", endpointID))
	if err != nil {
		return nil, err
	}
	return byEndpoint[endpointID], nil
}

// GetAllPublishedHealth retrieves every live view grouped by endpoint
func (r *Repository) GetAllPublishedHealth(ctx context.Context) (map[string][]webhook.InstanceHealth, error) {
	return r.scanHealth(ctx, "webhook:health:*")
}

func (r *Repository) scanHealth(ctx context.Context, pattern string) (map[string][]webhook.InstanceHealth, error) {
	byEndpoint := make(map[string][]webhook.InstanceHealth)

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning health keys: %w", err)
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				// Key expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting endpoint health: %w", err)
			}

			var h webhook.InstanceHealth
			if err := json.Unmarshal([]byte(data), &h); err != nil {
				continue
			}
			byEndpoint[h.EndpointID] = append(byEndpoint[h.EndpointID], h)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return byEndpoint, nil
}

func healthKey(endpointID, instanceID string) string {
	return fmt.Sprintf("webhook:health:%s:%s", endpointID, instanceID)
}
