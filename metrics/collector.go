package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/health"
)

// HealthSource exposes per-endpoint stats
type HealthSource interface {
	Snapshot() map[string]webhook.HealthStats
}

// DeadLetterSource exposes the dead letter queue size
type DeadLetterSource interface {
	Len() int
}

// StreamLengthFunc reports the delivery log stream length
type StreamLengthFunc func(ctx context.Context) (int64, error)

// PipelineCollector implements the Collector interface over the in-process pipeline state
type PipelineCollector struct {
	health      HealthSource
	deadLetters DeadLetterSource
	streamLen   StreamLengthFunc
}

// NewPipelineCollector creates a new collector. streamLen may be nil.
func NewPipelineCollector(h HealthSource, deadLetters DeadLetterSource, streamLen StreamLengthFunc) *PipelineCollector {
	return &PipelineCollector{
		health:      h,
		deadLetters: deadLetters,
		streamLen:   streamLen,
	}
}

// Collect gathers all metrics
func (c *PipelineCollector) Collect(ctx context.Context) (Metrics, error) {
	endpoints, err := c.GetEndpointHealth(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting endpoint health: %w", err)
	}

	deadLetters, err := c.GetDeadLetterCount(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting dead letter count: %w", err)
	}

	logged, err := c.GetLoggedDeliveries(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting logged deliveries: %w", err)
	}

	return Metrics{
		Endpoints:        endpoints,
		DeadLetters:      deadLetters,
		LoggedDeliveries: logged,
		Timestamp:        time.Now(),
	}, nil
}

// GetEndpointHealth returns the health figures of every tracked endpoint
func (c *PipelineCollector) GetEndpointHealth(_ context.Context) (map[string]EndpointMetrics, error) {
	snapshot := c.health.Snapshot()
	out := make(map[string]EndpointMetrics, len(snapshot))
	for id, stats := range snapshot {
		out[id] = EndpointMetrics{
			Score:               health.Score(stats),
			SuccessRate:         stats.SuccessRate(),
			ConsecutiveFailures: int64(stats.ConsecutiveFailures),
			AvgLatencyMs:        stats.AvgLatencyMs,
			TotalCalls:          int64(stats.TotalCalls),
		}
	}
	return out, nil
}

// GetDeadLetterCount returns the dead letter queue size
func (c *PipelineCollector) GetDeadLetterCount(_ context.Context) (int64, error) {
	return int64(c.deadLetters.Len()), nil
}

// GetLoggedDeliveries returns the delivery log stream length, zero when no stream is configured
func (c *PipelineCollector) GetLoggedDeliveries(ctx context.Context) (int64, error) {
	if c.streamLen == nil {
		return 0, nil
	}
	return c.streamLen(ctx)
}
