package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the delivery pipeline.
type Metrics struct {
	// Endpoints maps endpoint_id to its health figures
	Endpoints map[string]EndpointMetrics `json:"endpoints"`

	// DeadLetters is the number of entries waiting in the dead letter queue
	DeadLetters int64 `json:"dead_letters"`

	// LoggedDeliveries is the length of the delivery log stream, zero without Redis
	LoggedDeliveries int64 `json:"logged_deliveries"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// EndpointMetrics represents the health of one endpoint.
type EndpointMetrics struct {
	Score               int     `json:"score"`
	SuccessRate         float64 `json:"success_rate"`
	ConsecutiveFailures int64   `json:"consecutive_failures"`
	AvgLatencyMs        float64 `json:"avg_latency_ms"`
	TotalCalls          int64   `json:"total_calls"`
}

// Collector defines the interface for collecting metrics from the pipeline.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetEndpointHealth returns health figures per endpoint
	GetEndpointHealth(ctx context.Context) (map[string]EndpointMetrics, error)

	// GetDeadLetterCount returns the dead letter queue size
	GetDeadLetterCount(ctx context.Context) (int64, error)

	// GetLoggedDeliveries returns the delivery log stream length
	GetLoggedDeliveries(ctx context.Context) (int64, error)
}
