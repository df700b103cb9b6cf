package webhook

import (
	"time"

	"github.com/marcelsud/mes-webhooks/webhook/payload"
)

// DeliveryResult is the outcome of delivering one event to one endpoint
type DeliveryResult struct {
	EndpointID string `json:"endpoint_id"`
	Success    bool   `json:"success"`
	// StatusCode is zero when no HTTP response was received
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
	State      State  `json:"state"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Attempts   int    `json:"attempts"`
}

// DispatchResult aggregates the per-endpoint results of one trigger
type DispatchResult struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Results []DeliveryResult `json:"results"`
}

// NewDispatchResult counts successes and failures over results
func NewDispatchResult(results []DeliveryResult) DispatchResult {
	agg := DispatchResult{Results: results}
	if agg.Results == nil {
		agg.Results = []DeliveryResult{}
	}
	for _, r := range agg.Results {
		if r.Success {
			agg.Sent++
		} else {
			agg.Failed++
		}
	}
	return agg
}

// HealthStats are the rolling counters kept per endpoint
type HealthStats struct {
	TotalCalls          int       `json:"total_calls"`
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccessAt       time.Time `json:"last_success_at,omitzero"`
	LastFailureAt       time.Time `json:"last_failure_at,omitzero"`
	// AvgLatencyMs is the running mean over successful calls only
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// SuccessRate returns SuccessCount/TotalCalls, or 1 when nothing was recorded
func (h HealthStats) SuccessRate() float64 {
	if h.TotalCalls == 0 {
		return 1
	}
	return float64(h.SuccessCount) / float64(h.TotalCalls)
}

// InstanceHealth is one service instance's published view of an endpoint
type InstanceHealth struct {
	InstanceID  string      `json:"instance_id"`
	EndpointID  string      `json:"endpoint_id"`
	Stats       HealthStats `json:"stats"`
	Score       int         `json:"score"`
	PublishedAt time.Time   `json:"published_at"`
}

// DeadLetterEntry is a delivery that exhausted its attempts
type DeadLetterEntry struct {
	ID            string          `json:"id"`
	EndpointID    string          `json:"endpoint_id"`
	EndpointName  string          `json:"endpoint_name"`
	EndpointURL   string          `json:"endpoint_url"`
	Payload       payload.Payload `json:"payload"`
	Error         string          `json:"error"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt time.Time       `json:"last_attempt_at"`

	// Endpoint is the snapshot replayed on retry, including its secret
	Endpoint Endpoint `json:"-"`
}

// DeliveryLog is one row written to the delivery log sink
type DeliveryLog struct {
	EndpointID   string
	EventType    string
	Payload      payload.Payload
	StatusCode   *int
	ResponseBody *string
	LatencyMs    int64
	Error        *string
	DeliveryID   string
	AttemptCount int
	CreatedAt    time.Time
}
