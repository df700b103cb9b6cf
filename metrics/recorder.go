package metrics

import (
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder counts final delivery results. It implements delivery.Observer.
type PrometheusRecorder struct {
	deliveries *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Final delivery results by event type and state",
		}, []string{"event_type", "state"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "HTTP attempts made per endpoint",
		}, []string{"endpoint_id"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_seconds",
			Help:    "Latency of the last attempt of each delivery",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"event_type"}),
	}

	for _, c := range []prometheus.Collector{r.deliveries, r.attempts, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveDelivery records one final result
func (r *PrometheusRecorder) ObserveDelivery(eventType string, result webhook.DeliveryResult) {
	r.deliveries.WithLabelValues(eventType, result.State.String()).Inc()
	if result.Attempts > 0 {
		r.attempts.WithLabelValues(result.EndpointID).Add(float64(result.Attempts))
		r.duration.WithLabelValues(eventType).Observe((time.Duration(result.LatencyMs) * time.Millisecond).Seconds())
	}
}
