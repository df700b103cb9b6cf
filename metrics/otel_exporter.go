package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	gatherer      promclient.Gatherer

	// OTel meters and instruments
	meter                    metric.Meter
	healthScoreGauge         metric.Int64ObservableGauge
	consecutiveFailuresGauge metric.Int64ObservableGauge
	avgLatencyGauge          metric.Float64ObservableGauge
	deadLetterGauge          metric.Int64ObservableGauge
	loggedDeliveriesGauge    metric.Int64ObservableGauge
}

/* NewOTelExporter creates an OpenTelemetry metrics exporter with Prometheus format
 * reg receives the exporter's collector; nil selects the Prometheus default registry
 */
func NewOTelExporter(collector Collector, reg *promclient.Registry) (*OTelExporter, error) {
	var registerer promclient.Registerer = promclient.DefaultRegisterer
	var gatherer promclient.Gatherer = promclient.DefaultGatherer
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	// Create Prometheus exporter
	exporter, err := prometheus.New(prometheus.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"mes-webhooks",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		gatherer:      gatherer,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.healthScoreGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.endpoint.health_score",
		metric.WithDescription("Health score (0-100) per endpoint"),
		metric.WithUnit("{score}"),
		metric.WithInt64Callback(oe.observeHealthScores),
	)
	if err != nil {
		return fmt.Errorf("creating health score gauge: %w", err)
	}

	oe.consecutiveFailuresGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.endpoint.consecutive_failures",
		metric.WithDescription("Consecutive failed attempts per endpoint"),
		metric.WithUnit("{attempts}"),
		metric.WithInt64Callback(oe.observeConsecutiveFailures),
	)
	if err != nil {
		return fmt.Errorf("creating consecutive failures gauge: %w", err)
	}

	oe.avgLatencyGauge, err = oe.meter.Float64ObservableGauge(
		"webhook.endpoint.latency.avg",
		metric.WithDescription("Mean latency of successful attempts per endpoint"),
		metric.WithUnit("ms"),
		metric.WithFloat64Callback(oe.observeAvgLatency),
	)
	if err != nil {
		return fmt.Errorf("creating average latency gauge: %w", err)
	}

	oe.deadLetterGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.dead_letter.size",
		metric.WithDescription("Entries waiting in the dead letter queue"),
		metric.WithUnit("{entries}"),
		metric.WithInt64Callback(oe.observeDeadLetters),
	)
	if err != nil {
		return fmt.Errorf("creating dead letter gauge: %w", err)
	}

	oe.loggedDeliveriesGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.log.stream.length",
		metric.WithDescription("Entries in the delivery log stream"),
		metric.WithUnit("{entries}"),
		metric.WithInt64Callback(oe.observeLoggedDeliveries),
	)
	if err != nil {
		return fmt.Errorf("creating log stream gauge: %w", err)
	}

	return nil
}

// observeHealthScores is a callback that reports health scores
func (oe *OTelExporter) observeHealthScores(ctx context.Context, observer metric.Int64Observer) error {
	endpoints, err := oe.collector.GetEndpointHealth(ctx)
	if err != nil {
		return err
	}

	for endpointID, m := range endpoints {
		observer.Observe(int64(m.Score), metric.WithAttributes(
			attribute.String("endpoint.id", endpointID),
		))
	}

	return nil
}

// observeConsecutiveFailures is a callback that reports consecutive failures
func (oe *OTelExporter) observeConsecutiveFailures(ctx context.Context, observer metric.Int64Observer) error {
	endpoints, err := oe.collector.GetEndpointHealth(ctx)
	if err != nil {
		return err
	}

	for endpointID, m := range endpoints {
		observer.Observe(m.ConsecutiveFailures, metric.WithAttributes(
			attribute.String("endpoint.id", endpointID),
		))
	}

	return nil
}

// observeAvgLatency is a callback that reports mean latency
func (oe *OTelExporter) observeAvgLatency(ctx context.Context, observer metric.Float64Observer) error {
	endpoints, err := oe.collector.GetEndpointHealth(ctx)
	if err != nil {
		return err
	}

	for endpointID, m := range endpoints {
		observer.Observe(m.AvgLatencyMs, metric.WithAttributes(
			attribute.String("endpoint.id", endpointID),
		))
	}

	return nil
}

// observeDeadLetters is a callback that reports the dead letter queue size
func (oe *OTelExporter) observeDeadLetters(ctx context.Context, observer metric.Int64Observer) error {
	n, err := oe.collector.GetDeadLetterCount(ctx)
	if err != nil {
		return err
	}
	observer.Observe(n)
	return nil
}

// observeLoggedDeliveries is a callback that reports the log stream length
func (oe *OTelExporter) observeLoggedDeliveries(ctx context.Context, observer metric.Int64Observer) error {
	n, err := oe.collector.GetLoggedDeliveries(ctx)
	if err != nil {
		return err
	}
	observer.Observe(n)
	return nil
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.gatherer, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
