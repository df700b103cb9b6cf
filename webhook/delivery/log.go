package delivery

import (
	"context"
	"errors"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/rs/zerolog"
)

// ZerologLog writes delivery log rows as structured log lines. Used when no store is configured.
type ZerologLog struct {
	logger zerolog.Logger
}

// NewZerologLog creates a log sink on top of logger
func NewZerologLog(logger zerolog.Logger) *ZerologLog {
	return &ZerologLog{logger: logger}
}

// Log implements webhook.DeliveryLogger
func (z *ZerologLog) Log(_ context.Context, entry webhook.DeliveryLog) error {
	level := zerolog.InfoLevel
	if entry.Error != nil {
		level = zerolog.WarnLevel
	}
	ev := z.logger.WithLevel(level)
	if entry.Error != nil {
		ev = ev.Str("error", *entry.Error)
	}
	if entry.StatusCode != nil {
		ev = ev.Int("status", *entry.StatusCode)
	}
	ev.Str("endpoint_id", entry.EndpointID).
		Str("event", entry.EventType).
		Str("delivery_id", entry.DeliveryID).
		Int("attempts", entry.AttemptCount).
		Int64("latency_ms", entry.LatencyMs).
		Msg("webhook delivery")
	return nil
}

// MultiLog writes every row to each sink in order
type MultiLog []webhook.DeliveryLogger

// Log implements webhook.DeliveryLogger. All sinks are tried; their errors are joined.
func (m MultiLog) Log(ctx context.Context, entry webhook.DeliveryLog) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Log(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
