package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/health"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"github.com/marcelsud/mes-webhooks/webhook/validation"
	"github.com/rs/zerolog"
)

// URLValidator rejects unsafe destinations before any request is made
type URLValidator interface {
	Validate(ctx context.Context, rawURL string) error
}

// HealthRecorder is the part of the health tracker the engine uses
type HealthRecorder interface {
	Record(endpointID string, success bool, latencyMs int64) bool
	Score(endpointID string) int
}

// DeadLetterSink receives deliveries that exhausted their attempts
type DeadLetterSink interface {
	Push(endpoint webhook.Endpoint, p payload.Payload, deliveryErr string, attempts int) webhook.DeadLetterEntry
}

// Observer is told about every final delivery result
type Observer interface {
	ObserveDelivery(eventType string, result webhook.DeliveryResult)
}

/* Engine delivers one payload to one endpoint
 * Validation and the health gate run once, then attempts are retried with exponential backoff
 */
type Engine struct {
	health      HealthRecorder
	deadLetters DeadLetterSink
	log         webhook.DeliveryLogger
	logger      zerolog.Logger

	client          httpDoer
	validator       URLValidator
	observer        Observer
	timeout         time.Duration
	maxPayloadBytes int
	initialBackoff  time.Duration
	newTimer        func() backoff.Timer
	now             func() time.Time
}

// New creates an engine. deadLetters and log may be nil.
func New(tracker HealthRecorder, deadLetters DeadLetterSink, log webhook.DeliveryLogger, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		health:          tracker,
		deadLetters:     deadLetters,
		log:             log,
		logger:          logger,
		timeout:         DefaultTimeout,
		maxPayloadBytes: validation.DefaultMaxPayloadBytes,
		initialBackoff:  DefaultInitialBackoff,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = NewHTTPClient(true)
	}
	if e.validator == nil {
		e.validator = validation.NewURLValidator()
	}
	return e
}

// Send delivers p to endpoint and never returns an error; failures are described by the result
func (e *Engine) Send(ctx context.Context, endpoint webhook.Endpoint, p payload.Payload, opts ...SendOption) webhook.DeliveryResult {
	o := defaultSendOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := e.logger.With().
		Str("endpoint_id", endpoint.ID).
		Str("event", p.Event).
		Logger()

	result := webhook.DeliveryResult{EndpointID: endpoint.ID, State: webhook.Validating}

	if err := e.validator.Validate(ctx, endpoint.URL); err != nil {
		logger.Warn().Err(err).Msg("webhook url rejected")
		return e.finish(p.Event, reject(result, err))
	}

	if o.healthGate && e.health != nil {
		if score := e.health.Score(endpoint.ID); score < health.GateThreshold {
			result.State = webhook.Skipped
			result.Error = fmt.Sprintf("%v: score %d", ErrHealthGate, score)
			logger.Warn().Int("score", score).Msg("skipping unhealthy endpoint")
			return e.finish(p.Event, result)
		}
	}

	deliveryID := p.DeliveryID
	if deliveryID == "" {
		deliveryID = uuid.New().String()
	}
	p = p.WithDeliveryID(deliveryID)
	result.DeliveryID = deliveryID
	logger = logger.With().Str("delivery_id", deliveryID).Logger()

	body, err := p.Bytes()
	if err != nil {
		return e.finish(p.Event, reject(result, fmt.Errorf("%w: %v", validation.ErrInvalidPayload, err)))
	}
	if err := validation.ValidatePayload(body, e.maxPayloadBytes); err != nil {
		logger.Warn().Err(err).Msg("webhook payload rejected")
		return e.finish(p.Event, reject(result, err))
	}

	timeout := e.timeout
	if endpoint.Timeout > 0 {
		timeout = endpoint.Timeout
	}

	result.State = webhook.Attempting
	var last attemptResult
	operation := func() error {
		result.Attempts++
		last = e.attempt(ctx, endpoint, p, body, timeout)
		if o.trackHealth && e.health != nil {
			if e.health.Record(endpoint.ID, last.err == nil, last.latencyMs) {
				logger.Warn().Msg("endpoint reached consecutive failure threshold")
			}
		}
		return last.err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", result.Attempts).
			Dur("next_retry_in", next).
			Msg("webhook delivery failed, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), uint64(o.maxAttempts-1)), ctx)
	var timer backoff.Timer
	if e.newTimer != nil {
		timer = e.newTimer()
	}
	err = backoff.RetryNotifyWithTimer(operation, b, notify, timer)

	result.StatusCode = last.statusCode
	result.LatencyMs = last.latencyMs

	if err == nil {
		result.Success = true
		result.State = webhook.Succeeded
		if o.writeLog {
			status := last.statusCode
			respBody := last.body
			e.writeLog(ctx, webhook.DeliveryLog{
				EndpointID:   endpoint.ID,
				EventType:    p.Event,
				Payload:      p,
				StatusCode:   &status,
				ResponseBody: &respBody,
				LatencyMs:    last.latencyMs,
				DeliveryID:   deliveryID,
				AttemptCount: result.Attempts,
				CreatedAt:    e.now(),
			})
		}
		logger.Debug().Int("attempts", result.Attempts).Int("status", last.statusCode).Msg("webhook delivered")
		return e.finish(p.Event, result)
	}

	failure := err
	if last.err != nil {
		failure = last.err
	}
	result.Error = failure.Error()
	result.State = webhook.Failed
	if o.deadLetter && e.deadLetters != nil {
		entry := e.deadLetters.Push(endpoint, p, result.Error, result.Attempts)
		result.State = webhook.DeadLettered
		logger.Error().Err(failure).Int("attempts", result.Attempts).Str("dead_letter_id", entry.ID).Msg("webhook moved to dead letter queue")
	}
	if o.writeLog {
		msg := result.Error
		e.writeLog(ctx, webhook.DeliveryLog{
			EndpointID:   endpoint.ID,
			EventType:    p.Event,
			Payload:      p,
			LatencyMs:    last.latencyMs,
			Error:        &msg,
			DeliveryID:   deliveryID,
			AttemptCount: result.Attempts,
			CreatedAt:    e.now(),
		})
	}
	return e.finish(p.Event, result)
}

func (e *Engine) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.initialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	return b
}

// writeLog never lets the sink fail or crash a delivery
func (e *Engine) writeLog(ctx context.Context, entry webhook.DeliveryLog) {
	if e.log == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("delivery_id", entry.DeliveryID).Msg("delivery log sink panicked")
		}
	}()
	if err := e.log.Log(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Warn().Err(err).Str("delivery_id", entry.DeliveryID).Msg("writing delivery log")
	}
}

func (e *Engine) finish(eventType string, result webhook.DeliveryResult) webhook.DeliveryResult {
	if e.observer != nil {
		e.observer.ObserveDelivery(eventType, result)
	}
	return result
}

func reject(result webhook.DeliveryResult, err error) webhook.DeliveryResult {
	result.State = webhook.Rejected
	result.Error = err.Error()
	return result
}
