package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/alitto/pond/v2"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/delivery"
	"github.com/marcelsud/mes-webhooks/webhook/idempotency"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Sender delivers one payload to one endpoint
type Sender interface {
	Send(ctx context.Context, endpoint webhook.Endpoint, p payload.Payload, opts ...delivery.SendOption) webhook.DeliveryResult
}

/* Dispatcher fans an event out to every subscribed endpoint
 * Every endpoint delivery gets its own worker as soon as it is submitted,
 * so a slow or retrying endpoint never holds back another endpoint's attempts.
 */
type Dispatcher struct {
	registry webhook.EndpointRegistry
	sender   Sender
	cache    *idempotency.Cache
	logger   zerolog.Logger

	maxAttempts int
	pool        pond.Pool
	group       singleflight.Group
}

// NewDispatcher creates a dispatcher. cache may be nil to disable idempotency.
func NewDispatcher(registry webhook.EndpointRegistry, sender Sender, cache *idempotency.Cache, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		sender:      sender,
		cache:       cache,
		logger:      logger,
		maxAttempts: delivery.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(d)
	}
	// no concurrency cap: deliveries hold a worker through their backoff sleeps
	d.pool = pond.NewPool(0)
	return d
}

/* Trigger delivers eventType to its subscribers and returns the aggregate
 * It never returns an error: registry failures and task panics are folded into the result.
 * Cancelling ctx does not stop a trigger that already started.
 */
func (d *Dispatcher) Trigger(ctx context.Context, eventType string, data map[string]any, opts ...TriggerOption) webhook.DispatchResult {
	o := triggerOptions{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&o)
	}
	ctx = context.WithoutCancel(ctx)

	if o.idempotencyKey == "" {
		return d.dispatch(ctx, eventType, data, o)
	}

	// concurrent triggers with the same key share one dispatch
	v, _, _ := d.group.Do(o.idempotencyKey, func() (any, error) {
		return d.dispatchOnce(ctx, eventType, data, o), nil
	})
	res := v.(webhook.DispatchResult)
	res.Results = slices.Clone(res.Results)
	return res
}

func (d *Dispatcher) dispatchOnce(ctx context.Context, eventType string, data map[string]any, o triggerOptions) webhook.DispatchResult {
	logger := d.logger.With().Str("idempotency_key", o.idempotencyKey).Logger()

	if d.cache != nil {
		cached, hit, err := d.cache.Check(ctx, o.idempotencyKey)
		if err != nil {
			logger.Warn().Err(err).Msg("idempotency lookup failed, dispatching")
		}
		if hit {
			logger.Debug().Str("event", eventType).Msg("idempotent replay")
			return cached
		}
	}

	res := d.dispatch(ctx, eventType, data, o)

	if d.cache != nil && len(res.Results) > 0 {
		if err := d.cache.Store(ctx, o.idempotencyKey, res); err != nil {
			logger.Warn().Err(err).Msg("storing idempotency record")
		}
	}
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, eventType string, data map[string]any, o triggerOptions) webhook.DispatchResult {
	logger := d.logger.With().
		Str("event", eventType).
		Str("priority", o.priority.String()).
		Logger()

	endpoints, err := d.registry.ListSubscribed(ctx, eventType)
	if err != nil {
		logger.Error().Err(err).Msg("listing subscribed endpoints")
		return webhook.NewDispatchResult(nil)
	}
	endpoints = slices.DeleteFunc(endpoints, func(e webhook.Endpoint) bool { return !e.Enabled })
	if len(endpoints) == 0 {
		logger.Debug().Msg("no subscribed endpoints")
		return webhook.NewDispatchResult(nil)
	}

	p, err := payload.New(eventType, data)
	if err != nil {
		logger.Error().Err(err).Msg("building webhook payload")
		return webhook.NewDispatchResult(nil)
	}
	p = p.WithIdempotencyKey(o.idempotencyKey)

	results := make([]webhook.DeliveryResult, len(endpoints))
	group := d.pool.NewGroup()
	for i, endpoint := range endpoints {
		group.Submit(func() {
			results[i] = d.deliver(ctx, endpoint, p)
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("waiting for deliveries")
	}

	res := webhook.NewDispatchResult(results)
	logger.Info().
		Int("endpoints", len(endpoints)).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("event dispatched")
	return res
}

// deliver turns a panicking delivery into a failure result for that endpoint only
func (d *Dispatcher) deliver(ctx context.Context, endpoint webhook.Endpoint, p payload.Payload) (res webhook.DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Interface("panic", r).
				Str("endpoint_id", endpoint.ID).
				Msg("webhook delivery panicked")
			res = webhook.DeliveryResult{
				EndpointID: endpoint.ID,
				State:      webhook.Failed,
				Error:      fmt.Sprintf("delivery panicked: %v", r),
			}
		}
	}()

	attempts := endpoint.MaxAttempts
	if attempts <= 0 {
		attempts = d.maxAttempts
	}
	return d.sender.Send(ctx, endpoint, p, delivery.WithMaxAttempts(attempts))
}

// Close waits for in-flight deliveries and stops the worker pool
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}
