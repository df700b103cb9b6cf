package dispatch

import (
	"context"
	"fmt"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/deadletter"
	"github.com/marcelsud/mes-webhooks/webhook/delivery"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// TestEndpointID identifies the synthetic endpoint used by SendTestWebhook
const TestEndpointID = "test"

// TestEventType is the event sent by SendTestWebhook
const TestEventType = "test"

// TriggerParams are the optional inputs of TriggerWebhook
type TriggerParams struct {
	IdempotencyKey string
	Priority       Priority
}

// UseCase defines the operations exposed to the HTTP layer and the CLI
type UseCase interface {
	TriggerWebhook(ctx context.Context, eventType string, data map[string]any, params TriggerParams) webhook.DispatchResult
	SendTestWebhook(ctx context.Context, url, secret string) webhook.DeliveryResult
	GetDeadLetterQueue(ctx context.Context) []webhook.DeadLetterEntry
	RetryDeadLetterEntry(ctx context.Context, id string) (webhook.DeliveryResult, error)
	RetryAllDeadLetters(ctx context.Context) (deadletter.RetryAllResult, error)
	ClearDeadLetterQueue(ctx context.Context) int
	GetWebhookHealth(ctx context.Context, endpointID string) (webhook.HealthStats, bool)
	CalculateHealthScore(ctx context.Context, endpointID string) int
	ResetWebhookHealth(ctx context.Context, endpointID string)
}

// HealthView is the part of the health tracker exposed to operators
type HealthView interface {
	Get(endpointID string) (webhook.HealthStats, bool)
	Score(endpointID string) int
	Reset(endpointID string)
}

type Service struct {
	dispatcher    *Dispatcher
	sender        Sender
	health        HealthView
	deadLetters   *deadletter.Queue
	replayLimiter *rate.Limiter
	logger        zerolog.Logger
}

// NewService creates the webhook service with dependency injection
func NewService(dispatcher *Dispatcher, sender Sender, health HealthView, deadLetters *deadletter.Queue, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		dispatcher:    dispatcher,
		sender:        sender,
		health:        health,
		deadLetters:   deadLetters,
		replayLimiter: rate.NewLimiter(rate.Limit(DefaultReplayRate), 1),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TriggerWebhook dispatches an event to every subscribed endpoint
func (s *Service) TriggerWebhook(ctx context.Context, eventType string, data map[string]any, params TriggerParams) webhook.DispatchResult {
	opts := []TriggerOption{WithIdempotencyKey(params.IdempotencyKey)}
	if params.Priority != "" {
		opts = append(opts, WithPriority(params.Priority))
	}
	return s.dispatcher.Trigger(ctx, eventType, data, opts...)
}

/* SendTestWebhook makes a single attempt against url
 * The URL is still SSRF-checked; health, retries, dead letters and the delivery log are bypassed
 */
func (s *Service) SendTestWebhook(ctx context.Context, url, secret string) webhook.DeliveryResult {
	p, err := payload.New(TestEventType, map[string]any{
		"message": "This is a test webhook from MES",
		"test":    true,
	})
	if err != nil {
		return webhook.DeliveryResult{EndpointID: TestEndpointID, State: webhook.Rejected, Error: err.Error()}
	}
	endpoint := webhook.Endpoint{
		ID:        TestEndpointID,
		Name:      "Test",
		URL:       url,
		EventType: TestEventType,
		Enabled:   true,
		Secret:    secret,
	}
	return s.sender.Send(ctx, endpoint, p,
		delivery.WithMaxAttempts(1),
		delivery.WithoutHealthGate(),
		delivery.WithoutHealthTracking(),
		delivery.WithoutDeadLetter(),
		delivery.WithoutDeliveryLog(),
	)
}

// GetDeadLetterQueue returns a snapshot of the dead letters, oldest first
func (s *Service) GetDeadLetterQueue(_ context.Context) []webhook.DeadLetterEntry {
	return s.deadLetters.List()
}

// RetryDeadLetterEntry makes one more attempt for a dead letter
func (s *Service) RetryDeadLetterEntry(ctx context.Context, id string) (webhook.DeliveryResult, error) {
	res, err := s.deadLetters.Retry(ctx, id, s.redeliver)
	if err != nil {
		return webhook.DeliveryResult{}, fmt.Errorf("retrying dead letter %s: %w", id, err)
	}
	return res, nil
}

// RetryAllDeadLetters replays every dead letter once, paced by the replay limiter
func (s *Service) RetryAllDeadLetters(ctx context.Context) (deadletter.RetryAllResult, error) {
	res, err := s.deadLetters.RetryAll(ctx, s.replayLimiter, s.redeliver)
	if err != nil {
		return res, fmt.Errorf("replaying dead letters: %w", err)
	}
	s.logger.Info().
		Int("retried", res.Retried).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msg("dead letters replayed")
	return res, nil
}

// ClearDeadLetterQueue empties the queue and returns how many entries were dropped
func (s *Service) ClearDeadLetterQueue(_ context.Context) int {
	n := s.deadLetters.Clear()
	s.logger.Info().Int("dropped", n).Msg("dead letter queue cleared")
	return n
}

// GetWebhookHealth returns the stats for endpointID; false when nothing was recorded
func (s *Service) GetWebhookHealth(_ context.Context, endpointID string) (webhook.HealthStats, bool) {
	return s.health.Get(endpointID)
}

// CalculateHealthScore returns 0-100; unknown endpoints score 100
func (s *Service) CalculateHealthScore(_ context.Context, endpointID string) int {
	return s.health.Score(endpointID)
}

func (s *Service) ResetWebhookHealth(_ context.Context, endpointID string) {
	s.health.Reset(endpointID)
}

// redeliver replays a stored entry once; the entry stays queued on failure, so no new dead letter is pushed
func (s *Service) redeliver(ctx context.Context, entry webhook.DeadLetterEntry) webhook.DeliveryResult {
	return s.sender.Send(ctx, entry.Endpoint, entry.Payload,
		delivery.WithMaxAttempts(1),
		delivery.WithoutDeadLetter(),
	)
}
