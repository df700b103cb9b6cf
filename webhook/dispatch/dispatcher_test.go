package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/deadletter"
	"github.com/marcelsud/mes-webhooks/webhook/delivery"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
	"github.com/marcelsud/mes-webhooks/webhook/health"
	"github.com/marcelsud/mes-webhooks/webhook/idempotency"
	"github.com/marcelsud/mes-webhooks/webhook/mocks"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
	"github.com/marcelsud/mes-webhooks/webhook/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// countingServer answers every request with status and counts the hits
type countingServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32

	mu     sync.Mutex
	bodies [][]byte
}

func newCountingServer(t *testing.T, status int) *countingServer {
	t.Helper()
	s := &countingServer{}
	s.status.Store(int32(status))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies = append(s.bodies, body)
		s.mu.Unlock()
		s.hits.Add(1)
		w.WriteHeader(int(s.status.Load()))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *countingServer) lastBody(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.bodies)
	var out map[string]any
	require.NoError(t, json.Unmarshal(s.bodies[len(s.bodies)-1], &out))
	return out
}

type stack struct {
	registry   *mocks.EndpointRegistry
	tracker    *health.Tracker
	dlq        *deadletter.Queue
	engine     *delivery.Engine
	dispatcher *dispatch.Dispatcher
	service    *dispatch.Service
}

func newStack(t *testing.T, validator delivery.URLValidator) stack {
	t.Helper()
	if validator == nil {
		validator = validation.NewURLValidator(validation.AllowPrivateNetworks())
	}
	s := stack{
		registry: mocks.NewEndpointRegistry(t),
		tracker:  health.NewTracker(nil),
		dlq:      deadletter.New(),
	}
	s.engine = delivery.New(s.tracker, s.dlq, nil, zerolog.Nop(),
		delivery.WithHTTPClient(delivery.NewHTTPClient(false)),
		delivery.WithURLValidator(validator),
		delivery.WithInitialBackoff(time.Millisecond),
	)
	cache := idempotency.New(idempotency.NewMemoryStore(nil))
	s.dispatcher = dispatch.NewDispatcher(s.registry, s.engine, cache, zerolog.Nop())
	t.Cleanup(s.dispatcher.Close)
	s.service = dispatch.NewService(s.dispatcher, s.engine, s.tracker, s.dlq, zerolog.Nop(),
		dispatch.WithReplayLimiter(rate.NewLimiter(rate.Inf, 1)))
	return s
}

func endpointFor(id, url string) webhook.Endpoint {
	return webhook.Endpoint{
		ID:        id,
		Name:      id,
		URL:       url,
		EventType: "work_order_created",
		Enabled:   true,
	}
}

func TestDispatcherTrigger(t *testing.T) {
	ctx := context.Background()
	data := map[string]any{"work_order_id": "WO-1001", "quantity": 25}

	t.Run("success - one healthy and one failing endpoint", func(t *testing.T) {
		ok := newCountingServer(t, http.StatusOK)
		bad := newCountingServer(t, http.StatusInternalServerError)
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("ok", ok.URL), endpointFor("bad", bad.URL)}, nil).Once()

		res := s.dispatcher.Trigger(ctx, "work_order_created", data)

		assert.Equal(t, 1, res.Sent)
		assert.Equal(t, 1, res.Failed)
		require.Len(t, res.Results, 2)
		assert.Equal(t, "ok", res.Results[0].EndpointID)
		assert.Equal(t, webhook.Succeeded, res.Results[0].State)
		assert.Equal(t, "bad", res.Results[1].EndpointID)
		assert.Equal(t, webhook.DeadLettered, res.Results[1].State)
		assert.Equal(t, int32(1), ok.hits.Load())
		assert.Equal(t, int32(3), bad.hits.Load())

		entries := s.dlq.List()
		require.Len(t, entries, 1)
		assert.Equal(t, "bad", entries[0].EndpointID)

		body := ok.lastBody(t)
		assert.Equal(t, "work_order_created", body["event"])
		assert.Equal(t, "WO-1001", body["data"].(map[string]any)["work_order_id"])
	})

	t.Run("success - idempotency key replays the stored result", func(t *testing.T) {
		srv := newCountingServer(t, http.StatusOK)
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("a", srv.URL)}, nil).Once()

		first := s.dispatcher.Trigger(ctx, "work_order_created", data, dispatch.WithIdempotencyKey("wo-1001-created"))
		second := s.dispatcher.Trigger(ctx, "work_order_created", data, dispatch.WithIdempotencyKey("wo-1001-created"))

		assert.Equal(t, int32(1), srv.hits.Load())
		assert.Equal(t, first, second)
		assert.Equal(t, "wo-1001-created", srv.lastBody(t)["idempotency_key"])
	})

	t.Run("success - concurrent triggers with the same key dispatch once", func(t *testing.T) {
		release := make(chan struct{})
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			<-release
		}))
		defer srv.Close()
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("a", srv.URL)}, nil).Once()

		var wg sync.WaitGroup
		results := make([]webhook.DispatchResult, 8)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = s.dispatcher.Trigger(ctx, "work_order_created", data, dispatch.WithIdempotencyKey("same"))
			}()
		}
		require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), hits.Load())
		for _, r := range results {
			assert.Equal(t, 1, r.Sent)
		}
	})

	t.Run("success - different keys dispatch separately", func(t *testing.T) {
		srv := newCountingServer(t, http.StatusOK)
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("a", srv.URL)}, nil).Twice()

		s.dispatcher.Trigger(ctx, "work_order_created", data, dispatch.WithIdempotencyKey("k1"))
		s.dispatcher.Trigger(ctx, "work_order_created", data, dispatch.WithIdempotencyKey("k2"))

		assert.Equal(t, int32(2), srv.hits.Load())
	})

	t.Run("success - no subscribers", func(t *testing.T) {
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "quality_check_failed").
			Return([]webhook.Endpoint{}, nil).Twice()

		res := s.dispatcher.Trigger(ctx, "quality_check_failed", data, dispatch.WithIdempotencyKey("k"))
		again := s.dispatcher.Trigger(ctx, "quality_check_failed", data, dispatch.WithIdempotencyKey("k"))

		assert.Equal(t, webhook.DispatchResult{Results: []webhook.DeliveryResult{}}, res)
		assert.Equal(t, res, again)
	})

	t.Run("success - disabled endpoints are skipped", func(t *testing.T) {
		srv := newCountingServer(t, http.StatusOK)
		s := newStack(t, nil)
		disabled := endpointFor("off", srv.URL)
		disabled.Enabled = false
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{disabled}, nil).Once()

		res := s.dispatcher.Trigger(ctx, "work_order_created", data)

		assert.Empty(t, res.Results)
		assert.Equal(t, int32(0), srv.hits.Load())
	})

	t.Run("success - endpoint attempt budget overrides the default", func(t *testing.T) {
		srv := newCountingServer(t, http.StatusBadGateway)
		s := newStack(t, nil)
		ep := endpointFor("a", srv.URL)
		ep.MaxAttempts = 1
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{ep}, nil).Once()

		res := s.dispatcher.Trigger(ctx, "work_order_created", data)

		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, int32(1), srv.hits.Load())
	})

	t.Run("success - configured default budget applies to endpoints without one", func(t *testing.T) {
		srv := newCountingServer(t, http.StatusBadGateway)
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("a", srv.URL)}, nil).Once()
		d := dispatch.NewDispatcher(s.registry, s.engine, nil, zerolog.Nop(), dispatch.WithDefaultMaxAttempts(2))
		defer d.Close()

		res := d.Trigger(ctx, "work_order_created", data)

		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, 2, res.Results[0].Attempts)
		assert.Equal(t, int32(2), srv.hits.Load())
	})

	t.Run("success - cancelled caller context does not stop the trigger", func(t *testing.T) {
		srv := newCountingServer(t, http.StatusOK)
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("a", srv.URL)}, nil).Once()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res := s.dispatcher.Trigger(cctx, "work_order_created", data)

		assert.Equal(t, 1, res.Sent)
	})

	t.Run("success - every endpoint starts its first attempt without waiting on others", func(t *testing.T) {
		const fanOut = 48
		eps := make([]webhook.Endpoint, fanOut)
		for i := range eps {
			eps[i] = endpointFor(fmt.Sprintf("line-%02d", i), fmt.Sprintf("https://line-%02d.example.com", i))
		}
		registry := mocks.NewEndpointRegistry(t)
		registry.On("ListSubscribed", mock.Anything, "work_order_created").Return(eps, nil).Times(2)
		sender := &blockingSender{release: make(chan struct{})}
		d := dispatch.NewDispatcher(registry, sender, nil, zerolog.Nop())
		defer d.Close()

		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Trigger(ctx, "work_order_created", data)
			}()
		}

		// every delivery is parked in Send until released
		require.Eventually(t, func() bool { return sender.started.Load() == 2*fanOut }, 2*time.Second, time.Millisecond)
		close(sender.release)
		wg.Wait()
	})

	t.Run("error - registry failure yields an empty result", func(t *testing.T) {
		s := newStack(t, nil)
		s.registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return(nil, errors.New("connection refused")).Once()

		res := s.dispatcher.Trigger(ctx, "work_order_created", data)

		assert.Equal(t, 0, res.Sent)
		assert.Equal(t, 0, res.Failed)
		assert.NotNil(t, res.Results)
		assert.Empty(t, res.Results)
	})

	t.Run("error - a panicking delivery fails only its endpoint", func(t *testing.T) {
		registry := mocks.NewEndpointRegistry(t)
		registry.On("ListSubscribed", mock.Anything, "work_order_created").
			Return([]webhook.Endpoint{endpointFor("boom", "https://a.example.com"), endpointFor("fine", "https://b.example.com")}, nil).Once()
		d := dispatch.NewDispatcher(registry, panickySender{}, nil, zerolog.Nop())
		defer d.Close()

		res := d.Trigger(ctx, "work_order_created", data)

		assert.Equal(t, 1, res.Sent)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, webhook.Failed, res.Results[0].State)
		assert.Contains(t, res.Results[0].Error, "panicked")
		assert.True(t, res.Results[1].Success)
	})
}

type blockingSender struct {
	started atomic.Int32
	release chan struct{}
}

func (b *blockingSender) Send(_ context.Context, endpoint webhook.Endpoint, p payload.Payload, _ ...delivery.SendOption) webhook.DeliveryResult {
	b.started.Add(1)
	<-b.release
	return webhook.DeliveryResult{EndpointID: endpoint.ID, Success: true, State: webhook.Succeeded, DeliveryID: p.DeliveryID}
}

type panickySender struct{}

func (panickySender) Send(_ context.Context, endpoint webhook.Endpoint, p payload.Payload, _ ...delivery.SendOption) webhook.DeliveryResult {
	if endpoint.ID == "boom" {
		var m map[string]int
		m["x"]++
	}
	return webhook.DeliveryResult{EndpointID: endpoint.ID, Success: true, State: webhook.Succeeded, DeliveryID: p.DeliveryID}
}

func TestNewPriority(t *testing.T) {
	assert.Equal(t, dispatch.PriorityHigh, dispatch.NewPriority("HIGH"))
	assert.Equal(t, dispatch.PriorityLow, dispatch.NewPriority("low"))
	assert.Equal(t, dispatch.PriorityNormal, dispatch.NewPriority(""))
	assert.Equal(t, dispatch.PriorityNormal, dispatch.NewPriority("urgent"))
}
