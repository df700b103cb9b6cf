package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/deadletter"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch/mocks"
	"github.com/marcelsud/mes-webhooks/webhook/ratelimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

/*
 * Handler tests run against the mocked UseCase
 * The pipeline itself is covered end to end in the dispatch package
 */

func newRouter(t *testing.T, s dispatch.UseCase, opts Options) http.Handler {
	t.Helper()
	opts.Logger = zerolog.Nop()
	return Handlers(context.Background(), s, opts)
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthRoute(t *testing.T) {
	t.Run("success - no dependencies", func(t *testing.T) {
		h := newRouter(t, mocks.NewUseCase(t), Options{})

		w := do(t, h, http.MethodGet, "/health", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	})

	t.Run("success - every check passes", func(t *testing.T) {
		ok := func(context.Context) error { return nil }
		h := newRouter(t, mocks.NewUseCase(t), Options{Checks: map[string]Check{"postgres": ok, "redis": ok}})

		w := do(t, h, http.MethodGet, "/health", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"healthy","checks":{"postgres":"ok","redis":"ok"}}`, w.Body.String())
	})

	t.Run("error - a failing dependency answers 503", func(t *testing.T) {
		checks := map[string]Check{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("pinging redis: connection refused") },
		}
		h := newRouter(t, mocks.NewUseCase(t), Options{Checks: checks})

		w := do(t, h, http.MethodGet, "/health", "", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unhealthy","checks":{"postgres":"ok","redis":"pinging redis: connection refused"}}`, w.Body.String())
	})

	t.Run("error - checks run with a deadline", func(t *testing.T) {
		var hasDeadline bool
		check := func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}
		h := newRouter(t, mocks.NewUseCase(t), Options{Checks: map[string]Check{"postgres": check}})

		do(t, h, http.MethodGet, "/health", "", nil)

		assert.True(t, hasDeadline)
	})
}

func TestPostEvent(t *testing.T) {
	t.Run("success - triggers with key and priority", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		want := webhook.DispatchResult{
			Sent:   1,
			Failed: 1,
			Results: []webhook.DeliveryResult{
				{EndpointID: "erp", Success: true, StatusCode: 200, State: webhook.Succeeded, Attempts: 1},
				{EndpointID: "bad", StatusCode: 500, State: webhook.DeadLettered, Attempts: 3, Error: "HTTP 500"},
			},
		}
		s.On("TriggerWebhook",
			mock.Anything,
			"work_order_created",
			mock.MatchedBy(func(data map[string]any) bool {
				return data["work_order_id"] == "WO-1"
			}),
			dispatch.TriggerParams{IdempotencyKey: "wo-1", Priority: dispatch.PriorityHigh},
		).Return(want).Once()

		h := newRouter(t, s, Options{})
		w := do(t, h, http.MethodPost, "/v1/events/work_order_created?priority=HIGH",
			`{"work_order_id":"WO-1","quantity":5}`,
			map[string]string{"Idempotency-Key": "wo-1"})

		require.Equal(t, http.StatusOK, w.Code)
		var got webhook.DispatchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, want, got)
	})

	t.Run("success - missing priority is normal", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("TriggerWebhook", mock.Anything, "shift_started", mock.Anything,
			dispatch.TriggerParams{Priority: dispatch.PriorityNormal},
		).Return(webhook.NewDispatchResult(nil)).Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/events/shift_started", `{}`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"sent":0,"failed":0,"results":[]}`, w.Body.String())
	})

	t.Run("error - body is not an object", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		h := newRouter(t, s, Options{})

		for _, body := range []string{``, `[1,2]`, `null`, `{"a":`} {
			w := do(t, h, http.MethodPost, "/v1/events/work_order_created", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("error - body too large", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		h := newRouter(t, s, Options{MaxBodyBytes: 16})

		w := do(t, h, http.MethodPost, "/v1/events/work_order_created", `{"notes":"`+strings.Repeat("x", 64)+`"}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "exceeds 16 bytes")
	})
}

func TestPostTestWebhook(t *testing.T) {
	t.Run("success - returns the delivery result", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("SendTestWebhook", mock.Anything, "https://hooks.example.com/mes", "s3cr3t").
			Return(webhook.DeliveryResult{EndpointID: dispatch.TestEndpointID, Success: true, StatusCode: 204, State: webhook.Succeeded, Attempts: 1}).
			Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/webhooks/test",
			`{"url":"https://hooks.example.com/mes","secret":"s3cr3t"}`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got webhook.DeliveryResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Success)
		assert.Equal(t, webhook.Succeeded, got.State)
	})

	t.Run("error - url is required", func(t *testing.T) {
		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{}), http.MethodPost, "/v1/webhooks/test", `{"secret":"x"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeadLetterRoutes(t *testing.T) {
	entry := webhook.DeadLetterEntry{
		ID:          "dl-1",
		EndpointID:  "erp",
		EndpointURL: "https://erp.example.com/hook",
		Error:       "HTTP 500",
		Attempts:    3,
	}

	t.Run("success - list", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetDeadLetterQueue", mock.Anything).Return([]webhook.DeadLetterEntry{entry}).Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodGet, "/v1/dead-letters", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got deadLettersResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 1, got.Count)
		assert.Equal(t, "dl-1", got.Entries[0].ID)
		assert.NotContains(t, w.Body.String(), "secret")
	})

	t.Run("success - clear", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("ClearDeadLetterQueue", mock.Anything).Return(4).Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodDelete, "/v1/dead-letters", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"cleared":4}`, w.Body.String())
	})

	t.Run("success - retry one", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("RetryDeadLetterEntry", mock.Anything, "dl-1").
			Return(webhook.DeliveryResult{EndpointID: "erp", Success: true, State: webhook.Succeeded, Attempts: 1}, nil).
			Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/dead-letters/dl-1/retry", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error - retry unknown entry", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("RetryDeadLetterEntry", mock.Anything, "missing").
			Return(webhook.DeliveryResult{}, fmt.Errorf("retrying dead letter missing: %w", deadletter.ErrNotFound)).
			Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/dead-letters/missing/retry", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("error - retry failure", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("RetryDeadLetterEntry", mock.Anything, "dl-1").
			Return(webhook.DeliveryResult{}, errors.New("boom")).
			Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/dead-letters/dl-1/retry", "", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success - retry all", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("RetryAllDeadLetters", mock.Anything).
			Return(deadletter.RetryAllResult{Retried: 2, Succeeded: 1, Failed: 1}, nil).
			Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/dead-letters/retry", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"retried":2,"succeeded":1,"failed":1}`, w.Body.String())
	})

	t.Run("error - retry all interrupted", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("RetryAllDeadLetters", mock.Anything).
			Return(deadletter.RetryAllResult{Retried: 1, Succeeded: 1}, context.Canceled).
			Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodPost, "/v1/dead-letters/retry", "", nil)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"retried":1,"succeeded":1,"failed":0}`, w.Body.String())
	})
}

func TestEndpointHealthRoutes(t *testing.T) {
	t.Run("success - stats and score", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetWebhookHealth", mock.Anything, "erp").
			Return(webhook.HealthStats{TotalCalls: 2, SuccessCount: 1, FailureCount: 1, ConsecutiveFailures: 1}, true).
			Once()
		s.On("CalculateHealthScore", mock.Anything, "erp").Return(40).Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodGet, "/v1/endpoints/erp/health", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 40, got.Score)
		assert.Equal(t, 2, got.Stats.TotalCalls)
	})

	t.Run("error - unknown endpoint", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetWebhookHealth", mock.Anything, "ghost").Return(webhook.HealthStats{}, false).Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodGet, "/v1/endpoints/ghost/health", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("success - published views of other instances", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetWebhookHealth", mock.Anything, "erp").
			Return(webhook.HealthStats{TotalCalls: 1, SuccessCount: 1}, true).Once()
		s.On("CalculateHealthScore", mock.Anything, "erp").Return(100).Once()
		cluster := fakeCluster{views: map[string][]webhook.InstanceHealth{
			"erp": {
				{InstanceID: "api-0", EndpointID: "erp", Score: 100},
				{InstanceID: "api-1", EndpointID: "erp", Score: 40},
			},
		}}

		w := do(t, newRouter(t, s, Options{ClusterHealth: cluster}), http.MethodGet, "/v1/endpoints/erp/health", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got.Instances, 2)
		assert.Equal(t, "api-1", got.Instances[1].InstanceID)
		assert.Equal(t, 40, got.Instances[1].Score)
	})

	t.Run("success - endpoint only seen by another instance", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetWebhookHealth", mock.Anything, "mes-dashboard").Return(webhook.HealthStats{}, false).Once()
		s.On("CalculateHealthScore", mock.Anything, "mes-dashboard").Return(100).Once()
		cluster := fakeCluster{views: map[string][]webhook.InstanceHealth{
			"mes-dashboard": {{InstanceID: "api-1", EndpointID: "mes-dashboard", Score: 0}},
		}}

		w := do(t, newRouter(t, s, Options{ClusterHealth: cluster}), http.MethodGet, "/v1/endpoints/mes-dashboard/health", "", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error - cluster read failure falls back to the local view", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetWebhookHealth", mock.Anything, "erp").Return(webhook.HealthStats{TotalCalls: 1}, true).Once()
		s.On("CalculateHealthScore", mock.Anything, "erp").Return(90).Once()

		w := do(t, newRouter(t, s, Options{ClusterHealth: fakeCluster{err: errors.New("redis down")}}), http.MethodGet, "/v1/endpoints/erp/health", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "instances")
	})

	t.Run("success - cluster overview", func(t *testing.T) {
		cluster := fakeCluster{views: map[string][]webhook.InstanceHealth{
			"erp":           {{InstanceID: "api-0", EndpointID: "erp", Score: 100}},
			"mes-dashboard": {{InstanceID: "api-0", EndpointID: "mes-dashboard", Score: 55}},
		}}

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{ClusterHealth: cluster}), http.MethodGet, "/v1/endpoints/health", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got clusterHealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got.Endpoints, 2)
		assert.Equal(t, 55, got.Endpoints["mes-dashboard"][0].Score)
	})

	t.Run("error - cluster overview unavailable", func(t *testing.T) {
		cluster := fakeCluster{err: errors.New("redis down")}

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{ClusterHealth: cluster}), http.MethodGet, "/v1/endpoints/health", "", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success - reset", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("ResetWebhookHealth", mock.Anything, "erp").Return().Once()

		w := do(t, newRouter(t, s, Options{}), http.MethodDelete, "/v1/endpoints/erp/health", "", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

type fakeCluster struct {
	views map[string][]webhook.InstanceHealth
	err   error
}

func (f fakeCluster) GetPublishedHealth(_ context.Context, endpointID string) ([]webhook.InstanceHealth, error) {
	return f.views[endpointID], f.err
}

func (f fakeCluster) GetAllPublishedHealth(context.Context) (map[string][]webhook.InstanceHealth, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.views, nil
}

func TestDeliveryRoutes(t *testing.T) {
	status := 200
	failure := "HTTP 500"
	logs := []webhook.DeliveryLog{
		{DeliveryID: "d-1", EndpointID: "erp", EventType: "work_order_created", Error: &failure, AttemptCount: 3},
		{DeliveryID: "d-1", EndpointID: "erp", EventType: "work_order_created", StatusCode: &status, AttemptCount: 1},
	}

	t.Run("success - history of one delivery", func(t *testing.T) {
		var asked string
		lookup := func(_ context.Context, id string) ([]webhook.DeliveryLog, error) {
			asked = id
			return logs, nil
		}

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{Deliveries: lookup}), http.MethodGet, "/v1/deliveries/d-1", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "d-1", asked)
		var got deliveriesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 2, got.Count)
		assert.Nil(t, got.Entries[0].StatusCode)
		assert.Equal(t, "HTTP 500", *got.Entries[0].Error)
		assert.Equal(t, 200, *got.Entries[1].StatusCode)
	})

	t.Run("error - unknown delivery", func(t *testing.T) {
		lookup := func(context.Context, string) ([]webhook.DeliveryLog, error) {
			return nil, fmt.Errorf("%w: d-9", webhook.ErrDeliveryNotFound)
		}

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{Deliveries: lookup}), http.MethodGet, "/v1/deliveries/d-9", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("error - no rows is not found", func(t *testing.T) {
		lookup := func(context.Context, string) ([]webhook.DeliveryLog, error) { return nil, nil }

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{Deliveries: lookup}), http.MethodGet, "/v1/deliveries/d-9", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("error - store failure", func(t *testing.T) {
		lookup := func(context.Context, string) ([]webhook.DeliveryLog, error) { return nil, errors.New("postgres down") }

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{Deliveries: lookup}), http.MethodGet, "/v1/deliveries/d-1", "", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success - recent deliveries honour the limit", func(t *testing.T) {
		var asked int64
		recent := func(_ context.Context, limit int64) ([]webhook.DeliveryLog, error) {
			asked = limit
			return logs[:1], nil
		}
		h := newRouter(t, mocks.NewUseCase(t), Options{RecentDeliveries: recent})

		w := do(t, h, http.MethodGet, "/v1/deliveries?limit=5", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(5), asked)

		do(t, h, http.MethodGet, "/v1/deliveries", "", nil)
		assert.Equal(t, int64(defaultRecentLimit), asked)

		do(t, h, http.MethodGet, "/v1/deliveries?limit=999999", "", nil)
		assert.Equal(t, int64(maxRecentLimit), asked)
	})

	t.Run("error - invalid limit", func(t *testing.T) {
		recent := func(context.Context, int64) ([]webhook.DeliveryLog, error) {
			t.Fatal("lookup must not run")
			return nil, nil
		}

		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{RecentDeliveries: recent}), http.MethodGet, "/v1/deliveries?limit=-3", "", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error - routes absent without a store", func(t *testing.T) {
		w := do(t, newRouter(t, mocks.NewUseCase(t), Options{}), http.MethodGet, "/v1/deliveries/d-1", "", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("redis: connection refused")
}

func TestRateLimit(t *testing.T) {
	limits := ratelimit.Options{Window: time.Minute, MaxRequests: 2}

	t.Run("success - third request from one client is denied", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("TriggerWebhook", mock.Anything, "work_order_created", mock.Anything, mock.Anything).
			Return(webhook.NewDispatchResult(nil)).
			Twice()

		h := newRouter(t, s, Options{Limiter: ratelimit.New(ratelimit.NewMemoryStore()), RateLimit: limits})
		fromA := map[string]string{"X-Real-IP": "203.0.113.7"}

		first := do(t, h, http.MethodPost, "/v1/events/work_order_created", `{}`, fromA)
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

		second := do(t, h, http.MethodPost, "/v1/events/work_order_created", `{}`, fromA)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

		third := do(t, h, http.MethodPost, "/v1/events/work_order_created", `{}`, fromA)
		assert.Equal(t, http.StatusTooManyRequests, third.Code)
		assert.NotEmpty(t, third.Header().Get("Retry-After"))
	})

	t.Run("success - clients are counted separately", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("TriggerWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(webhook.NewDispatchResult(nil)).
			Times(3)

		h := newRouter(t, s, Options{Limiter: ratelimit.New(ratelimit.NewMemoryStore()), RateLimit: limits})

		for range 2 {
			w := do(t, h, http.MethodPost, "/v1/events/a", `{}`, map[string]string{"X-Real-IP": "203.0.113.7"})
			assert.Equal(t, http.StatusOK, w.Code)
		}
		w := do(t, h, http.MethodPost, "/v1/events/a", `{}`, map[string]string{"X-Real-IP": "198.51.100.1"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("success - operator routes are not limited", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("GetDeadLetterQueue", mock.Anything).Return([]webhook.DeadLetterEntry{}).Times(3)

		h := newRouter(t, s, Options{Limiter: ratelimit.New(ratelimit.NewMemoryStore()), RateLimit: limits})

		for range 3 {
			w := do(t, h, http.MethodGet, "/v1/dead-letters", "", nil)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("error - store failure lets the request through", func(t *testing.T) {
		s := mocks.NewUseCase(t)
		s.On("TriggerWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(webhook.NewDispatchResult(nil)).
			Once()

		h := newRouter(t, s, Options{Limiter: ratelimit.New(failingStore{}), RateLimit: limits})

		w := do(t, h, http.MethodPost, "/v1/events/a", `{}`, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})
}
