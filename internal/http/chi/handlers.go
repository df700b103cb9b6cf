package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
	"github.com/marcelsud/mes-webhooks/webhook/ratelimit"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes caps inbound request bodies
const DefaultMaxBodyBytes = 1 << 20

// Options configures the router. Zero values disable the optional routes and rate limiting.
type Options struct {
	Logger       zerolog.Logger
	Limiter      *ratelimit.Limiter
	RateLimit    ratelimit.Options
	Metrics      http.Handler
	MaxBodyBytes int64

	// Checks are run by /health, keyed by dependency name
	Checks           map[string]Check
	Deliveries       DeliveryLookup
	RecentDeliveries RecentLookup
	ClusterHealth    ClusterHealthSource
}

// NewLogger builds the service logger shared by request logging and the pipeline
func NewLogger(level string, json bool) zerolog.Logger {
	return httplog.NewLogger("mes-webhooks", httplog.Options{
		JSON:     json,
		LogLevel: level,
		Concise:  true,
	})
}

// Handlers sets up the webhook API routes
func Handlers(ctx context.Context, service dispatch.UseCase, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Method(http.MethodGet, "/health", getStatus(opts.Checks))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.Limiter != nil {
				r.Use(rateLimit(opts.Limiter, opts.RateLimit, opts.Logger))
			}
			r.Method(http.MethodPost, "/events/{event_type}", postEvent(service, opts.MaxBodyBytes))
			r.Method(http.MethodPost, "/webhooks/test", postTestWebhook(service, opts.MaxBodyBytes))
		})

		r.Method(http.MethodGet, "/dead-letters", getDeadLetters(service))
		r.Method(http.MethodDelete, "/dead-letters", deleteDeadLetters(service))
		r.Method(http.MethodPost, "/dead-letters/retry", retryAllDeadLetters(service))
		r.Method(http.MethodPost, "/dead-letters/{id}/retry", retryDeadLetter(service))

		r.Method(http.MethodGet, "/endpoints/{id}/health", getEndpointHealth(service, opts.ClusterHealth))
		r.Method(http.MethodDelete, "/endpoints/{id}/health", deleteEndpointHealth(service))
		if opts.ClusterHealth != nil {
			r.Method(http.MethodGet, "/endpoints/health", getClusterHealth(opts.ClusterHealth))
		}

		if opts.Deliveries != nil {
			r.Method(http.MethodGet, "/deliveries/{delivery_id}", getDelivery(opts.Deliveries))
		}
		if opts.RecentDeliveries != nil {
			r.Method(http.MethodGet, "/deliveries", getRecentDeliveries(opts.RecentDeliveries))
		}
	})

	return r
}
