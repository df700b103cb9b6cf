package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/mes-webhooks/config"
	"github.com/marcelsud/mes-webhooks/endpoints"
	"github.com/marcelsud/mes-webhooks/internal/http/chi"
	"github.com/marcelsud/mes-webhooks/metrics"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/deadletter"
	"github.com/marcelsud/mes-webhooks/webhook/delivery"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
	"github.com/marcelsud/mes-webhooks/webhook/health"
	"github.com/marcelsud/mes-webhooks/webhook/idempotency"
	"github.com/marcelsud/mes-webhooks/webhook/postgres"
	"github.com/marcelsud/mes-webhooks/webhook/ratelimit"
	"github.com/marcelsud/mes-webhooks/webhook/redis"
	"github.com/marcelsud/mes-webhooks/webhook/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const TIMEOUT = 30 * time.Second

// healthPublishInterval is how often this instance's endpoint health is written to Redis
const healthPublishInterval = 15 * time.Second

/* main wires the delivery pipeline and serves the HTTP API
 * Imports only flow downwards: the binary imports the service layer, which imports the storage adapters
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	logger := chi.NewLogger(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	var (
		registry  webhook.EndpointRegistry
		logs      delivery.MultiLog
		idemStore idempotency.Store
		rateStore ratelimit.Store
		streamLen metrics.StreamLengthFunc
		routes    chi.Options
	)
	routes.Checks = map[string]chi.Check{}

	if cfg.UsePostgres() {
		pg, err := postgres.NewRepository(ctx, cfg.DatabaseURL, cfg.PostgresMaxConns)
		if err != nil {
			fmt.Println(err)
			return
		}
		defer pg.Close(ctx)
		if err := pg.Migrate(ctx); err != nil {
			fmt.Println(err)
			return
		}
		registry = pg
		logs = append(logs, pg)
		routes.Checks["postgres"] = pg.Healthcheck
		routes.Deliveries = pg.ListLogs
		logger.Info().Msg("using postgres endpoint registry")
	} else {
		loader := endpoints.NewLoader()
		if err := loader.Load(cfg.EndpointsFile); err != nil {
			fmt.Println(err)
			return
		}
		registry = loader
		logger.Info().Str("file", cfg.EndpointsFile).Int("endpoints", len(loader.List())).Msg("loaded endpoint registry")
	}

	tracker := health.NewTracker(nil)

	if cfg.UseRedis() {
		rdb, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			fmt.Println(err)
			return
		}
		defer rdb.Close(ctx)
		logs = append(logs, rdb)
		idemStore = rdb.NewIdempotencyStore()
		rateStore = rdb.NewRateLimitStore()
		streamLen = rdb.LogStreamLength
		routes.Checks["redis"] = rdb.Healthcheck
		routes.RecentDeliveries = rdb.RecentLogs
		routes.ClusterHealth = rdb
		if routes.Deliveries == nil {
			routes.Deliveries = latestDelivery(rdb)
		}
		go publishHealth(ctx, rdb, tracker, instanceID(), logger)
	} else {
		mem := idempotency.NewMemoryStore(nil)
		mem.StartSweeper(ctx, idempotency.DefaultSweepInterval)
		idemStore = mem
		windows := ratelimit.NewMemoryStore()
		windows.StartSweeper(ctx, ratelimit.DefaultSweepInterval)
		rateStore = windows
	}
	if len(logs) == 0 {
		logs = append(logs, delivery.NewZerologLog(logger))
	}

	recorder, err := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		fmt.Println(err)
		return
	}

	var validatorOpts []validation.Option
	if cfg.AllowPrivateNetworks {
		validatorOpts = append(validatorOpts, validation.AllowPrivateNetworks())
	}
	deadLetters := deadletter.New(deadletter.WithCapacity(cfg.DeadLetterCapacity))
	engine := delivery.New(tracker, deadLetters, logs, logger,
		delivery.WithHTTPClient(delivery.NewHTTPClient(!cfg.AllowPrivateNetworks)),
		delivery.WithURLValidator(validation.NewURLValidator(validatorOpts...)),
		delivery.WithTimeout(cfg.GetWebhookTimeout()),
		delivery.WithMaxPayloadBytes(cfg.MaxPayloadBytes),
		delivery.WithObserver(recorder),
	)

	cache := idempotency.New(idemStore, idempotency.WithTTL(cfg.GetIdempotencyTTL()))
	dispatcher := dispatch.NewDispatcher(registry, engine, cache, logger,
		dispatch.WithDefaultMaxAttempts(cfg.WebhookMaxAttempts),
	)
	defer dispatcher.Close()
	s := dispatch.NewService(dispatcher, engine, tracker, deadLetters, logger,
		dispatch.WithReplayLimiter(rate.NewLimiter(rate.Limit(cfg.DeadLetterReplayRPS), 1)),
	)

	exporter, err := metrics.NewOTelExporter(metrics.NewPipelineCollector(tracker, deadLetters, streamLen), nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(context.Background())

	routes.Logger = logger
	routes.Limiter = ratelimit.New(rateStore)
	routes.RateLimit = ratelimit.Options{
		Window:      cfg.GetRateLimitWindow(),
		MaxRequests: cfg.RateLimitMaxRequests,
	}
	routes.Metrics = exporter.ServeHTTP()
	routes.MaxBodyBytes = int64(cfg.MaxPayloadBytes)
	r := chi.Handlers(ctx, s, routes)
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info().Str("port", cfg.Port).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}

// publishHealth shares this instance's endpoint health through Redis until ctx is done
func publishHealth(ctx context.Context, rdb *redis.Repository, tracker *health.Tracker, instance string, logger zerolog.Logger) {
	ticker := time.NewTicker(healthPublishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rdb.PublishHealth(ctx, instance, tracker.Snapshot(), health.Score, 3*healthPublishInterval); err != nil {
				logger.Warn().Err(err).Msg("publishing endpoint health")
			}
		}
	}
}

// latestDelivery serves delivery lookups from the Redis hash, which keeps only the latest outcome
func latestDelivery(rdb *redis.Repository) chi.DeliveryLookup {
	return func(ctx context.Context, deliveryID string) ([]webhook.DeliveryLog, error) {
		entry, err := rdb.GetDelivery(ctx, deliveryID)
		if err != nil {
			return nil, err
		}
		return []webhook.DeliveryLog{entry}, nil
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "mes-webhooks"
	}
	return host + "-" + uuid.NewString()[:8]
}
