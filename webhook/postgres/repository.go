package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
)

/* PostgreSQL implementation of webhook.EndpointRegistry and webhook.DeliveryLogger
 * Endpoints live in webhook_endpoints, one row per outcome goes to webhook_logs
 */

//go:embed schema.sql
var Schema string

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// DefaultMaxConns is the pool size when none is configured
const DefaultMaxConns = 10

type Repository struct {
	Pool *pgxpool.Pool
}

// NewRepository opens a pool and checks the connection. maxConns <= 0 selects DefaultMaxConns.
func NewRepository(ctx context.Context, connectionString string, maxConns int32) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = maxConns
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Repository{Pool: pool}, nil
}

// Migrate creates the tables and indexes if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

const endpointColumns = "id, name, url, event_type, enabled, secret, headers, timeout_ms, retry_count"

// ListSubscribed implements webhook.EndpointRegistry
func (r *Repository) ListSubscribed(ctx context.Context, eventType string) ([]webhook.Endpoint, error) {
	// exact and wildcard matches come from SQL, prefix patterns are checked below
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints
		WHERE enabled AND (event_type = $1 OR event_type = '*' OR event_type LIKE '%.*')
		ORDER BY created_at, id`

	rows, err := r.Pool.Query(ctx, query, eventType)
	if err != nil {
		return nil, fmt.Errorf("selecting endpoints: %w", err)
	}
	all, err := pgx.CollectRows(rows, scanEndpoint)
	if err != nil {
		return nil, fmt.Errorf("scanning endpoints: %w", err)
	}

	endpoints := make([]webhook.Endpoint, 0, len(all))
	for _, e := range all {
		if e.Subscribes(eventType) {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints, nil
}

// GetEndpoint returns one endpoint by id
func (r *Repository) GetEndpoint(ctx context.Context, id string) (webhook.Endpoint, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+endpointColumns+` FROM webhook_endpoints WHERE id = $1`, id)
	if err != nil {
		return webhook.Endpoint{}, fmt.Errorf("selecting endpoint: %w", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanEndpoint)
	if errors.Is(err, pgx.ErrNoRows) {
		return webhook.Endpoint{}, ErrNotFound
	}
	if err != nil {
		return webhook.Endpoint{}, fmt.Errorf("scanning endpoint: %w", err)
	}
	return e, nil
}

// UpsertEndpoint inserts or replaces an endpoint
func (r *Repository) UpsertEndpoint(ctx context.Context, e webhook.Endpoint) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validating endpoint: %w", err)
	}

	var secret *string
	if e.Secret != "" {
		secret = &e.Secret
	}
	var timeoutMs, retryCount *int
	if e.Timeout > 0 {
		ms := int(e.Timeout.Milliseconds())
		timeoutMs = &ms
	}
	if e.MaxAttempts > 0 {
		retryCount = &e.MaxAttempts
	}
	headers := e.Headers
	if headers == nil {
		headers = map[string]string{}
	}

	query := `INSERT INTO webhook_endpoints (` + endpointColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			event_type = EXCLUDED.event_type,
			enabled = EXCLUDED.enabled,
			secret = EXCLUDED.secret,
			headers = EXCLUDED.headers,
			timeout_ms = EXCLUDED.timeout_ms,
			retry_count = EXCLUDED.retry_count`

	_, err := r.Pool.Exec(ctx, query, e.ID, e.Name, e.URL, e.EventType, e.Enabled, secret, headers, timeoutMs, retryCount)
	if err != nil {
		return fmt.Errorf("upserting endpoint: %w", err)
	}
	return nil
}

// Log implements webhook.DeliveryLogger
func (r *Repository) Log(ctx context.Context, entry webhook.DeliveryLog) error {
	body, err := entry.Payload.Bytes()
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT INTO webhook_logs
		(endpoint_id, event_type, payload, status_code, response_body, latency_ms, error, delivery_id, attempt_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.Pool.Exec(ctx, query,
		entry.EndpointID,
		entry.EventType,
		string(body),
		entry.StatusCode,
		entry.ResponseBody,
		entry.LatencyMs,
		entry.Error,
		entry.DeliveryID,
		entry.AttemptCount,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery log: %w", err)
	}
	return nil
}

// ListLogs returns the rows logged for deliveryID, oldest first
func (r *Repository) ListLogs(ctx context.Context, deliveryID string) ([]webhook.DeliveryLog, error) {
	query := `SELECT endpoint_id, event_type, payload::text, status_code, response_body, latency_ms, error, delivery_id, attempt_count, created_at
		FROM webhook_logs WHERE delivery_id = $1 ORDER BY id`

	rows, err := r.Pool.Query(ctx, query, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("selecting delivery logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (webhook.DeliveryLog, error) {
		var l webhook.DeliveryLog
		var raw string
		if err := row.Scan(&l.EndpointID, &l.EventType, &raw, &l.StatusCode, &l.ResponseBody, &l.LatencyMs, &l.Error, &l.DeliveryID, &l.AttemptCount, &l.CreatedAt); err != nil {
			return webhook.DeliveryLog{}, err
		}
		p, err := payload.Parse([]byte(raw))
		if err != nil {
			return webhook.DeliveryLog{}, fmt.Errorf("parsing payload: %w", err)
		}
		l.Payload = p
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning delivery logs: %w", err)
	}
	return logs, nil
}

// Healthcheck pings the database
func (r *Repository) Healthcheck(ctx context.Context) error {
	if err := r.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

// Close closes the pool
func (r *Repository) Close(ctx context.Context) error {
	r.Pool.Close()
	return nil
}

func scanEndpoint(row pgx.CollectableRow) (webhook.Endpoint, error) {
	var e webhook.Endpoint
	var secret *string
	var timeoutMs, retryCount *int
	if err := row.Scan(&e.ID, &e.Name, &e.URL, &e.EventType, &e.Enabled, &secret, &e.Headers, &timeoutMs, &retryCount); err != nil {
		return webhook.Endpoint{}, err
	}
	if secret != nil {
		e.Secret = *secret
	}
	if timeoutMs != nil {
		e.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	}
	if retryCount != nil {
		e.MaxAttempts = *retryCount
	}
	return e, nil
}
