package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/payload"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
)

// DeliveryLookup returns the logged outcomes of one delivery, oldest first
type DeliveryLookup func(ctx context.Context, deliveryID string) ([]webhook.DeliveryLog, error)

// RecentLookup returns up to limit logged outcomes, newest first
type RecentLookup func(ctx context.Context, limit int64) ([]webhook.DeliveryLog, error)

// deliveryView is the wire shape of a webhook.DeliveryLog
type deliveryView struct {
	DeliveryID   string          `json:"delivery_id"`
	EndpointID   string          `json:"endpoint_id"`
	EventType    string          `json:"event_type"`
	StatusCode   *int            `json:"status_code"`
	ResponseBody *string         `json:"response_body,omitempty"`
	LatencyMs    int64           `json:"latency_ms"`
	Error        *string         `json:"error,omitempty"`
	AttemptCount int             `json:"attempt_count"`
	CreatedAt    time.Time       `json:"created_at"`
	Payload      payload.Payload `json:"payload"`
}

type deliveriesResponse struct {
	Count   int            `json:"count"`
	Entries []deliveryView `json:"entries"`
}

func toViews(logs []webhook.DeliveryLog) deliveriesResponse {
	out := deliveriesResponse{Count: len(logs), Entries: make([]deliveryView, 0, len(logs))}
	for _, l := range logs {
		out.Entries = append(out.Entries, deliveryView{
			DeliveryID:   l.DeliveryID,
			EndpointID:   l.EndpointID,
			EventType:    l.EventType,
			StatusCode:   l.StatusCode,
			ResponseBody: l.ResponseBody,
			LatencyMs:    l.LatencyMs,
			Error:        l.Error,
			AttemptCount: l.AttemptCount,
			CreatedAt:    l.CreatedAt,
			Payload:      l.Payload,
		})
	}
	return out
}

// getDelivery handles GET /v1/deliveries/{delivery_id}
func getDelivery(lookup DeliveryLookup) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "delivery_id")
		logs, err := lookup(r.Context(), id)
		if errors.Is(err, webhook.ErrDeliveryNotFound) || (err == nil && len(logs) == 0) {
			http.Error(w, "delivery not found: "+id, http.StatusNotFound)
			return
		}
		if err != nil {
			reqLog := httplog.LogEntry(r.Context())
			reqLog.Error().Err(err).Str("delivery_id", id).Msg("looking up delivery")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toViews(logs))
	})
}

// getRecentDeliveries handles GET /v1/deliveries?limit=N
func getRecentDeliveries(recent RecentLookup) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := int64(defaultRecentLimit)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxRecentLimit)
		}

		logs, err := recent(r.Context(), limit)
		if err != nil {
			reqLog := httplog.LogEntry(r.Context())
			reqLog.Error().Err(err).Msg("reading recent deliveries")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toViews(logs))
	})
}
