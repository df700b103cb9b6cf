package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
)

/* HTTP layer DTOs for webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

// testWebhookRequest is the body of POST /v1/webhooks/test
type testWebhookRequest struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

// postEvent handles POST /v1/events/{event_type}
func postEvent(service dispatch.UseCase, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eventType := chi.URLParam(r, "event_type")
		if strings.TrimSpace(eventType) == "" {
			http.Error(w, "event_type is required", http.StatusBadRequest)
			return
		}

		var data map[string]any
		if err := decodeBody(w, r, maxBody, &data); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if data == nil {
			http.Error(w, "event data must be a JSON object", http.StatusBadRequest)
			return
		}

		result := service.TriggerWebhook(r.Context(), eventType, data, dispatch.TriggerParams{
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
			Priority:       dispatch.NewPriority(r.URL.Query().Get("priority")),
		})

		writeJSON(w, http.StatusOK, result)
	})
}

// postTestWebhook handles POST /v1/webhooks/test
func postTestWebhook(service dispatch.UseCase, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req testWebhookRequest
		if err := decodeBody(w, r, maxBody, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.URL == "" {
			http.Error(w, "url is required", http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, service.SendTestWebhook(r.Context(), req.URL, req.Secret))
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, maxBody int64, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// healthResponse is the body of GET /v1/endpoints/{id}/health
type healthResponse struct {
	EndpointID string                   `json:"endpoint_id"`
	Stats      webhook.HealthStats      `json:"stats"`
	Score      int                      `json:"score"`
	Instances  []webhook.InstanceHealth `json:"instances,omitempty"`
}
