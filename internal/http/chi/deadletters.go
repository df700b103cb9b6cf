package chi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/marcelsud/mes-webhooks/webhook/deadletter"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
)

type deadLettersResponse struct {
	Count   int                       `json:"count"`
	Entries []webhook.DeadLetterEntry `json:"entries"`
}

type clearResponse struct {
	Cleared int `json:"cleared"`
}

// getDeadLetters handles GET /v1/dead-letters
func getDeadLetters(service dispatch.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := service.GetDeadLetterQueue(r.Context())
		writeJSON(w, http.StatusOK, deadLettersResponse{Count: len(entries), Entries: entries})
	})
}

// deleteDeadLetters handles DELETE /v1/dead-letters
func deleteDeadLetters(service dispatch.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, clearResponse{Cleared: service.ClearDeadLetterQueue(r.Context())})
	})
}

// retryDeadLetter handles POST /v1/dead-letters/{id}/retry
func retryDeadLetter(service dispatch.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		result, err := service.RetryDeadLetterEntry(r.Context(), id)
		if errors.Is(err, deadletter.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			reqLog := httplog.LogEntry(r.Context())
			reqLog.Error().Err(err).Str("dead_letter_id", id).Msg("retrying dead letter")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}

// retryAllDeadLetters handles POST /v1/dead-letters/retry
func retryAllDeadLetters(service dispatch.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := service.RetryAllDeadLetters(r.Context())
		if err != nil {
			// a cancelled replay still reports what it got through
			reqLog := httplog.LogEntry(r.Context())
			reqLog.Warn().Err(err).Int("retried", result.Retried).Msg("replaying dead letters")
			writeJSON(w, http.StatusServiceUnavailable, result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}

/* getEndpointHealth handles GET /v1/endpoints/{id}/health
 * With a cluster source the other instances' published views are added;
 * an endpoint is unknown only when no instance has seen it.
 */
func getEndpointHealth(service dispatch.UseCase, cluster ClusterHealthSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		stats, ok := service.GetWebhookHealth(r.Context(), id)

		var instances []webhook.InstanceHealth
		if cluster != nil {
			views, err := cluster.GetPublishedHealth(r.Context(), id)
			if err != nil {
				reqLog := httplog.LogEntry(r.Context())
				reqLog.Warn().Err(err).Str("endpoint_id", id).Msg("reading published health")
			}
			instances = views
		}

		if !ok && len(instances) == 0 {
			http.Error(w, "no health data for endpoint: "+id, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{
			EndpointID: id,
			Stats:      stats,
			Score:      service.CalculateHealthScore(r.Context(), id),
			Instances:  instances,
		})
	})
}

// deleteEndpointHealth handles DELETE /v1/endpoints/{id}/health
func deleteEndpointHealth(service dispatch.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		service.ResetWebhookHealth(r.Context(), chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	})
}
