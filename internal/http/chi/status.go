package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/mes-webhooks/webhook"
)

// checkTimeout bounds each dependency check run by /health
const checkTimeout = 2 * time.Second

// Check reports whether one dependency is reachable
type Check func(ctx context.Context) error

// ClusterHealthSource reads the endpoint health published by every running instance
type ClusterHealthSource interface {
	GetPublishedHealth(ctx context.Context, endpointID string) ([]webhook.InstanceHealth, error)
	GetAllPublishedHealth(ctx context.Context) (map[string][]webhook.InstanceHealth, error)
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type clusterHealthResponse struct {
	Endpoints map[string][]webhook.InstanceHealth `json:"endpoints"`
}

// getStatus handles GET /health. Any failing check answers 503.
func getStatus(checks map[string]Check) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := statusResponse{Status: "healthy"}
		code := http.StatusOK
		if len(checks) > 0 {
			res.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				reqLog := httplog.LogEntry(r.Context())
				reqLog.Warn().Err(err).Str("check", name).Msg("health check failed")
				res.Checks[name] = err.Error()
				res.Status = "unhealthy"
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
		writeJSON(w, code, res)
	})
}

// getClusterHealth handles GET /v1/endpoints/health
func getClusterHealth(cluster ClusterHealthSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all, err := cluster.GetAllPublishedHealth(r.Context())
		if err != nil {
			reqLog := httplog.LogEntry(r.Context())
			reqLog.Error().Err(err).Msg("reading published health")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, clusterHealthResponse{Endpoints: all})
	})
}
