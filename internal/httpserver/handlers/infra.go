package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	CachedQueries *int   `json:"cached_queries,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Impact        string `json:"impact,omitempty"`
	Error         string `json:"error,omitempty"`
}

type infraResponse struct {
	ServingMode string                     `json:"serving_mode"`
	Components  map[string]componentStatus `json:"components"`
}

// Infra reports the health of the moving parts: the document store
// and the optimistic query cache.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		cached := d.Cache.Len()

		components := map[string]componentStatus{
			"redis": checkRedis(d),
			"cache": {
				OK:            true,
				CachedQueries: &cached,
				Mode:          "optimistic-write-through",
			},
		}

		response := infraResponse{
			ServingMode: determineServingMode(components),
			Components:  components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineServingMode(components map[string]componentStatus) string {
	// Without the store, mutations fail and only cached pages serve.
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}
	return "normal"
}

func checkRedis(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "mutations-failing",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "mutations-failing",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "none",
		Error:  "none",
	}
}
