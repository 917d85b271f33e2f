package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/clubhouse/internal/logger"
)

// Dependency is a backing service reported by /health. DBManager and
// RedisClient both satisfy it.
type Dependency interface {
	Ping(ctx context.Context) error
	Stats() map[string]interface{}
}

type HealthHandler struct {
	deps map[string]Dependency
	log  *logger.Logger
}

// NewHealthHandler ignores nil dependencies so optional backends can be passed as is.
func NewHealthHandler(deps map[string]Dependency, log *logger.Logger) *HealthHandler {
	active := make(map[string]Dependency, len(deps))
	for name, dep := range deps {
		if dep != nil {
			active[name] = dep
		}
	}
	return &HealthHandler{deps: active, log: log.With("health")}
}

type HealthResponse struct {
	Status       string                            `json:"status"`
	Dependencies map[string]map[string]interface{} `json:"dependencies,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Dependencies: make(map[string]map[string]interface{}, len(h.deps))}
	status := http.StatusOK

	for name, dep := range h.deps {
		stats := dep.Stats()
		if stats == nil {
			stats = make(map[string]interface{})
		}
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn("Health check of %s failed: %v", name, err)
			stats["error"] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		resp.Dependencies[name] = stats
	}

	respondJSON(w, status, resp)
}
