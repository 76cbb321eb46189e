package handlers

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	silvanews "github.com/sn3fru/silvanews-sub000"
	"github.com/sn3fru/silvanews-sub000/pkg/graph"
)

// Build information - can be set at build time using ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	core silvanews.Silvanews
}

func NewHealthHandler(core silvanews.Silvanews) *HealthHandler {
	return &HealthHandler{core: core}
}

// HealthCheck handles GET /health - basic liveness check.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "silvanews",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "alive",
		"service":    "silvanews",
		"go_version": GoVersion,
	})
}

// ReadinessCheck handles GET /ready. Probes the graph store with a read
// for an id that cannot exist; anything but not-found means the store is
// unreachable.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	start := time.Now()
	_, err := h.core.GetArticle(ctx, "readiness-probe-nonexistent-id")
	duration := time.Since(start)
	switch {
	case err == nil, errors.Is(err, graph.ErrNotFound):
		checks["graph_store"] = gin.H{"status": "healthy", "duration": duration.String()}
	case ctx.Err() != nil:
		checks["graph_store"] = gin.H{"status": "unhealthy", "error": "store probe timeout", "duration": duration.String()}
		healthy = false
	default:
		checks["graph_store"] = gin.H{"status": "unhealthy", "error": err.Error(), "duration": duration.String()}
		healthy = false
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"service":   "silvanews",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
