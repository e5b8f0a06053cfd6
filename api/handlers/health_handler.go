package handlers

import (
	"net/http"
	"os/exec"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/progress"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	registry *progress.Registry
	worker   *domain.WorkerConfig
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *progress.Registry, worker *domain.WorkerConfig) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		worker:   worker,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: h.registry.Len(),
	})
}

// Ready handles GET /ready. The service is ready when the worker command
// can be resolved.
func (h *HealthHandler) Ready(c *gin.Context) {
	if _, err := exec.LookPath(h.worker.Command); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "worker command not found: " + h.worker.Command,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
