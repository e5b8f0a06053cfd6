package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/yt-download-go/internal/domain"
)

// errorStatus maps orchestration errors onto HTTP status codes
func errorStatus(err error) int {
	var spawnErr *domain.SpawnError
	var workerErr *domain.WorkerError
	var reportedErr *domain.WorkerReportedError
	var metaErr *domain.MalformedMetadataError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.As(err, &spawnErr):
		return http.StatusInternalServerError
	case errors.As(err, &workerErr), errors.As(err, &reportedErr), errors.As(err, &metaErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error", "kind"} with the matching status
func writeError(c *gin.Context, err error) {
	body := gin.H{
		"error": err.Error(),
		"kind":  domain.ErrorKind(err),
	}

	var workerErr *domain.WorkerError
	if errors.As(err, &workerErr) {
		body["exit_code"] = workerErr.ExitCode
		if workerErr.Signal != "" {
			body["signal"] = workerErr.Signal
		}
	}

	_ = c.Error(err)
	c.JSON(errorStatus(err), body)
}
