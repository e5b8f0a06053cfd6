package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yt-download-go/internal/domain"
)

func renderError(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeError(c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"spawn", &domain.SpawnError{Command: "python3", Err: errors.New("not found")}, http.StatusInternalServerError, "spawn_failure"},
		{"worker", &domain.WorkerError{ExitCode: 1, Stderr: "boom"}, http.StatusBadGateway, "worker_failure"},
		{"reported", &domain.WorkerReportedError{Message: "Video unavailable"}, http.StatusBadGateway, "worker_reported_error"},
		{"malformed", &domain.MalformedMetadataError{Raw: "x", Err: errors.New("bad")}, http.StatusBadGateway, "malformed_metadata"},
		{"not found", domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"shutting down", fmt.Errorf("start: %w", domain.ErrShuttingDown), http.StatusServiceUnavailable, "shutting_down"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := renderError(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestWriteError_ExitCodeOnlyForExitedWorkers(t *testing.T) {
	_, body := renderError(t, &domain.WorkerError{ExitCode: 2, Stderr: "boom"})
	assert.Equal(t, float64(2), body["exit_code"])

	_, body = renderError(t, &domain.WorkerError{ExitCode: -1, Signal: "killed"})
	assert.Equal(t, "killed", body["signal"])

	_, body = renderError(t, &domain.WorkerReportedError{Message: "Video unavailable"})
	assert.NotContains(t, body, "exit_code")
}
