package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRecord_Markers(t *testing.T) {
	tests := []struct {
		name    string
		record  ProgressRecord
		success bool
		failure bool
	}{
		{"in-flight", NewProgressRecord(12.5), false, false},
		{"zero progress", NewProgressRecord(0), false, false},
		{"completed", NewCompletedRecord(), true, false},
		{"finished", ProgressRecord{Status: StatusFinished}, true, false},
		{"failure", NewFailureRecord("boom"), false, true},
		{"error without progress", ProgressRecord{Error: "hook error"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.success, tt.record.IsSuccess())
			assert.Equal(t, tt.failure, tt.record.IsFailure())
		})
	}
}

func TestProgressRecord_JSON(t *testing.T) {
	data, err := json.Marshal(NewCompletedRecord())
	require.NoError(t, err)
	assert.JSONEq(t, `{"progress":100,"status":"completed"}`, string(data))

	data, err = json.Marshal(NewFailureRecord("boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"progress":-1,"error":"boom"}`, string(data))

	data, err = json.Marshal(NewProgressRecord(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"progress":0}`, string(data))
}

func TestErrorKind(t *testing.T) {
	spawn := &SpawnError{Command: "python3", Err: exec.ErrNotFound}
	worker := &WorkerError{ExitCode: 1, Stderr: "bad"}
	meta := &MalformedMetadataError{Raw: "nope", Err: errors.New("invalid character")}

	assert.Equal(t, "spawn_failure", ErrorKind(spawn))
	assert.Equal(t, "spawn_failure", ErrorKind(fmt.Errorf("wrapped: %w", spawn)))
	assert.Equal(t, "worker_failure", ErrorKind(worker))
	assert.Equal(t, "malformed_metadata", ErrorKind(meta))
	assert.Equal(t, "worker_reported_error", ErrorKind(&WorkerReportedError{Message: "Video unavailable"}))
	assert.Equal(t, "session_not_found", ErrorKind(ErrSessionNotFound))
	assert.Equal(t, "shutting_down", ErrorKind(ErrShuttingDown))
	assert.Equal(t, "internal", ErrorKind(errors.New("other")))

	assert.ErrorIs(t, spawn, exec.ErrNotFound)
	assert.Contains(t, worker.Error(), "code 1")
	assert.Contains(t, (&WorkerError{ExitCode: -1, Signal: "killed"}).Error(), "signal killed")
}
