package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a download session id is unknown or evicted
var ErrSessionNotFound = errors.New("download session not found")

// ErrShuttingDown is returned for downloads requested after shutdown began
var ErrShuttingDown = errors.New("server is shutting down")

// SpawnError reports that the worker executable could not be started
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start worker %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// WorkerError reports that the worker ran but exited unsuccessfully.
// Stderr holds the diagnostic text the worker produced.
type WorkerError struct {
	ExitCode int
	Signal   string
	Stderr   string
}

func (e *WorkerError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("worker terminated by signal %s: %s", e.Signal, e.Stderr)
	}
	return fmt.Sprintf("worker failed with code %d: %s", e.ExitCode, e.Stderr)
}

// WorkerReportedError is a failure the worker printed as {"error": ...}
// while still exiting 0
type WorkerReportedError struct {
	Message string
}

func (e *WorkerReportedError) Error() string {
	return "worker reported an error: " + e.Message
}

// MalformedMetadataError reports that list-mode output could not be decoded
type MalformedMetadataError struct {
	Raw string
	Err error
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("failed to parse worker metadata output: %v", e.Err)
}

func (e *MalformedMetadataError) Unwrap() error { return e.Err }

// ErrorKind returns a stable machine-readable name for err
func ErrorKind(err error) string {
	var spawnErr *SpawnError
	var workerErr *WorkerError
	var reportedErr *WorkerReportedError
	var metaErr *MalformedMetadataError
	switch {
	case errors.As(err, &spawnErr):
		return "spawn_failure"
	case errors.As(err, &workerErr):
		return "worker_failure"
	case errors.As(err, &reportedErr):
		return "worker_reported_error"
	case errors.As(err, &metaErr):
		return "malformed_metadata"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrShuttingDown):
		return "shutting_down"
	default:
		return "internal"
	}
}
