package domain

import "context"

// WorkerMode is the first positional argument passed to the worker
type WorkerMode string

const (
	WorkerModeList     WorkerMode = "list"
	WorkerModeDownload WorkerMode = "download"
)

// StreamKind identifies which worker pipe a chunk came from
type StreamKind string

const (
	StreamStdout StreamKind = "stdout"
	StreamStderr StreamKind = "stderr"
)

// OutputChunk is a slice of raw bytes read from one of the worker's pipes
type OutputChunk struct {
	Stream StreamKind
	Data   []byte
}

// ExitStatus describes how a worker process terminated.
// Code is -1 when the process was killed by a signal.
type ExitStatus struct {
	Code   int
	Signal string
}

// Success reports whether the worker exited with code zero
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == ""
}

// WorkerProcess is a running worker invocation.
//
// Output yields chunks in the order they were read from each pipe and is
// closed once the process has exited and both pipes are drained. Result is
// only meaningful after Output has been closed.
type WorkerProcess interface {
	Output() <-chan OutputChunk
	Result() ExitStatus
	CommandLine() string
}

// WorkerRunner starts worker processes.
// Start returns a *SpawnError when the executable cannot be launched.
type WorkerRunner interface {
	Start(ctx context.Context, mode WorkerMode, args ...string) (WorkerProcess, error)
}
