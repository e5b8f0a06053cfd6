package app

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/progress"
)

func newTestOrchestrator(t *testing.T, runner *fakeRunner, limit int) (*DownloadOrchestrator, *progress.Registry, *recordingNotifier) {
	t.Helper()
	registry := progress.NewRegistry(time.Minute)
	notifier := &recordingNotifier{}
	o := NewDownloadOrchestrator(context.Background(), runner, registry, notifier,
		&domain.DownloadConfig{ConcurrentLimit: limit}, nil)
	return o, registry, notifier
}

func waitTimeout(t *testing.T, inv *Invocation) (*domain.DownloadOutcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := inv.Wait(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "invocation did not resolve")
	return outcome, err
}

func startDownload(t *testing.T, o *DownloadOrchestrator, url string, resolution int) *Invocation {
	t.Helper()
	inv, err := o.Start(url, resolution)
	require.NoError(t, err)
	return inv
}

func countFailures(records []domain.ProgressRecord) int {
	n := 0
	for _, r := range records {
		if r.IsFailure() {
			n++
		}
	}
	return n
}

func TestOrchestrator_SyntheticCompletion(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{stdout(`{"progress":10}`+"\n", `{"progress":55}`+"\n")},
	}
	o, registry, notifier := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "https://youtu.be/abc", 720)
	records := drainSink(t, sink)

	require.Len(t, records, 3)
	assert.Equal(t, 10.0, records[0].Percent())
	assert.Equal(t, 55.0, records[1].Percent())
	assert.Equal(t, domain.NewCompletedRecord(), records[2])

	outcome, err := waitTimeout(t, inv)
	require.NoError(t, err)
	assert.Equal(t, "Download complete", outcome.Message)
	assert.Equal(t, inv.Session().ID(), outcome.SessionID)

	require.Len(t, runner.starts, 1)
	assert.Equal(t, domain.WorkerModeDownload, runner.starts[0].mode)
	assert.Equal(t, []string{"https://youtu.be/abc", "720"}, runner.starts[0].args)

	snapshot := inv.Session().Snapshot()
	assert.Equal(t, domain.DownloadSucceeded, snapshot.Status)
	require.NotNil(t, snapshot.ExitCode)
	assert.Equal(t, 0, *snapshot.ExitCode)
	assert.Equal(t, []string{"started", "completed"}, notifier.snapshot())
}

func TestOrchestrator_WorkerCompletionSuppressesSynthetic(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{
			stdout(`{"progress":40}`+"\n"),
			stdout(`{"progress":100,"status":"finished","filename":"/tmp/v.mp4"}`+"\n"),
			stdout("[download] Destination: /tmp/v.mp4\n"),
		},
	}
	o, registry, _ := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "u", 480)
	records := drainSink(t, sink)

	require.Len(t, records, 2)
	assert.Equal(t, domain.StatusFinished, records[1].Status)

	outcome, err := waitTimeout(t, inv)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/v.mp4", outcome.FilePath)
}

func TestOrchestrator_RecordsSplitAcrossChunks(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{
			stdout(`{"prog`),
			stdout(`ress":10}`+"\n"+`{"progress":`),
			stdout(`20}`),
		},
	}
	o, registry, _ := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "u", 720)
	records := drainSink(t, sink)

	require.Len(t, records, 3)
	assert.Equal(t, 10.0, records[0].Percent())
	assert.Equal(t, 20.0, records[1].Percent())
	assert.True(t, records[2].IsSuccess())

	_, err := waitTimeout(t, inv)
	assert.NoError(t, err)
}

func TestOrchestrator_NonzeroExitPublishesOneFailure(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{
			stdout(`{"progress":10}` + "\n"),
			stderr("ERROR: video unavailable\n"),
		},
		status: domain.ExitStatus{Code: 1},
	}
	o, registry, notifier := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "u", 720)
	records := drainSink(t, sink)

	// progress, completion marker, then the single failure record
	require.Len(t, records, 3)
	assert.Equal(t, 10.0, records[0].Percent())
	assert.Equal(t, domain.NewCompletedRecord(), records[1])
	assert.True(t, records[2].IsFailure())
	assert.Contains(t, records[2].Error, "video unavailable")
	assert.Equal(t, 1, countFailures(records))

	outcome, err := waitTimeout(t, inv)
	assert.Nil(t, outcome)
	var workerErr *domain.WorkerError
	require.True(t, errors.As(err, &workerErr))
	assert.Equal(t, 1, workerErr.ExitCode)
	assert.Equal(t, "ERROR: video unavailable", workerErr.Stderr)

	snapshot := inv.Session().Snapshot()
	assert.Equal(t, domain.DownloadFailed, snapshot.Status)
	assert.Equal(t, "worker_failure", snapshot.ErrorKind)
	assert.Equal(t, []string{"started", "failed"}, notifier.snapshot())
}

func TestOrchestrator_WorkerReportedFailureNotDuplicated(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{
			stdout(`{"error":"Requested format is not available","progress":-1}` + "\n"),
		},
		status: domain.ExitStatus{Code: 1},
	}
	o, registry, _ := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "u", 2160)
	records := drainSink(t, sink)

	require.Len(t, records, 2)
	assert.Equal(t, "Requested format is not available", records[0].Error)
	assert.Equal(t, domain.NewCompletedRecord(), records[1])
	assert.Equal(t, 1, countFailures(records))

	_, err := waitTimeout(t, inv)
	assert.Error(t, err)
}

func TestOrchestrator_SuccessMarkerThenNonzeroExit(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{
			stdout(`{"progress":100,"status":"completed"}` + "\n"),
		},
		status: domain.ExitStatus{Code: 2},
	}
	o, registry, _ := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "u", 720)
	records := drainSink(t, sink)

	require.Len(t, records, 2)
	assert.True(t, records[0].IsSuccess())
	assert.True(t, records[1].IsFailure())

	_, err := waitTimeout(t, inv)
	var workerErr *domain.WorkerError
	require.True(t, errors.As(err, &workerErr))
	assert.Equal(t, 2, workerErr.ExitCode)
}

func TestOrchestrator_SpawnFailure(t *testing.T) {
	spawnErr := &domain.SpawnError{Command: "python3", Err: exec.ErrNotFound}
	runner := &fakeRunner{err: spawnErr}
	o, registry, notifier := newTestOrchestrator(t, runner, 1)
	sink := registry.SubscribeLatest()

	inv := startDownload(t, o, "u", 720)
	records := drainSink(t, sink)

	require.Len(t, records, 1)
	assert.True(t, records[0].IsFailure())
	assert.Equal(t, spawnErr.Error(), records[0].Error)

	_, err := waitTimeout(t, inv)
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.Equal(t, "spawn_failure", domain.ErrorKind(err))
	assert.True(t, inv.Session().Channel().Closed())
	assert.Equal(t, []string{"failed"}, notifier.snapshot())
}

func TestOrchestrator_SessionsAreIsolated(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{stdout(`{"progress":50}` + "\n")},
		gate:   gate,
	}
	o, _, _ := newTestOrchestrator(t, runner, 2)

	first := startDownload(t, o, "https://youtu.be/one", 720)
	firstSink := first.Session().Channel().Subscribe()
	second := startDownload(t, o, "https://youtu.be/two", 720)
	secondSink := second.Session().Channel().Subscribe()
	close(gate)

	// Starting the second download does not orphan the first stream
	assert.Len(t, drainSink(t, firstSink), 2)
	assert.Len(t, drainSink(t, secondSink), 2)
	assert.NotEqual(t, first.Session().ID(), second.Session().ID())
}

func TestOrchestrator_ConcurrencyLimit(t *testing.T) {
	gate := make(chan struct{})
	runner := &fakeRunner{gate: gate}
	o, _, _ := newTestOrchestrator(t, runner, 1)

	first := startDownload(t, o, "u1", 720)
	second := startDownload(t, o, "u2", 720)

	require.Eventually(t, func() bool { return runner.startCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.startCount(), "second worker must wait for a slot")
	assert.Equal(t, domain.DownloadRunning, second.Session().Snapshot().Status)

	close(gate)

	_, err := waitTimeout(t, first)
	require.NoError(t, err)
	_, err = waitTimeout(t, second)
	require.NoError(t, err)
	assert.Equal(t, 2, runner.startCount())
}

func TestOrchestrator_CancelKillsWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{gate: make(chan struct{})}
	registry := progress.NewRegistry(0)
	o := NewDownloadOrchestrator(ctx, runner, registry, nil,
		&domain.DownloadConfig{ConcurrentLimit: 1, CloseGrace: time.Hour}, nil)

	inv := startDownload(t, o, "u", 720)
	require.Eventually(t, func() bool { return runner.startCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	_, err := waitTimeout(t, inv)
	var workerErr *domain.WorkerError
	require.True(t, errors.As(err, &workerErr))
	assert.Equal(t, "killed", workerErr.Signal)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, o.Shutdown(waitCtx))
	assert.True(t, inv.Session().Channel().Closed())

	_, err = registry.Get(inv.Session().ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOrchestrator_DownloadBlocksUntilResolved(t *testing.T) {
	runner := &fakeRunner{
		chunks: []domain.OutputChunk{stdout(`{"progress":100,"status":"completed"}` + "\n")},
	}
	o, registry, _ := newTestOrchestrator(t, runner, 1)

	outcome, err := o.Download(context.Background(), "u", 720)
	require.NoError(t, err)

	session, err := registry.Get(outcome.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.DownloadSucceeded, session.Snapshot().Status)
}

func TestOrchestrator_RefusesDownloadsAfterShutdown(t *testing.T) {
	runner := &fakeRunner{chunks: []domain.OutputChunk{stdout(`{"progress":100,"status":"completed"}` + "\n")}}
	o, registry, _ := newTestOrchestrator(t, runner, 1)

	first := startDownload(t, o, "u1", 720)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))
	assert.True(t, first.Session().Channel().Closed())

	inv, err := o.Start("u2", 720)
	assert.Nil(t, inv)
	assert.ErrorIs(t, err, domain.ErrShuttingDown)

	_, err = o.Download(context.Background(), "u3", 720)
	assert.ErrorIs(t, err, domain.ErrShuttingDown)
	assert.Equal(t, "shutting_down", domain.ErrorKind(err))

	assert.Equal(t, 1, runner.startCount())
	assert.Equal(t, 1, registry.Len())
}
