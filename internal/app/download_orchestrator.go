package app

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/infrastructure"
	"github.com/yourusername/yt-download-go/internal/metrics"
	"github.com/yourusername/yt-download-go/internal/progress"
)

// Notifier is told about download lifecycle events
type Notifier interface {
	NotifyDownloadStarted(url string, resolution int)
	NotifyDownloadCompleted(url string, filePath string)
	NotifyDownloadFailed(url string, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyDownloadStarted(string, int)     {}
func (nopNotifier) NotifyDownloadCompleted(string, string) {}
func (nopNotifier) NotifyDownloadFailed(string, error)     {}

// Invocation is one download started by the orchestrator. Its outcome is
// available once Done is closed.
type Invocation struct {
	session *progress.Session
	done    chan struct{}
	outcome *domain.DownloadOutcome
	err     error
}

// Session returns the progress session the invocation publishes to
func (inv *Invocation) Session() *progress.Session {
	return inv.session
}

// Done is closed when the worker has exited and the outcome is known
func (inv *Invocation) Done() <-chan struct{} {
	return inv.done
}

// Wait blocks until the invocation resolves or ctx is done. Giving up on the
// wait does not stop the download.
func (inv *Invocation) Wait(ctx context.Context) (*domain.DownloadOutcome, error) {
	select {
	case <-inv.done:
		return inv.outcome, inv.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DownloadOrchestrator runs download-mode workers and publishes their
// progress on per-session channels.
type DownloadOrchestrator struct {
	ctx      context.Context
	runner   domain.WorkerRunner
	registry *progress.Registry
	notifier Notifier
	config   *domain.DownloadConfig
	logger   *zap.Logger
	slots    chan struct{}

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewDownloadOrchestrator creates a new orchestrator. Workers are started
// under ctx, so cancelling it kills every running download.
func NewDownloadOrchestrator(
	ctx context.Context,
	runner domain.WorkerRunner,
	registry *progress.Registry,
	notifier Notifier,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadOrchestrator {
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &DownloadOrchestrator{
		ctx:      ctx,
		runner:   runner,
		registry: registry,
		notifier: notifier,
		config:   config,
		logger:   logger,
		slots:    make(chan struct{}, limit),
	}
}

// Start opens a new progress session and launches the download in the
// background. It never blocks on the worker. Once Shutdown has been called it
// returns domain.ErrShuttingDown.
func (o *DownloadOrchestrator) Start(url string, resolution int) (*Invocation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closing {
		return nil, domain.ErrShuttingDown
	}

	download := domain.NewDownload(url, resolution)
	inv := &Invocation{
		session: o.registry.Open(download),
		done:    make(chan struct{}),
	}

	o.logger.Info("Download requested",
		zap.String("session_id", download.ID),
		zap.String("url", url),
		zap.Int("resolution", resolution))

	o.wg.Add(1)
	go o.run(inv, url, resolution)

	return inv, nil
}

// Download starts a download and waits for its outcome
func (o *DownloadOrchestrator) Download(ctx context.Context, url string, resolution int) (*domain.DownloadOutcome, error) {
	inv, err := o.Start(url, resolution)
	if err != nil {
		return nil, err
	}
	return inv.Wait(ctx)
}

// Shutdown stops accepting downloads and blocks until every started download
// has finished and its channel is closed, or ctx is done.
func (o *DownloadOrchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closing = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *DownloadOrchestrator) run(inv *Invocation, url string, resolution int) {
	defer o.wg.Done()

	session := inv.session
	channel := session.Channel()
	logger := o.logger.With(zap.String("session_id", session.ID()))

	// Wait for a worker slot
	select {
	case o.slots <- struct{}{}:
	case <-o.ctx.Done():
		o.fail(inv, logger, url, o.ctx.Err())
		return
	}
	released := false
	release := func() {
		if !released {
			released = true
			<-o.slots
		}
	}
	defer release()

	started := time.Now()
	proc, err := o.runner.Start(o.ctx, domain.WorkerModeDownload, url, strconv.Itoa(resolution))
	if err != nil {
		metrics.WorkerSpawns.WithLabelValues(string(domain.WorkerModeDownload), "spawn_failure").Inc()
		o.fail(inv, logger, url, err)
		return
	}
	metrics.WorkerSpawns.WithLabelValues(string(domain.WorkerModeDownload), "ok").Inc()
	metrics.ActiveDownloads.Inc()
	o.notifier.NotifyDownloadStarted(url, resolution)

	logger.Info("Worker started", zap.String("command", proc.CommandLine()))

	var (
		parser      = infrastructure.NewLineParser()
		stderr      bytes.Buffer
		completed   bool
		failureSeen bool
	)

	publish := func(record domain.ProgressRecord) {
		channel.Publish(record)
		session.Update(func(d *domain.Download) { d.RecordProgress(record) })
	}

	handle := func(lines []infrastructure.ParsedLine) {
		for _, line := range lines {
			metrics.ProgressRecords.WithLabelValues(string(line.Kind)).Inc()
			switch line.Kind {
			case domain.KindProgress:
				publish(line.Record)
			case domain.KindSuccess:
				completed = true
				publish(line.Record)
			case domain.KindFailure:
				failureSeen = true
				publish(line.Record)
			case domain.KindUnrecognized:
				logger.Debug("Worker output", zap.String("line", line.Text))
			}
		}
	}

	for chunk := range proc.Output() {
		switch chunk.Stream {
		case domain.StreamStdout:
			handle(parser.Feed(chunk.Data))
		case domain.StreamStderr:
			stderr.Write(chunk.Data)
			if text := strings.TrimSpace(string(chunk.Data)); text != "" {
				logger.Warn("Worker stderr", zap.String("text", text))
			}
		}
	}
	handle(parser.Flush())

	status := proc.Result()
	metrics.ActiveDownloads.Dec()
	metrics.WorkerDuration.WithLabelValues(string(domain.WorkerModeDownload)).Observe(time.Since(started).Seconds())
	release()

	// The completion marker goes out on every exit; the exit status alone
	// decides the outcome.
	if !completed {
		publish(domain.NewCompletedRecord())
	}

	if !status.Success() {
		err := &domain.WorkerError{
			ExitCode: status.Code,
			Signal:   status.Signal,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
		// The worker may already have reported its own failure
		if !failureSeen {
			publish(domain.NewFailureRecord(err.Error()))
		}
		session.Update(func(d *domain.Download) { d.MarkFailed(err) })
		logger.Error("Download failed",
			zap.Int("exit_code", status.Code),
			zap.String("signal", status.Signal),
			zap.Error(err))
		o.notifier.NotifyDownloadFailed(url, err)
		inv.err = err
	} else {
		var filePath string
		session.Update(func(d *domain.Download) {
			d.MarkSucceeded()
			filePath = d.FilePath
		})
		logger.Info("Download completed",
			zap.String("file", filePath),
			zap.Duration("elapsed", time.Since(started)))
		o.notifier.NotifyDownloadCompleted(url, filePath)
		inv.outcome = &domain.DownloadOutcome{
			SessionID: session.ID(),
			Message:   "Download complete",
			FilePath:  filePath,
		}
	}
	close(inv.done)

	// Let subscribers drain the terminal record before the stream ends
	if o.config.CloseGrace > 0 {
		timer := time.NewTimer(o.config.CloseGrace)
		select {
		case <-timer.C:
		case <-o.ctx.Done():
			timer.Stop()
		}
	}
	o.finish(session)
}

// fail resolves an invocation whose worker never ran. The channel closes
// without a grace period since no further output can arrive.
func (o *DownloadOrchestrator) fail(inv *Invocation, logger *zap.Logger, url string, err error) {
	session := inv.session
	record := domain.NewFailureRecord(err.Error())
	session.Channel().Publish(record)
	session.Update(func(d *domain.Download) {
		d.RecordProgress(record)
		d.MarkFailed(err)
	})

	logger.Error("Failed to start download", zap.String("url", url), zap.Error(err))
	o.notifier.NotifyDownloadFailed(url, err)

	inv.err = err
	close(inv.done)
	o.finish(session)
}

func (o *DownloadOrchestrator) finish(session *progress.Session) {
	session.Channel().Close()
	o.registry.Retire(session.ID())
}
