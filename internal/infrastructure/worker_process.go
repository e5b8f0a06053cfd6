package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/internal/domain"
)

const readBufferSize = 32 * 1024

// ProcessRunner launches the external worker as a child process
type ProcessRunner struct {
	config *domain.WorkerConfig
	logger *zap.Logger
}

// NewProcessRunner creates a new worker process runner
func NewProcessRunner(config *domain.WorkerConfig, logger *zap.Logger) *ProcessRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessRunner{
		config: config,
		logger: logger,
	}
}

// Start launches the worker in the given mode. The process is killed when
// ctx is cancelled.
func (r *ProcessRunner) Start(ctx context.Context, mode domain.WorkerMode, args ...string) (domain.WorkerProcess, error) {
	argv := make([]string, 0, len(r.config.Args)+len(args)+1)
	argv = append(argv, r.config.Args...)
	argv = append(argv, string(mode))
	argv = append(argv, args...)

	cmdLine := FormatCommand(r.config.Command, argv...)

	cmd := exec.CommandContext(ctx, r.config.Command, argv...)
	cmd.Dir = r.config.Dir
	// Python workers must not block-buffer their progress output
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &domain.SpawnError{Command: r.config.Command, Err: fmt.Errorf("failed to get stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &domain.SpawnError{Command: r.config.Command, Err: fmt.Errorf("failed to get stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		r.logger.Error("Failed to start worker",
			zap.String("mode", string(mode)),
			zap.String("command", cmdLine),
			zap.Error(err))
		return nil, &domain.SpawnError{Command: r.config.Command, Err: err}
	}

	r.logger.Debug("Worker started",
		zap.String("mode", string(mode)),
		zap.String("command", cmdLine),
		zap.Int("pid", cmd.Process.Pid))

	p := &workerProcess{
		cmd:     cmd,
		cmdLine: cmdLine,
		output:  make(chan domain.OutputChunk, 64),
		started: time.Now(),
		logger:  r.logger,
	}
	go p.run(stdout, stderr)

	return p, nil
}

// workerProcess implements domain.WorkerProcess for an exec.Cmd
type workerProcess struct {
	cmd     *exec.Cmd
	cmdLine string
	output  chan domain.OutputChunk
	started time.Time
	logger  *zap.Logger

	mu     sync.Mutex
	result domain.ExitStatus
}

func (p *workerProcess) Output() <-chan domain.OutputChunk {
	return p.output
}

func (p *workerProcess) Result() domain.ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *workerProcess) CommandLine() string {
	return p.cmdLine
}

// run pumps both pipes into the output channel, waits for the process and
// closes the channel once the exit status is known.
func (p *workerProcess) run(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(2)
	go p.pump(&wg, domain.StreamStdout, stdout)
	go p.pump(&wg, domain.StreamStderr, stderr)
	wg.Wait()

	waitErr := p.cmd.Wait()
	status := exitStatus(waitErr)

	p.mu.Lock()
	p.result = status
	p.mu.Unlock()

	p.logger.Debug("Worker exited",
		zap.String("command", p.cmdLine),
		zap.Int("exit_code", status.Code),
		zap.String("signal", status.Signal),
		zap.Duration("elapsed", time.Since(p.started)),
		zap.NamedError("wait_error", waitErr))

	close(p.output)
}

func (p *workerProcess) pump(wg *sync.WaitGroup, stream domain.StreamKind, r io.Reader) {
	defer wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			p.output <- domain.OutputChunk{Stream: stream, Data: data}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Warn("Worker pipe read failed",
					zap.String("stream", string(stream)),
					zap.Error(err))
			}
			return
		}
	}
}

// exitStatus converts the error from cmd.Wait into an ExitStatus
func exitStatus(err error) domain.ExitStatus {
	if err == nil {
		return domain.ExitStatus{Code: 0}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status := domain.ExitStatus{Code: exitErr.ExitCode()}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			status.Signal = ws.Signal().String()
		}
		return status
	}

	return domain.ExitStatus{Code: -1}
}
