package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/progress"
)

type fakeStart struct {
	mode domain.WorkerMode
	args []string
}

// fakeRunner replays a fixed output script for every process it starts.
// When gate is set, processes hold their output until it is closed or the
// start context is cancelled.
type fakeRunner struct {
	mu     sync.Mutex
	starts []fakeStart
	err    error
	chunks []domain.OutputChunk
	status domain.ExitStatus
	gate   chan struct{}
}

func (r *fakeRunner) Start(ctx context.Context, mode domain.WorkerMode, args ...string) (domain.WorkerProcess, error) {
	r.mu.Lock()
	r.starts = append(r.starts, fakeStart{mode: mode, args: args})
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	p := &fakeProcess{output: make(chan domain.OutputChunk)}
	go func() {
		defer close(p.output)
		if r.gate != nil {
			select {
			case <-r.gate:
			case <-ctx.Done():
				p.result = domain.ExitStatus{Code: -1, Signal: "killed"}
				return
			}
		}
		for _, c := range r.chunks {
			p.output <- c
		}
		p.result = r.status
	}()
	return p, nil
}

func (r *fakeRunner) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}

type fakeProcess struct {
	output chan domain.OutputChunk
	result domain.ExitStatus
}

func (p *fakeProcess) Output() <-chan domain.OutputChunk { return p.output }
func (p *fakeProcess) Result() domain.ExitStatus         { return p.result }
func (p *fakeProcess) CommandLine() string               { return "fake-worker" }

func stdout(lines ...string) domain.OutputChunk {
	return domain.OutputChunk{Stream: domain.StreamStdout, Data: []byte(strings.Join(lines, ""))}
}

func stderr(text string) domain.OutputChunk {
	return domain.OutputChunk{Stream: domain.StreamStderr, Data: []byte(text)}
}

// drainSink collects records until the stream ends
func drainSink(t *testing.T, sink *progress.Sink) []domain.ProgressRecord {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var records []domain.ProgressRecord
	for {
		record, ok := sink.Next(ctx)
		if !ok {
			if ctx.Err() != nil {
				t.Fatal("stream did not end in time")
			}
			return records
		}
		records = append(records, record)
	}
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]domain.ResolutionDescriptor
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]domain.ResolutionDescriptor)}
}

func (c *fakeCache) Get(url string, maxAge time.Duration) ([]domain.ResolutionDescriptor, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[url]
	return d, ok, nil
}

func (c *fakeCache) Put(url string, descriptors []domain.ResolutionDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = descriptors
	c.puts++
	return nil
}

func (c *fakeCache) Purge(maxAge time.Duration) (int64, error) { return 0, nil }

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(e string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) NotifyDownloadStarted(url string, resolution int)    { n.add("started") }
func (n *recordingNotifier) NotifyDownloadCompleted(url string, filePath string) { n.add("completed") }
func (n *recordingNotifier) NotifyDownloadFailed(url string, err error)          { n.add("failed") }

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
