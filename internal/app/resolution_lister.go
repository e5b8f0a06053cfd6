package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/metrics"
)

// ResolutionLister runs the worker in list mode and returns the encodings it
// reports for a video. It never touches progress channels.
type ResolutionLister struct {
	runner  domain.WorkerRunner
	cache   domain.ResolutionCache
	timeout time.Duration
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResolutionLister creates a lister. cache may be nil to disable caching.
func NewResolutionLister(
	runner domain.WorkerRunner,
	cache domain.ResolutionCache,
	workerConfig *domain.WorkerConfig,
	cacheConfig *domain.CacheConfig,
	logger *zap.Logger,
) *ResolutionLister {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &ResolutionLister{
		runner:  runner,
		timeout: workerConfig.ListTimeout,
		logger:  logger,
	}
	if cache != nil && cacheConfig != nil && cacheConfig.Enabled && cacheConfig.TTL > 0 {
		l.cache = cache
		l.ttl = cacheConfig.TTL
	}
	return l
}

// List returns the resolution descriptors for url
func (l *ResolutionLister) List(ctx context.Context, url string) ([]domain.ResolutionDescriptor, error) {
	if l.cache != nil {
		cached, ok, err := l.cache.Get(url, l.ttl)
		if err != nil {
			l.logger.Warn("Resolution cache lookup failed", zap.String("url", url), zap.Error(err))
		} else if ok {
			l.logger.Debug("Resolution cache hit", zap.String("url", url))
			return cached, nil
		}
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	started := time.Now()
	proc, err := l.runner.Start(ctx, domain.WorkerModeList, url)
	if err != nil {
		metrics.WorkerSpawns.WithLabelValues(string(domain.WorkerModeList), "spawn_failure").Inc()
		return nil, err
	}
	metrics.WorkerSpawns.WithLabelValues(string(domain.WorkerModeList), "ok").Inc()

	var stdout, stderr bytes.Buffer
	for chunk := range proc.Output() {
		switch chunk.Stream {
		case domain.StreamStdout:
			stdout.Write(chunk.Data)
		case domain.StreamStderr:
			stderr.Write(chunk.Data)
		}
	}
	status := proc.Result()
	metrics.WorkerDuration.WithLabelValues(string(domain.WorkerModeList)).Observe(time.Since(started).Seconds())

	if stderr.Len() > 0 {
		l.logger.Debug("Worker stderr", zap.String("text", strings.TrimSpace(stderr.String())))
	}

	if !status.Success() {
		werr := &domain.WorkerError{
			ExitCode: status.Code,
			Signal:   status.Signal,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("listing resolutions timed out after %s: %w", l.timeout, werr)
		}
		return nil, werr
	}

	descriptors, err := decodeListing(stdout.Bytes())
	if err != nil {
		l.logger.Error("Failed to decode worker listing",
			zap.String("url", url),
			zap.String("raw", stdout.String()),
			zap.Error(err))
		return nil, err
	}

	l.logger.Info("Resolutions listed",
		zap.String("url", url),
		zap.Int("count", len(descriptors)),
		zap.Duration("elapsed", time.Since(started)))

	if l.cache != nil {
		if err := l.cache.Put(url, descriptors); err != nil {
			l.logger.Warn("Failed to cache resolutions", zap.String("url", url), zap.Error(err))
		}
	}

	return descriptors, nil
}

// decodeListing decodes list-mode output, which must be a single JSON array.
// A top-level {"error": ...} object is the worker reporting a failure while
// still exiting 0; it is not a WorkerError since the worker did not fail.
func decodeListing(raw []byte) ([]domain.ResolutionDescriptor, error) {
	trimmed := bytes.TrimSpace(raw)

	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var descriptors []domain.ResolutionDescriptor
		if err := json.Unmarshal(trimmed, &descriptors); err != nil {
			return nil, &domain.MalformedMetadataError{Raw: string(raw), Err: err}
		}
		if descriptors == nil {
			descriptors = []domain.ResolutionDescriptor{}
		}
		return descriptors, nil

	case len(trimmed) > 0 && trimmed[0] == '{':
		var failure struct {
			Error *string `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &failure); err != nil {
			return nil, &domain.MalformedMetadataError{Raw: string(raw), Err: err}
		}
		if failure.Error != nil {
			return nil, &domain.WorkerReportedError{Message: *failure.Error}
		}
		return nil, &domain.MalformedMetadataError{Raw: string(raw), Err: errors.New("expected a JSON array of resolutions")}

	default:
		return nil, &domain.MalformedMetadataError{Raw: string(raw), Err: errors.New("expected a JSON array of resolutions")}
	}
}
