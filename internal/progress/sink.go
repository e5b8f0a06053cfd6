package progress

import (
	"context"
	"sync"

	"github.com/yourusername/yt-download-go/internal/domain"
)

// Sink is one subscriber's delivery endpoint.
//
// Records are queued without bound so a slow reader never stalls the
// publisher, and are handed out by Next in publish order. Records queued
// before the stream ended are still delivered before Next reports the end.
type Sink struct {
	mu     sync.Mutex
	id     uint64
	queue  []domain.ProgressRecord
	ready  chan struct{}
	done   bool
	detach func()
}

func newSink() *Sink {
	return &Sink{ready: make(chan struct{}, 1)}
}

// Next blocks until a record is available, the stream has ended, or ctx is
// done. The boolean is false once no more records will be delivered.
func (s *Sink) Next(ctx context.Context) (domain.ProgressRecord, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			record := s.queue[0]
			s.queue[0] = domain.ProgressRecord{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return record, true
		}
		if s.done {
			s.mu.Unlock()
			return domain.ProgressRecord{}, false
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-ctx.Done():
			return domain.ProgressRecord{}, false
		}
	}
}

// ended reports whether the stream has ended for this sink
func (s *Sink) ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Close unsubscribes the sink. It is safe to call more than once.
func (s *Sink) Close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.done = true
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
	s.wake()
}

func (s *Sink) push(record domain.ProgressRecord) bool {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, record)
	s.mu.Unlock()

	s.wake()
	return true
}

// end marks the stream finished without running the detach hook; the owner
// has already dropped the sink from its set.
func (s *Sink) end() {
	s.mu.Lock()
	s.done = true
	s.detach = nil
	s.mu.Unlock()

	s.wake()
}

// bind installs the hook that removes the sink from its current owner.
// It fails when the sink was closed in the meantime.
func (s *Sink) bind(id uint64, detach func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.id = id
	s.detach = detach
	return true
}

func (s *Sink) wake() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}
