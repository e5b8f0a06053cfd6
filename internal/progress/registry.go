package progress

import (
	"sync"
	"time"

	"github.com/yourusername/yt-download-go/internal/domain"
)

// Session pairs a download's state with the channel carrying its progress
type Session struct {
	channel *Channel

	mu       sync.RWMutex
	download domain.Download
}

// ID returns the session identifier handed to clients
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.download.ID
}

// Channel returns the session's progress channel
func (s *Session) Channel() *Channel {
	return s.channel
}

// Snapshot returns a copy of the session's download state
func (s *Session) Snapshot() domain.Download {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.download
}

// Update mutates the download state under the session lock
func (s *Session) Update(fn func(d *domain.Download)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.download)
}

// Registry maps download-session ids to their sessions.
//
// Subscribers that do not name a session follow the most recently opened
// one; if it has already closed they wait for the next session to open.
// Closed sessions stay resolvable for the retention period.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	latest    *Session
	waiting   map[*Sink]struct{}
	retention time.Duration
	shutdown  bool
}

// NewRegistry creates an empty registry
func NewRegistry(retention time.Duration) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		waiting:   make(map[*Sink]struct{}),
		retention: retention,
	}
}

// Open registers a session for download with a fresh channel and makes it
// the latest session. Subscribers waiting for a session are attached to it.
func (r *Registry) Open(download *domain.Download) *Session {
	session := &Session{
		channel:  NewChannel(),
		download: *download,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[download.ID] = session
	r.latest = session
	for s := range r.waiting {
		delete(r.waiting, s)
		if !session.channel.attach(s) {
			s.end()
		}
	}
	return session
}

// Get returns the session with the given id
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Latest returns the most recently opened session still in the registry
func (r *Registry) Latest() (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.latest != nil
}

// Subscribe attaches a sink to the session with the given id
func (r *Registry) Subscribe(id string) (*Sink, error) {
	session, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return session.channel.Subscribe(), nil
}

// SubscribeLatest attaches a sink to the latest open session, or parks it
// until the next session opens. After Shutdown nothing is parked: the sink
// ends at once when no session is open.
func (r *Registry) SubscribeLatest() *Sink {
	s := newSink()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.latest != nil && r.latest.channel.attach(s) {
		return s
	}
	if r.shutdown {
		s.end()
		return s
	}
	if s.bind(0, func() { r.unpark(s) }) {
		r.waiting[s] = struct{}{}
	}
	return s
}

// Retire schedules removal of a finished session after the retention period
func (r *Registry) Retire(id string) {
	if r.retention <= 0 {
		r.evict(id)
		return
	}
	time.AfterFunc(r.retention, func() { r.evict(id) })
}

// Len returns the number of sessions in the registry
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown ends the stream for subscribers still waiting for a session and
// stops parking new ones.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.shutdown = true
	waiting := r.waiting
	r.waiting = make(map[*Sink]struct{})
	r.mu.Unlock()

	for s := range waiting {
		s.end()
	}
}

func (r *Registry) evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if r.latest == session {
		r.latest = nil
	}
}

func (r *Registry) unpark(s *Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waiting, s)
}
