package progress

import (
	"sync"

	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/metrics"
)

// Channel broadcasts progress records to every current subscriber.
// A subscriber only sees records published after it subscribed.
type Channel struct {
	mu     sync.Mutex
	sinks  map[uint64]*Sink
	nextID uint64
	closed bool
}

// NewChannel creates an open channel with no subscribers
func NewChannel() *Channel {
	return &Channel{sinks: make(map[uint64]*Sink)}
}

// Subscribe registers a new sink. Subscribing to a closed channel returns a
// sink whose stream has already ended.
func (c *Channel) Subscribe() *Sink {
	s := newSink()
	if !c.attach(s) {
		s.end()
	}
	return s
}

// Publish delivers record to all current subscribers in publish order.
// It returns false, delivering nothing, once the channel is closed.
func (c *Channel) Publish(record domain.ProgressRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	for _, s := range c.sinks {
		s.push(record)
	}
	return true
}

// Close ends the stream for every subscriber and drops them.
// Only the first call has an effect; it reports whether it was that call.
func (c *Channel) Close() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	sinks := c.sinks
	c.sinks = make(map[uint64]*Sink)
	c.mu.Unlock()

	for _, s := range sinks {
		s.end()
	}
	metrics.StreamSubscribers.Sub(float64(len(sinks)))
	return true
}

// Closed reports whether Close has been called
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SubscriberCount returns the number of attached sinks
func (c *Channel) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sinks)
}

func (c *Channel) attach(s *Sink) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.nextID++
	id := c.nextID
	if !s.bind(id, func() { c.unsubscribe(id) }) {
		return false
	}
	c.sinks[id] = s
	metrics.StreamSubscribers.Inc()
	return true
}

func (c *Channel) unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sinks[id]; ok {
		delete(c.sinks, id)
		metrics.StreamSubscribers.Dec()
	}
}
