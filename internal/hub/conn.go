package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is one subscriber's delivery pipe: an ordered, unbounded queue of
// framed SSE events plus identity and cancellation. A Conn belongs to exactly
// one channel for its lifetime.
type Conn struct {
	ID      string
	Channel string
	UserID  int64

	mu    sync.Mutex
	queue []string
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newConn(channel string, userID int64) *Conn {
	return &Conn{
		ID:      uuid.New().String(),
		Channel: channel,
		UserID:  userID,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// push appends an event and nudges the pump. Never blocks on the consumer;
// the queue grows without bound if the client stalls.
func (c *Conn) push(event string) {
	c.mu.Lock()
	c.queue = append(c.queue, event)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// drain takes everything currently queued, in arrival order.
func (c *Conn) drain() []string {
	c.mu.Lock()
	evs := c.queue
	c.queue = nil
	c.mu.Unlock()
	return evs
}

// cancel tells the pump to stop. Safe to call more than once and from any
// goroutine; also wakes a pump parked on an empty queue.
func (c *Conn) cancel() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the connection has been cancelled.
func (c *Conn) Done() <-chan struct{} { return c.done }
