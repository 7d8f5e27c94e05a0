package hub

import (
	"context"
	"time"

	"pushhub/internal/ds"
	"pushhub/internal/metrics"
)

// EventWriter delivers one framed SSE event to a client transport.
type EventWriter interface {
	WriteEvent(event string) error
}

// Pump is the per-connection consumer loop: it drains the connection's queue
// to w in FIFO order, writes a heartbeat frame whenever the interval elapses
// with nothing to send, and stops on cancellation, caller context end, or a
// transport write failure. Every exit path deregisters the connection, so
// teardown and the resulting presence update run exactly once.
func (b *Broadcaster) Pump(ctx context.Context, c *Conn, w EventWriter, heartbeat time.Duration) {
	defer b.Leave(c.ID)
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		for _, ev := range c.drain() {
			if err := w.WriteEvent(ev); err != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.wake:
			// loop back around and drain
		case <-ticker.C:
			if err := w.WriteEvent(ds.Heartbeat); err != nil {
				return
			}
			metrics.Heartbeats.Inc()
		}
	}
}
