package hub

import (
	"log"

	"pushhub/internal/metrics"
)

// runPresence invokes the channel's presence callback with the registry lock
// released and publishes whatever it returns back into the same channel. A
// panicking callback is logged and counted, never fatal: presence is
// best-effort relative to the join/leave that triggered it.
func (b *Broadcaster) runPresence(name string, fn PresenceFunc, users []int64) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.PresenceErrors.Inc()
			log.Printf("presence callback failed on channel %s: %v", name, r)
		}
	}()
	html, signals := fn(name, users)
	b.PublishBoth(name, html, signals)
}
