// Package hub implements the in-memory channel registry and broadcast
// engine: named channels of live SSE connections, per-connection delivery
// queues, presence bookkeeping, and forced disconnection. State is
// process-local and volatile.
package hub

import (
	"sync"

	"pushhub/internal/ds"
	"pushhub/internal/metrics"
)

// PresenceFunc is invoked whenever a channel's user set changes. users is the
// deduplicated list of user IDs currently on the channel (a user with several
// tabs counts once). The returned html and/or signals are broadcast back into
// the same channel; returning "" and nil suppresses the broadcast. The
// callback runs on its own goroutine and may block on lookups.
type PresenceFunc func(channel string, users []int64) (html string, signals map[string]any)

type channel struct {
	conns    map[string]*Conn
	presence PresenceFunc
}

// Broadcaster is the registry of channels and the fan-out path. All
// membership mutation and the publish path's membership read go through one
// mutex; per-connection queues carry their own locks so publishers never
// block on a slow consumer.
type Broadcaster struct {
	mu       sync.Mutex
	channels map[string]*channel
	conns    map[string]*Conn // conn ID -> conn, across all channels
}

func New() *Broadcaster {
	return &Broadcaster{
		channels: map[string]*channel{},
		conns:    map[string]*Conn{},
	}
}

// CreateChannel inserts an empty channel, optionally with a presence
// callback. Idempotent: an existing channel (and its callback) is left alone.
func (b *Broadcaster) CreateChannel(name string, fn PresenceFunc) {
	b.mu.Lock()
	if _, ok := b.channels[name]; !ok {
		b.channels[name] = &channel{conns: map[string]*Conn{}, presence: fn}
		metrics.ChannelsActive.Inc()
	}
	b.mu.Unlock()
}

// KillChannel removes the channel and cancels every member connection's
// pump. Each pump then runs its usual Leave teardown, which is a no-op by
// the time it fires. No presence broadcast: the channel is gone. No-op for
// an unknown channel.
func (b *Broadcaster) KillChannel(name string) {
	b.mu.Lock()
	ch, ok := b.channels[name]
	var victims []*Conn
	if ok {
		delete(b.channels, name)
		metrics.ChannelsActive.Dec()
		for id, c := range ch.conns {
			delete(b.conns, id)
			victims = append(victims, c)
		}
		metrics.ConnectionsActive.Sub(float64(len(victims)))
	}
	b.mu.Unlock()
	for _, c := range victims {
		c.cancel()
	}
}

// Channels returns a snapshot of current channel names.
func (b *Broadcaster) Channels() []string {
	b.mu.Lock()
	names := make([]string, 0, len(b.channels))
	for name := range b.channels {
		names = append(names, name)
	}
	b.mu.Unlock()
	return names
}

// Users returns the raw, non-deduplicated user IDs of all live connections
// on the channel: one entry per connection, so a two-tab user appears twice.
// Empty for an unknown channel.
func (b *Broadcaster) Users(name string) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[name]
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(ch.conns))
	for _, c := range ch.conns {
		ids = append(ids, c.UserID)
	}
	return ids
}

// Join registers a new connection for userID on the named channel, creating
// the channel if needed, and schedules a presence broadcast reflecting the
// post-join membership.
func (b *Broadcaster) Join(name string, userID int64) *Conn {
	c := newConn(name, userID)
	b.mu.Lock()
	ch, ok := b.channels[name]
	if !ok {
		ch = &channel{conns: map[string]*Conn{}}
		b.channels[name] = ch
		metrics.ChannelsActive.Inc()
	}
	ch.conns[c.ID] = c
	b.conns[c.ID] = c
	fn := ch.presence
	users := dedupUsers(ch.conns)
	b.mu.Unlock()
	metrics.ConnectionsActive.Inc()
	go b.runPresence(name, fn, users)
	return c
}

// Leave removes the connection from its channel. The last connection out
// removes the channel itself; otherwise a presence broadcast is scheduled.
// Idempotent: leaving twice is harmless.
func (b *Broadcaster) Leave(connID string) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.conns, connID)
	metrics.ConnectionsActive.Dec()
	var fn PresenceFunc
	var users []int64
	if ch, ok := b.channels[c.Channel]; ok {
		delete(ch.conns, connID)
		if len(ch.conns) == 0 {
			delete(b.channels, c.Channel)
			metrics.ChannelsActive.Dec()
		} else {
			fn = ch.presence
			users = dedupUsers(ch.conns)
		}
	}
	b.mu.Unlock()
	c.cancel()
	go b.runPresence(c.Channel, fn, users)
}

// DisconnectUser cancels every connection on the channel belonging to
// userID. Membership is not touched here: each cancelled pump performs its
// normal Leave teardown, so presence runs exactly once per connection.
func (b *Broadcaster) DisconnectUser(name string, userID int64) {
	b.mu.Lock()
	var victims []*Conn
	if ch, ok := b.channels[name]; ok {
		for _, c := range ch.conns {
			if c.UserID == userID {
				victims = append(victims, c)
			}
		}
	}
	b.mu.Unlock()
	for _, c := range victims {
		c.cancel()
	}
}

// PublishElements enqueues a markup patch onto every live connection of the
// channel. Fire-and-forget: no-op when the channel is unknown or empty.
func (b *Broadcaster) PublishElements(name, html, selector, mode string) {
	b.publish(name, "elements", ds.PatchElements(html, selector, mode))
}

// PublishSignals enqueues a signals patch onto every live connection of the
// channel.
func (b *Broadcaster) PublishSignals(name string, signals map[string]any) {
	b.publish(name, "signals", ds.PatchSignals(signals))
}

// PublishBoth sends markup and signals as one logical event; either part may
// be absent. Both absent is a no-op.
func (b *Broadcaster) PublishBoth(name, html string, signals map[string]any) {
	if html != "" {
		b.PublishElements(name, html, "", "")
	}
	if signals != nil {
		b.PublishSignals(name, signals)
	}
}

// publish pushes pre-framed events to every member connection under the
// registry lock, so per-connection delivery order equals publish order.
// Pushes never block: each queue is unbounded.
func (b *Broadcaster) publish(name, kind string, events ...string) {
	b.mu.Lock()
	ch, ok := b.channels[name]
	if !ok || len(ch.conns) == 0 {
		b.mu.Unlock()
		return
	}
	for _, c := range ch.conns {
		for _, ev := range events {
			c.push(ev)
		}
	}
	b.mu.Unlock()
	metrics.Messages.WithLabelValues(kind).Inc()
}

// Conn looks up a live connection by ID.
func (b *Broadcaster) Conn(connID string) (*Conn, bool) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	b.mu.Unlock()
	return c, ok
}

// dedupUsers returns distinct user IDs in first-seen order. Caller holds the
// registry lock.
func dedupUsers(conns map[string]*Conn) []int64 {
	seen := map[int64]struct{}{}
	ids := make([]int64, 0, len(conns))
	for _, c := range conns {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		ids = append(ids, c.UserID)
	}
	return ids
}
