package hub

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestJoinAutoCreatesAndLastLeaveRemoves(t *testing.T) {
	b := New()
	c := b.Join("room-1", 7)
	if !contains(b.Channels(), "room-1") {
		t.Fatal("join should auto-create the channel")
	}
	b.Leave(c.ID)
	if contains(b.Channels(), "room-1") {
		t.Fatal("last leave should remove the channel")
	}
	// leaving twice is harmless
	b.Leave(c.ID)
}

func TestUsersRawAndDeduplicated(t *testing.T) {
	b := New()
	a := b.Join("room-1", 7)
	c := b.Join("room-1", 7)
	defer b.Leave(a.ID)
	defer b.Leave(c.ID)

	raw := b.Users("room-1")
	if len(raw) != 2 || raw[0] != 7 || raw[1] != 7 {
		t.Fatalf("raw users: got %v, want [7 7]", raw)
	}
	if got := b.Users("missing"); len(got) != 0 {
		t.Fatalf("unknown channel users: got %v", got)
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	b := New()
	c := b.Join("room-1", 1)
	defer b.Leave(c.ID)

	for i := 0; i < 20; i++ {
		b.PublishElements("room-1", fmt.Sprintf("<div>%d</div>", i), "", "")
	}
	evs := c.drain()
	if len(evs) != 20 {
		t.Fatalf("got %d events, want 20", len(evs))
	}
	for i, ev := range evs {
		if !strings.Contains(ev, fmt.Sprintf("<div>%d</div>", i)) {
			t.Fatalf("event %d out of order: %q", i, ev)
		}
	}
}

func TestPublishUnknownChannelIsNoop(t *testing.T) {
	b := New()
	b.PublishElements("room-1", "<div>hi</div>", "", "")
	b.PublishSignals("room-1", map[string]any{"x": 1})
	b.PublishBoth("room-1", "<p>a</p>", map[string]any{"y": 2})
	if len(b.Channels()) != 0 {
		t.Fatal("publish must not create channels")
	}
}

func TestPublishConcurrentProducers(t *testing.T) {
	b := New()
	c := b.Join("room-1", 1)
	defer b.Leave(c.ID)

	const producers, per = 8, 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				b.PublishElements("room-1", fmt.Sprintf("<i>%d-%d</i>", p, i), "", "")
			}
		}(p)
	}
	wg.Wait()
	if got := len(c.drain()); got != producers*per {
		t.Fatalf("got %d events, want %d", got, producers*per)
	}
}

func TestPublishBothSendsBothKinds(t *testing.T) {
	b := New()
	c := b.Join("room-1", 1)
	defer b.Leave(c.ID)

	b.PublishBoth("room-1", "<div>hi</div>", map[string]any{"n": 1})
	evs := c.drain()
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if !strings.Contains(evs[0], "datastar-patch-elements") || !strings.Contains(evs[1], "datastar-patch-signals") {
		t.Fatalf("unexpected kinds: %q", evs)
	}

	b.PublishBoth("room-1", "", map[string]any{"n": 2})
	evs = c.drain()
	if len(evs) != 1 || !strings.Contains(evs[0], "datastar-patch-signals") {
		t.Fatalf("signals-only: got %q", evs)
	}

	b.PublishBoth("room-1", "", nil)
	if got := c.drain(); len(got) != 0 {
		t.Fatalf("both-absent must be a no-op, got %q", got)
	}
}

func TestCreateChannelIdempotent(t *testing.T) {
	b := New()
	called := make(chan string, 4)
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		called <- "first"
		return "", nil
	})
	// second create must not overwrite the callback
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		called <- "second"
		return "", nil
	})
	c := b.Join("room-1", 5)
	defer b.Leave(c.ID)
	select {
	case got := <-called:
		if got != "first" {
			t.Fatalf("callback overwritten: %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("presence callback not invoked on join")
	}
}

func TestKillChannelCancelsConnections(t *testing.T) {
	b := New()
	a := b.Join("room-1", 1)
	c := b.Join("room-1", 2)

	b.KillChannel("room-1")
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("conn a not cancelled")
	}
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("conn c not cancelled")
	}
	if contains(b.Channels(), "room-1") {
		t.Fatal("killed channel still listed")
	}
	// publishing afterward is a no-op, not an error
	b.PublishElements("room-1", "<div>hi</div>", "", "")
	// the pumps' eventual Leave is harmless
	b.Leave(a.ID)
	b.Leave(c.ID)
}

func TestKillUnknownChannelIsNoop(t *testing.T) {
	b := New()
	b.KillChannel("missing")
}

func TestDisconnectUserCancelsOnlyThatUser(t *testing.T) {
	b := New()
	a := b.Join("room-1", 7)
	c := b.Join("room-1", 7)
	other := b.Join("room-1", 9)

	b.DisconnectUser("room-1", 7)
	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("conn a not cancelled")
	}
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("conn c not cancelled")
	}
	select {
	case <-other.Done():
		t.Fatal("unrelated user was disconnected")
	default:
	}

	// disconnect signals only; membership is removed by the pumps' Leave
	if got := len(b.Users("room-1")); got != 3 {
		t.Fatalf("disconnect must not mutate membership, got %d users", got)
	}
	b.Leave(a.ID)
	b.Leave(c.ID)
	if got := b.Users("room-1"); len(got) != 1 || got[0] != 9 {
		t.Fatalf("after teardown: got %v, want [9]", got)
	}
	b.Leave(other.ID)
	if contains(b.Channels(), "room-1") {
		t.Fatal("channel should be gone after last leave")
	}
}

// collectEvents polls a connection's queue into one slice.
func collectEvents(c *Conn, dst *[]string, mu *sync.Mutex) func() int {
	return func() int {
		mu.Lock()
		*dst = append(*dst, c.drain()...)
		n := len(*dst)
		mu.Unlock()
		return n
	}
}

func TestPresenceCallbackHTMLOnly(t *testing.T) {
	b := New()
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		return fmt.Sprintf("<ul>%d members</ul>", len(users)), nil
	})
	c := b.Join("room-1", 7)
	defer b.Leave(c.ID)

	var mu sync.Mutex
	var evs []string
	poll := collectEvents(c, &evs, &mu)
	waitFor(t, time.Second, func() bool { return poll() >= 1 }, "presence broadcast not delivered")
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(evs[0], "datastar-patch-elements") || !strings.Contains(evs[0], "<ul>1 members</ul>") {
		t.Fatalf("unexpected presence event: %q", evs[0])
	}
}

func TestPresenceCallbackSignalsOnly(t *testing.T) {
	b := New()
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		return "", map[string]any{"online": len(users)}
	})
	c := b.Join("room-1", 7)
	defer b.Leave(c.ID)

	var mu sync.Mutex
	var evs []string
	poll := collectEvents(c, &evs, &mu)
	waitFor(t, time.Second, func() bool { return poll() >= 1 }, "presence broadcast not delivered")
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(evs[0], "datastar-patch-signals") || !strings.Contains(evs[0], `{"online":1}`) {
		t.Fatalf("unexpected presence event: %q", evs[0])
	}
}

func TestPresenceCallbackBoth(t *testing.T) {
	b := New()
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		return "<div>members</div>", map[string]any{"online": len(users)}
	})
	c := b.Join("room-1", 7)
	defer b.Leave(c.ID)

	var mu sync.Mutex
	var evs []string
	poll := collectEvents(c, &evs, &mu)
	waitFor(t, time.Second, func() bool { return poll() >= 2 }, "presence pair not delivered")
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(evs[0], "datastar-patch-elements") || !strings.Contains(evs[1], "datastar-patch-signals") {
		t.Fatalf("unexpected presence events: %q", evs)
	}
}

func TestPresenceSeesDeduplicatedUsers(t *testing.T) {
	b := New()
	got := make(chan []int64, 8)
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		got <- users
		return "", nil
	})
	a := b.Join("room-1", 7)
	defer b.Leave(a.ID)
	select {
	case users := <-got:
		if len(users) != 1 || users[0] != 7 {
			t.Fatalf("first join presence: %v", users)
		}
	case <-time.After(time.Second):
		t.Fatal("presence not invoked")
	}
	c := b.Join("room-1", 7) // same user, second tab
	defer b.Leave(c.ID)
	select {
	case users := <-got:
		if len(users) != 1 || users[0] != 7 {
			t.Fatalf("second tab must not duplicate presence: %v", users)
		}
	case <-time.After(time.Second):
		t.Fatal("presence not invoked for second join")
	}
}

func TestPresenceCallbackPanicIsNonFatal(t *testing.T) {
	b := New()
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		panic("presence boom")
	})
	c := b.Join("room-1", 7)
	time.Sleep(50 * time.Millisecond) // let the callback goroutine blow up

	// engine still works
	b.PublishElements("room-1", "<div>still alive</div>", "", "")
	evs := c.drain()
	if len(evs) != 1 || !strings.Contains(evs[0], "still alive") {
		t.Fatalf("publish after panic: %q", evs)
	}
	b.Leave(c.ID)
}

func TestPresenceBroadcastOnLeave(t *testing.T) {
	b := New()
	got := make(chan []int64, 8)
	b.CreateChannel("room-1", func(ch string, users []int64) (string, map[string]any) {
		got <- users
		return "", nil
	})
	a := b.Join("room-1", 7)
	c := b.Join("room-1", 9)
	<-got
	<-got

	b.Leave(a.ID)
	select {
	case users := <-got:
		if len(users) != 1 || users[0] != 9 {
			t.Fatalf("post-leave presence: %v", users)
		}
	case <-time.After(time.Second):
		t.Fatal("presence not invoked on leave")
	}
	// last leave empties the channel: no further presence broadcast
	b.Leave(c.ID)
	select {
	case users := <-got:
		t.Fatalf("unexpected presence after channel removal: %v", users)
	case <-time.After(100 * time.Millisecond):
	}
}
