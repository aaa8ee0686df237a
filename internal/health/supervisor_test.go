package health

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeLink struct {
	name string
	// gate, when set, holds Reconnect until the test supplies the result.
	gate chan error

	mu sync.Mutex
	up bool
	// reconnectFixes makes Reconnect bring the link back up.
	reconnectFixes bool
	reconnectErr   error
	reconnects     int
}

func (f *fakeLink) Name() string { return f.name }

func (f *fakeLink) Probe() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up
}

func (f *fakeLink) Reconnect() error {
	f.mu.Lock()
	f.reconnects++
	fixes := f.reconnectFixes
	err := f.reconnectErr
	f.mu.Unlock()

	if f.gate != nil {
		err = <-f.gate
	}
	if err != nil {
		return err
	}
	if fixes {
		f.setUp(true)
	}
	return nil
}

func (f *fakeLink) setUp(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up = up
}

func (f *fakeLink) setReconnect(fixes bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnectFixes = fixes
	f.reconnectErr = err
}

func (f *fakeLink) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

func newTestSupervisor(links ...Link) *Supervisor {
	return NewSupervisor(Options{
		Links:    links,
		Interval: time.Second,
	})
}

// tickUntil keeps ticking past the interval until cond holds, giving the
// reconnect goroutines time to deliver their results.
func tickUntil(t *testing.T, s *Supervisor, now time.Time, cond func() bool) time.Time {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		now = now.Add(time.Second)
		s.Tick(now)
		if cond() {
			return now
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
	return now
}

func TestLinksStartConnected(t *testing.T) {
	link := &fakeLink{name: "mqtt", up: true}
	s := newTestSupervisor(link)

	if s.State("mqtt") != Connected {
		t.Fatalf("expected Connected, got %v", s.State("mqtt"))
	}
}

func TestTickReturnsWhileReconnectInFlight(t *testing.T) {
	link := &fakeLink{name: "mqtt", gate: make(chan error)}
	s := newTestSupervisor(link)

	start := time.Now()
	s.Tick(start)
	s.Tick(start.Add(time.Second))
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("tick stalled %v behind an in-flight reconnect", elapsed)
	}

	link.gate <- nil
}

func TestSingleAttemptInFlight(t *testing.T) {
	link := &fakeLink{name: "mqtt", gate: make(chan error)}
	s := newTestSupervisor(link)

	base := time.Now()
	s.Tick(base)

	// Tick spawns the reconnect on its own goroutine; wait for it to
	// start before asserting no further attempts stack behind it.
	deadline := time.Now().Add(2 * time.Second)
	for link.attempts() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	s.Tick(base.Add(100 * time.Millisecond)) // below interval
	s.Tick(base.Add(time.Second))            // attempt still in flight
	s.Tick(base.Add(2 * time.Second))

	if link.attempts() != 1 {
		t.Fatalf("expected 1 reconnect attempt, got %d", link.attempts())
	}

	// Once the attempt resolves, the next interval starts a new one.
	link.gate <- errors.New("refused")
	tickUntil(t, s, base.Add(2*time.Second), func() bool { return link.attempts() >= 2 })
	link.gate <- nil
}

func TestTransitionsDownAndRecovering(t *testing.T) {
	link := &fakeLink{name: "mqtt", reconnectErr: errors.New("refused")}
	s := newTestSupervisor(link)

	now := time.Now()
	s.Tick(now)
	if s.State("mqtt") != Disconnected {
		t.Fatalf("expected Disconnected on first failed probe, got %v", s.State("mqtt"))
	}

	now = tickUntil(t, s, now, func() bool { return s.State("mqtt") == Reconnecting })

	// Reconnect succeeds on a later attempt.
	link.setReconnect(true, nil)
	tickUntil(t, s, now, func() bool { return s.State("mqtt") == Connected })
}

func TestLinkRecoveringOnItsOwn(t *testing.T) {
	link := &fakeLink{name: "network"}
	s := newTestSupervisor(link)

	now := time.Now()
	s.Tick(now)
	if s.State("network") == Connected {
		t.Fatal("expected link to leave Connected")
	}

	// The link comes back without a reconnect (e.g. DHCP renewed).
	link.setUp(true)
	tickUntil(t, s, now, func() bool { return s.State("network") == Connected })
}

func TestUnknownLinkReportsConnected(t *testing.T) {
	s := newTestSupervisor()
	if s.State("nonexistent") != Connected {
		t.Fatalf("expected Connected for unknown link, got %v", s.State("nonexistent"))
	}
}

func TestStatesSnapshot(t *testing.T) {
	a := &fakeLink{name: "network", up: true}
	b := &fakeLink{name: "mqtt", reconnectErr: errors.New("refused")}
	s := newTestSupervisor(a, b)

	now := time.Now()
	s.Tick(now)
	tickUntil(t, s, now, func() bool { return s.States()["mqtt"] == "reconnecting" })

	states := s.States()
	if states["network"] != "connected" {
		t.Fatalf("expected network connected, got %q", states["network"])
	}
	if states["mqtt"] != "reconnecting" {
		t.Fatalf("expected mqtt reconnecting, got %q", states["mqtt"])
	}
}
