// Package health supervises link-layer and session-layer connectivity
// (network interface, MQTT broker) with a bounded-rate retry policy:
// transitions are detected only at the polling interval and at most one
// reconnect attempt is issued per elapsed interval. Attempts run on their
// own goroutine, so a flapping or slow link cannot starve the control loop.
package health

import (
	"log/slog"
	"time"

	"github.com/lednode/lednode/internal/events"
	"github.com/lednode/lednode/internal/metrics"
)

// LinkState is the supervisor's view of one monitored link.
type LinkState int

const (
	// Connected means the last probe succeeded.
	Connected LinkState = iota
	// Disconnected means a probe failure was just detected.
	Disconnected
	// Reconnecting means a reconnect attempt is pending or has failed.
	Reconnecting
)

// String implements fmt.Stringer.
func (s LinkState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Link is one supervised connection. Probe must be cheap and non-blocking.
// Reconnect may block on I/O: the supervisor runs it on its own goroutine
// and keeps at most one attempt in flight per link, so a slow broker
// handshake never stalls the control loop.
type Link interface {
	Name() string
	Probe() bool
	Reconnect() error
}

// Supervisor polls every link at a fixed interval from the control loop.
type Supervisor struct {
	links    []Link
	states   map[string]LinkState
	pending  map[string]chan error
	interval time.Duration
	last     time.Time
	bus      *events.Bus
	uptime   func() int64
	logger   *slog.Logger
}

// Options configures a Supervisor.
type Options struct {
	Links    []Link
	Interval time.Duration
	Bus      *events.Bus
	// Uptime supplies event timestamps in milliseconds since start.
	Uptime func() int64
	Logger *slog.Logger
}

// NewSupervisor creates a supervisor. Links start in the Connected state;
// the first failed probe moves them through the normal transitions.
func NewSupervisor(opts Options) *Supervisor {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	uptime := opts.Uptime
	if uptime == nil {
		uptime = func() int64 { return 0 }
	}

	states := make(map[string]LinkState, len(opts.Links))
	for _, link := range opts.Links {
		states[link.Name()] = Connected
		metrics.LinkUp.WithLabelValues(link.Name()).Set(1)
	}

	return &Supervisor{
		links:    opts.Links,
		states:   states,
		pending:  make(map[string]chan error),
		interval: interval,
		bus:      opts.Bus,
		uptime:   uptime,
		logger:   logger,
	}
}

// Tick polls all links if the interval has elapsed. Called from the
// control loop; never concurrently.
func (s *Supervisor) Tick(now time.Time) {
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return
	}
	s.last = now

	for _, link := range s.links {
		s.check(link)
	}
}

func (s *Supervisor) check(link Link) {
	name := link.Name()

	// Collect the outcome of a previous attempt first. While one is
	// still in flight nothing else happens for this link: attempts
	// never stack, and the tick returns without blocking.
	attemptDone := false
	if done, ok := s.pending[name]; ok {
		select {
		case err := <-done:
			delete(s.pending, name)
			attemptDone = true
			if err != nil {
				s.logger.Warn("Reconnect failed", "link", name, "error", err)
			}
		default:
			return
		}
	}

	if link.Probe() {
		if s.states[name] != Connected {
			s.transition(name, Connected)
		}
		return
	}

	if s.states[name] == Connected {
		s.transition(name, Disconnected)
	} else if attemptDone && s.states[name] != Reconnecting {
		s.transition(name, Reconnecting)
	}

	// At most one attempt is started per elapsed interval, and it runs
	// off the tick goroutine so a blocking handshake cannot stall
	// command dispatch.
	metrics.ReconnectAttempts.WithLabelValues(name).Inc()
	s.logger.Info("Attempting reconnect", "link", name)

	done := make(chan error, 1)
	s.pending[name] = done
	go func() { done <- link.Reconnect() }()
}

func (s *Supervisor) transition(name string, to LinkState) {
	from := s.states[name]
	s.states[name] = to

	up := 0.0
	if to == Connected {
		up = 1.0
	}
	metrics.LinkUp.WithLabelValues(name).Set(up)

	s.logger.Info("Link state changed", "link", name, "from", from.String(), "to", to.String())

	if s.bus != nil {
		s.bus.Publish(events.LinkStateChangedEvent{
			Link:      name,
			State:     to.String(),
			Timestamp: s.uptime(),
		})
	}
}

// State returns the supervisor's view of the named link. Unknown links
// report Connected, matching the initial assumption for unmonitored ones.
func (s *Supervisor) State(name string) LinkState {
	if state, ok := s.states[name]; ok {
		return state
	}
	return Connected
}

// States returns a copy of all link states for status surfaces.
func (s *Supervisor) States() map[string]string {
	out := make(map[string]string, len(s.states))
	for name, state := range s.states {
		out[name] = state.String()
	}
	return out
}
