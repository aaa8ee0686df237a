// Package broadcast pushes periodic status snapshots to push-capable
// transports. The interval timer advances even when nobody is listening,
// so a reconnecting client never receives a burst of stale broadcasts.
package broadcast

import (
	"log/slog"
	"time"

	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/metrics"
	"github.com/lednode/lednode/internal/transport"
)

// Scheduler drives the periodic status push. Ticked by the control loop.
type Scheduler struct {
	interval time.Duration
	last     time.Time
	targets  []transport.Broadcaster
	snapshot func() device.Snapshot
	logger   *slog.Logger
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	Targets  []transport.Broadcaster
	Snapshot func() device.Snapshot
	Logger   *slog.Logger
}

// NewScheduler creates a scheduler over the push-capable transports.
func NewScheduler(opts Options) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		targets:  opts.Targets,
		snapshot: opts.Snapshot,
		logger:   logger,
	}
}

// Tick broadcasts a status snapshot if the interval has elapsed and at
// least one recipient exists. Below the interval it is a no-op; at or
// above it the timer advances unconditionally.
func (s *Scheduler) Tick(now time.Time) {
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return
	}
	s.last = now

	// Sample each target once so the suppression check and the per-target
	// skip agree even when a client disconnects mid-tick.
	counts := make([]int, len(s.targets))
	recipients := 0
	for i, t := range s.targets {
		counts[i] = t.Recipients()
		recipients += counts[i]
	}
	if recipients == 0 {
		return
	}

	snap := s.snapshot()
	for i, t := range s.targets {
		if counts[i] == 0 {
			continue
		}
		t.BroadcastStatus(snap)
		metrics.BroadcastsTotal.WithLabelValues(t.Name()).Inc()
	}

	s.logger.Debug("Status broadcast", "recipients", recipients)
}
