// Package core runs the control loop that owns all device state mutation.
// Transports hand raw payloads to the loop over a queue and receive the
// dispatcher's Result back; the loop is the single writer, so the device
// state needs no locking. Timed work (health polling, periodic broadcast)
// runs on the same loop so a stalled transport cannot starve it.
package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lednode/lednode/internal/command"
	"github.com/lednode/lednode/internal/metrics"
)

// ErrStopped is returned by Submit after the loop has shut down.
var ErrStopped = errors.New("control loop stopped")

const (
	defaultTickEvery = 250 * time.Millisecond
	defaultInboxSize = 64
)

// Ticker is timed work driven by the loop: the health supervisor and the
// broadcast scheduler. Implementations rate-limit themselves against now.
type Ticker interface {
	Tick(now time.Time)
}

type request struct {
	origin  string
	payload []byte
	reply   chan command.Result
}

// Loop is the single thread of control for command processing.
type Loop struct {
	dispatcher *command.Dispatcher
	tickables  []Ticker
	tickEvery  time.Duration
	inbox      chan request
	done       chan struct{}
	logger     *slog.Logger
}

// Options configures a Loop.
type Options struct {
	Dispatcher *command.Dispatcher
	Tickables  []Ticker
	TickEvery  time.Duration
	InboxSize  int
	Logger     *slog.Logger
}

// NewLoop creates a control loop. Run must be called for Submit to make
// progress.
func NewLoop(opts Options) *Loop {
	tickEvery := opts.TickEvery
	if tickEvery <= 0 {
		tickEvery = defaultTickEvery
	}
	inboxSize := opts.InboxSize
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		dispatcher: opts.Dispatcher,
		tickables:  opts.Tickables,
		tickEvery:  tickEvery,
		inbox:      make(chan request, inboxSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// AddTicker registers timed work on the loop. Must be called before Run;
// tickers cannot be added to a running loop.
func (l *Loop) AddTicker(t Ticker) {
	l.tickables = append(l.tickables, t)
}

// Submit parses and dispatches a raw payload on the control loop, blocking
// until the Result is available, the context is cancelled, or the loop
// stops.
func (l *Loop) Submit(ctx context.Context, origin string, payload []byte) (command.Result, error) {
	req := request{
		origin:  origin,
		payload: payload,
		reply:   make(chan command.Result, 1),
	}

	select {
	case l.inbox <- req:
	case <-ctx.Done():
		return command.Result{}, ctx.Err()
	case <-l.done:
		return command.Result{}, ErrStopped
	}

	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return command.Result{}, ctx.Err()
	case <-l.done:
		return command.Result{}, ErrStopped
	}
}

// Run services the inbox and tickers until ctx is cancelled. It must run
// on exactly one goroutine.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tickEvery)
	defer ticker.Stop()
	defer close(l.done)

	l.logger.Info("Control loop started", "tick_every", l.tickEvery)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Control loop stopped")
			return

		case req := <-l.inbox:
			l.handle(req)

		case now := <-ticker.C:
			for _, t := range l.tickables {
				t.Tick(now)
			}
		}
	}
}

func (l *Loop) handle(req request) {
	cmd := command.Parse(req.payload)
	res := l.dispatcher.Dispatch(cmd)

	outcome := "ok"
	if !res.Success {
		outcome = "rejected"
	}
	metrics.CommandsTotal.WithLabelValues(req.origin, outcome).Inc()

	l.logger.Debug("Command dispatched",
		"origin", req.origin,
		"success", res.Success,
		"message", res.Message)

	// Reply channel is buffered; the submitter may already be gone.
	select {
	case req.reply <- res:
	default:
	}
}
