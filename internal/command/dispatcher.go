package command

import (
	"log/slog"

	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/events"
	"github.com/lednode/lednode/internal/session"
)

// HelpText is the command list sent in reply to a Help command.
const HelpText = "Available commands: led on, led off, toggle, status, list, help, restart"

// Actuator drives the physical output. Errors are logged, not surfaced:
// the canonical state has already moved and clients get the new state.
type Actuator interface {
	Apply(on bool) error
}

// Dispatcher applies commands to the device state. It is the single code
// path permitted to mutate State; every transport routes through it.
type Dispatcher struct {
	state    *device.State
	registry *session.Registry
	actuator Actuator
	bus      *events.Bus
	restart  func()
	logger   *slog.Logger
}

// DispatcherOptions wires the dispatcher's collaborators.
type DispatcherOptions struct {
	State    *device.State
	Registry *session.Registry
	Actuator Actuator
	Bus      *events.Bus
	// Restart schedules a delayed process restart. Nil disables the
	// restart command (it still succeeds, with a log entry only).
	Restart func()
	Logger  *slog.Logger
}

// NewDispatcher creates a dispatcher over the given device state.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		state:    opts.State,
		registry: opts.Registry,
		actuator: opts.Actuator,
		bus:      opts.Bus,
		restart:  opts.Restart,
		logger:   logger,
	}
}

// Dispatch applies cmd to the device state and returns the Result to
// render. Must be called from the control loop only.
func (d *Dispatcher) Dispatch(cmd Command) Result {
	switch cmd.Kind {
	case KindSetActuator:
		return d.setActuator(cmd.On)

	case KindToggle:
		return d.setActuator(!d.state.ActuatorOn())

	case KindQueryStatus:
		snapshot := d.state.Snapshot()
		return Result{
			Success:   true,
			Message:   "Status",
			Snapshot:  &snapshot,
			Timestamp: d.state.UptimeMillis(),
		}

	case KindListSessions:
		var sessions []session.Descriptor
		if d.registry != nil {
			sessions = d.registry.Describe()
		}
		d.logSessions(sessions)
		return Result{
			Success:   true,
			Message:   "Active sessions",
			Timestamp: d.state.UptimeMillis(),
			Sessions:  sessions,
		}

	case KindHelp:
		return Result{
			Success:   true,
			Message:   HelpText,
			Timestamp: d.state.UptimeMillis(),
		}

	case KindRestart:
		d.logger.Warn("Restart command received")
		if d.restart != nil {
			d.restart()
		}
		return Result{
			Success:   true,
			Message:   "Restarting",
			Timestamp: d.state.UptimeMillis(),
		}

	default:
		d.logger.Debug("Unrecognized command", "raw", cmd.Raw)
		return Result{
			Success:   false,
			Message:   "Unknown command",
			Timestamp: d.state.UptimeMillis(),
		}
	}
}

func (d *Dispatcher) setActuator(on bool) Result {
	d.state.SetActuator(on)

	if d.actuator != nil {
		if err := d.actuator.Apply(on); err != nil {
			d.logger.Warn("Failed to drive actuator", "on", on, "error", err)
		}
	}

	if d.bus != nil {
		d.bus.Publish(events.StateChangedEvent{
			LED:       on,
			Version:   d.state.Version(),
			Timestamp: d.state.UptimeMillis(),
		})
	}

	message := "LED OFF"
	if on {
		message = "LED ON"
	}
	d.logger.Info("Actuator state changed", "on", on, "version", d.state.Version())

	snapshot := d.state.Snapshot()
	return Result{
		Success:   true,
		Message:   message,
		Snapshot:  &snapshot,
		Timestamp: d.state.UptimeMillis(),
	}
}

func (d *Dispatcher) logSessions(sessions []session.Descriptor) {
	if len(sessions) == 0 {
		d.logger.Info("No active sessions")
		return
	}
	for _, s := range sessions {
		d.logger.Info("Active session",
			"session_id", s.SessionID,
			"slot", s.Slot,
			"peer", s.Peer,
			"uptime_s", s.Uptime)
	}
}
