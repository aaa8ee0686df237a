// Package command converts untyped transport payloads into typed commands
// and applies them to the device state. The dispatcher is the only code
// path allowed to mutate device state.
package command

import (
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/session"
)

// Kind discriminates the closed set of command variants.
type Kind int

const (
	// KindSetActuator sets the actuator to an explicit state.
	KindSetActuator Kind = iota
	// KindToggle inverts the actuator state.
	KindToggle
	// KindQueryStatus requests a full status snapshot without mutation.
	KindQueryStatus
	// KindListSessions requests descriptors of active sessions.
	KindListSessions
	// KindHelp requests the command list.
	KindHelp
	// KindRestart requests a delayed process restart.
	KindRestart
	// KindUnrecognized is the catch-all for unparseable input.
	KindUnrecognized
)

// Command is a parsed, immutable command. Produced only by Parse.
type Command struct {
	Kind Kind
	On   bool   // valid for KindSetActuator
	Raw  string // valid for KindUnrecognized
}

// SetActuator builds a command that sets the actuator to on.
func SetActuator(on bool) Command {
	return Command{Kind: KindSetActuator, On: on}
}

// Toggle builds a command that inverts the actuator state.
func Toggle() Command {
	return Command{Kind: KindToggle}
}

// QueryStatus builds a status query command.
func QueryStatus() Command {
	return Command{Kind: KindQueryStatus}
}

// ListSessions builds a session listing command.
func ListSessions() Command {
	return Command{Kind: KindListSessions}
}

// Help builds a help command.
func Help() Command {
	return Command{Kind: KindHelp}
}

// Restart builds a delayed restart command.
func Restart() Command {
	return Command{Kind: KindRestart}
}

// Unrecognized builds the catch-all command carrying the raw input.
func Unrecognized(raw string) Command {
	return Command{Kind: KindUnrecognized, Raw: raw}
}

// Result is the dispatcher's answer to a command. Transports render it
// into their own wire format.
type Result struct {
	Success   bool
	Message   string
	Snapshot  *device.Snapshot
	Timestamp int64

	// Sessions is populated for ListSessions. It is consumed for local
	// display only and never rendered onto the wire.
	Sessions []session.Descriptor
}
