package events

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeSessionConnected
	TypeSessionDisconnected
	TypeLinkStateChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published by the dispatcher whenever the actuator
// state mutates. Push-capable transports subscribe to it for immediate
// (non-periodic) notification.
type StateChangedEvent struct {
	LED       bool   `json:"led" doc:"New actuator state"`
	Version   uint64 `json:"version" doc:"Device state version after the mutation"`
	Timestamp int64  `json:"timestamp" doc:"Milliseconds since process start"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// SessionConnectedEvent is published when a bidirectional session registers.
type SessionConnectedEvent struct {
	SessionID uint64 `json:"session_id" doc:"Process-unique session identifier"`
	Slot      int    `json:"slot" doc:"Registry slot occupied by the session"`
	Peer      string `json:"peer" doc:"Remote peer address"`
	Timestamp int64  `json:"timestamp" doc:"Milliseconds since process start"`
}

// Type returns the event type identifier for SessionConnectedEvent.
func (e SessionConnectedEvent) Type() uint32 { return TypeSessionConnected }

// SessionDisconnectedEvent is published when a session slot is released.
type SessionDisconnectedEvent struct {
	SessionID uint64 `json:"session_id" doc:"Process-unique session identifier"`
	Slot      int    `json:"slot" doc:"Registry slot released by the session"`
	Timestamp int64  `json:"timestamp" doc:"Milliseconds since process start"`
}

// Type returns the event type identifier for SessionDisconnectedEvent.
func (e SessionDisconnectedEvent) Type() uint32 { return TypeSessionDisconnected }

// LinkStateChangedEvent is published by the health supervisor on
// Connected/Disconnected/Reconnecting transitions.
type LinkStateChangedEvent struct {
	Link      string `json:"link" example:"mqtt" doc:"Monitored link name"`
	State     string `json:"state" example:"reconnecting" doc:"New supervisor state"`
	Timestamp int64  `json:"timestamp" doc:"Milliseconds since process start"`
}

// Type returns the event type identifier for LinkStateChangedEvent.
func (e LinkStateChangedEvent) Type() uint32 { return TypeLinkStateChanged }
