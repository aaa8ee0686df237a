package transport

import (
	"encoding/json"

	"github.com/lednode/lednode/internal/command"
	"github.com/lednode/lednode/internal/device"
)

// Frame type markers used on push-capable transports.
const (
	FrameResponse  = "response"
	FrameStatus    = "status"
	FrameLEDUpdate = "led_update"
)

type resultBody struct {
	Type      string `json:"type,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LED       *bool  `json:"led,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type statusBody struct {
	Type      string  `json:"type,omitempty"`
	SessionID *uint64 `json:"session_id,omitempty"`
	device.Snapshot
}

type ledUpdateBody struct {
	Type      string `json:"type"`
	LED       bool   `json:"led"`
	Timestamp int64  `json:"timestamp"`
}

// Result renders a dispatcher Result as the shared response object:
// success, message, the flattened actuator state when a snapshot is
// present, and the timestamp.
func Result(res command.Result) []byte {
	body := resultBody{
		Success:   res.Success,
		Message:   res.Message,
		Timestamp: res.Timestamp,
	}
	if res.Snapshot != nil {
		body.LED = &res.Snapshot.LED
	}
	return marshal(body)
}

// TypedResult renders a Result with a frame type marker, used by
// WebSocket listeners.
func TypedResult(res command.Result) []byte {
	body := resultBody{
		Type:      FrameResponse,
		Success:   res.Success,
		Message:   res.Message,
		Timestamp: res.Timestamp,
	}
	if res.Snapshot != nil {
		body.LED = &res.Snapshot.LED
	}
	return marshal(body)
}

// Status renders a plain status snapshot (HTTP GET /status, MQTT device
// status topic).
func Status(snap device.Snapshot) []byte {
	return marshal(statusBody{Snapshot: snap})
}

// TypedStatus renders a status snapshot with a frame type marker, used
// for periodic WebSocket broadcasts.
func TypedStatus(snap device.Snapshot) []byte {
	return marshal(statusBody{Type: FrameStatus, Snapshot: snap})
}

// SessionStatus renders the status frame pushed to a newly registered
// session, annotated with its assigned session identifier.
func SessionStatus(snap device.Snapshot, sessionID uint64) []byte {
	return marshal(statusBody{Type: FrameStatus, SessionID: &sessionID, Snapshot: snap})
}

// LEDUpdate renders the immediate state-change frame broadcast to
// push-capable peers.
func LEDUpdate(led bool, timestamp int64) []byte {
	return marshal(ledUpdateBody{Type: FrameLEDUpdate, LED: led, Timestamp: timestamp})
}

func marshal(v any) []byte {
	// These body types cannot fail to marshal.
	data, _ := json.Marshal(v)
	return data
}
