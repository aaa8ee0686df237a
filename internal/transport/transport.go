// Package transport defines the capability interfaces shared by every
// transport listener and the wire rendering common to all of them, so the
// JSON shapes cannot diverge between HTTP, WebSocket, MQTT and serial.
package transport

import (
	"github.com/lednode/lednode/internal/device"
)

// Broadcaster is implemented by push-capable transports (WebSocket, MQTT)
// that can send unsolicited messages to connected peers.
type Broadcaster interface {
	// Name identifies the transport in logs and metrics.
	Name() string
	// Recipients returns the number of peers a broadcast would reach.
	// The scheduler suppresses pushes when this is zero.
	Recipients() int
	// BroadcastStatus renders the snapshot in the transport's wire format
	// and sends it to every connected peer, best effort.
	BroadcastStatus(snap device.Snapshot)
}
