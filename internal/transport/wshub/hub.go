// Package wshub is the WebSocket transport listener. Unlike the HTTP
// listener it is session-oriented: every accepted connection claims a
// registry slot, receives an initial status frame carrying its session
// identifier, and gets pushed led_update and periodic status frames.
package wshub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lednode/lednode/internal/core"
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/events"
	"github.com/lednode/lednode/internal/logging"
	"github.com/lednode/lednode/internal/metrics"
	"github.com/lednode/lednode/internal/session"
	"github.com/lednode/lednode/internal/transport"
)

// origin label used for commands submitted by this listener.
const origin = "websocket"

// Options wires the hub's collaborators.
type Options struct {
	Loop     *core.Loop
	State    *device.State
	Registry *session.Registry
	Bus      *events.Bus
}

// Hub owns the set of connected WebSocket clients. Client membership is
// mutated only on the Run goroutine; other goroutines talk to it through
// the register, unregister, and broadcast channels.
type Hub struct {
	opts     *Options
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	logger *slog.Logger
}

// NewHub creates the hub and subscribes it to state changes so every
// actuator flip is pushed to all clients immediately.
func NewHub(opts *Options) *Hub {
	h := &Hub{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The HTTP layer already answers CORS; WS peers on the LAN
			// connect from any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		logger:     logging.GetLogger("websocket"),
	}

	if opts.Bus != nil {
		opts.Bus.Subscribe(func(e events.StateChangedEvent) {
			h.Broadcast(transport.LEDUpdate(e.LED, e.Timestamp))
		})
	}

	return h
}

// Run manages client membership and fan-out until ctx is cancelled. It
// must run on exactly one goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			metrics.ActiveSessions.Set(float64(h.opts.Registry.ActiveCount()))
			h.logger.Info("Client connected",
				"session_id", client.handle.ID(),
				"slot", client.handle.Slot(),
				"peer", client.peer,
				"clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				metrics.ActiveSessions.Set(float64(h.opts.Registry.ActiveCount()))
				h.logger.Info("Client disconnected",
					"session_id", client.handle.ID(),
					"slot", client.handle.Slot(),
					"clients", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if !client.trySend(message) {
					// Slow consumer: drop the connection rather than
					// blocking the hub.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.closeSend()
	h.opts.Registry.Unregister(client.handle)
	if h.opts.Bus != nil {
		h.opts.Bus.Publish(events.SessionDisconnectedEvent{
			SessionID: client.handle.ID(),
			Slot:      client.handle.Slot(),
			Timestamp: h.opts.State.UptimeMillis(),
		})
	}
}

// Broadcast queues a frame for every connected client. Frames are dropped
// when the hub is backed up.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast queue full, dropping frame")
	}
}

// Name implements transport.Broadcaster.
func (h *Hub) Name() string { return origin }

// Recipients implements transport.Broadcaster. The registry slot count is
// the WebSocket client count: this is the only registering transport.
func (h *Hub) Recipients() int {
	return h.opts.Registry.ActiveCount()
}

// BroadcastStatus implements transport.Broadcaster, pushing the periodic
// status frame to all clients.
func (h *Hub) BroadcastStatus(snap device.Snapshot) {
	h.Broadcast(transport.TypedStatus(snap))
}

// ServeHTTP upgrades the request and registers the connection. Full
// registries reject the connection after the handshake so the peer gets a
// close frame instead of a silent TCP reset.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err, "peer", r.RemoteAddr)
		return
	}

	handle, err := h.opts.Registry.Register(r.RemoteAddr)
	if err != nil {
		metrics.SessionsRejected.Inc()
		h.logger.Warn("Connection rejected, no free session slot", "peer", r.RemoteAddr)
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session table full"),
			deadline)
		_ = conn.Close()
		return
	}

	client := newClient(h, conn, handle, r.RemoteAddr)

	// Initial status push carries the assigned session identifier so the
	// peer learns who it is.
	client.trySend(transport.SessionStatus(h.opts.State.Snapshot(), handle.ID()))

	select {
	case h.register <- client:
	case <-h.done:
		h.opts.Registry.Unregister(handle)
		_ = conn.Close()
		return
	}

	if h.opts.Bus != nil {
		h.opts.Bus.Publish(events.SessionConnectedEvent{
			SessionID: handle.ID(),
			Slot:      handle.Slot(),
			Peer:      r.RemoteAddr,
			Timestamp: h.opts.State.UptimeMillis(),
		})
	}

	go client.writePump()
	go client.readPump()
}
