package wshub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lednode/lednode/internal/command"
	"github.com/lednode/lednode/internal/session"
	"github.com/lednode/lednode/internal/transport"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is one WebSocket connection: a registered session plus the pair
// of pump goroutines that serialize reads and writes on it. The hub may
// drop a client while its readPump is still replying, so send is closed
// only under mu and trySend checks the closed flag under the same lock.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	handle session.Handle
	peer   string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, handle session.Handle, peer string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		handle: handle,
		peer:   peer,
		send:   make(chan []byte, 16),
	}
}

// trySend queues a frame without blocking. Returns false when the client
// has been dropped or its send buffer is full, which the hub treats as a
// dead connection.
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend marks the client dropped and closes the send channel so the
// writePump sends its close frame and exits. Safe to call concurrently
// with trySend; idempotent.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads commands from the peer, submits them to the control loop,
// and replies with a typed response frame. The list command is the one
// exception: it renders locally on the node and sends nothing back.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("Unexpected close",
					"session_id", c.handle.ID(), "error", err)
			}
			return
		}

		kind := command.Parse(message).Kind

		res, err := c.hub.opts.Loop.Submit(context.Background(), origin, message)
		if err != nil {
			return
		}

		if kind == command.KindListSessions {
			continue
		}
		c.trySend(transport.TypedResult(res))
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
