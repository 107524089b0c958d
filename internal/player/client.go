package player

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by Send once the connection has been closed.
var ErrClientClosed = errors.New("player: client closed")

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is the handle for one accepted connection. It carries the
// room/player association explicitly so close and error paths never need a
// separate out-of-band lookup.
type Client struct {
	Conn     Connection
	PlayerID string
	RoomName string

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an accepted connection with its room and player identity.
func NewClient(conn Connection, roomName, playerID string) *Client {
	return &Client{Conn: conn, PlayerID: playerID, RoomName: roomName}
}

// Send writes a single text frame. The closed check happens under the same
// lock as the write, so a frame is never written to a connection that has
// already been torn down; such sends are dropped, not queued.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Close shuts the underlying connection down exactly once. Subsequent calls
// are no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.Conn.Close()
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
