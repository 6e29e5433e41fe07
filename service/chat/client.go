package chat

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one live transport channel. UserID stays empty until the setup
// handshake resolves an identity; delivery only ever targets identified
// clients through the Registry.
type Client struct {
	ConnID string          // unique within this process
	UserID string          // set by setup, read only from the conn's reader goroutine
	WS     *websocket.Conn // nil in tests
	Send   chan []byte     // consumed by the single writer goroutine

	mu     sync.Mutex
	closed bool
}

// NewClient creates a connection record with a bounded outbound queue.
func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

// trySend never blocks: a full queue or a closing client drops the frame.
// Reports whether the frame was queued.
func (c *Client) trySend(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- b:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes the queue exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
