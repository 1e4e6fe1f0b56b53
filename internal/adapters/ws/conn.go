// Package ws is the websocket transport adapter. It owns the socket and
// its pumps; room and membership decisions live in core.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"huddle/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{conn: conn, send: make(chan core.Frame, buffer)}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
