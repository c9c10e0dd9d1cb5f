// Package transportws adapts gorilla/websocket connections to the
// net.Conn interface internal/connection expects, so the same framed
// wire protocol can run over a WebSocket upgrade instead of a raw TLS
// socket.
package transportws

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Conn adapts a *websocket.Conn to net.Conn by treating the byte stream
// as a sequence of binary WebSocket messages: each Write call sends one
// message, and Read serves bytes out of the current message, fetching
// the next one from the socket when the buffer is exhausted.
type Conn struct {
	ws      *websocket.Conn
	pending []byte
}

// NewConn wraps an already-upgraded websocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Upgrade upgrades an HTTP request to a WebSocket connection and wraps
// it as a net.Conn.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws), nil
}

// Dial connects to a WebSocket server and wraps the resulting
// connection as a net.Conn.
func Dial(url string, header http.Header) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, err
	}
	return NewConn(ws), nil
}

// Read implements net.Conn by draining the current WebSocket message,
// pulling a new one off the socket when the buffer empties.
func (c *Conn) Read(b []byte) (int, error) {
	for len(c.pending) == 0 {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		c.pending = data
	}
	n := copy(b, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements net.Conn by sending b as one binary WebSocket message.
func (c *Conn) Write(b []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close implements net.Conn.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// LocalAddr implements net.Conn.
func (c *Conn) LocalAddr() net.Addr {
	return c.ws.LocalAddr()
}

// RemoteAddr implements net.Conn.
func (c *Conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// SetDeadline implements net.Conn.
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

// SetReadDeadline implements net.Conn.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// SetWriteDeadline implements net.Conn.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}
