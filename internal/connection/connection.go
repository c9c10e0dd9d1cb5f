// Package connection implements the Connection abstraction shared by the
// server and client: a secure byte stream paired with inbound and
// outbound typed-message queues, plus the handshake and wait_for helpers
// built on top of the wire codec.
package connection

import (
	"crypto/rand"
	"errors"
	"net"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tavernmx/tmxchat/internal/queue"
	"github.com/tavernmx/tmxchat/internal/wire"
)

// MTUBuffer bounds the size of a single read slice.
const MTUBuffer = 1500

// SSLRetry is the sleep issued by ReceiveMessage when no bytes are
// currently available, matching the contract downstream loop pacing
// relies on.
const SSLRetry = 50 * time.Millisecond

// HandshakeTimeout bounds the HELLO/ACK exchange on both sides.
const HandshakeTimeout = 3 * time.Second

// Connection owns one underlying net.Conn (expected to be a *tls.Conn in
// production) plus the inbound and outbound typed-message queues. Only the
// queues are synchronized; the connected flag and the partially assembled
// frame are plain fields without locking, so Send*, ReceiveMessage and
// Shutdown are not safe to call concurrently on one Connection.
type Connection struct {
	ID       string
	UserName string

	conn     net.Conn
	inbound  *queue.Queue[wire.Message]
	outbound *queue.Queue[wire.Message]

	connected bool
	block     wire.Block
	appended  int
}

// New wraps conn in a Connection with fresh inbound/outbound queues and a
// freshly minted connection ID.
func New(conn net.Conn) *Connection {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	idStr := ""
	if err == nil {
		idStr = id.String()
	}
	return &Connection{
		ID:        idStr,
		conn:      conn,
		inbound:   queue.New[wire.Message](),
		outbound:  queue.New[wire.Message](),
		connected: true,
	}
}

// Inbound returns the queue workers push received messages onto.
func (c *Connection) Inbound() *queue.Queue[wire.Message] {
	return c.inbound
}

// Outbound returns the queue workers drain to write frames.
func (c *Connection) Outbound() *queue.Queue[wire.Message] {
	return c.outbound
}

// IsConnected reports whether the connection is still considered active.
func (c *Connection) IsConnected() bool {
	return c.connected
}

// Shutdown idempotently tears down the underlying stream.
func (c *Connection) Shutdown() {
	if !c.connected {
		return
	}
	c.connected = false
	_ = c.conn.Close()
}

// SendMessage packs and writes a single message as one frame.
func (c *Connection) SendMessage(msg wire.Message) error {
	return c.SendMessages([]wire.Message{msg})
}

// SendMessages packs the entire slice into one frame and writes it.
func (c *Connection) SendMessages(messages []wire.Message) error {
	if !c.connected {
		return wire.NewTransportError("send on closed connection", nil)
	}
	block, err := wire.PackMessages(messages)
	if err != nil {
		return err
	}
	framed := wire.PackBlock(block)
	if _, err := c.conn.Write(framed); err != nil {
		c.Shutdown()
		return wire.NewTransportError("write failed", err)
	}
	return nil
}

// ReceiveMessage attempts to read one complete frame and decode it into
// messages. It reads at most one MTU-sized slice; if no bytes are
// currently available it sleeps SSLRetry and returns (nil, nil).
func (c *Connection) ReceiveMessage() ([]wire.Message, error) {
	if !c.connected {
		return nil, wire.NewTransportError("receive on closed connection", nil)
	}

	buf := make([]byte, MTUBuffer)
	_ = c.conn.SetReadDeadline(time.Now().Add(SSLRetry))
	n, err := c.conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			time.Sleep(SSLRetry)
			return nil, nil
		}
		c.Shutdown()
		return nil, wire.NewTransportError("read failed", err)
	}
	if n == 0 {
		time.Sleep(SSLRetry)
		return nil, nil
	}

	appended := wire.ApplyChunk(buf[:n], &c.block, c.appended)
	c.appended += appended

	if c.block.PayloadSize == 0 || c.appended < int(c.block.PayloadSize) {
		return nil, nil
	}

	completed := c.block
	c.block = wire.Block{}
	c.appended = 0

	messages, err := wire.UnpackMessages(&completed)
	if err != nil {
		c.Shutdown()
		return nil, err
	}
	return messages, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// WaitFor blocks up to timeout, discarding any message not of the
// requested type, and returns the first matching message.
func (c *Connection) WaitFor(msgType wire.MessageType, timeout time.Duration) (*wire.Message, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		messages, err := c.ReceiveMessage()
		if err != nil {
			return nil, false
		}
		for _, m := range messages {
			if m.Type == msgType {
				return &m, true
			}
		}
	}
	return nil, false
}

// WaitForAckOrNak blocks up to timeout for either an ACK or a NAK.
func (c *Connection) WaitForAckOrNak(timeout time.Duration) (*wire.Message, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		messages, err := c.ReceiveMessage()
		if err != nil {
			return nil, false
		}
		for _, m := range messages {
			if m.Type == wire.ACK || m.Type == wire.NAK {
				return &m, true
			}
		}
	}
	return nil, false
}
