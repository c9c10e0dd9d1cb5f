package connection

import "github.com/tavernmx/tmxchat/internal/wire"

// ClientHandshake performs the client-initiator handshake over an already
// secured conn: send HELLO carrying userName, then wait for ACK or NAK. On
// NAK the returned error carries the server's error string and the
// connection is shut down. On timeout the connection is shut down and an
// error is returned.
func ClientHandshake(c *Connection, userName string) error {
	c.UserName = userName
	if err := c.SendMessage(wire.CreateHello(userName)); err != nil {
		return err
	}

	reply, ok := c.WaitForAckOrNak(HandshakeTimeout)
	if !ok {
		c.Shutdown()
		return wire.NewTransportError("unable to connect: handshake timed out", nil)
	}
	if reply.Type == wire.NAK {
		errText := wire.StringValueOr(*reply, "error", "connection rejected")
		c.Shutdown()
		return wire.NewTransportError(errText, nil)
	}
	return nil
}

// ServerHandshake performs the server-side per-client handshake: wait for
// HELLO, record the claimed user name, and reply with ACK. If no HELLO
// arrives within the handshake timeout, the connection is shut down
// silently and ok is false.
func ServerHandshake(c *Connection) (ok bool) {
	msg, received := c.WaitFor(wire.HELLO, HandshakeTimeout)
	if !received {
		c.Shutdown()
		return false
	}
	userName := wire.StringValueOr(*msg, "user_name", "")
	if userName == "" {
		c.Shutdown()
		return false
	}
	c.UserName = userName
	if err := c.SendMessage(wire.CreateAck()); err != nil {
		c.Shutdown()
		return false
	}
	return true
}

// RejectTooManyConnections replies with the capacity NAK and shuts the
// connection down.
func RejectTooManyConnections(c *Connection) {
	_ = c.SendMessage(wire.CreateNak("Too many connections."))
	c.Shutdown()
}
