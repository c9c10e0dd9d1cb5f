// Package server implements the server-side scheduler, per-client
// worker, and connection manager.
package server

import (
	"github.com/tavernmx/tmxchat/internal/connection"
)

// Session wraps an accepted client Connection with the bookkeeping the
// scheduler needs: it satisfies room.JoinedClient so rooms can track
// membership without taking ownership of the connection.
type Session struct {
	*connection.Connection
}

// NewSession wraps conn in a Session.
func NewSession(conn *connection.Connection) *Session {
	return &Session{Connection: conn}
}

// ConnectionID identifies this session for room membership tracking.
func (s *Session) ConnectionID() string {
	return s.ID
}
