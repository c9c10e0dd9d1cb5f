package server

import "sync"

// ConnectionManager tracks the set of currently active client sessions
// and enforces the configured connection cap.
type ConnectionManager struct {
	mu         sync.Mutex
	maxClients int32
	sessions   map[string]*Session
	accepting  bool
}

// NewConnectionManager creates a ConnectionManager allowing up to
// maxClients simultaneous sessions.
func NewConnectionManager(maxClients int32) *ConnectionManager {
	return &ConnectionManager{
		maxClients: maxClients,
		sessions:   make(map[string]*Session),
		accepting:  true,
	}
}

// TryAdd registers session if the connection cap has not been reached.
// Returns false if the server is already at capacity.
func (cm *ConnectionManager) TryAdd(session *Session) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if int32(len(cm.sessions)) >= cm.maxClients {
		return false
	}
	cm.sessions[session.ConnectionID()] = session
	return true
}

// Remove drops session from the active set.
func (cm *ConnectionManager) Remove(session *Session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.sessions, session.ConnectionID())
}

// ActiveSessions returns a snapshot of the currently registered sessions,
// live or not; callers that care about liveness should check
// IsConnected() themselves.
func (cm *ConnectionManager) ActiveSessions() []*Session {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make([]*Session, 0, len(cm.sessions))
	for _, s := range cm.sessions {
		out = append(out, s)
	}
	return out
}

// IsAcceptingConnections reports whether the manager is still accepting
// new connections. Set to false during server shutdown.
func (cm *ConnectionManager) IsAcceptingConnections() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.accepting
}

// StopAccepting marks the manager as no longer accepting new connections,
// which also ends the scheduler's main loop.
func (cm *ConnectionManager) StopAccepting() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.accepting = false
}
