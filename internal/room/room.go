// Package room implements the server's room model: name validation, the
// per-room membership and history, and the RoomManager that owns the set
// of rooms in creation order.
package room

import (
	"regexp"
	"sync"

	"github.com/tavernmx/tmxchat/internal/queue"
	"github.com/tavernmx/tmxchat/internal/ring"
)

// MaxRoomNameSize bounds the length of a room name.
const MaxRoomNameSize = 25

// HistorySize is the allocated ring capacity for per-room history; one
// slot is reserved as the empty/full sentinel, so HistorySize-1 events are
// retained.
const HistorySize = 1001

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,23}[A-Za-z0-9])?$`)

// IsValidRoomName reports whether name can be used as a room name: non
// empty, at most MaxRoomNameSize characters, alphanumeric or hyphen, and
// alphanumeric at both ends.
func IsValidRoomName(name string) bool {
	if len(name) == 0 || len(name) > MaxRoomNameSize {
		return false
	}
	return roomNamePattern.MatchString(name)
}

// Event is one recorded occurrence in a room's history.
type Event struct {
	Timestamp int32
	UserName  string
	Text      string
}

// JoinedClient is the minimal interface a Room needs to track membership
// without taking ownership: it can check whether the underlying connection
// is still alive and identify it for dedup/removal purposes. This stands
// in for a weak reference to a Connection since Go connections are
// explicitly owned and closed rather than garbage collected.
type JoinedClient interface {
	ConnectionID() string
	IsConnected() bool
}

// Room is one chat room: a unique name, the set of joined clients, and a
// bounded history of chat events.
type Room struct {
	mu               sync.Mutex
	name             string
	destroyRequested bool
	joined           map[string]JoinedClient
	history          *ring.Buffer[Event]
	events           *queue.Queue[Event]
}

// New creates a Room named name with empty membership and history.
func New(name string) *Room {
	return &Room{
		name:    name,
		joined:  make(map[string]JoinedClient),
		history: ring.New[Event](HistorySize),
		events:  queue.New[Event](),
	}
}

// QueueEvent appends event to the room's per-tick distribution queue,
// distinct from its persisted history ring.
func (r *Room) QueueEvent(event Event) {
	r.events.Push(event)
}

// DrainEvents removes and returns every queued event, oldest first, for
// conversion into CHAT_ECHO messages by the scheduler's fan-out step.
func (r *Room) DrainEvents() []Event {
	return r.events.DrainAll()
}

// Name returns the room's unique name.
func (r *Room) Name() string {
	return r.name
}

// RequestDestroy marks the room for destruction. Rooms are only removed
// from a RoomManager by an explicit sweep.
func (r *Room) RequestDestroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyRequested = true
}

// IsDestroyRequested reports whether RequestDestroy has been called.
func (r *Room) IsDestroyRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyRequested
}

// Join adds client to the room's membership, replacing any prior entry
// with the same connection ID.
func (r *Room) Join(client JoinedClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joined[client.ConnectionID()] = client
}

// IsJoined reports whether a client with the given connection ID is a
// current member.
func (r *Room) IsJoined(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.joined[connectionID]
	return ok
}

// SweepExpired drops joined clients whose connection is no longer alive.
func (r *Room) SweepExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, client := range r.joined {
		if !client.IsConnected() {
			delete(r.joined, id)
		}
	}
}

// JoinedClients returns a snapshot of the currently joined, still-live
// clients.
func (r *Room) JoinedClients() []JoinedClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := make([]JoinedClient, 0, len(r.joined))
	for _, c := range r.joined {
		if c.IsConnected() {
			clients = append(clients, c)
		}
	}
	return clients
}

// RecordEvent appends event to the room's bounded history.
func (r *Room) RecordEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.Insert(event)
}

// History returns up to count of the most recent events, newest first.
func (r *Room) History(count int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.history.Items() // oldest first
	if count > len(all) {
		count = len(all)
	}
	out := make([]Event, count)
	for i := 0; i < count; i++ {
		out[i] = all[len(all)-1-i]
	}
	return out
}
