package server

import (
	"time"

	"github.com/tavernmx/tmxchat/internal/logging"
	"github.com/tavernmx/tmxchat/internal/metrics"
	"github.com/tavernmx/tmxchat/internal/room"
	"github.com/tavernmx/tmxchat/internal/wire"
)

// TargetServerLoopMS is the scheduler's target tick period.
const TargetServerLoopMS = 20 * time.Millisecond

// Scheduler owns the authoritative RoomManager and drives the fan-in,
// fan-out, sweep, and pace steps once per tick.
type Scheduler struct {
	rooms   *room.Manager
	connMgr *ConnectionManager
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewScheduler creates a Scheduler over the given room manager and
// connection manager.
func NewScheduler(rooms *room.Manager, connMgr *ConnectionManager, log *logging.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{rooms: rooms, connMgr: connMgr, log: log, metrics: m}
}

// Run drives ticks until the connection manager stops accepting
// connections.
func (s *Scheduler) Run() {
	for s.connMgr.IsAcceptingConnections() {
		loopStart := time.Now()
		s.tick()
		elapsed := time.Since(loopStart)
		if s.metrics != nil {
			s.metrics.TickDuration.Observe(elapsed.Seconds())
		}
		if elapsed < TargetServerLoopMS {
			time.Sleep(TargetServerLoopMS - elapsed)
		} else {
			s.log.Warn("server worker loop took too long to process: %v", elapsed)
			if s.metrics != nil {
				s.metrics.TickOverBudget.Inc()
			}
		}
	}
}

// RunOnce executes a single tick's fan-in/fan-out/sweep steps without
// pacing. Exposed for tests that need deterministic control over tick
// boundaries.
func (s *Scheduler) RunOnce() {
	s.tick()
}

func (s *Scheduler) tick() {
	clients := s.connMgr.ActiveSessions()

	var newRooms, destroyedRooms []string

	// 1. Fan-in.
	for _, client := range clients {
		for {
			msg, ok := client.Inbound().Pop()
			if !ok {
				break
			}
			s.dispatch(client, msg, &newRooms, &destroyedRooms)
		}
	}

	// 2. Fan-out (lifecycle).
	for _, name := range newRooms {
		msg := wire.CreateRoomCreate(name)
		for _, client := range clients {
			client.Outbound().Push(msg)
		}
	}
	for _, name := range destroyedRooms {
		msg := wire.CreateRoomDestroy(name)
		for _, client := range clients {
			client.Outbound().Push(msg)
		}
	}

	// 3. Fan-out (events).
	for _, r := range s.rooms.Rooms() {
		r.SweepExpired()
		events := r.DrainEvents()
		if len(events) == 0 {
			continue
		}
		joined := r.JoinedClients()
		for _, ev := range events {
			echo := wire.CreateChatEcho(r.Name(), ev.Text, ev.UserName, ev.Timestamp)
			for _, jc := range joined {
				if session, ok := jc.(*Session); ok {
					session.Outbound().Push(echo)
				}
			}
		}
	}

	// 4. Sweep.
	s.rooms.Sweep()

	if s.metrics != nil {
		s.metrics.ActiveConnections.Set(float64(len(clients)))
		s.metrics.ActiveRooms.Set(float64(s.rooms.Size()))
	}
}

func (s *Scheduler) dispatch(client *Session, msg wire.Message, newRooms, destroyedRooms *[]string) {
	if s.metrics != nil {
		s.metrics.MessagesReceived.WithLabelValues(msg.Type.String()).Inc()
	}
	switch msg.Type {
	case wire.RoomList:
		client.Outbound().Push(wire.CreateRoomList(s.rooms.Names()))

	case wire.RoomCreate:
		name := wire.StringValueOr(msg, "room_name", "")
		if name == "" {
			break
		}
		r, ok := s.rooms.Create(name)
		if !ok {
			s.log.Warn("room already exists or invalid name (client create request): %s", name)
			break
		}
		s.log.Info("room created (client request): %s", name)
		r.Join(client)
		*newRooms = append(*newRooms, name)

	case wire.RoomJoin:
		name := wire.StringValueOr(msg, "room_name", "")
		if r := s.rooms.Get(name); r != nil {
			r.Join(client)
		} else {
			s.log.Warn("room does not exist (client join request): %s", name)
		}

	case wire.RoomDestroy:
		name := wire.StringValueOr(msg, "room_name", "")
		if r := s.rooms.Get(name); r != nil {
			r.RequestDestroy()
			*destroyedRooms = append(*destroyedRooms, name)
		} else {
			s.log.Warn("room does not exist (client destroy request): %s", name)
		}

	case wire.RoomHistory:
		name := wire.StringValueOr(msg, "room_name", "")
		count := wire.Int32ValueOr(msg, "event_count", -1)
		r := s.rooms.Get(name)
		if r == nil || count < 0 || count > wire.MaxHistoryEntries {
			s.log.Warn("invalid room history request: name '%s', count %d", name, count)
			break
		}
		history := wire.CreateRoomHistory(name, 0)
		for _, ev := range r.History(int(count)) {
			if wire.AddRoomHistoryEvent(&history, ev.Timestamp, ev.UserName, ev.Text) == count {
				break
			}
		}
		client.Outbound().Push(history)

	case wire.ChatSend:
		name := wire.StringValueOr(msg, "room_name", "")
		r := s.rooms.Get(name)
		if r == nil {
			s.log.Warn("client sent message to unknown room: %s", name)
			break
		}
		event := room.Event{
			Timestamp: int32(time.Now().Unix()),
			UserName:  client.UserName,
			Text:      wire.StringValueOr(msg, "text", ""),
		}
		r.RecordEvent(event)
		r.QueueEvent(event)

	default:
		s.log.Warn("client sent unhandled message type: %s", msg.Type)
	}
}
