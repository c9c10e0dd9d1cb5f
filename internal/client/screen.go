package client

import (
	"strconv"
	"strings"
	"sync"

	"github.com/tavernmx/tmxchat/internal/room"
	"github.com/tavernmx/tmxchat/internal/wire"
)

// HistoryEvent is one event in a room's client-side history mirror.
type HistoryEvent struct {
	Timestamp int32
	UserName  string
	Text      string
}

// clientRoom tracks whether the client has issued ROOM_JOIN for a room it
// knows about.
type clientRoom struct {
	name     string
	isJoined bool
}

// Screen holds the chat-window state the UI renders and mutates: the
// known room list, current selection, input buffer, and the per-room
// history mirror. The room list, selection and history change only through
// the update hooks below; callers set the exported ChatInput and
// WaitingOnServer fields directly.
type Screen struct {
	outbound OutboundSink

	rooms           []*clientRoom
	roomsByName     map[string]*clientRoom
	currentRoomName string

	historyMu sync.Mutex
	history   map[string][]HistoryEvent

	WaitingOnServer bool
	ChatInput       string
}

// OutboundSink is the minimal interface Screen needs to emit outbound
// protocol messages; satisfied by a Connection's outbound queue.
type OutboundSink interface {
	Push(wire.Message)
}

// NewScreen creates an empty Screen that will emit outbound protocol
// messages onto sink.
func NewScreen(sink OutboundSink) *Screen {
	return &Screen{
		outbound:    sink,
		roomsByName: make(map[string]*clientRoom),
		history:     make(map[string][]HistoryEvent),
	}
}

// RoomNames returns the known room names in server-reported order.
func (s *Screen) RoomNames() []string {
	names := make([]string, len(s.rooms))
	for i, r := range s.rooms {
		names[i] = r.name
	}
	return names
}

// CurrentRoomName returns the currently selected room name, or "" if none.
func (s *Screen) CurrentRoomName() string {
	return s.currentRoomName
}

// History returns the client-side history mirror for roomName.
func (s *Screen) History(roomName string) []HistoryEvent {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	return append([]HistoryEvent(nil), s.history[roomName]...)
}

func (s *Screen) selectRoomByName(name string) {
	if name != "" {
		if _, ok := s.roomsByName[name]; ok {
			s.currentRoomName = name
			return
		}
	}
	if len(s.rooms) > 0 {
		s.currentRoomName = s.rooms[0].name
	} else {
		s.currentRoomName = ""
	}
}

func (s *Screen) issueRoomJoinIfNeeded(roomName string) {
	if roomName == "" {
		return
	}
	r, ok := s.roomsByName[roomName]
	if !ok || r.isJoined {
		return
	}
	s.outbound.Push(wire.CreateRoomJoin(roomName))
	r.isJoined = true
	s.outbound.Push(wire.CreateRoomHistory(roomName, wire.MaxHistoryEntries))
}

// ApplyRoomList handles a ROOM_LIST reply: rebuild the room set, preserve
// selection by name if possible, and (re)join the resulting selection.
func (s *Screen) ApplyRoomList(msg wire.Message) {
	previous := s.currentRoomName
	s.rooms = nil
	s.roomsByName = make(map[string]*clientRoom)

	for i := 0; ; i++ {
		key := strconv.Itoa(i)
		if !wire.HasValue(msg, key) {
			break
		}
		if name := wire.StringValueOr(msg, key, ""); name != "" {
			s.addRoom(name)
		}
	}

	s.selectRoomByName(previous)
	s.issueRoomJoinIfNeeded(s.currentRoomName)
}

// ApplyRoomCreate handles a ROOM_CREATE notification: insert the room,
// preserve selection, and join if the selection was previously empty.
func (s *Screen) ApplyRoomCreate(msg wire.Message) {
	name := wire.StringValueOr(msg, "room_name", "")
	if name == "" {
		return
	}
	previous := s.currentRoomName
	if !s.addRoom(name) {
		return
	}
	s.selectRoomByName(previous)
	s.issueRoomJoinIfNeeded(s.currentRoomName)
}

// ApplyRoomDestroy handles a ROOM_DESTROY notification: drop the room and
// its history mirror; rejoin a replacement if it was the selection.
func (s *Screen) ApplyRoomDestroy(msg wire.Message) {
	name := wire.StringValueOr(msg, "room_name", "")
	if name == "" {
		return
	}
	if _, ok := s.roomsByName[name]; !ok {
		return
	}
	wasSelected := s.currentRoomName == name
	s.removeRoom(name)

	s.historyMu.Lock()
	delete(s.history, name)
	s.historyMu.Unlock()

	if wasSelected {
		s.selectRoomByName("")
		s.issueRoomJoinIfNeeded(s.currentRoomName)
	} else {
		s.selectRoomByName(s.currentRoomName)
	}
}

// ApplyRoomHistory replaces the history mirror for the room named in msg
// with the events it carries, in their given order.
func (s *Screen) ApplyRoomHistory(msg wire.Message) {
	name := wire.StringValueOr(msg, "room_name", "")
	if name == "" {
		return
	}
	events := decodeEvents(msg)

	s.historyMu.Lock()
	s.history[name] = events
	s.historyMu.Unlock()
}

// ApplyChatEcho appends one event to the history mirror for the room
// named in msg.
func (s *Screen) ApplyChatEcho(msg wire.Message) {
	name := wire.StringValueOr(msg, "room_name", "")
	if name == "" {
		return
	}
	event := HistoryEvent{
		Timestamp: wire.Int32ValueOr(msg, "timestamp", 0),
		UserName:  wire.StringValueOr(msg, "user_name", ""),
		Text:      wire.StringValueOr(msg, "text", ""),
	}
	s.historyMu.Lock()
	s.history[name] = append(s.history[name], event)
	s.historyMu.Unlock()
}

// SelectRoom handles the user changing their room selection.
func (s *Screen) SelectRoom(name string) {
	s.selectRoomByName(name)
	s.issueRoomJoinIfNeeded(s.currentRoomName)
}

// SubmitChatInput interprets the current ChatInput: a leading "/" is a
// local command (/create_room, /destroy_room); anything else is sent as
// CHAT_SEND to the current room, if one is selected.
func (s *Screen) SubmitChatInput() {
	input := s.ChatInput
	s.ChatInput = ""
	if input == "" {
		return
	}

	if strings.HasPrefix(input, "/") {
		s.runCommand(input)
		return
	}
	if s.currentRoomName == "" {
		return
	}
	s.outbound.Push(wire.CreateChatSend(s.currentRoomName, input))
}

func (s *Screen) runCommand(input string) {
	tokens := strings.Fields(input)
	if len(tokens) == 0 {
		return
	}
	command := strings.ToLower(tokens[0])
	switch command {
	case "/create_room":
		if len(tokens) != 2 || !room.IsValidRoomName(tokens[1]) {
			return
		}
		s.outbound.Push(wire.CreateRoomCreate(tokens[1]))
	case "/destroy_room":
		if len(tokens) != 2 {
			return
		}
		if _, ok := s.roomsByName[tokens[1]]; !ok {
			return
		}
		s.outbound.Push(wire.CreateRoomDestroy(tokens[1]))
	}
}

func (s *Screen) addRoom(name string) bool {
	if _, exists := s.roomsByName[name]; exists {
		return false
	}
	r := &clientRoom{name: name}
	s.rooms = append(s.rooms, r)
	s.roomsByName[name] = r
	return true
}

func (s *Screen) removeRoom(name string) {
	for i, r := range s.rooms {
		if r.name == name {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			break
		}
	}
	delete(s.roomsByName, name)
}

func decodeEvents(msg wire.Message) []HistoryEvent {
	raw, _ := msg.Values["events"].([]any)
	events := make([]HistoryEvent, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		wrapped := wire.Message{Values: entry}
		events = append(events, HistoryEvent{
			Timestamp: wire.Int32ValueOr(wrapped, "timestamp", 0),
			UserName:  wire.StringValueOr(wrapped, "user_name", ""),
			Text:      wire.StringValueOr(wrapped, "text", ""),
		})
	}
	return events
}

