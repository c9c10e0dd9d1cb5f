package wire

import "strconv"

// CreateAck builds an ACK message.
func CreateAck() Message {
	return Message{Type: ACK}
}

// CreateNak builds a NAK message, optionally carrying an error string.
func CreateNak(errText string) Message {
	values := map[string]any{}
	if errText != "" {
		values["error"] = errText
	}
	return Message{Type: NAK, Values: values}
}

// CreateHello builds a HELLO message carrying the claimed user name.
func CreateHello(userName string) Message {
	return Message{Type: HELLO, Values: map[string]any{"user_name": userName}}
}

// CreateHeartbeat builds a HEARTBEAT message.
func CreateHeartbeat() Message {
	return Message{Type: HEARTBEAT}
}

// CreateRoomListRequest builds a ROOM_LIST request (no values).
func CreateRoomListRequest() Message {
	return Message{Type: RoomList}
}

// CreateRoomList builds a ROOM_LIST reply enumerating room names in order
// under keys "0", "1", ....
func CreateRoomList(roomNames []string) Message {
	values := make(map[string]any, len(roomNames))
	for i, name := range roomNames {
		values[strconv.Itoa(i)] = name
	}
	return Message{Type: RoomList, Values: values}
}

// CreateRoomCreate builds a ROOM_CREATE message.
func CreateRoomCreate(roomName string) Message {
	return Message{Type: RoomCreate, Values: map[string]any{"room_name": roomName}}
}

// CreateRoomJoin builds a ROOM_JOIN message.
func CreateRoomJoin(roomName string) Message {
	return Message{Type: RoomJoin, Values: map[string]any{"room_name": roomName}}
}

// CreateRoomDestroy builds a ROOM_DESTROY message.
func CreateRoomDestroy(roomName string) Message {
	return Message{Type: RoomDestroy, Values: map[string]any{"room_name": roomName}}
}

// CreateRoomHistory builds a ROOM_HISTORY request/reply envelope for
// roomName with eventCount entries recorded so far (0 when used purely as
// a request). eventCount must be in [0, MaxHistoryEntries].
func CreateRoomHistory(roomName string, eventCount int32) Message {
	return Message{
		Type: RoomHistory,
		Values: map[string]any{
			"room_name":   roomName,
			"event_count": eventCount,
			"events":      []any{},
		},
	}
}

// AddRoomHistoryEvent appends one {timestamp, user_name, text} entry to
// msg's "events" array and bumps event_count. Returns the new event_count.
func AddRoomHistoryEvent(msg *Message, timestamp int32, userName, text string) int32 {
	events, _ := msg.Values["events"].([]any)
	events = append(events, map[string]any{
		"timestamp": timestamp,
		"user_name": userName,
		"text":      text,
	})
	msg.Values["events"] = events
	count := int32(len(events))
	msg.Values["event_count"] = count
	return count
}

// CreateChatSend builds a CHAT_SEND message.
func CreateChatSend(roomName, text string) Message {
	return Message{Type: ChatSend, Values: map[string]any{"room_name": roomName, "text": text}}
}

// CreateChatEcho builds a CHAT_ECHO message.
func CreateChatEcho(roomName, text, userName string, timestamp int32) Message {
	return Message{
		Type: ChatEcho,
		Values: map[string]any{
			"room_name": roomName,
			"text":      text,
			"user_name": userName,
			"timestamp": timestamp,
		},
	}
}
