package wire

import (
	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the on-wire shape of a single Message: a two-field object
// carrying the stable type identifier and the open values map. This
// isolates the MessagePack implementation detail from the public Message
// type the rest of the codebase works with.
type envelope struct {
	MessageType uint32         `msgpack:"message_type"`
	Values      map[string]any `msgpack:"values"`
}

func toEnvelope(msg Message) envelope {
	values := msg.Values
	if values == nil {
		values = map[string]any{}
	}
	return envelope{MessageType: uint32(msg.Type), Values: values}
}

func fromEnvelope(e envelope) Message {
	return Message{Type: MessageType(e.MessageType), Values: e.Values}
}

// PackMessage serializes a single message into a Block containing a
// one-element MessagePack array.
func PackMessage(msg Message) (*Block, error) {
	return PackMessages([]Message{msg})
}

// PackMessages serializes messages into one Block carrying a multi-element
// MessagePack array. There is no splitting by size: every message passed
// in ends up in a single frame.
func PackMessages(messages []Message) (*Block, error) {
	envelopes := make([]envelope, len(messages))
	for i, m := range messages {
		envelopes[i] = toEnvelope(m)
	}
	payload, err := msgpack.Marshal(envelopes)
	if err != nil {
		return nil, NewTransportError("failed to encode messages", err)
	}
	return &Block{PayloadSize: uint32(len(payload)), Payload: payload}, nil
}

// UnpackMessages parses the MessagePack array carried by block.Payload back
// into Messages. A malformed payload is a TransportError.
func UnpackMessages(block *Block) ([]Message, error) {
	var envelopes []envelope
	if err := msgpack.Unmarshal(block.Payload, &envelopes); err != nil {
		return nil, NewTransportError("failed to decode message block", err)
	}
	messages := make([]Message, len(envelopes))
	for i, e := range envelopes {
		messages[i] = fromEnvelope(e)
	}
	return messages, nil
}
