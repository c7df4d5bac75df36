package messages

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// MsgType is the type of a message, used to route it to its handler.
type MsgType string

// Msg is the envelope of every message exchanged over a WebSocket connection.
type Msg struct {
	Type      MsgType         `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID uint32          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg creates a message with the given payload, timestamped now. A nil
// payload creates a message without data.
func NewMsg(msgType MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}

	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithTag("msg_type", msgType).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// DataTo decodes the message payload into v. A message without data decodes
// as an empty object.
func (m Msg) DataTo(v any) error {
	data := []byte(m.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeBadRequest).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// ResponseSender is the interface to send messages to a connected client.
type ResponseSender interface {
	// Sends a message built from the given type, request id and payload.
	Send(msgType MsgType, requestID uint32, data any)

	// Sends an already built message.
	SendMsg(Msg)
}

// Receiver reads the next message of a connection. It returns the number of
// bytes read.
type Receiver func() (Msg, int, error)

// Sender writes a message to a connection. It returns the number of bytes
// written.
type Sender func(Msg) (int, error)
