package messages

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestNewMsg(t *testing.T) {
	msg, err := NewMsg(MsgTypeParticipantJoinResponse, 42, ParticipantJoinResponse{
		SessionID:     "tedx1",
		SessionUUID:   "uuid",
		ParticipantID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, MsgTypeParticipantJoinResponse, msg.Type)
	require.Equal(t, uint32(42), msg.RequestID)
	require.NotZero(t, msg.Timestamp)
	require.JSONEq(t, `{"session_id":"tedx1","session_uuid":"uuid","participant_id":7}`, string(msg.Data))

	var res ParticipantJoinResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, uint32(7), res.ParticipantID)
}

func TestNewMsgWithoutData(t *testing.T) {
	msg, err := NewMsg(MsgTypePingRequest, 1, nil)
	require.NoError(t, err)
	require.Empty(t, msg.Data)

	var req ParticipantJoinRequest
	require.NoError(t, msg.DataTo(&req))
	require.Empty(t, req.SessionID)
}

func TestMsgDataToError(t *testing.T) {
	msg := Msg{
		Type: MsgTypeParticipantJoinRequest,
		Data: []byte(`{"session_id":42}`),
	}

	var req ParticipantJoinRequest
	err := msg.DataTo(&req)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeBadRequest))
}

func TestMsgTypeString(t *testing.T) {
	require.Equal(t, "ping_request", Msg{Type: MsgTypePingRequest}.TypeString())
	require.Equal(t, "unknown", Msg{}.TypeString())
}

func TestSendReceive(t *testing.T) {
	received := make(chan Msg, 1)

	server := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		msg, n, err := Receive(conn)
		if err != nil {
			close(received)
			return
		}
		if n != 0 {
			received <- msg
		}

		Send(conn, Msg{Type: MsgTypePingResponse, RequestID: msg.RequestID})
	}))
	defer server.Close()

	conn, err := websocket.Dial(strings.ReplaceAll(server.URL, "http://", "ws://"), "", "http://localhost")
	require.NoError(t, err)
	defer conn.Close()

	msg, err := NewMsg(MsgTypePingRequest, 21, nil)
	require.NoError(t, err)

	n, err := Send(conn, msg)
	require.NoError(t, err)
	require.NotZero(t, n)

	res, n, err := Receive(conn)
	require.NoError(t, err)
	require.NotZero(t, n)
	require.Equal(t, MsgTypePingResponse, res.Type)
	require.Equal(t, uint32(21), res.RequestID)

	req := <-received
	require.Equal(t, MsgTypePingRequest, req.Type)
	require.True(t, msg.Timestamp.Equal(req.Timestamp))
}

func TestReceiveInvalidMessage(t *testing.T) {
	server := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		websocket.Message.Send(conn, "not json")
	}))
	defer server.Close()

	conn, err := websocket.Dial(strings.ReplaceAll(server.URL, "http://", "ws://"), "", "http://localhost")
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = Receive(conn)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeBadRequest))
}
