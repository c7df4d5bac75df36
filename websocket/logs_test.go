package websocket

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/modules/dagaz"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/stretchr/testify/require"
)

// queuedHandler receives its messages from a queue instead of a connection.
type queuedHandler struct {
	*RealtimeHandler

	queue []messages.Msg
}

func (h *queuedHandler) Receiver() messages.Receiver {
	return func() (messages.Msg, int, error) {
		if len(h.queue) == 0 {
			return messages.Msg{}, 0, io.EOF
		}

		msg := h.queue[0]
		h.queue = h.queue[1:]
		return msg, len(msg.Data), nil
	}
}

func resetLogger() {
	logs.SetLogger(func(e logs.Entry) {
		fmt.Println(e)
	})
}

func captureLogs(t *testing.T) *strings.Builder {
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})
	t.Cleanup(resetLogger)
	return &b
}

func TestHandlerWithLogsCountsReceivedMessages(t *testing.T) {
	queue := []messages.Msg{
		{Type: dagaz.MsgTypeRayCastRequest},
		{Type: dagaz.MsgTypeCellAddRequest},
		{Type: dagaz.MsgTypeRayCastRequest},
		{},
	}

	h := HandlerWithLogs(&queuedHandler{
		RealtimeHandler: &RealtimeHandler{clientID: "test-client"},
		queue:           queue,
	}, time.Hour).(*handlerWithLogs)
	defer h.Close()

	receive := h.Receiver()
	for range queue {
		_, _, err := receive()
		require.NoError(t, err)
	}

	_, _, err := receive()
	require.ErrorIs(t, err, io.EOF)

	require.Equal(t, map[string]int{
		string(dagaz.MsgTypeRayCastRequest): 2,
		string(dagaz.MsgTypeCellAddRequest): 1,
		"unknown":                           1,
	}, h.counter)
}

func TestHandlerWithLogsLogSummary(t *testing.T) {
	testClientID := "test-client"
	h := HandlerWithLogs(&RealtimeHandler{clientID: testClientID}, time.Hour).(*handlerWithLogs)
	defer h.Close()

	h.sessionID = "fourdx1"
	h.participantID = 3

	h.incCounter(string(dagaz.MsgTypeRayCastRequest))
	h.incCounter(string(dagaz.MsgTypeRayCastRequest))
	h.incCounter(string(dagaz.MsgTypeLineDrawRequest))

	b := captureLogs(t)
	h.logSummary()
	require.Empty(t, h.counter)

	logString := b.String()
	require.Contains(t, logString, "inbound message summary")
	require.Contains(t, logString, `"dagaz_raycast_request":2`)
	require.Contains(t, logString, `"dagaz_line_draw_request":1`)
	require.Contains(t, logString, fmt.Sprintf(`"%s":"%s"`, logs.ClientIDTag, testClientID))
	require.Contains(t, logString, `"session_id":"fourdx1"`)
	require.Contains(t, logString, `"participant_id":3`)

	// nothing is logged when no message was received:
	b.Reset()
	h.logSummary()
	require.Empty(t, b.String())
}

func TestHandlerWithLogsStartSummaryWorker(t *testing.T) {
	var wg sync.WaitGroup
	var once sync.Once

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
		once.Do(wg.Done)
	})
	defer resetLogger()

	wg.Add(1)
	h := HandlerWithLogs(&RealtimeHandler{}, time.Millisecond).(*handlerWithLogs)
	defer h.Close()

	// A summary is only logged once a message was counted.
	h.incCounter(string(dagaz.MsgTypeCellRemoveRequest))

	wg.Wait()
	require.Contains(t, b.String(), "dagaz_cell_remove_request")
}
