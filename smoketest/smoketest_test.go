package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/models"
	"github.com/aukilabs/fourd/modules"
	"github.com/aukilabs/fourd/modules/dagaz"
	fwebsocket "github.com/aukilabs/fourd/websocket"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	sessions := &models.SessionStore{ServerID: "smoke"}

	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			h := &fwebsocket.RealtimeHandler{
				ClientSyncClockInterval: time.Millisecond * 50,
				ClientIdleTimeout:       time.Second,
				Sessions:                sessions,
				Level:                   "smoke",
				Modules: []modules.Module{
					&dagaz.Module{
						Template: dagaz.NewChunk(dagaz.NewVector4f(10, 0, 0, 0), 0.5, dagaz.Cell{2, 2, 2, 2}),
						Ground:   dagaz.DefaultGround(),
					},
				},
			}
			defer h.Close()

			fwebsocket.Handle(context.Background(), conn, h)
		},
	})
	t.Cleanup(server.Close)
	return server
}

func TestRun(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := newTestServer(t)

		res, err := Run(context.Background(), RunOptions{
			FromEndpoint: "http://localhost",
			ToEndpoint:   server.URL,
			UserAgent:    "smoke",
			Timeout:      time.Second,
		})
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, server.URL, res.ToEndpoint)
		require.Empty(t, res.Error)
	})

	t.Run("offline", func(t *testing.T) {
		res, err := Run(context.Background(), RunOptions{
			FromEndpoint: "http://localhost",
			ToEndpoint:   "http://127.0.0.1:1",
			Timeout:      time.Second,
		})
		require.Error(t, err)
		require.Equal(t, StatusFailed, res.Status)
		require.Zero(t, res.LatencyMilliSec)
		require.NotEmpty(t, res.Error)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	t.Run("result is sent", func(t *testing.T) {
		server := newTestServer(t)

		results := make(chan Result, 1)
		h := HandleSmokeTest(context.Background(), Options{
			Endpoint: "http://localhost",
			SendResult: func(_ context.Context, res Result) error {
				results <- res
				return nil
			},
		})

		body, err := json.Marshal(map[string]any{
			"endpoint":   server.URL,
			"timeout_ms": 1000,
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		select {
		case res := <-results:
			require.Equal(t, StatusSuccess, res.Status)
			require.Equal(t, "http://localhost", res.FromEndpoint)

		case <-time.After(time.Second * 2):
			t.Fatal("no smoke test result")
		}
	})

	t.Run("bad request", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{"))))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{}"))))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte(`{"endpoint":"http://localhost","timeout_ms":-1}`))))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFailOnError(t *testing.T) {
	handler := failOnError(2)

	t.Run("other messages pass", func(t *testing.T) {
		msg, err := messages.NewMsg(dagaz.MsgTypeRayCastResponse, 2, nil)
		require.NoError(t, err)
		require.NoError(t, handler(msg))

		msg, err = messages.NewMsg(messages.MsgTypeErrorResponse, 3, messages.ErrorResponse{
			Code: messages.ErrorCodeBadRequest,
		})
		require.NoError(t, err)
		require.NoError(t, handler(msg))
	})

	t.Run("error response", func(t *testing.T) {
		msg, err := messages.NewMsg(messages.MsgTypeErrorResponse, 2, messages.ErrorResponse{
			Code: messages.ErrorCodeBadRequest,
		})
		require.NoError(t, err)
		require.ErrorContains(t, handler(msg), "server answered with an error")
	})

	t.Run("undecodable error response", func(t *testing.T) {
		msg := messages.Msg{
			Type:      messages.MsgTypeErrorResponse,
			RequestID: 2,
			Data:      json.RawMessage(`"not an error"`),
		}
		require.ErrorContains(t, handler(msg), "decoding error response failed")
	})
}
