// Package smoketest checks that a level server is reachable and answers
// kernel queries. It joins a new session, loads a single cell and verifies
// that a raycast reaches it.
package smoketest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	fourdhttp "github.com/aukilabs/fourd/http"
	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/modules/dagaz"
	"github.com/aukilabs/fourd/scenario"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	defaultTimeout = time.Second * 10
)

// Request is the body of a smoke test HTTP request.
type Request struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token,omitempty"`

	// How long the smoke test can take, in milliseconds. Defaults to 10
	// seconds.
	TimeoutMilliSec int64 `json:"timeout_ms,omitempty"`
}

// Result describes the outcome of a smoke test.
type Result struct {
	FromEndpoint    string  `json:"from_endpoint"`
	ToEndpoint      string  `json:"to_endpoint"`
	Status          string  `json:"status"`
	LatencyMilliSec float64 `json:"latency_ms"`
	Error           string  `json:"error,omitempty"`
}

type Options struct {
	// The endpoint of the server running the smoke tests.
	Endpoint string

	UserAgent string

	// Reports the result of a smoke test triggered over HTTP.
	SendResult func(context.Context, Result) error
}

type RunOptions struct {
	FromEndpoint string
	ToEndpoint   string
	Token        string
	UserAgent    string
	Timeout      time.Duration
}

// HandleSmokeTest starts a smoke test against the endpoint given in the
// request body. The test runs in the background and its result is reported
// with opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if err := json.Unmarshal(b, &req); err != nil || req.Endpoint == "" || req.TimeoutMilliSec < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		go func() {
			res, err := Run(ctx, RunOptions{
				FromEndpoint: opts.Endpoint,
				ToEndpoint:   req.Endpoint,
				Token:        req.Token,
				UserAgent:    opts.UserAgent,
				Timeout:      time.Duration(req.TimeoutMilliSec) * time.Millisecond,
			})
			if err != nil {
				logs.Warn(err)
			}

			if opts.SendResult == nil {
				return
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

// Run executes a smoke test against the given endpoint. The returned result
// is always filled, even when an error is returned.
func Run(ctx context.Context, opts RunOptions) (Result, error) {
	res := Result{
		FromEndpoint: opts.FromEndpoint,
		ToEndpoint:   opts.ToEndpoint,
		Status:       StatusFailed,
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if err := run(ctx, opts); err != nil {
		err = errors.New("smoke test failed").
			WithTag("from_endpoint", opts.FromEndpoint).
			WithTag("to_endpoint", opts.ToEndpoint).
			Wrap(err)
		res.Error = err.Error()
		return res, err
	}

	res.Status = StatusSuccess
	res.LatencyMilliSec = float64(time.Since(start).Microseconds()) / 1000
	return res, nil
}

func run(ctx context.Context, opts RunOptions) error {
	conn, err := dial(ctx, opts)
	if err != nil {
		return err
	}
	defer conn.Close()

	var info dagaz.GetDebugInfoResponse

	err = scenario.NewScenario(conn).
		Send(messages.MsgTypeParticipantJoinRequest, 1, messages.ParticipantJoinRequest{}).
		Receive(
			failOnError(1),
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.MsgTypeParticipantJoinResponse),
		).
		Send(dagaz.MsgTypeGetDebugInfoRequest, 2, nil).
		Receive(
			failOnError(2),
			scenario.FilterByRequestID(2),
			scenario.FilterByType(dagaz.MsgTypeGetDebugInfoResponse),
			decodeTo(&info),
		).
		Run(ctx)
	if err != nil {
		return err
	}

	// A ray starting half a cell before the first cell of the level, along x.
	cellSize := info.CellSize
	position := dagaz.Add(info.Origin, dagaz.NewVector4f(-0.5*cellSize, 0.5*cellSize, 0.5*cellSize, 0.5*cellSize))
	ray := dagaz.NewVector4f(2*cellSize, 0, 0, 0)

	var loaded dagaz.CellsLoadResponse
	var raycast dagaz.RayCastResponse

	err = scenario.NewScenario(conn).
		Send(dagaz.MsgTypeCellsLoadRequest, 3, dagaz.CellsLoadRequest{
			Cells: []dagaz.Cell{{0, 0, 0, 0}},
		}).
		Receive(
			failOnError(3),
			scenario.FilterByRequestID(3),
			scenario.FilterByType(dagaz.MsgTypeCellsLoadResponse),
			decodeTo(&loaded),
		).
		Send(dagaz.MsgTypeRayCastRequest, 4, dagaz.RayRequest{
			Position: position,
			Ray:      ray,
		}).
		Receive(
			failOnError(4),
			scenario.FilterByRequestID(4),
			scenario.FilterByType(dagaz.MsgTypeRayCastResponse),
			decodeTo(&raycast),
		).
		Run(ctx)
	if err != nil {
		return err
	}

	if !loaded.OK || loaded.Count != 1 {
		return errors.New("loading cells failed").
			WithTag("ok", loaded.OK).
			WithTag("count", loaded.Count)
	}

	epsilon := 1e-3 * float64(cellSize)
	expectedPoint := dagaz.Add(position, dagaz.NewVector4f(0.5*cellSize, 0, 0, 0))
	if !raycast.Hit ||
		!dagaz.EqualWithEpsilon(raycast.Distance, 0.5*cellSize, epsilon) ||
		!raycast.Point.EqualWithEpsilon(expectedPoint, epsilon) {
		return errors.New("raycast missed the loaded cell").
			WithTag("hit", raycast.Hit).
			WithTag("distance", raycast.Distance).
			WithTag("point", raycast.Point)
	}
	return nil
}

func dial(ctx context.Context, opts RunOptions) (*websocket.Conn, error) {
	endpoint := opts.ToEndpoint
	endpoint = strings.Replace(endpoint, "https://", "wss://", 1)
	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)

	config, err := websocket.NewConfig(endpoint, opts.FromEndpoint)
	if err != nil {
		return nil, errors.New("creating websocket config failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}

	config.Header.Set("User-Agent", opts.UserAgent)
	config.Header.Set(fourdhttp.HeaderClientID, uuid.NewString())
	if opts.Token != "" {
		config.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, errors.New("dialing server failed").
			WithTag("endpoint", endpoint).
			Wrap(err)
	}
	return conn, nil
}

// failOnError stops the scenario when the server answers the given request
// with an error.
func failOnError(requestID uint32) scenario.Handler {
	return func(msg messages.Msg) error {
		if msg.Type != messages.MsgTypeErrorResponse || msg.RequestID != requestID {
			return nil
		}

		var res messages.ErrorResponse
		if err := msg.DataTo(&res); err != nil {
			return errors.New("decoding error response failed").
				WithTag("request_id", requestID).
				Wrap(err)
		}
		return errors.New("server answered with an error").
			WithTag("request_id", requestID).
			WithTag("code", res.Code)
	}
}

func decodeTo(v any) scenario.Handler {
	return func(msg messages.Msg) error {
		return msg.DataTo(v)
	}
}
