// Package scenario runs scripted exchanges of messages with a server over a
// WebSocket connection. It is used by tests and smoke tests.
package scenario

import (
	"context"
	"slices"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"golang.org/x/net/websocket"
)

const errTypeScenarioMsgSkip = "scenario_msg_skip"

// ErrScenarioMsgSkip is returned by a receive handler to ignore the received
// message and wait for the next one.
var ErrScenarioMsgSkip = errors.New("message skipped").WithType(errTypeScenarioMsgSkip)

// Handler inspects a received message.
type Handler func(messages.Msg) error

// Scenario is a sequence of sends and receives executed in order.
type Scenario struct {
	conn  *websocket.Conn
	steps []func(context.Context) error
}

func NewScenario(conn *websocket.Conn) *Scenario {
	return &Scenario{conn: conn}
}

// Send adds a step that sends a message.
func (s *Scenario) Send(msgType messages.MsgType, requestID uint32, data any) *Scenario {
	s.steps = append(s.steps, func(ctx context.Context) error {
		msg, err := messages.NewMsg(msgType, requestID, data)
		if err != nil {
			return err
		}

		if _, err := messages.Send(s.conn, msg); err != nil {
			return errors.New("sending message failed").
				WithTag("msg_type", msgType).
				Wrap(err)
		}
		return nil
	})
	return s
}

// Receive adds a step that waits for a message accepted by all the given
// handlers. Messages for which a handler returns ErrScenarioMsgSkip are
// ignored.
func (s *Scenario) Receive(handlers ...Handler) *Scenario {
	s.steps = append(s.steps, func(ctx context.Context) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			msg, _, err := messages.Receive(s.conn)
			if err != nil {
				return errors.New("receiving message failed").Wrap(err)
			}

			skipped, err := handle(msg, handlers)
			if err != nil {
				return err
			}
			if !skipped {
				return nil
			}
		}
	})
	return s
}

// Run executes the scenario steps. The context deadline, if any, bounds the
// whole scenario.
func (s *Scenario) Run(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetDeadline(deadline)
	}

	for _, step := range s.steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func handle(msg messages.Msg, handlers []Handler) (bool, error) {
	for _, h := range handlers {
		err := h(msg)
		if errors.IsType(err, errTypeScenarioMsgSkip) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// FilterByType skips messages that are not of one of the given types.
func FilterByType(msgTypes ...messages.MsgType) Handler {
	return func(msg messages.Msg) error {
		if !slices.Contains(msgTypes, msg.Type) {
			return ErrScenarioMsgSkip
		}
		return nil
	}
}

// FilterByRequestID skips messages that do not answer the given request.
func FilterByRequestID(requestID uint32) Handler {
	return func(msg messages.Msg) error {
		if msg.RequestID != requestID {
			return ErrScenarioMsgSkip
		}
		return nil
	}
}
