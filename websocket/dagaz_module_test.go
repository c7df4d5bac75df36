package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/modules"
	"github.com/aukilabs/fourd/modules/dagaz"
	"github.com/aukilabs/fourd/scenario"
	"github.com/stretchr/testify/require"
)

func newDagazTestModule() modules.Module {
	template := dagaz.NewChunk(dagaz.Vector4f{}, 1, dagaz.Cell{4, 4, 4, 4})
	template.SetAt(dagaz.Cell{2, 1, 1, 1}, true)

	return &dagaz.Module{
		Template: template,
		Ground:   dagaz.DefaultGround(),
	}
}

func TestHandleDagazLevelState(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newDagazTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var state dagaz.LevelState

	err := scenario.NewScenario(clientA).
		Send(messages.MsgTypeParticipantJoinRequest, 1, messages.ParticipantJoinRequest{}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.MsgTypeParticipantJoinResponse),
		).
		Receive(
			scenario.FilterByType(dagaz.MsgTypeLevelState),
			func(msg messages.Msg) error {
				return msg.DataTo(&state)
			},
		).
		Run(ctx)
	require.NoError(t, err)
	require.Equal(t, dagaz.Cell{4, 4, 4, 4}, state.Dims)
	require.Equal(t, []dagaz.Cell{{2, 1, 1, 1}}, state.Cells)
	require.NotEmpty(t, state.Digest)
}

func TestHandleDagazRayCast(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newDagazTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var res dagaz.RayCastResponse

	err := scenario.NewScenario(clientA).
		Send(messages.MsgTypeParticipantJoinRequest, 1, messages.ParticipantJoinRequest{}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.MsgTypeParticipantJoinResponse),
		).
		Send(dagaz.MsgTypeRayCastRequest, 2, dagaz.RayRequest{
			Position: dagaz.NewVector4f(0.5, 1.5, 1.5, 1.5),
			Ray:      dagaz.NewVector4f(3, 0, 0, 0),
		}).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(dagaz.MsgTypeRayCastResponse),
			func(msg messages.Msg) error {
				return msg.DataTo(&res)
			},
		).
		Run(ctx)
	require.NoError(t, err)
	require.True(t, res.Hit)
	require.InDelta(t, 1.5, res.Distance, 1e-5)
}

func TestHandleDagazRayCastBeforeJoin(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newDagazTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Module messages are ignored until the client joins a session.
	err := scenario.NewScenario(clientA).
		Send(dagaz.MsgTypeRayCastRequest, 1, dagaz.RayRequest{
			Position: dagaz.NewVector4f(0.5, 1.5, 1.5, 1.5),
			Ray:      dagaz.NewVector4f(3, 0, 0, 0),
		}).
		Send(messages.MsgTypePingRequest, 2, nil).
		Receive(
			func(msg messages.Msg) error {
				require.NotEqual(t, dagaz.MsgTypeRayCastResponse, msg.Type)
				return nil
			},
			scenario.FilterByRequestID(2),
			scenario.FilterByType(messages.MsgTypePingResponse),
		).
		Run(ctx)
	require.NoError(t, err)
}

func TestHandleDagazCellAdd(t *testing.T) {
	clientA, clientB, close := NewTestingEnv(t, newTestHandler(newDagazTestModule))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()

	var join messages.ParticipantJoinResponse

	err := scenario.NewScenario(clientA).
		Send(messages.MsgTypeParticipantJoinRequest, 1, messages.ParticipantJoinRequest{}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.MsgTypeParticipantJoinResponse),
			func(msg messages.Msg) error {
				return msg.DataTo(&join)
			},
		).
		Run(ctx)
	require.NoError(t, err)

	err = scenario.NewScenario(clientB).
		Send(messages.MsgTypeParticipantJoinRequest, 1, messages.ParticipantJoinRequest{
			SessionID: join.SessionID,
		}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.MsgTypeParticipantJoinResponse),
		).
		Receive(
			scenario.FilterByType(dagaz.MsgTypeLevelState),
		).
		Run(ctx)
	require.NoError(t, err)

	var added dagaz.CellAddResponse

	err = scenario.NewScenario(clientA).
		Send(dagaz.MsgTypeCellAddRequest, 2, dagaz.RayRequest{
			Position: dagaz.NewVector4f(0.5, 1.5, 1.5, 1.5),
			Ray:      dagaz.NewVector4f(3, 0, 0, 0),
		}).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(dagaz.MsgTypeCellAddResponse),
			func(msg messages.Msg) error {
				return msg.DataTo(&added)
			},
		).
		Run(ctx)
	require.NoError(t, err)
	require.True(t, added.Added)
	require.Equal(t, dagaz.Cell{1, 1, 1, 1}, added.Cell)

	var update dagaz.CellUpdateBroadcast

	err = scenario.NewScenario(clientB).
		Receive(
			scenario.FilterByType(dagaz.MsgTypeCellUpdateBroadcast),
			func(msg messages.Msg) error {
				return msg.DataTo(&update)
			},
		).
		Run(ctx)
	require.NoError(t, err)
	require.True(t, update.Present)
	require.Equal(t, []dagaz.Cell{{1, 1, 1, 1}}, update.Cells)

	var info dagaz.GetDebugInfoResponse

	err = scenario.NewScenario(clientB).
		Send(dagaz.MsgTypeGetDebugInfoRequest, 2, nil).
		Receive(
			scenario.FilterByRequestID(2),
			scenario.FilterByType(dagaz.MsgTypeGetDebugInfoResponse),
			func(msg messages.Msg) error {
				return msg.DataTo(&info)
			},
		).
		Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 256, info.CellCount)
	require.Equal(t, 2, info.PresentCount)
	require.Equal(t, update.Digest, info.Digest)
}
