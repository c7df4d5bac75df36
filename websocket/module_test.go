package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/models"
	"github.com/aukilabs/fourd/modules"
	"github.com/aukilabs/fourd/scenario"
	"github.com/stretchr/testify/require"
)

const testSkippedMsgType messages.MsgType = "test_skipped"

type testModule struct {
	mutex              sync.Mutex
	currentSession     *models.Session
	currentParticipant *models.Participant
	handledMsgs        []messages.MsgType
	skippedMsgs        []messages.MsgType
	onDisconnect       func()
}

func (m *testModule) Name() string {
	return "test-module"
}

func (m *testModule) Init(s *models.Session, p *models.Participant) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.currentSession = s
	m.currentParticipant = p
}

func (m *testModule) HandleMsg(ctx context.Context, sender messages.ResponseSender, msg messages.Msg) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch msg.Type {
	case testSkippedMsgType:
		m.skippedMsgs = append(m.skippedMsgs, msg.Type)
		return messages.ErrModuleMsgSkip

	default:
		m.handledMsgs = append(m.handledMsgs, msg.Type)
		return nil
	}
}

func (m *testModule) HandleDisconnect() {
	if m.onDisconnect != nil {
		m.onDisconnect()
	}
}

func TestModule(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	var mutex sync.Mutex
	var mods []*testModule

	clientA, _, close := NewTestingEnv(t, newTestHandler(func() modules.Module {
		mutex.Lock()
		defer mutex.Unlock()

		m := &testModule{onDisconnect: wg.Done}
		mods = append(mods, m)
		return m
	}))
	defer close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := scenario.NewScenario(clientA).
		Send(messages.MsgTypeParticipantJoinRequest, 1, messages.ParticipantJoinRequest{}).
		Receive(
			scenario.FilterByRequestID(1),
			scenario.FilterByType(messages.MsgTypeParticipantJoinResponse),
		).
		Send(testSkippedMsgType, 2, nil).
		Send(messages.MsgTypePingRequest, 3, nil).
		Receive(
			scenario.FilterByRequestID(3),
			scenario.FilterByType(messages.MsgTypePingResponse),
		).
		Run(ctx)
	require.NoError(t, err)

	clientA.Close()

	wg.Wait()

	mutex.Lock()
	defer mutex.Unlock()

	var modA *testModule
	for _, m := range mods {
		m.mutex.Lock()
		if m.currentSession != nil {
			modA = m
		}
		m.mutex.Unlock()
	}
	require.NotNil(t, modA)

	modA.mutex.Lock()
	defer modA.mutex.Unlock()

	require.NotNil(t, modA.currentParticipant)
	require.Equal(t, []messages.MsgType{
		messages.MsgTypeParticipantJoinRequest,
		messages.MsgTypePingRequest,
	}, modA.handledMsgs)
	require.Equal(t, []messages.MsgType{testSkippedMsgType}, modA.skippedMsgs)
}
