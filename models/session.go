package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

const defaultServerID = "fourd"

// Session represents a session where participants share a level and
// communicate between each other.
type Session struct {
	ID          uint32
	SessionUUID string

	// The name of the level played in the session.
	Level string

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant

	moduleStates map[string]any
	moduleMutex  sync.RWMutex

	closed    chan struct{}
	closeOnce sync.Once
}

func NewSession(id uint32, level string) *Session {
	return &Session{
		ID:           id,
		SessionUUID:  uuid.New().String(),
		Level:        level,
		participants: make(map[uint32]*Participant),
		moduleStates: make(map[string]any),
		closed:       make(chan struct{}),
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Done returns a channel that is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

func (s *Session) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Session) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

func (s *Session) RemoveParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	delete(s.participants, p.ID)
}

func (s *Session) GetParticipants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Session) GetParticipantsByIDs(ids ...uint32) []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		p, ok := s.participants[id]
		if ok {
			participants = append(participants, p)
		}
	}
	return participants
}

func (s *Session) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// Broadcast sends a message to all the session participants except the
// sender. Participants are sent to without holding the participant lock.
func (s *Session) Broadcast(sender *Participant, msgType messages.MsgType, data any) {
	s.BroadcastTo(sender, msgType, data, ParticipantIDs(s.GetParticipants())...)
}

// BroadcastTo sends a message to the given participants, at most once each and
// never to the sender.
func (s *Session) BroadcastTo(sender *Participant, msgType messages.MsgType, data any, participantIDs ...uint32) {
	participants := s.GetParticipantsByIDs(participantIDs...)
	isParticipantHandled := make(map[uint32]struct{}, len(participantIDs))

	msg, err := messages.NewMsg(msgType, 0, data)
	if err != nil {
		logs.WithTag("msg_type", msgType).Debug(err)
		return
	}

	for _, p := range participants {
		if p == sender {
			continue
		}

		if _, ok := isParticipantHandled[p.ID]; ok {
			continue
		}
		isParticipantHandled[p.ID] = struct{}{}

		p.Responder.SendMsg(msg)
	}
}

func (s *Session) ModuleState(moduleName string) (any, bool) {
	s.moduleMutex.RLock()
	defer s.moduleMutex.RUnlock()

	state, ok := s.moduleStates[moduleName]
	return state, ok
}

// ModuleStateOrInit returns the state of a module, creating it with newState
// when the module has no state yet.
func (s *Session) ModuleStateOrInit(moduleName string, newState func() any) any {
	s.moduleMutex.Lock()
	defer s.moduleMutex.Unlock()

	state, ok := s.moduleStates[moduleName]
	if !ok {
		state = newState()
		s.moduleStates[moduleName] = state
	}
	return state
}

// SessionStore contains the sessions running on a server.
type SessionStore struct {
	// The id of the server, used as prefix of the global session ids.
	ServerID string

	initOnce sync.Once
	mutex    sync.RWMutex
	sessions map[string]*Session
	ids      SequentialIDGenerator
}

func (s *SessionStore) init() {
	s.sessions = map[string]*Session{}
}

func (s *SessionStore) NewID() uint32 {
	return s.ids.New()
}

func (s *SessionStore) Add(ctx context.Context, session *Session) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	globalID := s.GlobalSessionID(session.ID)
	if _, ok := s.sessions[globalID]; ok {
		return errors.New("session already exists").
			WithTag("session_id", globalID)
	}
	s.sessions[globalID] = session

	instrumentIncreaseSessionGauge(session.Level)
	instrumentCountSession(session.Level)
	return nil
}

func (s *SessionStore) Remove(ctx context.Context, session *Session) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	globalID := s.GlobalSessionID(session.ID)
	if _, ok := s.sessions[globalID]; !ok {
		return
	}

	delete(s.sessions, globalID)
	session.Close()

	s.ids.Reuse(session.ID)

	instrumentDecreaseSessionGauge(session.Level)
}

func (s *SessionStore) GetByGlobalID(v string) (*Session, bool) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[v]
	return session, ok
}

func (s *SessionStore) Count() int {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.sessions)
}

func (s *SessionStore) GlobalSessionID(sessionID uint32) string {
	serverID := s.ServerID
	if serverID == "" {
		serverID = defaultServerID
	}
	return fmt.Sprintf("%sx%x", serverID, sessionID)
}
