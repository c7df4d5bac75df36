package messages

const (
	MsgTypePingRequest               MsgType = "ping_request"
	MsgTypePingResponse              MsgType = "ping_response"
	MsgTypeSyncClock                 MsgType = "sync_clock"
	MsgTypeErrorResponse             MsgType = "error_response"
	MsgTypeParticipantJoinRequest    MsgType = "participant_join_request"
	MsgTypeParticipantJoinResponse   MsgType = "participant_join_response"
	MsgTypeParticipantJoinBroadcast  MsgType = "participant_join_broadcast"
	MsgTypeParticipantLeaveBroadcast MsgType = "participant_leave_broadcast"
)

type ErrorResponse struct {
	Code ErrorCode `json:"code"`
}

type ParticipantJoinRequest struct {
	// The global id of the session to join. An empty id creates a new session.
	SessionID string `json:"session_id,omitempty"`
}

type ParticipantJoinResponse struct {
	SessionID     string `json:"session_id"`
	SessionUUID   string `json:"session_uuid"`
	ParticipantID uint32 `json:"participant_id"`
}

type ParticipantJoinBroadcast struct {
	ParticipantID uint32 `json:"participant_id"`
}

type ParticipantLeaveBroadcast struct {
	ParticipantID uint32 `json:"participant_id"`
}
