package models

import "github.com/aukilabs/fourd/messages"

// A session participant.
type Participant struct {
	ID        uint32
	Responder messages.ResponseSender
}

// ParticipantIDs returns the ids of the given participants.
func ParticipantIDs(participants []*Participant) []uint32 {
	ids := make([]uint32, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
