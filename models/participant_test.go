package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParticipantIDs(t *testing.T) {
	participants := []*Participant{
		{
			ID: 1,
		},
		{
			ID: 2,
		},
	}

	require.Equal(t, []uint32{1, 2}, ParticipantIDs(participants))
	require.Empty(t, ParticipantIDs(nil))
}
