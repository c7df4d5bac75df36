package featureflag

type Flag string

const (
	FlagDisableLevelState                Flag = "DISABLE_LEVEL_STATE"
	FlagDisableParticipantJoinBroadcast  Flag = "DISABLE_PARTICIPANT_JOIN_BROADCAST"
	FlagDisableParticipantLeaveBroadcast Flag = "DISABLE_PARTICIPANT_LEAVE_BROADCAST"
	FlagDisableCellUpdateBroadcast       Flag = "DISABLE_CELL_UPDATE_BROADCAST"
	FlagDisableGroundPlacement           Flag = "DISABLE_GROUND_PLACEMENT"
)

func (f Flag) String() string {
	return string(f)
}
