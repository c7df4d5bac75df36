package dagaz

import "github.com/aukilabs/fourd/messages"

const (
	MsgTypeLevelState            messages.MsgType = "dagaz_level_state"
	MsgTypeRayCastRequest        messages.MsgType = "dagaz_raycast_request"
	MsgTypeRayCastResponse       messages.MsgType = "dagaz_raycast_response"
	MsgTypeRayCastGroundRequest  messages.MsgType = "dagaz_raycast_ground_request"
	MsgTypeRayCastGroundResponse messages.MsgType = "dagaz_raycast_ground_response"
	MsgTypeLineDrawRequest       messages.MsgType = "dagaz_line_draw_request"
	MsgTypeLineDrawResponse      messages.MsgType = "dagaz_line_draw_response"
	MsgTypeCellAddRequest        messages.MsgType = "dagaz_cell_add_request"
	MsgTypeCellAddResponse       messages.MsgType = "dagaz_cell_add_response"
	MsgTypeCellRemoveRequest     messages.MsgType = "dagaz_cell_remove_request"
	MsgTypeCellRemoveResponse    messages.MsgType = "dagaz_cell_remove_response"
	MsgTypeCellsLoadRequest      messages.MsgType = "dagaz_cells_load_request"
	MsgTypeCellsLoadResponse     messages.MsgType = "dagaz_cells_load_response"
	MsgTypeCellUpdateBroadcast   messages.MsgType = "dagaz_cell_update_broadcast"
	MsgTypeCollideSphereRequest  messages.MsgType = "dagaz_collide_sphere_request"
	MsgTypeCollideSphereResponse messages.MsgType = "dagaz_collide_sphere_response"
	MsgTypeGetDebugInfoRequest   messages.MsgType = "dagaz_get_debug_info_request"
	MsgTypeGetDebugInfoResponse  messages.MsgType = "dagaz_get_debug_info_response"
)

// LevelState describes the whole level of a session. It is sent to a
// participant when it joins a session and to the others when the level is
// reloaded.
type LevelState struct {
	Origin       Vector4f `json:"origin"`
	CellSize     float32  `json:"cell_size"`
	Dims         Cell     `json:"dims"`
	GroundNormal Vector4f `json:"ground_normal"`
	GroundHeight float32  `json:"ground_height"`
	Cells        []Cell   `json:"cells"`
	Digest       string   `json:"digest"`
}

// RayRequest is a query for the segment [Position, Position+Ray], in world
// coordinates.
type RayRequest struct {
	Position Vector4f `json:"position"`
	Ray      Vector4f `json:"ray"`
}

type RayCastResponse struct {
	Hit      bool     `json:"hit"`
	Distance float32  `json:"distance,omitempty"`
	Point    Vector4f `json:"point"`
}

type LineDrawRequest struct {
	Start Vector4f `json:"start"`
	Ray   Vector4f `json:"ray"`

	// Makes every visited cell that lies in the level present.
	Fill bool `json:"fill,omitempty"`
}

type LineDrawResponse struct {
	Cells []Cell `json:"cells"`
}

type CellAddResponse struct {
	Added bool     `json:"added"`
	Cell  Cell     `json:"cell"`
	Point Vector4f `json:"point"`
}

type CellRemoveResponse struct {
	Removed bool     `json:"removed"`
	Cell    Cell     `json:"cell"`
	Point   Vector4f `json:"point"`
}

type CellsLoadRequest struct {
	Cells  []Cell `json:"cells"`
	Offset Cell   `json:"offset"`
}

type CellsLoadResponse struct {
	// False when some cells were outside of the level and were ignored.
	OK     bool   `json:"ok"`
	Count  int    `json:"count"`
	Digest string `json:"digest"`
}

type CellUpdateBroadcast struct {
	Cells   []Cell `json:"cells"`
	Present bool   `json:"present"`
	Digest  string `json:"digest"`
}

type CollideSphereRequest struct {
	Position Vector4f `json:"position"`
	Radius   float32  `json:"radius"`
}

type CollideSphereResponse struct {
	Hit    bool     `json:"hit"`
	Point  Vector4f `json:"point"`
	Normal Vector4f `json:"normal"`
	Depth  float32  `json:"depth,omitempty"`
}

type GetDebugInfoResponse struct {
	Dims         Cell     `json:"dims"`
	Origin       Vector4f `json:"origin"`
	CellSize     float32  `json:"cell_size"`
	CellCount    int      `json:"cell_count"`
	PresentCount int      `json:"present_count"`
	Digest       string   `json:"digest"`
	BoundsMin    Vector4f `json:"bounds_min"`
	BoundsMax    Vector4f `json:"bounds_max"`
}
