package dagaz

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/aukilabs/fourd/featureflag"
	"github.com/aukilabs/fourd/messages"
	"github.com/aukilabs/fourd/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	// The largest absolute coordinate accepted in requests.
	maxCoordinate = 1e6

	// The maximum number of cells a single line draw can visit.
	maxLineDrawCells = 4096
)

var defaultDims = Cell{16, 16, 16, 16}

// State is the level of a session, shared by all its participants.
type State struct {
	sync.RWMutex

	Chunk   *Chunk
	Physics *Physics
}

// Module serves ray queries and cell edits against the level of the joined
// session.
type Module struct {
	// The level every new session starts with. Sessions work on their own copy.
	// An empty 16x16x16x16 level is used when nil.
	Template *Chunk

	// The ground plane of the levels.
	Ground Ground

	FeatureFlags featureflag.FeatureFlag

	currentSession     *models.Session
	currentParticipant *models.Participant
	state              *State
}

func (m *Module) Name() string {
	return "dagaz"
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p
	m.state = s.ModuleStateOrInit(m.Name(), m.newState).(*State)

	m.FeatureFlags.IfNotSet(featureflag.FlagDisableLevelState, func() {
		p.Responder.Send(MsgTypeLevelState, 0, m.levelState())
	})
}

func (m *Module) newState() any {
	var chunk *Chunk
	if m.Template != nil {
		chunk = m.Template.Clone()
	} else {
		chunk = NewChunk(Vector4f{}, 1, defaultDims)
	}

	ground := m.Ground
	if ground.Normal.IsZero() {
		ground = DefaultGround()
	}

	physics := NewPhysics(chunk, ground)
	physics.OnWalk = instrumentWalkSteps
	m.FeatureFlags.IfSet(featureflag.FlagDisableGroundPlacement, func() {
		physics.GroundPlacement = false
	})

	return &State{
		Chunk:   chunk,
		Physics: physics,
	}
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var err error

	switch msg.Type {
	case MsgTypeRayCastRequest:
		err = m.HandleRayCast(ctx, respond, msg)

	case MsgTypeRayCastGroundRequest:
		err = m.HandleRayCastGround(ctx, respond, msg)

	case MsgTypeLineDrawRequest:
		err = m.HandleLineDraw(ctx, respond, msg)

	case MsgTypeCellAddRequest:
		err = m.HandleCellAdd(ctx, respond, msg)

	case MsgTypeCellRemoveRequest:
		err = m.HandleCellRemove(ctx, respond, msg)

	case MsgTypeCellsLoadRequest:
		err = m.HandleCellsLoad(ctx, respond, msg)

	case MsgTypeCollideSphereRequest:
		err = m.HandleCollideSphere(ctx, respond, msg)

	case MsgTypeGetDebugInfoRequest:
		err = m.HandleGetDebugInfo(ctx, respond, msg)

	default:
		return messages.ErrModuleMsgSkip
	}

	return err
}

func (m *Module) HandleDisconnect() {
	m.currentSession = nil
	m.currentParticipant = nil
	m.state = nil
}

func (m *Module) HandleRayCast(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req RayRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	if !validRay(req.Position, req.Ray) {
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return nil
	}

	state.RLock()
	distance, hit := state.Physics.RayCast(req.Position, req.Ray)
	state.RUnlock()

	instrumentQuery("raycast", hit)
	respond.Send(MsgTypeRayCastResponse, msg.RequestID, rayCastResponse(req, distance, hit))
	return nil
}

func (m *Module) HandleRayCastGround(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req RayRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	if !validRay(req.Position, req.Ray) {
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return nil
	}

	distance, hit := state.Physics.RayCastGround(req.Position, req.Ray)

	instrumentQuery("raycast_ground", hit)
	respond.Send(MsgTypeRayCastGroundResponse, msg.RequestID, rayCastResponse(req, distance, hit))
	return nil
}

func (m *Module) HandleLineDraw(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req LineDrawRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	if !validRay(req.Start, req.Ray) {
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return nil
	}

	unlock := state.RUnlock
	if req.Fill {
		state.Lock()
		unlock = state.Unlock
	} else {
		state.RLock()
	}

	chunk := state.Chunk
	start := chunk.ToLocal(req.Start)
	ray := Div(req.Ray, chunk.CellSize)
	if lineDrawLength(start, ray) > maxLineDrawCells {
		unlock()
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeOutOfRange)
		return nil
	}

	cells := AppendLineDraw(nil, start, ray)

	var added []Cell
	var digest string
	if req.Fill {
		for _, c := range cells {
			if chunk.InBounds(c) && !chunk.IsPresent(c) && chunk.SetAt(c, true) {
				added = append(added, c)
			}
		}
		digest = chunk.Digest()
	}
	unlock()

	instrumentLineDraw(len(cells))
	respond.Send(MsgTypeLineDrawResponse, msg.RequestID, LineDrawResponse{
		Cells: cells,
	})
	m.broadcastCellUpdate(added, true, digest)
	return nil
}

func (m *Module) HandleCellAdd(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req RayRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	if !validRay(req.Position, req.Ray) {
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return nil
	}

	var res CellAddResponse
	var digest string

	state.Lock()
	hit, ok := state.Physics.RayCastToOpenCell(req.Position, req.Ray)
	if ok && state.Chunk.SetAt(hit.Cell, true) {
		res = CellAddResponse{
			Added: true,
			Cell:  hit.Cell,
			Point: hit.Point,
		}
		digest = state.Chunk.Digest()
	}
	state.Unlock()

	instrumentQuery("cell_add", res.Added)
	respond.Send(MsgTypeCellAddResponse, msg.RequestID, res)
	if res.Added {
		m.broadcastCellUpdate([]Cell{res.Cell}, true, digest)
	}
	return nil
}

func (m *Module) HandleCellRemove(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req RayRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	if !validRay(req.Position, req.Ray) {
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return nil
	}

	var res CellRemoveResponse
	var digest string

	state.Lock()
	hit, ok := state.Physics.RayCastToPresentCell(req.Position, req.Ray)
	if ok && state.Chunk.SetAt(hit.Cell, false) {
		res = CellRemoveResponse{
			Removed: true,
			Cell:    hit.Cell,
			Point:   hit.Point,
		}
		digest = state.Chunk.Digest()
	}
	state.Unlock()

	instrumentQuery("cell_remove", res.Removed)
	respond.Send(MsgTypeCellRemoveResponse, msg.RequestID, res)
	if res.Removed {
		m.broadcastCellUpdate([]Cell{res.Cell}, false, digest)
	}
	return nil
}

func (m *Module) HandleCellsLoad(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req CellsLoadRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	state.Lock()
	ok := state.Chunk.LoadFromList(req.Cells, req.Offset)
	res := CellsLoadResponse{
		OK:     ok,
		Count:  state.Chunk.PresentCount(),
		Digest: state.Chunk.Digest(),
	}
	state.Unlock()

	if !ok {
		logs.WithTag("session_id", m.currentSession.ID).
			WithTag("cells", len(req.Cells)).
			WithTag("loaded", res.Count).
			Warn("some cells are outside of the level")
	}
	instrumentCellUpdates(res.Count)

	respond.Send(MsgTypeCellsLoadResponse, msg.RequestID, res)

	m.FeatureFlags.IfNotSet(featureflag.FlagDisableCellUpdateBroadcast, func() {
		m.currentSession.Broadcast(m.currentParticipant, MsgTypeLevelState, m.levelState())
	})
	return nil
}

func (m *Module) HandleCollideSphere(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req CollideSphereRequest
	if !decodeRequest(respond, msg, &req) {
		return nil
	}

	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	if !validVector(req.Position) || req.Radius <= 0 || req.Radius > maxCoordinate {
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return nil
	}

	state.RLock()
	contact, hit := state.Physics.CollideSphere(req.Position, req.Radius)
	state.RUnlock()

	instrumentQuery("collide_sphere", hit)
	respond.Send(MsgTypeCollideSphereResponse, msg.RequestID, CollideSphereResponse{
		Hit:    hit,
		Point:  contact.Point,
		Normal: contact.Normal,
		Depth:  contact.Depth,
	})
	return nil
}

func (m *Module) HandleGetDebugInfo(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	state, err := m.joinedState(msg)
	if err != nil {
		return err
	}

	state.RLock()
	debugInfo := state.Chunk.GetDebugInfo()
	state.RUnlock()

	respond.Send(MsgTypeGetDebugInfoResponse, msg.RequestID, GetDebugInfoResponse{
		Dims:         debugInfo.Dims,
		Origin:       debugInfo.Origin,
		CellSize:     debugInfo.CellSize,
		CellCount:    debugInfo.CellCount,
		PresentCount: debugInfo.PresentCount,
		Digest:       debugInfo.Digest,
		BoundsMin:    debugInfo.BoundsMin,
		BoundsMax:    debugInfo.BoundsMax,
	})
	return nil
}

func (m *Module) joinedState(msg messages.Msg) (*State, error) {
	if m.currentSession == nil || m.state == nil {
		return nil, errors.New("session not joined").
			WithType(messages.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}
	return m.state, nil
}

// levelState must not be called while holding the state lock.
func (m *Module) levelState() LevelState {
	m.state.RLock()
	defer m.state.RUnlock()

	chunk := m.state.Chunk
	ground := m.state.Physics.Ground()

	return LevelState{
		Origin:       chunk.Origin,
		CellSize:     chunk.CellSize,
		Dims:         chunk.Dims(),
		GroundNormal: ground.Normal,
		GroundHeight: ground.Height,
		Cells:        slices.Collect(chunk.Cells()),
		Digest:       chunk.Digest(),
	}
}

// broadcastCellUpdate sends cell changes to the other participants. It must be
// called after releasing the state lock: a slow participant would otherwise
// hold every query of the session.
func (m *Module) broadcastCellUpdate(cells []Cell, present bool, digest string) {
	if len(cells) == 0 {
		return
	}
	instrumentCellUpdates(len(cells))

	m.FeatureFlags.IfNotSet(featureflag.FlagDisableCellUpdateBroadcast, func() {
		m.currentSession.Broadcast(m.currentParticipant, MsgTypeCellUpdateBroadcast, CellUpdateBroadcast{
			Cells:   cells,
			Present: present,
			Digest:  digest,
		})
	})
}

// decodeRequest decodes the payload of a request. Invalid payloads are
// answered with a bad request error.
func decodeRequest(respond messages.ResponseSender, msg messages.Msg, v any) bool {
	if err := msg.DataTo(v); err != nil {
		logs.WithTag("msg_type", msg.Type).Debug(err)
		messages.RespondError(respond, msg.RequestID, messages.ErrorCodeBadRequest)
		return false
	}
	return true
}

func rayCastResponse(req RayRequest, distance float32, hit bool) RayCastResponse {
	if !hit {
		return RayCastResponse{}
	}
	return RayCastResponse{
		Hit:      true,
		Distance: distance,
		Point:    Add(req.Position, Mul(Normalized(req.Ray), distance)),
	}
}

func validRay(position Vector4f, ray Vector4f) bool {
	return !ray.IsZero() && validVector(position) && validVector(ray)
}

func validVector(v Vector4f) bool {
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.Abs(float64(f)) > maxCoordinate {
			return false
		}
	}
	return true
}

// lineDrawLength returns the number of cells a line draw visits.
func lineDrawLength(start Vector4f, ray Vector4f) int {
	from := CellFromPosition(start)
	to := CellFromPosition(Add(start, ray))

	length := 1
	for c := 0; c < 4; c++ {
		d := to[c] - from[c]
		if d < 0 {
			d = -d
		}
		length += d
	}
	return length
}
