package dagaz

// groundNudge is how far, in cells, a ground hit point is moved back along the
// ray to pick the cell resting on the ground rather than the one below it.
const groundNudge = (float32)(0.01)

// Ground is the infinite plane dot(p, Normal) == Height.
type Ground struct {
	Normal Vector4f
	Height float32
}

// DefaultGround is the z-up plane through the origin.
func DefaultGround() Ground {
	return Ground{
		Normal: Vector4f{0, 0, 1, 0},
		Height: 0,
	}
}

// CellHit is a cell selected by a ray.
type CellHit struct {
	Cell Cell

	// World position where the ray reached the cell.
	Point Vector4f

	// Distance from the ray start to Point, in world units.
	Distance float32
}

// Physics answers ray and sphere queries against a ground plane and an
// optional chunk. It never modifies the chunk: callers that mutate it must not
// run queries at the same time.
type Physics struct {
	chunk  *Chunk
	ground Ground

	// When true, RayCastToOpenCell falls back to the cell lying on the ground
	// where the ray hits it.
	GroundPlacement bool

	// OnWalk, when set, is called with the number of cells each chunk walk
	// stepped through.
	OnWalk func(steps int)
}

func NewPhysics(chunk *Chunk, ground Ground) *Physics {
	return &Physics{
		chunk:           chunk,
		ground:          ground,
		GroundPlacement: true,
	}
}

func (p *Physics) Chunk() *Chunk {
	return p.chunk
}

func (p *Physics) Ground() Ground {
	return p.ground
}

// RayCast returns the distance to the first present cell hit by the segment
// [position, position+ray], or to the ground when no cell is hit.
func (p *Physics) RayCast(position Vector4f, ray Vector4f) (float32, bool) {
	if p.chunk != nil {
		if hit, ok := p.rayCastChunk(position, ray); ok {
			return hit.Distance, true
		}
	}
	return p.RayCastGround(position, ray)
}

func (p *Physics) RayCastGround(position Vector4f, ray Vector4f) (float32, bool) {
	_, distance, ok := RayToPlane(position, ray, p.ground.Normal, p.ground.Height)
	return distance, ok
}

func (p *Physics) rayCastChunk(position Vector4f, ray Vector4f) (ChunkHit, bool) {
	hit, ok := RayCastChunk(p.chunk, position, ray)
	if p.OnWalk != nil {
		p.OnWalk(hit.Steps)
	}
	return hit, ok
}

// ClampToGround moves a position that is below the ground back onto it.
func (p *Physics) ClampToGround(position Vector4f) Vector4f {
	distance := p.ground.Normal.Dot(position) - p.ground.Height
	if distance < 0 {
		return Sub(position, Mul(p.ground.Normal, distance))
	}
	return position
}

// RayCastToPresentCell returns the first present cell hit by the segment
// [position, position+ray].
func (p *Physics) RayCastToPresentCell(position Vector4f, ray Vector4f) (CellHit, bool) {
	if p.chunk == nil {
		return CellHit{}, false
	}

	hit, ok := p.rayCastChunk(position, ray)
	if !ok {
		return CellHit{}, false
	}
	return CellHit{
		Cell:     hit.Cell,
		Point:    hit.Point,
		Distance: hit.Distance,
	}, true
}

// RayCastToOpenCell returns the absent cell where a new cell can be placed
// against what the segment [position, position+ray] hits: the cell visited
// right before the first present one, or the cell lying on the ground.
func (p *Physics) RayCastToOpenCell(position Vector4f, ray Vector4f) (CellHit, bool) {
	if p.chunk == nil {
		return CellHit{}, false
	}

	if hit, ok := p.rayCastChunk(position, ray); ok {
		if !hit.Entered || !p.chunk.InBounds(hit.Previous) {
			return CellHit{}, false
		}
		return CellHit{
			Cell:     hit.Previous,
			Point:    hit.Point,
			Distance: hit.Distance,
		}, true
	}

	if !p.GroundPlacement {
		return CellHit{}, false
	}

	point, distance, ok := RayToPlane(position, ray, p.ground.Normal, p.ground.Height)
	if !ok {
		return CellHit{}, false
	}

	nudge := Mul(Normalized(ray), groundNudge*p.chunk.CellSize)
	cell := CellFromPosition(p.chunk.ToLocal(Sub(point, nudge)))
	if !p.chunk.InBounds(cell) || p.chunk.IsPresent(cell) {
		return CellHit{}, false
	}
	return CellHit{
		Cell:     cell,
		Point:    point,
		Distance: distance,
	}, true
}

// CollideSphere returns the deepest contact between a sphere and the ground
// or the present cells it overlaps.
func (p *Physics) CollideSphere(position Vector4f, radius float32) (Contact, bool) {
	var deepest Contact
	found := false

	if point, ok := SphereToPlane(position, radius, p.ground.Normal, p.ground.Height); ok {
		deepest = Contact{
			Point:  point,
			Normal: p.ground.Normal,
			Depth:  radius - (p.ground.Normal.Dot(position) - p.ground.Height),
		}
		found = true
	}

	if p.chunk == nil {
		return deepest, found
	}

	extent := Vector4f{radius, radius, radius, radius}
	min := CellFromPosition(p.chunk.ToLocal(Sub(position, extent)))
	max := CellFromPosition(p.chunk.ToLocal(Add(position, extent))).Add(Cell{1, 1, 1, 1})

	for _, cell := range p.chunk.GetRegion(min, max) {
		contact, ok := SphereToAlignedBox(
			p.chunk.CellOrigin(cell),
			p.chunk.ToWorld(cell.Max()),
			position,
			radius,
		)
		if ok && (!found || contact.Depth > deepest.Depth) {
			deepest = contact
			found = true
		}
	}
	return deepest, found
}
