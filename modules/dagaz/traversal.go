package dagaz

import (
	"iter"
	"math"
)

// startShift is how far the start of a ray is moved back when its first cell
// is already present, so a start that was clipped onto a cell face still
// enters that cell.
const startShift = (float32)(0.01)

// walker visits, in order, every unit cell that a ray segment passes through.
// Exactly one axis advances per step, the one with the smallest step counter,
// scanning x to w and keeping the first strict minimum.
type walker struct {
	cell    Cell
	end     Cell
	sign    [4]int
	step    [4]float64
	counter [4]float64

	// Cells left to cross on each axis before reaching end. An exhausted axis
	// is never selected again, which bounds the walk to the sum of remaining
	// no matter how small a ray component is compared to the others.
	remaining [4]int
}

func newWalker(start Vector4f, ray Vector4f) walker {
	if ray.IsZero() {
		panic("dagaz: traversal of a zero length ray")
	}

	normal := Normalized(ray)
	w := walker{
		cell: CellFromPosition(start),
		end:  CellFromPosition(Add(start, ray)),
	}

	for c := 0; c < 4; c++ {
		w.sign[c] = 1
		clamp := math.Floor((float64)(start[c]))
		if ray[c] < 0 {
			w.sign[c] = -1
			clamp = math.Ceil((float64)(start[c]))
		}
		clampDir := clamp - (float64)(start[c])

		if normal[c] != 0 {
			w.step[c] = math.Abs(1 / (float64)(normal[c]))
			w.counter[c] = (1 - math.Abs(clampDir)) * w.step[c]
		} else {
			w.counter[c] = math.MaxFloat64
		}

		remaining := w.end[c] - w.cell[c]
		if remaining < 0 {
			remaining = -remaining
		}
		w.remaining[c] = remaining
	}
	return w
}

// next advances the walk by one cell. It returns false once the end cell is
// reached.
func (w *walker) next() bool {
	axis := -1
	smallest := math.Inf(1)
	for c := 0; c < 4; c++ {
		if w.remaining[c] > 0 && w.counter[c] < smallest {
			axis = c
			smallest = w.counter[c]
		}
	}
	if axis < 0 {
		return false
	}

	w.cell[axis] += w.sign[axis]
	w.counter[axis] += w.step[axis]
	w.remaining[axis]--
	return true
}

// LineDraw returns the cells visited by the segment [start, start+ray], in
// walk order, including the cells of both end points. Coordinates are grid
// local. The ray must not be zero.
func LineDraw(start Vector4f, ray Vector4f) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		w := newWalker(start, ray)
		if !yield(w.cell) {
			return
		}
		for w.next() {
			if !yield(w.cell) {
				return
			}
		}
	}
}

// AppendLineDraw appends the cells visited by the segment [start, start+ray]
// to dst and returns the extended slice.
func AppendLineDraw(dst []Cell, start Vector4f, ray Vector4f) []Cell {
	w := newWalker(start, ray)
	dst = append(dst, w.cell)
	for w.next() {
		dst = append(dst, w.cell)
	}
	return dst
}

// walkHit is the outcome of a collision mode walk.
type walkHit struct {
	Cell  Cell
	Point Vector4f

	// Previous is the cell visited right before Cell. It is only set when
	// Entered is true, that is when the start cell was not the one hit.
	Previous Cell
	Entered  bool

	Steps int
}

// LocalRayCast walks the segment [start, start+ray] through field and returns
// the point where it enters the first present cell. Coordinates are grid
// local. The ray must not be zero.
func LocalRayCast(field CellField, start Vector4f, ray Vector4f) (Vector4f, bool) {
	hit, ok := walkToPresent(field, start, ray)
	return hit.Point, ok
}

func walkToPresent(field CellField, start Vector4f, ray Vector4f) (walkHit, bool) {
	w := newWalker(start, ray)

	if field.IsPresent(w.cell) {
		normal := Normalized(ray)
		shiftedStart := Sub(start, Mul(normal, startShift))
		shiftedRay := Add(ray, Mul(normal, 2*startShift))

		point := start
		if h, ok := RayToCell(w.cell, shiftedStart, shiftedRay); ok {
			point = h.Point
		}
		return walkHit{
			Cell:  w.cell,
			Point: point,
		}, true
	}

	steps := 0
	for {
		previous := w.cell
		if !w.next() {
			return walkHit{Steps: steps}, false
		}
		steps++

		if !field.IsPresent(w.cell) {
			continue
		}
		if h, ok := RayToCell(w.cell, start, ray); ok {
			return walkHit{
				Cell:     w.cell,
				Point:    h.Point,
				Previous: previous,
				Entered:  true,
				Steps:    steps,
			}, true
		}
	}
}

// ChunkHit is the result of a ray cast against a chunk.
type ChunkHit struct {
	// Distance from the original ray start to Point, in world units.
	Distance float32

	// Point is the world position where the ray enters Cell.
	Point Vector4f
	Cell  Cell

	// Previous is the cell visited right before Cell, set when Entered is
	// true. It may lie outside the chunk.
	Previous Cell
	Entered  bool

	Steps int
}

// RayCastChunk casts the world space segment [position, position+ray] against
// the present cells of chunk. The segment is first clipped to the chunk bounds
// so that the walk never leaves the chunk. The ray must not be zero.
func RayCastChunk(chunk *Chunk, position Vector4f, ray Vector4f) (ChunkHit, bool) {
	if ray.IsZero() {
		panic("dagaz: ray cast of a zero length ray")
	}

	localPos := chunk.ToLocal(position)
	localRay := Div(ray, chunk.CellSize)
	unclippedLocalPos := localPos

	epsilon := Vector4f{EdgeEpsilon, EdgeEpsilon, EdgeEpsilon, EdgeEpsilon}
	boxMin := Vector4f{}
	boxMax := Sub(chunk.Dims().Min(), epsilon)

	if clipped, ok := RayToAlignedBox(boxMin, boxMax, localPos, localRay); ok {
		if !WithinBox(boxMin, boxMax, localPos) {
			localPos = Add(clipped.Point, Mul(Normalized(localRay), EdgeEpsilon))
		}

		// The end is taken from the unclipped start so that the walk never
		// goes past the requested segment.
		end := Add(unclippedLocalPos, localRay)
		shrink := (float32)(1)
		if !WithinBox(boxMin, boxMax, end) {
			clippedEnd, ok := RayToAlignedBox(boxMin, boxMax, end, Neg(localRay))
			if !ok {
				return ChunkHit{}, false
			}
			end = clippedEnd.Point
			shrink = 0.9999
		}

		clippedRay := Sub(end, localPos)
		if clippedRay.Dot(localRay) <= 0 {
			return ChunkHit{}, false
		}
		localRay = Mul(clippedRay, shrink)
	} else if !WithinBox(boxMin, boxMax, localPos) {
		return ChunkHit{}, false
	}

	// Clipping may collapse the segment when the ray only grazes the chunk.
	if localRay.IsZero() {
		return ChunkHit{}, false
	}

	hit, ok := walkToPresent(chunk, localPos, localRay)
	if !ok {
		return ChunkHit{Steps: hit.Steps}, false
	}

	return ChunkHit{
		Distance: (float32)(Sub(hit.Point, unclippedLocalPos).Length()) * chunk.CellSize,
		Point:    chunk.ToWorld(hit.Point),
		Cell:     hit.Cell,
		Previous: hit.Previous,
		Entered:  hit.Entered,
		Steps:    hit.Steps,
	}, true
}
