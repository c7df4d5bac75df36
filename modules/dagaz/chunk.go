package dagaz

import (
	"encoding/binary"
	"iter"
	"math"
	"math/bits"

	"github.com/ethereum/go-ethereum/crypto"
)

// Chunk
//
// A bounded, dense 4D field of present/absent cells. The particularities are:
//   - cells are addressed in [0, dims) on each axis, anything else is absent;
//   - the chunk is placed in the world by Origin (position of local zero) and
//     CellSize (edge length of every cell);
//   - presence is stored as one bit per cell, x varying fastest.
type Chunk struct {
	Origin   Vector4f
	CellSize float32

	dims         Cell
	bits         []uint64
	presentCount int
}

// MaxCellCount is the maximum number of cells of a chunk. Its bitset then
// takes 32 MiB.
const MaxCellCount = 1 << 28

// CellCountOf returns the number of cells of a chunk with the given dims. It
// returns false when a dimension is not positive or when the count exceeds
// MaxCellCount.
func CellCountOf(dims Cell) (int, bool) {
	count := 1
	for axis := 0; axis < 4; axis++ {
		if dims[axis] <= 0 || dims[axis] > MaxCellCount/count {
			return 0, false
		}
		count *= dims[axis]
	}
	return count, true
}

// NewChunk creates an empty chunk. Dimensions that are not positive are set
// to 1 and the largest ones are halved until the chunk holds at most
// MaxCellCount cells.
func NewChunk(origin Vector4f, cellSize float32, dims Cell) *Chunk {
	for c := 0; c < 4; c++ {
		if dims[c] <= 0 {
			dims[c] = 1
		}
	}
	if cellSize <= 0 {
		cellSize = 1
	}

	cellCount, ok := CellCountOf(dims)
	for !ok {
		largest := 0
		for c := 1; c < 4; c++ {
			if dims[c] > dims[largest] {
				largest = c
			}
		}
		dims[largest] /= 2
		cellCount, ok = CellCountOf(dims)
	}

	return &Chunk{
		Origin:   origin,
		CellSize: cellSize,
		dims:     dims,
		bits:     make([]uint64, (cellCount+63)/64),
	}
}

// Dims returns the number of cells along each axis.
func (chunk *Chunk) Dims() Cell {
	return chunk.dims
}

func (chunk *Chunk) CellCount() int {
	return chunk.dims[0] * chunk.dims[1] * chunk.dims[2] * chunk.dims[3]
}

func (chunk *Chunk) PresentCount() int {
	return chunk.presentCount
}

func (chunk *Chunk) InBounds(c Cell) bool {
	for axis := 0; axis < 4; axis++ {
		if c[axis] < 0 || c[axis] >= chunk.dims[axis] {
			return false
		}
	}
	return true
}

func (chunk *Chunk) IsPresent(c Cell) bool {
	if !chunk.InBounds(c) {
		return false
	}
	i := chunk.index(c)
	return chunk.bits[i/64]&(1<<(i%64)) != 0
}

// SetAt marks a cell present or absent. Out of bounds addresses are ignored
// and reported by returning false.
func (chunk *Chunk) SetAt(c Cell, present bool) bool {
	if !chunk.InBounds(c) {
		return false
	}

	i := chunk.index(c)
	mask := (uint64)(1) << (i % 64)
	wasPresent := chunk.bits[i/64]&mask != 0

	switch {
	case present && !wasPresent:
		chunk.bits[i/64] |= mask
		chunk.presentCount++
	case !present && wasPresent:
		chunk.bits[i/64] &^= mask
		chunk.presentCount--
	}
	return true
}

// LoadFromList replaces the content of the chunk with the given cells, each
// moved by offset. It returns false when at least one cell did not fit in the
// chunk; the ones that fit are loaded anyway.
func (chunk *Chunk) LoadFromList(cells []Cell, offset Cell) bool {
	chunk.Clear()

	ok := true
	for _, c := range cells {
		if !chunk.SetAt(c.Add(offset), true) {
			ok = false
		}
	}
	return ok
}

func (chunk *Chunk) Clear() {
	clear(chunk.bits)
	chunk.presentCount = 0
}

func (chunk *Chunk) Clone() *Chunk {
	clone := *chunk
	clone.bits = make([]uint64, len(chunk.bits))
	copy(clone.bits, chunk.bits)
	return &clone
}

// Cells iterates over the present cells in storage order.
func (chunk *Chunk) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for word, v := range chunk.bits {
			for v != 0 {
				bit := bits.TrailingZeros64(v)
				v &^= 1 << bit

				if !yield(chunk.cellAt(word*64 + bit)) {
					return
				}
			}
		}
	}
}

// GetRegion returns the present cells within [min, max), clamped to the chunk
// bounds.
func (chunk *Chunk) GetRegion(min Cell, max Cell) []Cell {
	for c := 0; c < 4; c++ {
		min[c] = clampInt(min[c], 0, chunk.dims[c])
		max[c] = clampInt(max[c], 0, chunk.dims[c])
	}

	var cells []Cell
	for w := min[3]; w < max[3]; w++ {
		for z := min[2]; z < max[2]; z++ {
			for y := min[1]; y < max[1]; y++ {
				for x := min[0]; x < max[0]; x++ {
					c := Cell{x, y, z, w}
					if chunk.IsPresent(c) {
						cells = append(cells, c)
					}
				}
			}
		}
	}
	return cells
}

// ToLocal converts a world position to grid-local coordinates where cell
// boundaries fall on integers.
func (chunk *Chunk) ToLocal(p Vector4f) Vector4f {
	return Div(Sub(p, chunk.Origin), chunk.CellSize)
}

func (chunk *Chunk) ToWorld(local Vector4f) Vector4f {
	return Add(Mul(local, chunk.CellSize), chunk.Origin)
}

// CellOrigin returns the world position of the lowest corner of a cell.
func (chunk *Chunk) CellOrigin(c Cell) Vector4f {
	return chunk.ToWorld(c.Min())
}

// Bounds returns the world space box covered by the chunk.
func (chunk *Chunk) Bounds() (Vector4f, Vector4f) {
	return chunk.Origin, chunk.ToWorld(chunk.dims.Min())
}

// Digest returns a Keccak-256 hash of the chunk placement and content. Two
// chunks with the same digest answer every query identically.
func (chunk *Chunk) Digest() string {
	buf := make([]byte, 0, 4*8+5*4+len(chunk.bits)*8)
	for c := 0; c < 4; c++ {
		buf = binary.LittleEndian.AppendUint64(buf, (uint64)(chunk.dims[c]))
	}
	for c := 0; c < 4; c++ {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(chunk.Origin[c]))
	}
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(chunk.CellSize))
	for _, v := range chunk.bits {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return crypto.Keccak256Hash(buf).Hex()
}

func (chunk *Chunk) GetDebugInfo() SpatialDebugInfo {
	min, max := chunk.Bounds()
	return SpatialDebugInfo{
		BoundsMin:    min,
		BoundsMax:    max,
		Dims:         chunk.dims,
		Origin:       chunk.Origin,
		CellSize:     chunk.CellSize,
		CellCount:    chunk.CellCount(),
		PresentCount: chunk.presentCount,
		Digest:       chunk.Digest(),
	}
}

func (chunk *Chunk) index(c Cell) int {
	d := chunk.dims
	return ((c[3]*d[2]+c[2])*d[1]+c[1])*d[0] + c[0]
}

func (chunk *Chunk) cellAt(i int) Cell {
	d := chunk.dims
	var c Cell
	c[0] = i % d[0]
	i /= d[0]
	c[1] = i % d[1]
	i /= d[1]
	c[2] = i % d[2]
	c[3] = i / d[2]
	return c
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
