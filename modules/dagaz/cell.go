package dagaz

import "math"

// Cell is the address of one unit hyper-cube of the grid. Addresses are not
// range checked, a Chunk decides whether an address is inside its bounds.
type Cell [4]int

func NewCell(x, y, z, w int) Cell {
	return Cell{x, y, z, w}
}

// CellFromPosition returns the cell containing p, flooring each component.
func CellFromPosition(p Vector4f) Cell {
	var c Cell
	for axis := 0; axis < 4; axis++ {
		c[axis] = (int)(math.Floor((float64)(p[axis])))
	}
	return c
}

func (c Cell) X() int { return c[0] }
func (c Cell) Y() int { return c[1] }
func (c Cell) Z() int { return c[2] }
func (c Cell) W() int { return c[3] }

func (c Cell) Add(offset Cell) Cell {
	return Cell{c[0] + offset[0], c[1] + offset[1], c[2] + offset[2], c[3] + offset[3]}
}

// Min returns the lowest corner of the cell in grid-local coordinates.
func (c Cell) Min() Vector4f {
	return Vector4f{(float32)(c[0]), (float32)(c[1]), (float32)(c[2]), (float32)(c[3])}
}

// Max returns the highest corner of the cell in grid-local coordinates.
func (c Cell) Max() Vector4f {
	return Vector4f{(float32)(c[0] + 1), (float32)(c[1] + 1), (float32)(c[2] + 1), (float32)(c[3] + 1)}
}
