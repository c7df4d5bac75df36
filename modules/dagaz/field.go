package dagaz

type SpatialDebugInfo struct {
	Dims         Cell
	Origin       Vector4f
	CellSize     float32
	CellCount    int
	PresentCount int
	Digest       string
	BoundsMin    Vector4f
	BoundsMax    Vector4f
}

// CellField is the read side of a grid: the traversal kernel and any renderer
// only need to know whether a cell is present. Addresses outside the field are
// absent.
type CellField interface {
	IsPresent(c Cell) bool
}
