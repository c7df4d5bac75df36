// Package level reads the description of the level played in the sessions of
// a server. A level is a YAML document, optionally zstd compressed:
//
//	name: corridor
//	origin: [0, 0, 0, 0]
//	cell_size: 0.5
//	dims: [16, 16, 4, 4]
//	ground:
//	  normal: [0, 0, 1, 0]
//	  height: 0
//	offset: [0, 0, 1, 0]
//	cells:
//	  - [0, 0, 0, 0]
//	  - [1, 0, 0, 0]
package level

import (
	"io"
	"os"
	"path/filepath"

	"github.com/aukilabs/fourd/modules/dagaz"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// ErrTypeInvalidLevel is the type of errors returned for levels that cannot be
// built.
const ErrTypeInvalidLevel = "invalid_level"

// Level is the description of a level.
type Level struct {
	Name     string    `yaml:"name"`
	Origin   []float32 `yaml:"origin"`
	CellSize float32   `yaml:"cell_size"`
	Dims     []int     `yaml:"dims"`
	Ground   Ground    `yaml:"ground"`
	Offset   []int     `yaml:"offset"`
	Cells    [][]int   `yaml:"cells"`
}

type Ground struct {
	Normal []float32 `yaml:"normal"`
	Height float32   `yaml:"height"`
}

// Load reads the level stored in the given file. Files with a .zst extension
// are decompressed with zstd.
func Load(path string) (Level, error) {
	f, err := os.Open(path)
	if err != nil {
		return Level{}, errors.New("opening level file failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	var r io.Reader = f

	if filepath.Ext(path) == ".zst" {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return Level{}, errors.New("creating zstd reader failed").
				WithTag("path", path).
				Wrap(err)
		}
		defer dec.Close()

		r = dec
	}

	l, err := Decode(r)
	if err != nil {
		return Level{}, errors.New("loading level failed").
			WithTag("path", path).
			Wrap(err)
	}
	return l, nil
}

// Decode reads a YAML level and validates it.
func Decode(r io.Reader) (Level, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var l Level
	if err := dec.Decode(&l); err != nil {
		return Level{}, errors.New("decoding level failed").
			WithType(ErrTypeInvalidLevel).
			Wrap(err)
	}

	if err := l.Validate(); err != nil {
		return Level{}, err
	}
	return l, nil
}

// Validate checks that the level describes a chunk where all of its cells
// fit.
func (l Level) Validate() error {
	if err := checkLen("origin", len(l.Origin), true); err != nil {
		return err
	}

	if err := checkLen("dims", len(l.Dims), false); err != nil {
		return err
	}
	for _, d := range l.Dims {
		if d <= 0 {
			return errors.New("level dims must be positive").
				WithType(ErrTypeInvalidLevel).
				WithTag("dims", l.Dims)
		}
	}

	if _, ok := dagaz.CellCountOf(toCell(l.Dims)); !ok {
		return errors.New("level has too many cells").
			WithType(ErrTypeInvalidLevel).
			WithTag("dims", l.Dims).
			WithTag("max_cell_count", dagaz.MaxCellCount)
	}

	if l.CellSize < 0 {
		return errors.New("level cell size must be positive").
			WithType(ErrTypeInvalidLevel).
			WithTag("cell_size", l.CellSize)
	}

	if err := checkLen("ground normal", len(l.Ground.Normal), true); err != nil {
		return err
	}
	if len(l.Ground.Normal) != 0 && toVector(l.Ground.Normal).IsZero() {
		return errors.New("level ground normal is zero").
			WithType(ErrTypeInvalidLevel)
	}

	if err := checkLen("offset", len(l.Offset), true); err != nil {
		return err
	}

	chunk := dagaz.NewChunk(dagaz.Vector4f{}, 1, toCell(l.Dims))
	offset := toCell(l.Offset)

	for i, c := range l.Cells {
		if len(c) != 4 {
			return errors.New("level cell must have 4 coordinates").
				WithType(ErrTypeInvalidLevel).
				WithTag("index", i).
				WithTag("cell", c)
		}

		if cell := toCell(c).Add(offset); !chunk.InBounds(cell) {
			return errors.New("level cell is out of range").
				WithType(ErrTypeInvalidLevel).
				WithTag("index", i).
				WithTag("cell", cell).
				WithTag("dims", l.Dims)
		}
	}
	return nil
}

// Chunk builds the chunk described by the level.
func (l Level) Chunk() *dagaz.Chunk {
	cellSize := l.CellSize
	if cellSize == 0 {
		cellSize = 1
	}

	chunk := dagaz.NewChunk(toVector(l.Origin), cellSize, toCell(l.Dims))

	cells := make([]dagaz.Cell, len(l.Cells))
	for i, c := range l.Cells {
		cells[i] = toCell(c)
	}
	chunk.LoadFromList(cells, toCell(l.Offset))
	return chunk
}

// GroundPlane returns the ground plane of the level. Levels without a ground
// normal use the default ground, raised to the given height.
func (l Level) GroundPlane() dagaz.Ground {
	ground := dagaz.DefaultGround()
	if len(l.Ground.Normal) != 0 {
		ground.Normal = dagaz.Normalized(toVector(l.Ground.Normal))
	}
	ground.Height = l.Ground.Height
	return ground
}

func checkLen(field string, n int, optional bool) error {
	if n == 4 || (optional && n == 0) {
		return nil
	}

	return errors.New("level field must have 4 components").
		WithType(ErrTypeInvalidLevel).
		WithTag("field", field).
		WithTag("len", n)
}

func toVector(v []float32) dagaz.Vector4f {
	var res dagaz.Vector4f
	copy(res[:], v)
	return res
}

func toCell(v []int) dagaz.Cell {
	var res dagaz.Cell
	copy(res[:], v)
	return res
}
