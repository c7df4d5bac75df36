package level

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aukilabs/fourd/modules/dagaz"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

const testLevel = `
name: corridor
origin: [1, 0, 0, 0]
cell_size: 0.5
dims: [4, 4, 2, 2]
ground:
  normal: [0, 0, 2, 0]
  height: 0.5
offset: [1, 0, 0, 0]
cells:
  - [0, 0, 0, 0]
  - [1, 2, 1, 1]
`

func TestDecode(t *testing.T) {
	l, err := Decode(strings.NewReader(testLevel))
	require.NoError(t, err)
	require.Equal(t, "corridor", l.Name)

	chunk := l.Chunk()
	require.Equal(t, dagaz.Cell{4, 4, 2, 2}, chunk.Dims())
	require.Equal(t, dagaz.NewVector4f(1, 0, 0, 0), chunk.Origin)
	require.Equal(t, float32(0.5), chunk.CellSize)

	var cells []dagaz.Cell
	for c := range chunk.Cells() {
		cells = append(cells, c)
	}
	if diff := cmp.Diff([]dagaz.Cell{{1, 0, 0, 0}, {2, 2, 1, 1}}, cells); diff != "" {
		t.Fatalf("unexpected cells (-want +got):\n%s", diff)
	}

	ground := l.GroundPlane()
	require.Equal(t, dagaz.NewVector4f(0, 0, 1, 0), ground.Normal)
	require.Equal(t, float32(0.5), ground.Height)
}

func TestDecodeDefaults(t *testing.T) {
	l, err := Decode(strings.NewReader("dims: [2, 2, 2, 2]\n"))
	require.NoError(t, err)

	chunk := l.Chunk()
	require.Equal(t, float32(1), chunk.CellSize)
	require.Equal(t, dagaz.Vector4f{}, chunk.Origin)
	require.Zero(t, chunk.PresentCount())
	require.Equal(t, dagaz.DefaultGround(), l.GroundPlane())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		scenario string
		level    string
	}{
		{
			scenario: "invalid yaml",
			level:    "dims: [2, 2",
		},
		{
			scenario: "unknown field",
			level:    "dims: [2, 2, 2, 2]\ncolor: red\n",
		},
		{
			scenario: "missing dims",
			level:    "cell_size: 1\n",
		},
		{
			scenario: "3d dims",
			level:    "dims: [2, 2, 2]\n",
		},
		{
			scenario: "zero dim",
			level:    "dims: [2, 0, 2, 2]\n",
		},
		{
			scenario: "cell count overflow",
			level:    "dims: [65536, 65536, 65536, 65536]\n",
		},
		{
			scenario: "too many cells",
			level:    "dims: [2000, 2000, 2000, 2000]\n",
		},
		{
			scenario: "negative cell size",
			level:    "dims: [2, 2, 2, 2]\ncell_size: -1\n",
		},
		{
			scenario: "zero ground normal",
			level:    "dims: [2, 2, 2, 2]\nground:\n  normal: [0, 0, 0, 0]\n",
		},
		{
			scenario: "cell with 3 coordinates",
			level:    "dims: [2, 2, 2, 2]\ncells:\n  - [0, 0, 0]\n",
		},
		{
			scenario: "cell out of range",
			level:    "dims: [2, 2, 2, 2]\ncells:\n  - [2, 0, 0, 0]\n",
		},
		{
			scenario: "cell moved out of range",
			level:    "dims: [2, 2, 2, 2]\noffset: [0, 0, 0, -1]\ncells:\n  - [0, 0, 0, 0]\n",
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			_, err := Decode(strings.NewReader(test.level))
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeInvalidLevel))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "level.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testLevel), 0o644))

		l, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 2, l.Chunk().PresentCount())
	})

	t.Run("compressed file", func(t *testing.T) {
		path := filepath.Join(dir, "level.yaml.zst")

		f, err := os.Create(path)
		require.NoError(t, err)

		enc, err := zstd.NewWriter(f)
		require.NoError(t, err)
		_, err = enc.Write([]byte(testLevel))
		require.NoError(t, err)
		require.NoError(t, enc.Close())
		require.NoError(t, f.Close())

		l, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "corridor", l.Name)
		require.Equal(t, 2, l.Chunk().PresentCount())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
	})
}
