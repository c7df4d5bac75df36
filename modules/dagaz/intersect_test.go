package dagaz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRayToPlane(t *testing.T) {
	groundNormal := Vector4f{0, 0, 1, 0}

	tests := []struct {
		name             string
		start            Vector4f
		ray              Vector4f
		expectedHit      bool
		expectedPoint    Vector4f
		expectedDistance float32
	}{
		{
			name:             "straight down",
			start:            Vector4f{1, 1, 1, 1},
			ray:              Vector4f{0, 0, -10, 0},
			expectedHit:      true,
			expectedPoint:    Vector4f{1, 1, 0, 1},
			expectedDistance: 1,
		},
		{
			name:             "slanted",
			start:            Vector4f{10, 0, 3, 0},
			ray:              Vector4f{8, 0, -6, 0},
			expectedHit:      true,
			expectedPoint:    Vector4f{14, 0, 0, 0},
			expectedDistance: 5,
		},
		{
			name:  "segment too short",
			start: Vector4f{20, 0, 11, 0},
			ray:   Vector4f{0, 0, -10, 0},
		},
		{
			name:  "parallel",
			start: Vector4f{0, 0, 1, 0},
			ray:   Vector4f{10, 0, 0, 10},
		},
		{
			name:  "pointing away",
			start: Vector4f{0, 0, 1, 0},
			ray:   Vector4f{0, 0, 10, 0},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			point, distance, hit := RayToPlane(test.start, test.ray, groundNormal, 0)
			require.Equal(t, test.expectedHit, hit)
			if !hit {
				return
			}
			require.True(t, point.EqualWithEpsilon(test.expectedPoint, 0.0001))
			require.InDelta(t, test.expectedDistance, distance, 0.0001)
		})
	}
}

func TestRayToAlignedBox(t *testing.T) {
	min := Vector4f{0, 0, 0, 0}
	max := Vector4f{1, 1, 1, 1}

	tests := []struct {
		name     string
		start    Vector4f
		ray      Vector4f
		expected Hit
		hit      bool
	}{
		{
			name:  "entering through min x",
			start: Vector4f{-1, 0.5, 0.5, 0.5},
			ray:   Vector4f{2, 0, 0, 0},
			expected: Hit{
				Distance: 1,
				Point:    Vector4f{0, 0.5, 0.5, 0.5},
				Normal:   Vector4f{-1, 0, 0, 0},
			},
			hit: true,
		},
		{
			name:  "entering through max w",
			start: Vector4f{0.5, 0.5, 0.5, 3},
			ray:   Vector4f{0, 0, 0, -4},
			expected: Hit{
				Distance: 2,
				Point:    Vector4f{0.5, 0.5, 0.5, 1},
				Normal:   Vector4f{0, 0, 0, 1},
			},
			hit: true,
		},
		{
			name:  "starting inside",
			start: Vector4f{0.5, 0.5, 0.5, 0.5},
			ray:   Vector4f{1, 0, 0, 0},
			expected: Hit{
				Point: Vector4f{0.5, 0.5, 0.5, 0.5},
			},
			hit: true,
		},
		{
			name:  "parallel outside the slab",
			start: Vector4f{0.5, 2, 0.5, 0.5},
			ray:   Vector4f{1, 0, 0, 0},
		},
		{
			name:  "segment too short",
			start: Vector4f{-2, 0.5, 0.5, 0.5},
			ray:   Vector4f{1, 0, 0, 0},
		},
		{
			name:  "passing by",
			start: Vector4f{-1, 2, 0.5, 0.5},
			ray:   Vector4f{3, 0.5, 0, 0},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			hit, ok := RayToAlignedBox(min, max, test.start, test.ray)
			require.Equal(t, test.hit, ok)
			if !ok {
				return
			}
			require.InDelta(t, test.expected.Distance, hit.Distance, 0.0001)
			require.True(t, hit.Point.EqualWithEpsilon(test.expected.Point, 0.0001))
			require.Equal(t, test.expected.Normal, hit.Normal)
		})
	}
}

func TestWithinBox(t *testing.T) {
	min := Vector4f{0, 0, 0, 0}
	max := Vector4f{1, 1, 1, 1}

	require.True(t, WithinBox(min, max, Vector4f{0.5, 0.5, 0.5, 0.5}))
	require.True(t, WithinBox(min, max, min))
	require.True(t, WithinBox(min, max, max))
	require.False(t, WithinBox(min, max, Vector4f{0.5, 0.5, 0.5, 1.1}))
	require.False(t, WithinBox(min, max, Vector4f{-0.1, 0.5, 0.5, 0.5}))
}

func TestRayToCell(t *testing.T) {
	hit, ok := RayToCell(Cell{2, 0, 0, 0}, Vector4f{0.5, 0.5, 0.5, 0.5}, Vector4f{4, 0, 0, 0})
	require.True(t, ok)
	require.Equal(t, Vector4f{2, 0.5, 0.5, 0.5}, hit.Point)
	require.InDelta(t, 1.5, hit.Distance, 0.0001)

	_, ok = RayToCell(Cell{2, 1, 0, 0}, Vector4f{0.5, 0.5, 0.5, 0.5}, Vector4f{4, 0, 0, 0})
	require.False(t, ok)
}

func TestSphereToPlane(t *testing.T) {
	groundNormal := Vector4f{0, 0, 1, 0}

	point, ok := SphereToPlane(Vector4f{1, 2, 0.5, 3}, 1, groundNormal, 0)
	require.True(t, ok)
	require.Equal(t, Vector4f{1, 2, 0, 3}, point)

	_, ok = SphereToPlane(Vector4f{1, 2, 2, 3}, 1, groundNormal, 0)
	require.False(t, ok)

	_, ok = SphereToPlane(Vector4f{1, 2, 2, 3}, 1, groundNormal, 1.5)
	require.True(t, ok)
}

func TestSphereToAlignedBox(t *testing.T) {
	min := Vector4f{0, 0, 0, 0}
	max := Vector4f{1, 1, 1, 1}

	t.Run("touching a face", func(t *testing.T) {
		contact, ok := SphereToAlignedBox(min, max, Vector4f{1.5, 0.5, 0.5, 0.5}, 1)
		require.True(t, ok)
		require.Equal(t, Vector4f{1, 0.5, 0.5, 0.5}, contact.Point)
		require.True(t, contact.Normal.EqualWithEpsilon(Vector4f{1, 0, 0, 0}, 0.0001))
		require.InDelta(t, 0.5, contact.Depth, 0.0001)
	})

	t.Run("centre inside", func(t *testing.T) {
		contact, ok := SphereToAlignedBox(min, max, Vector4f{0.5, 0.5, 0.5, 0.9}, 0.25)
		require.True(t, ok)
		require.Equal(t, Vector4f{0, 0, 0, 1}, contact.Normal)
		require.Equal(t, (float32)(1), contact.Point.W())
		require.InDelta(t, 0.35, contact.Depth, 0.0001)
	})

	t.Run("too far", func(t *testing.T) {
		_, ok := SphereToAlignedBox(min, max, Vector4f{2, 2, 0.5, 0.5}, 1)
		require.False(t, ok)
	})
}

func TestSphereToAlignedBoxMinkowski(t *testing.T) {
	min := Vector4f{0, 0, 0, 0}
	max := Vector4f{1, 1, 1, 1}

	contact, ok := SphereToAlignedBoxMinkowski(min, max, Vector4f{1.5, 0.5, 0.5, 0.5}, 1)
	require.True(t, ok)
	require.Equal(t, Vector4f{1, 0.5, 0.5, 0.5}, contact.Point)
	require.Equal(t, Vector4f{1, 0, 0, 0}, contact.Normal)
	require.InDelta(t, 0.5, contact.Depth, 0.0001)

	// Square corners: the closest point test misses this one.
	_, ok = SphereToAlignedBox(min, max, Vector4f{1.8, 1.8, 0.5, 0.5}, 1)
	require.False(t, ok)
	_, ok = SphereToAlignedBoxMinkowski(min, max, Vector4f{1.8, 1.8, 0.5, 0.5}, 1)
	require.True(t, ok)

	_, ok = SphereToAlignedBoxMinkowski(min, max, Vector4f{3, 0.5, 0.5, 0.5}, 1)
	require.False(t, ok)
}
