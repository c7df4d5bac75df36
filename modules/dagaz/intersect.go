package dagaz

import "math"

// Hit describes where a ray segment enters a shape.
type Hit struct {
	// Distance from the ray start to Point, in the units of the ray itself.
	Distance float32
	Point    Vector4f

	// Outward normal of the face the ray entered through. Zero when the ray
	// starts inside the shape.
	Normal Vector4f
}

// Contact describes how a sphere overlaps a shape.
type Contact struct {
	Point  Vector4f
	Normal Vector4f
	Depth  float32
}

// RayToPlane intersects the segment [start, start+ray] with the plane
// dot(p, planeNormal) == planeOffset. Rays parallel to the plane and
// intersections behind the start or past the end of the segment are misses.
func RayToPlane(start Vector4f, ray Vector4f, planeNormal Vector4f, planeOffset float32) (Vector4f, float32, bool) {
	denominator := planeNormal.Dot(ray)
	if math.Abs((float64)(denominator)) <= (float64)(EdgeEpsilon) {
		return Vector4f{}, 0, false
	}

	t := (planeOffset - planeNormal.Dot(start)) / denominator
	if t < 0 || t > 1 {
		return Vector4f{}, 0, false
	}

	point := Add(start, Mul(ray, t))
	return point, t * (float32)(ray.Length()), true
}

// RayToAlignedBox intersects the segment [start, start+ray] with the axis
// aligned box [min, max] using a slab test on each of the 4 axes.
func RayToAlignedBox(min Vector4f, max Vector4f, start Vector4f, ray Vector4f) (Hit, bool) {
	tMin := 0.0
	tMax := 1.0
	enterAxis := -1

	for c := 0; c < 4; c++ {
		origin := (float64)(start[c])
		dir := (float64)(ray[c])
		lo := (float64)(min[c])
		hi := (float64)(max[c])

		if dir == 0 {
			// parallel to this slab: unconstrained inside, unreachable outside
			if origin < lo || origin > hi {
				return Hit{}, false
			}
			continue
		}

		t1 := (lo - origin) / dir
		t2 := (hi - origin) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		if t1 > tMin {
			tMin = t1
			enterAxis = c
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return Hit{}, false
		}
	}

	var hit Hit
	for c := 0; c < 4; c++ {
		hit.Point[c] = (float32)((float64)(start[c]) + (float64)(ray[c])*tMin)
	}
	hit.Distance = (float32)(tMin * ray.Length())

	if enterAxis >= 0 {
		if ray[enterAxis] > 0 {
			hit.Point[enterAxis] = min[enterAxis]
			hit.Normal[enterAxis] = -1
		} else {
			hit.Point[enterAxis] = max[enterAxis]
			hit.Normal[enterAxis] = 1
		}
	}
	return hit, true
}

// WithinBox reports whether point lies inside or on the box [min, max].
func WithinBox(min Vector4f, max Vector4f, point Vector4f) bool {
	return point.GreaterOrEqualThan(min) && point.LesserOrEqualThan(max)
}

// RayToCell intersects the segment [start, start+ray] with the unit cell at
// the given grid-local address.
func RayToCell(cell Cell, start Vector4f, ray Vector4f) (Hit, bool) {
	return RayToAlignedBox(cell.Min(), cell.Max(), start, ray)
}

// SphereToPlane tests a sphere against the half-space below the plane
// dot(p, planeNormal) == planeOffset. The returned point is the sphere centre
// projected on the plane.
func SphereToPlane(pos Vector4f, radius float32, planeNormal Vector4f, planeOffset float32) (Vector4f, bool) {
	distance := planeNormal.Dot(pos) - planeOffset
	if distance >= radius+EdgeEpsilon {
		return Vector4f{}, false
	}
	return Sub(pos, Mul(planeNormal, distance)), true
}

// SphereToAlignedBox tests a sphere against the box [min, max] using the
// closest point of the box to the sphere centre.
func SphereToAlignedBox(min Vector4f, max Vector4f, pos Vector4f, radius float32) (Contact, bool) {
	closest := pos
	inside := true
	for c := 0; c < 4; c++ {
		if closest[c] < min[c] {
			closest[c] = min[c]
			inside = false
		} else if closest[c] > max[c] {
			closest[c] = max[c]
			inside = false
		}
	}

	if inside {
		axis, depth, normalSign := nearestFace(min, max, pos)
		contact := Contact{
			Point: pos,
			Depth: depth + radius,
		}
		contact.Normal[axis] = normalSign
		if normalSign < 0 {
			contact.Point[axis] = min[axis]
		} else {
			contact.Point[axis] = max[axis]
		}
		return contact, true
	}

	delta := Sub(pos, closest)
	distance := (float32)(delta.Length())
	if distance > radius+EdgeEpsilon {
		return Contact{}, false
	}

	return Contact{
		Point:  closest,
		Normal: Div(delta, distance),
		Depth:  radius - distance,
	}, true
}

// SphereToAlignedBoxMinkowski tests the sphere centre against the box grown by
// the radius on every side. Corners are treated as square, which makes this
// cheaper and slightly more generous than SphereToAlignedBox.
func SphereToAlignedBoxMinkowski(min Vector4f, max Vector4f, pos Vector4f, radius float32) (Contact, bool) {
	grow := Vector4f{radius, radius, radius, radius}
	grownMin := Sub(min, grow)
	grownMax := Add(max, grow)
	if !WithinBox(grownMin, grownMax, pos) {
		return Contact{}, false
	}

	axis, depth, normalSign := nearestFace(grownMin, grownMax, pos)

	point := pos
	for c := 0; c < 4; c++ {
		point[c] = clamp(point[c], min[c], max[c])
	}

	contact := Contact{
		Point: point,
		Depth: depth,
	}
	contact.Normal[axis] = normalSign
	return contact, true
}

// nearestFace returns the axis and distance of the box face closest to a point
// inside the box, with the sign of that face's outward normal.
func nearestFace(min Vector4f, max Vector4f, pos Vector4f) (int, float32, float32) {
	axis := 0
	depth := (float32)(math.MaxFloat32)
	normalSign := (float32)(-1)

	for c := 0; c < 4; c++ {
		if d := pos[c] - min[c]; d < depth {
			axis = c
			depth = d
			normalSign = -1
		}
		if d := max[c] - pos[c]; d < depth {
			axis = c
			depth = d
			normalSign = 1
		}
	}
	return axis, depth, normalSign
}

func clamp(v float32, min float32, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
