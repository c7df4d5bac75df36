package dagaz

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// EdgeEpsilon is the tolerance used wherever inclusion on a cell or box
// boundary matters.
const EdgeEpsilon = (float32)(0.000001)

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return scalar.EqualWithinAbs((float64)(a), (float64)(b), epsilon)
}

// Vector4f is a position, a ray (direction * length) or a normal in 4D. Axis 0
// to 3 are x, y, z and w.
type Vector4f [4]float32

func NewVector4f(x, y, z, w float32) Vector4f {
	return Vector4f{x, y, z, w}
}

func (v Vector4f) X() float32 { return v[0] }
func (v Vector4f) Y() float32 { return v[1] }
func (v Vector4f) Z() float32 { return v[2] }
func (v Vector4f) W() float32 { return v[3] }

func (v1 Vector4f) EqualWithEpsilon(v2 Vector4f, epsilon float64) bool {
	for c := 0; c < 4; c++ {
		if !EqualWithEpsilon(v1[c], v2[c], epsilon) {
			return false
		}
	}
	return true
}

func (v1 Vector4f) Equal(v2 Vector4f) bool {
	return v1 == v2
}

func (v1 Vector4f) GreaterOrEqualThan(v2 Vector4f) bool {
	return v1[0] >= v2[0] && v1[1] >= v2[1] && v1[2] >= v2[2] && v1[3] >= v2[3]
}

func (v1 Vector4f) LesserOrEqualThan(v2 Vector4f) bool {
	return v1[0] <= v2[0] && v1[1] <= v2[1] && v1[2] <= v2[2] && v1[3] <= v2[3]
}

func Add(a Vector4f, b Vector4f) Vector4f {
	return Vector4f{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func Sub(a Vector4f, b Vector4f) Vector4f {
	return Vector4f{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func Mul(a Vector4f, s float32) Vector4f {
	return Vector4f{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

// Div divides every component by s. Callers guarantee s != 0.
func Div(a Vector4f, s float32) Vector4f {
	return Vector4f{a[0] / s, a[1] / s, a[2] / s, a[3] / s}
}

func Neg(a Vector4f) Vector4f {
	return Vector4f{-a[0], -a[1], -a[2], -a[3]}
}

func (a Vector4f) Dot(b Vector4f) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

func (a Vector4f) Length() float64 {
	var sum float64
	for c := 0; c < 4; c++ {
		sum += (float64)(a[c]) * (float64)(a[c])
	}
	return math.Sqrt(sum)
}

func (a Vector4f) IsZero() bool {
	return a == Vector4f{}
}

// Normalized returns a unit length copy of a. The zero vector is returned
// unchanged.
func Normalized(a Vector4f) Vector4f {
	length := a.Length()
	if length == 0 {
		return a
	}

	var result Vector4f
	for c := 0; c < 4; c++ {
		result[c] = (float32)((float64)(a[c]) / length)
	}
	return result
}
