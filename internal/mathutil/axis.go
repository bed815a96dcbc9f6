package mathutil

import (
	"fmt"
	"strings"
)

// AxisDirection names one of the six signed coordinate axes.
type AxisDirection int

const (
	PositiveX AxisDirection = iota
	NegativeX
	PositiveY
	NegativeY
	PositiveZ
	NegativeZ
)

// Engine basis: Z up, facing -Y.
const (
	EngineUp      = PositiveZ
	EngineForward = NegativeY
)

var axisNames = [...]string{"+x", "-x", "+y", "-y", "+z", "-z"}

func (a AxisDirection) String() string {
	if a < 0 || int(a) >= len(axisNames) {
		return fmt.Sprintf("AxisDirection(%d)", int(a))
	}
	return axisNames[a]
}

// ParseAxis accepts "+x", "x", "-Y" and so on.
func ParseAxis(s string) (AxisDirection, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 {
		s = "+" + s
	}
	for i, n := range axisNames {
		if n == s {
			return AxisDirection(i), nil
		}
	}
	return 0, fmt.Errorf("mathutil: unknown axis %q", s)
}

// Vector returns the unit vector of the axis.
func (a AxisDirection) Vector() Vec3 {
	switch a {
	case PositiveX:
		return Vec3{1, 0, 0}
	case NegativeX:
		return Vec3{-1, 0, 0}
	case PositiveY:
		return Vec3{0, 1, 0}
	case NegativeY:
		return Vec3{0, -1, 0}
	case PositiveZ:
		return Vec3{0, 0, 1}
	default:
		return Vec3{0, 0, -1}
	}
}

// IsParallel reports whether a and b lie on the same line.
func (a AxisDirection) IsParallel(b AxisDirection) bool {
	return a.Vector().Cross(b.Vector()).LenSq() < 1e-12
}

// Basis returns the orthonormal frame whose columns are right, forward and up.
func Basis(up, forward AxisDirection) Mat3 {
	u, f := up.Vector(), forward.Vector()
	r := f.Cross(u)
	return Mat3{
		r[0], f[0], u[0],
		r[1], f[1], u[1],
		r[2], f[2], u[2],
	}
}

// Correction maps coordinates authored with the given up and forward axes
// into the engine basis.
func Correction(up, forward AxisDirection) Mat3 {
	return Mat3Mul(Basis(EngineUp, EngineForward), Basis(up, forward).Transpose())
}
