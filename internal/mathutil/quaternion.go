package mathutil

import "math"

// Quat represents a quaternion (x, y, z, w).
type Quat [4]float64

// QuatIdentity is the rotation that does nothing.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
// rx is roll, ry pitch and rz yaw.
func EulerToQuat(rx, ry, rz float64) Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return Quat{
		sx*cy*cz - cx*sy*sz, // x
		cx*sy*cz + sx*cy*sz, // y
		cx*cy*sz - sx*sy*cz, // z
		cx*cy*cz + sx*sy*sz, // w
	}
}

// QuatToMat3 converts a quaternion to a 3×3 rotation matrix.
func QuatToMat3(q Quat) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

func (q Quat) Len() float64 {
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
}

// Normalize returns the unit quaternion. A zero quaternion becomes identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l < 2.220446049250313e-16 {
		return QuatIdentity()
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// ToAngles converts to roll/pitch/yaw. Pitch is clamped to ±π/2 at the poles.
func (q Quat) ToAngles() Angles {
	x, y, z, w := q[0], q[1], q[2], q[3]

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinPitch := 2 * (w*y - z*x)
	var pitch float64
	if math.Abs(sinPitch) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinPitch)
	} else {
		pitch = math.Asin(sinPitch)
	}

	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Angles{roll, pitch, yaw}
}
