package mathutil

import "math"

// Angles holds roll, pitch and yaw in radians about X, Y and Z.
type Angles [3]float64

// ToQuat converts the Euler angles to a quaternion.
func (a Angles) ToQuat() Quat {
	return EulerToQuat(a[0], a[1], a[2])
}

// Sub returns a - b without wrapping.
func (a Angles) Sub(b Angles) Angles {
	return Angles{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Normalize wraps every component into [-π, π].
func (a Angles) Normalize() Angles {
	return Angles{wrapPi(a[0]), wrapPi(a[1]), wrapPi(a[2])}
}

func wrapPi(v float64) float64 {
	v = math.Mod(v, 2*math.Pi)
	if v > math.Pi {
		return v - 2*math.Pi
	}
	if v < -math.Pi {
		return v + 2*math.Pi
	}
	return v
}

// RotX returns a 3×3 rotation matrix around the X axis. Angle in radians.
func RotX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

// RotY returns a 3×3 rotation matrix around the Y axis.
func RotY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

// RotZ returns a 3×3 rotation matrix around the Z axis.
func RotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}
