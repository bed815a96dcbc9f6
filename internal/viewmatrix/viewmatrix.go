// Package viewmatrix places the preview camera around a compiled model.
package viewmatrix

import (
	"math"

	"mdl-compiler/internal/mathutil"
)

const (
	DefaultYaw   = 35.0
	DefaultPitch = 15.0
	DefaultFOV   = 40.0
)

// engineToView maps engine space (X forward, Y left, Z up) to view space
// (X right, Y up, Z toward the viewer) for a camera standing in front of the
// model.
var engineToView = mathutil.Mat3{
	0, 1, 0,
	0, 0, 1,
	1, 0, 0,
}

// Camera orbits the model. Angles are in degrees.
type Camera struct {
	Yaw         float64
	Pitch       float64
	Perspective bool
	FOV         float64
}

// DefaultCamera looks at the model's front-left from slightly above.
func DefaultCamera() Camera {
	return Camera{Yaw: DefaultYaw, Pitch: DefaultPitch}
}

// Matrix turns the model by yaw about its up axis, moves it into view space
// and tilts it by pitch.
func (c Camera) Matrix() mathutil.Mat3 {
	yaw := mathutil.RotZ(mathutil.Deg2Rad(c.Yaw))
	pitch := mathutil.RotX(mathutil.Deg2Rad(c.Pitch))
	return mathutil.Mat3Mul(pitch, mathutil.Mat3Mul(engineToView, yaw))
}

// ProjectVertices transforms vertices to screen coordinates.
// Returns px, py, pz slices (screen X, screen Y, depth).
func ProjectVertices(verts []mathutil.Vec3, R mathutil.Mat3, center mathutil.Vec3, scale float64, renderSize int, cam Camera) ([]float64, []float64, []float64) {
	n := len(verts)
	px := make([]float64, n)
	py := make([]float64, n)
	pz := make([]float64, n)

	half := float64(renderSize) / 2

	var perspCamDist, perspZCenter float64
	if cam.Perspective {
		fov := cam.FOV
		if fov == 0 {
			fov = DefaultFOV
		}
		halfFOV := mathutil.Deg2Rad(fov / 2)

		// z range and xy half-extent of the transformed vertices
		zMin, zMax, xyMax := math.Inf(1), math.Inf(-1), 0.0
		for _, v := range verts {
			t := R.MulVec3(v)
			zMin = math.Min(zMin, t[2])
			zMax = math.Max(zMax, t[2])
			for k := 0; k < 2; k++ {
				xyMax = math.Max(xyMax, math.Abs(t[k]-center[k]))
			}
		}
		perspZCenter = (zMin + zMax) / 2
		if xyMax < 0.001 {
			xyMax = 0.001
		}
		perspCamDist = xyMax / math.Tan(halfFOV)
	}

	for i, v := range verts {
		t := R.MulVec3(v)
		if cam.Perspective {
			zOff := t[2] - perspZCenter
			depth := math.Max(perspCamDist-zOff, 0.1)
			factor := perspCamDist / depth
			t[0] *= factor
			t[1] *= factor
		}

		px[i] = (t[0]-center[0])*scale + half
		py[i] = -(t[1]-center[1])*scale + half
		pz[i] = t[2]
	}

	return px, py, pz
}
