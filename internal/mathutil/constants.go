package mathutil

import "math"

// Float32Epsilon is the comparison tolerance used throughout the compiler.
const Float32Epsilon = 1.1920929e-07

// Preview camera matrices. Engine space is Z-up; the rasterizer expects Y-up.
var (
	// ModelFlip converts Z-up to Y-up: Rx(-90°)
	ModelFlip = RotX(math.Pi / -2)

	// PreviewView looks at the model's front from slightly above.
	// Rx(-15°) @ Ry(30°) @ MODEL_FLIP
	PreviewView = Mat3Mul(Mat3Mul(RotX(Deg2Rad(-15)), RotY(Deg2Rad(30))), ModelFlip)
)
