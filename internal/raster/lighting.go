package raster

import (
	"math"

	"mdl-compiler/internal/mathutil"
)

const gamma = 2.2

// Light shades faces with a key light, a back rim light, a sky/ground
// ambient split and one specular lobe. Directions are view space unit
// vectors; the camera looks down -Z.
type Light struct {
	Key mathutil.Vec3
	Rim mathutil.Vec3

	Sky, Ground float64
	KeyStrength float64
	RimStrength float64
	Specular    float64
	Shininess   float64
	Exposure    float64

	half mathutil.Vec3
}

// NewLight returns the preview rig: key from the upper right, rim from
// behind on the left.
func NewLight() *Light {
	l := &Light{
		Key:         mathutil.Vec3{0.5, 0.7, 0.5}.Normalize(),
		Rim:         mathutil.Vec3{-0.4, 0.3, -0.8}.Normalize(),
		Sky:         0.9,
		Ground:      0.5,
		KeyStrength: 1.4,
		RimStrength: 0.5,
		Specular:    0.35,
		Shininess:   16,
		Exposure:    1,
	}
	l.half = l.Key.Add(mathutil.Vec3{0, 0, 1}).Normalize()
	return l
}

// Shade returns the light reaching a face with unit normal n. Faces are
// lit from both sides.
func (l *Light) Shade(n mathutil.Vec3) float64 {
	up := (n[1] + 1) / 2
	ambient := l.Ground + (l.Sky-l.Ground)*up
	diffuse := math.Abs(n.Dot(l.Key))*l.KeyStrength + math.Abs(n.Dot(l.Rim))*l.RimStrength
	spec := math.Pow(math.Max(n.Dot(l.half), 0), l.Shininess) * l.Specular
	return (ambient + diffuse + spec) * l.Exposure
}

// Apply lights one sRGB channel by shade and maps it back through the
// tone curve.
func (l *Light) Apply(c uint8, shade float64) uint8 {
	return clamp255(math.Pow(aces(linear[c]*shade), 1/gamma) * 255)
}

var linear [256]float64

func init() {
	for i := range linear {
		linear[i] = math.Pow(float64(i)/255, gamma)
	}
}

// aces is the filmic curve fit from Narkowicz.
func aces(x float64) float64 {
	return x * (2.51*x + 0.03) / (x*(2.43*x+0.59) + 0.14)
}

func clamp255(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
