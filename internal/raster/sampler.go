package raster

import (
	"image"
	"image/color"
	"math"
)

// wrap maps a texture coordinate into [0, 1).
func wrap(t float64) float64 {
	t -= math.Floor(t)
	if t >= 1 {
		return 0
	}
	return t
}

// SampleTexture filters bilinearly with repeating UVs. V grows downward, as
// stored in the vertex file. Reads tex.Pix directly.
func SampleTexture(tex *image.NRGBA, u, v float64) color.NRGBA {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()

	fx := wrap(u) * float64(w-1)
	fy := wrap(v) * float64(h-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := (x0 + 1) % w
	y1 := (y0 + 1) % h
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	pix := tex.Pix
	i00 := y0*tex.Stride + x0*4
	i10 := y0*tex.Stride + x1*4
	i01 := y1*tex.Stride + x0*4
	i11 := y1*tex.Stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var out [4]uint8
	for c := 0; c < 4; c++ {
		f := float64(pix[i00+c])*w00 + float64(pix[i10+c])*w10 + float64(pix[i01+c])*w01 + float64(pix[i11+c])*w11
		out[c] = uint8(f + 0.5)
	}
	return color.NRGBA{out[0], out[1], out[2], out[3]}
}
