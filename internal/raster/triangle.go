package raster

import (
	"image"
	"image/color"
	"math"

	"mdl-compiler/internal/mathutil"
)

// Projected holds screen space vertices of one mesh: X and Y in pixels,
// Z growing toward the camera.
type Projected struct {
	X, Y, Z []float64
	UV      []mathutil.Vec2
}

func (p *Projected) point(i int) mathutil.Vec3 {
	return mathutil.Vec3{p.X[i], p.Y[i], p.Z[i]}
}

// Surface is what a triangle is filled with. Texture may be nil.
type Surface struct {
	Texture *image.NRGBA
	Color   color.NRGBA
}

// alphaCutoff drops nearly transparent texels instead of blending them.
const alphaCutoff = 8

// RasterizeTriangle fills the triangle vi of p into fb with depth testing
// and flat lighting. Nothing in the pixel loop allocates.
func RasterizeTriangle(fb *FrameBuffer, p *Projected, vi [3]int, s Surface, light *Light) {
	for _, i := range vi {
		if i < 0 || i >= len(p.X) {
			return
		}
	}
	a, b, c := p.point(vi[0]), p.point(vi[1]), p.point(vi[2])

	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() < 1e-8 {
		return
	}
	shade := light.Shade(n.Normalize())

	lo := a.Min(b).Min(c)
	hi := a.Max(b).Max(c)
	x0, x1 := max(int(lo[0]), 0), min(int(hi[0])+1, fb.Width-1)
	y0, y1 := max(int(lo[1]), 0), min(int(hi[1])+1, fb.Height-1)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	area := (b[1]-c[1])*(a[0]-c[0]) + (c[0]-b[0])*(a[1]-c[1])
	if math.Abs(area) < 1e-8 {
		return
	}
	inv := 1 / area

	textured := s.Texture != nil && len(p.UV) == len(p.X)
	var ta, tb, tc mathutil.Vec2
	if textured {
		ta, tb, tc = p.UV[vi[0]], p.UV[vi[1]], p.UV[vi[2]]
	}

	for y := y0; y <= y1; y++ {
		dy := float64(y) - c[1]
		for x := x0; x <= x1; x++ {
			dx := float64(x) - c[0]
			wa := ((b[1]-c[1])*dx + (c[0]-b[0])*dy) * inv
			wb := ((c[1]-a[1])*dx + (a[0]-c[0])*dy) * inv
			wc := 1 - wa - wb
			if wa < -0.001 || wb < -0.001 || wc < -0.001 {
				continue
			}

			at := y*fb.Width + x
			z := wa*a[2] + wb*b[2] + wc*c[2]
			if z <= fb.ZBuf[at] {
				continue
			}

			texel := s.Color
			if textured {
				u := wa*ta[0] + wb*tb[0] + wc*tc[0]
				v := wa*ta[1] + wb*tb[1] + wc*tc[1]
				texel = SampleTexture(s.Texture, u, v)
			}
			if texel.A < alphaCutoff {
				continue
			}
			fb.ZBuf[at] = z

			px := fb.Color[at*4 : at*4+4]
			px[0] = light.Apply(texel.R, shade)
			px[1] = light.Apply(texel.G, shade)
			px[2] = light.Apply(texel.B, shade)
			px[3] = texel.A
		}
	}
}
