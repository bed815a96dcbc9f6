package raster

import (
	"image"
	"image/color"

	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/mesh"
	"mdl-compiler/internal/texture"
	"mdl-compiler/internal/viewmatrix"
)

// RenderModel draws the first non-blank model of every body part in its
// reference pose.
func RenderModel(
	data *mesh.Data,
	cam viewmatrix.Camera,
	texResolver texture.Resolver,
	size int,
	supersample int,
) *image.NRGBA {
	var meshes []mesh.Mesh
	for _, bp := range data.BodyParts {
		for _, m := range bp.Models {
			if len(m.Meshes) > 0 {
				meshes = append(meshes, m.Meshes...)
				break
			}
		}
	}
	if len(meshes) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}

	renderSize := size * supersample
	R := cam.Matrix()

	// Bounding box of all transformed vertices
	box := mathutil.NewBoundingBox()
	for _, m := range meshes {
		for _, v := range m.Vertices {
			box.AddPoint(R.MulVec3(v.Position))
		}
	}
	center := box.Center()
	span := box.Max[0] - box.Min[0]
	if spanY := box.Max[1] - box.Min[1]; spanY > span {
		span = spanY
	}
	if span < 0.001 {
		span = 0.001
	}

	margin := 16 * supersample
	scale := float64(renderSize-2*margin) / span

	fb := NewFrameBuffer(renderSize, renderSize)
	light := NewLight()

	var positions []mathutil.Vec3
	for _, m := range meshes {
		if len(m.Vertices) == 0 {
			continue
		}
		positions = positions[:0]
		p := &Projected{UV: make([]mathutil.Vec2, len(m.Vertices))}
		for i, v := range m.Vertices {
			positions = append(positions, v.Position)
			p.UV[i] = v.UV
		}
		p.X, p.Y, p.Z = viewmatrix.ProjectVertices(positions, R, center, scale, renderSize, cam)

		surface := Surface{Color: untextured}
		if texResolver != nil && m.Material < len(data.Materials) {
			surface.Texture = texResolver.Resolve(data.Materials[m.Material])
		}
		if surface.Texture != nil {
			surface.Color = averageColor(surface.Texture)
		}

		for _, g := range m.StripGroups {
			for i := 0; i+2 < len(g.Indices); i += 3 {
				vi := [3]int{
					int(g.Vertices[g.Indices[i]].VertexIndex),
					int(g.Vertices[g.Indices[i+1]].VertexIndex),
					int(g.Vertices[g.Indices[i+2]].VertexIndex),
				}
				RasterizeTriangle(fb, p, vi, surface, light)
			}
		}
	}

	return fb.Image()
}

// untextured fills meshes whose material has no texture.
var untextured = color.NRGBA{160, 160, 170, 255}

func averageColor(tex *image.NRGBA) color.NRGBA {
	b := tex.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return untextured
	}
	var sum [3]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := tex.Pix[tex.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			for c := range sum {
				sum[c] += int(row[x*4+c])
			}
		}
	}
	return color.NRGBA{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n), 255}
}
