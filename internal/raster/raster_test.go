package raster

import (
	"image"
	"image/color"
	"testing"

	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/mesh"
	"mdl-compiler/internal/viewmatrix"
)

type solid struct{ img *image.NRGBA }

func (s solid) Resolve(string) *image.NRGBA { return s.img }

func triangle() *mesh.Data {
	return &mesh.Data{
		Materials: []string{"skin"},
		BodyParts: []mesh.BodyPart{{Models: []mesh.Model{{Meshes: []mesh.Mesh{{
			Vertices: []mesh.Vertex{
				{Position: mathutil.Vec3{0, -1, -1}},
				{Position: mathutil.Vec3{0, 1, -1}, UV: mathutil.Vec2{1, 0}},
				{Position: mathutil.Vec3{0, 0, 1}, UV: mathutil.Vec2{0.5, 1}},
			},
			StripGroups: []mesh.StripGroup{{
				Vertices: []mesh.StripVertex{{VertexIndex: 0}, {VertexIndex: 1}, {VertexIndex: 2}},
				Indices:  []uint16{0, 1, 2},
			}},
		}}}}}},
	}
}

func TestRenderModel(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tex.SetNRGBA(x, y, color.NRGBA{200, 40, 40, 255})
		}
	}
	img := RenderModel(triangle(), viewmatrix.Camera{}, solid{tex}, 64, 1)
	if img.Bounds().Dx() != 64 {
		t.Fatalf("size: got %d, want 64", img.Bounds().Dx())
	}
	c := img.NRGBAAt(32, 32)
	if c.A == 0 {
		t.Fatal("center pixel is transparent")
	}
	if c.R <= c.G {
		t.Errorf("center pixel %v does not look textured", c)
	}
	if a := img.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("corner alpha: got %d, want 0", a)
	}
}

func TestRenderEmpty(t *testing.T) {
	img := RenderModel(&mesh.Data{}, viewmatrix.DefaultCamera(), nil, 32, 2)
	if img.Bounds().Dx() != 32 {
		t.Fatalf("size: got %d, want 32", img.Bounds().Dx())
	}
}

func TestSampleTextureWraps(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	tex.SetNRGBA(0, 0, color.NRGBA{10, 0, 0, 255})
	tex.SetNRGBA(1, 0, color.NRGBA{250, 0, 0, 255})
	for _, u := range []float64{0, 1, -1} {
		if got := SampleTexture(tex, u, 0); got.R != 10 {
			t.Errorf("u=%v: got %v, want red 10", u, got)
		}
	}
}

func TestLightApply(t *testing.T) {
	l := NewLight()
	shade := l.Shade(mathutil.Vec3{0, 0, 1})
	if got := l.Apply(0, shade); got != 0 {
		t.Errorf("black: got %d, want 0", got)
	}
	prev := uint8(0)
	for c := 16; c < 256; c += 16 {
		got := l.Apply(uint8(c), shade)
		if got < prev {
			t.Fatalf("Apply(%d) = %d, below Apply(%d) = %d", c, got, c-16, prev)
		}
		prev = got
	}
}
