package viewmatrix

import (
	"testing"

	"mdl-compiler/internal/mathutil"
)

func TestMatrixFront(t *testing.T) {
	m := Camera{}.Matrix()
	cases := []struct {
		name     string
		in, want mathutil.Vec3
	}{
		{"up", mathutil.Vec3{0, 0, 1}, mathutil.Vec3{0, 1, 0}},
		{"forward", mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, 1}},
		{"left", mathutil.Vec3{0, 1, 0}, mathutil.Vec3{1, 0, 0}},
	}
	for _, c := range cases {
		if got := m.MulVec3(c.in); !got.Near(c.want, 1e-12) {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMatrixKeepsLength(t *testing.T) {
	m := DefaultCamera().Matrix()
	v := mathutil.Vec3{3, -4, 12}
	if got := m.MulVec3(v).Len(); got < 12.999 || got > 13.001 {
		t.Errorf("length: got %v, want 13", got)
	}
}

func TestProjectOrthographic(t *testing.T) {
	verts := []mathutil.Vec3{{0, 0, 0}, {1, 1, 2}}
	px, py, pz := ProjectVertices(verts, mathutil.Mat3Identity(), mathutil.Vec3{}, 10, 100, Camera{})
	if px[0] != 50 || py[0] != 50 {
		t.Errorf("origin: got (%v, %v), want (50, 50)", px[0], py[0])
	}
	// Screen Y grows downward.
	if px[1] != 60 || py[1] != 40 || pz[1] != 2 {
		t.Errorf("corner: got (%v, %v, %v), want (60, 40, 2)", px[1], py[1], pz[1])
	}
}
