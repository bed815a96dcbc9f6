package mathutil

import (
	"math"
	"testing"
)

func nearQuat(a, b Quat, tol float64) bool {
	same := true
	flip := true
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			same = false
		}
		if math.Abs(a[i]+b[i]) > tol {
			flip = false
		}
	}
	return same || flip
}

func TestAnglesRoundTrip(t *testing.T) {
	for _, a := range []Angles{
		{0, 0, 0},
		{0.3, -0.2, 1.1},
		{-2.5, 0.7, 3.0},
		{1.2, -1.4, -0.4},
	} {
		got := a.ToQuat().ToAngles()
		if !Vec3(got).Near(Vec3(a), 1e-9) {
			t.Fatalf("ToAngles(ToQuat(%v)):\nhave %v\nwant %v", a, got, a)
		}
	}
}

func TestAnglesNormalize(t *testing.T) {
	got := Angles{3 * math.Pi / 2, -3 * math.Pi / 2, 4 * math.Pi}.Normalize()
	want := Angles{-math.Pi / 2, math.Pi / 2, 0}
	if !Vec3(got).Near(Vec3(want), 1e-12) {
		t.Fatalf("Normalize:\nhave %v\nwant %v", got, want)
	}
	for _, v := range got {
		if v < -math.Pi || v > math.Pi {
			t.Fatalf("Normalize: %v out of range", got)
		}
	}
}

func TestMat4Inverse(t *testing.T) {
	m := FromQuatTranslation(Angles{0.4, -0.3, 1.2}.ToQuat(), Vec3{3, -7, 11})
	id := Mat4Mul(m, m.Inverse())
	if !id.IsIdentity() {
		t.Fatalf("m × m⁻¹:\nhave %v\nwant identity", id)
	}
	p := Vec3{1, 2, 3}
	if got := m.Inverse().MulPoint(m.MulPoint(p)); !got.Near(p, 1e-9) {
		t.Fatalf("inverse round trip:\nhave %v\nwant %v", got, p)
	}
}

func TestMat4Quat(t *testing.T) {
	q := Angles{0.1, 0.5, -0.9}.ToQuat()
	got := FromQuatTranslation(q, Vec3{1, 1, 1}).Quat()
	if !nearQuat(got, q, 1e-9) {
		t.Fatalf("Quat:\nhave %v\nwant %v", got, q)
	}
	if tr := FromQuatTranslation(q, Vec3{1, 2, 3}).Translation(); tr != (Vec3{1, 2, 3}) {
		t.Fatalf("Translation: have %v", tr)
	}
}

func TestCorrection(t *testing.T) {
	if c := Correction(PositiveZ, NegativeY); c != Mat3Identity() {
		t.Fatalf("engine basis correction:\nhave %v\nwant identity", c)
	}

	// Y-up, +Z forward: up maps to +Z and forward maps to -Y.
	c := Correction(PositiveY, PositiveZ)
	if got := c.MulVec3(Vec3{0, 1, 0}); !got.Near(Vec3{0, 0, 1}, 1e-12) {
		t.Fatalf("up: have %v", got)
	}
	if got := c.MulVec3(Vec3{0, 0, 1}); !got.Near(Vec3{0, -1, 0}, 1e-12) {
		t.Fatalf("forward: have %v", got)
	}
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]AxisDirection{"+x": PositiveX, "y": PositiveY, "-Z": NegativeZ} {
		got, err := ParseAxis(in)
		if err != nil || got != want {
			t.Fatalf("ParseAxis(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseAxis("w"); err == nil {
		t.Fatal("ParseAxis(\"w\"): want error")
	}
	if !PositiveX.IsParallel(NegativeX) || PositiveX.IsParallel(PositiveY) {
		t.Fatal("IsParallel mismatch")
	}
}

func TestBoundingBox(t *testing.T) {
	b := NewBoundingBox()
	if b.Valid() {
		t.Fatal("new box should be empty")
	}
	if z := b.OrZero(); z != (BoundingBox{}) {
		t.Fatalf("OrZero: have %v", z)
	}
	b.AddPoint(Vec3{1, 2, 3})
	b.AddPoint(Vec3{-1, 4, 0})
	want := BoundingBox{Min: Vec3{-1, 2, 0}, Max: Vec3{1, 4, 3}}
	if b != want {
		t.Fatalf("AddPoint:\nhave %v\nwant %v", b, want)
	}
	if c := b.Center(); c != (Vec3{0, 3, 1.5}) {
		t.Fatalf("Center: have %v", c)
	}
}
