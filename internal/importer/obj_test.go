package importer

import (
	"errors"
	"strings"
	"testing"

	"mdl-compiler/internal/mathutil"
)

const quadOBJ = `# two objects
mtllib scene.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
o quad
usemtl stone
s off
f 1/1/1 2/2/1 3/3/1 4/4/1
o tri
f -4 -3 -2 # relative
`

func TestParseOBJ(t *testing.T) {
	data, warnings, err := ParseOBJ(strings.NewReader(quadOBJ), "scene.obj", "scene")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings: got %v, want none", warnings)
	}
	if len(data.Skeleton) != 1 || data.Skeleton[0].Name != "default" {
		t.Errorf("skeleton: got %+v", data.Skeleton)
	}
	if len(data.Animations) != 1 || data.Animations[0].Name != "scene" || data.Animations[0].FrameCount != 1 {
		t.Errorf("animations: got %+v", data.Animations)
	}
	if data.Up != mathutil.PositiveZ || data.Forward != mathutil.PositiveX {
		t.Errorf("basis: got %v/%v", data.Up, data.Forward)
	}
	if len(data.Parts) != 2 {
		t.Fatalf("parts: got %d, want 2", len(data.Parts))
	}

	quad := data.Parts[0]
	if quad.Name != "quad" || len(quad.Vertices) != 4 {
		t.Fatalf("quad: got %q with %d vertices", quad.Name, len(quad.Vertices))
	}
	if quad.Materials[0].Material != "stone" || len(quad.Materials[0].Faces[0]) != 4 {
		t.Errorf("quad faces: got %+v", quad.Materials)
	}
	if quad.Vertices[2].UV != (mathutil.Vec2{1, 1}) {
		t.Errorf("quad uv: got %v", quad.Vertices[2].UV)
	}
	if got := quad.Vertices[0].Links; len(got) != 1 || got[0] != (Link{Bone: 0, Weight: 1}) {
		t.Errorf("links: got %v", got)
	}

	tri := data.Parts[1]
	if tri.Name != "tri" || len(tri.Vertices) != 3 {
		t.Fatalf("tri: got %q with %d vertices", tri.Name, len(tri.Vertices))
	}
	if tri.Vertices[2].Position != (mathutil.Vec3{1, 1, 0}) {
		t.Errorf("relative index: got %v", tri.Vertices[2].Position)
	}
	if tri.Vertices[0].Normal != (mathutil.Vec3{0, 0, 1}) {
		t.Errorf("flat normal: got %v", tri.Vertices[0].Normal)
	}
}

func TestParseOBJDefaultMaterial(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\nf 1 2\nf 3 2 1\n"
	data, warnings, err := ParseOBJ(strings.NewReader(src), "a.obj", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings: got %d, want 1", len(warnings))
	}
	if len(data.Parts) != 1 || data.Parts[0].Name != defaultObjectName {
		t.Fatalf("parts: got %+v", data.Parts)
	}
	m := data.Parts[0].Materials
	if len(m) != 1 || m[0].Material != DefaultMaterial || len(m[0].Faces) != 2 {
		t.Errorf("materials: got %+v", m)
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"bogus index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 5\n", ErrBogusIndex},
		{"bogus normal", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1//1 2//1 3//1\n", ErrBogusIndex},
		{"duplicate object", "o a\nv 0 0 0\no a\n", ErrDuplicateObject},
		{"unknown keyword", "frobnicate 1\n", ErrUnknownKeyword},
		{"short vertex", "v 1 2\n", ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseOBJ(strings.NewReader(tt.src), "x.obj", "x")
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
