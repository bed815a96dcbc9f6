package studio

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"mdl-compiler/internal/compiler"
	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/project"
)

func writeTriangle(t *testing.T) string {
	t.Helper()
	src := &importer.FileData{
		Up:         mathutil.PositiveZ,
		Forward:    mathutil.NegativeY,
		Animations: []importer.Animation{{Name: "idle", FrameCount: 1}},
	}
	part := importer.Part{Name: "tri"}
	for i, p := range []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}} {
		src.Skeleton = append(src.Skeleton, importer.Bone{
			Name:        fmt.Sprintf("bone%d", i),
			Parent:      -1,
			Orientation: mathutil.QuatIdentity(),
		})
		part.Vertices = append(part.Vertices, importer.Vertex{
			Position: p,
			Normal:   mathutil.Vec3{0, 0, 1},
			Links:    []importer.Link{{Bone: i, Weight: 1}},
		})
	}
	part.AddFace("skin", []int{0, 1, 2})
	src.Parts = []importer.Part{part}

	p := &project.Project{
		ModelName: "props/tri.mdl",
		BodyGroups: []project.BodyGroup{{
			Name:   "body",
			Models: []project.Model{{Name: "tri", Source: "tri.smd"}},
		}},
		Animations: []project.Animation{{Name: "idle", Source: "tri.smd"}},
		Sequences:  []project.Sequence{{Name: "idle", Animations: [][]string{{"idle"}}}},
	}
	out, err := compiler.Compile(compiler.Context{Files: importer.Files{"tri.smd": src}}, p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	dir := t.TempDir()
	if err := out.WriteFiles(dir, "tri"); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "tri.mdl")
}

func TestReadSet(t *testing.T) {
	s, err := ReadSet(writeTriangle(t))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Matched() {
		t.Errorf("checksums: model %d, vertices %d, meshes %d",
			s.Model.Checksum, s.Vertices.Checksum, s.Meshes.Checksum)
	}

	m := s.Model
	if m.Name != "props/tri.mdl" {
		t.Errorf("Name: got %q", m.Name)
	}
	if len(m.Bones) != 3 || m.Bones[2].Name != "bone2" || m.Bones[2].Parent != -1 {
		t.Errorf("Bones: have %+v", m.Bones)
	}
	if len(m.Animations) != 1 || m.Animations[0].Name != "idle" || m.Animations[0].Frames != 1 {
		t.Errorf("Animations: have %+v", m.Animations)
	}
	if len(m.Sequences) != 1 || m.Sequences[0] != "idle" {
		t.Errorf("Sequences: have %q", m.Sequences)
	}
	if len(m.Materials) != 1 || m.Materials[0] != "skin" {
		t.Errorf("Materials: have %q", m.Materials)
	}
	want := BodyPart{Name: "body", Models: []SubModel{{Name: "tri", Meshes: 1, Vertices: 3}}}
	if len(m.BodyParts) != 1 || m.BodyParts[0].Name != want.Name ||
		len(m.BodyParts[0].Models) != 1 || m.BodyParts[0].Models[0] != want.Models[0] {
		t.Errorf("BodyParts:\nhave %+v\nwant %+v", m.BodyParts, want)
	}

	if s.Vertices.Vertices != 3 || s.Vertices.LODs != 1 {
		t.Errorf("Vertices: have %+v", s.Vertices)
	}
	h := *s.Meshes
	h.Checksum = 0
	wantMeshes := Meshes{Version: 7, CacheSize: 16, MaxBonesPerStrip: 53, BodyParts: 1, Models: 1,
		Meshes: 1, StripGroups: 1, Strips: 1, Vertices: 3, Indices: 3}
	if h != wantMeshes {
		t.Errorf("Meshes:\nhave %+v\nwant %+v", h, wantMeshes)
	}
}

func TestParseRejects(t *testing.T) {
	path := writeTriangle(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		data []byte
	}{
		{"short", data[:100]},
		{"magic", append([]byte("IDSV"), data[4:]...)},
		{"truncated", data[:300]},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ParseModel(c.data); err == nil {
				t.Fatal("got nil error")
			}
		})
	}
	if _, err := ParseVertices(data); err == nil {
		t.Error("ParseVertices accepted a model file")
	}
}
