package bones

import (
	"math"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/project"
)

func bone(name string, parent int, pos mathutil.Vec3) importer.Bone {
	return importer.Bone{Name: name, Parent: parent, Position: pos, Orientation: mathutil.QuatIdentity()}
}

func linked(bones ...int) importer.Part {
	p := importer.Part{Name: "body"}
	for _, b := range bones {
		p.Vertices = append(p.Vertices, importer.Vertex{Links: []importer.Link{{Bone: b, Weight: 1}}})
	}
	return p
}

func smdData(skeleton []importer.Bone, parts ...importer.Part) *importer.FileData {
	return &importer.FileData{
		Up:         mathutil.PositiveZ,
		Forward:    mathutil.NegativeY,
		Skeleton:   skeleton,
		Animations: []importer.Animation{{Name: "idle", FrameCount: 1}},
		Parts:      parts,
	}
}

func simpleProject(body string, anims ...string) *project.Project {
	p := &project.Project{
		ModelName:  "test.mdl",
		BodyGroups: []project.BodyGroup{{Name: "body", Models: []project.Model{{Name: "body", Source: body}}}},
	}
	for _, a := range anims {
		p.Animations = append(p.Animations, project.Animation{Name: a, Source: a})
	}
	return p
}

func near(a, b mathutil.Vec3) bool { return a.Near(b, 1e-9) }

func TestBuildCollapse(t *testing.T) {
	body := smdData([]importer.Bone{
		bone("root", -1, mathutil.Vec3{}),
		bone("spine", 0, mathutil.Vec3{0, 0, 10}),
		bone("hand", 1, mathutil.Vec3{0, 0, 5}),
		bone("prop", 0, mathutil.Vec3{1, 0, 0}),
	}, linked(0, 2))
	anim := smdData([]importer.Bone{
		bone("root", -1, mathutil.Vec3{}),
		bone("tail", 0, mathutil.Vec3{0, -3, 0}),
	})
	files := importer.Files{"body.smd": body, "anim.smd": anim}

	table, err := Build(simpleProject("body.smd", "anim.smd"), files, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Bones) != 2 {
		t.Fatalf("bones: got %d, want 2", len(table.Bones))
	}
	hand := table.Bones[1]
	if hand.Name != "hand" || hand.Parent != 0 {
		t.Fatalf("hand: got %q parent %d", hand.Name, hand.Parent)
	}
	if !near(hand.Position, mathutil.Vec3{0, 0, 15}) {
		t.Errorf("hand position: got %v, want [0 0 15]", hand.Position)
	}
	if hand.Flags&UsedByVertex == 0 {
		t.Error("hand: missing UsedByVertex")
	}

	for _, tt := range []struct {
		name string
		want int
		ok   bool
	}{
		{"hand", 1, true},
		{"spine", 0, true},
		{"prop", 0, true},
		{"tail", 0, true},
		{"ghost", -1, false},
	} {
		got, ok := table.Resolve(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Resolve(%q): got %d/%v, want %d/%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCollapseIdempotent(t *testing.T) {
	body := smdData([]importer.Bone{
		bone("a", -1, mathutil.Vec3{}),
		bone("b", 0, mathutil.Vec3{1, 0, 0}),
		bone("c", 1, mathutil.Vec3{0, 1, 0}),
		bone("d", 2, mathutil.Vec3{0, 0, 1}),
		bone("e", 1, mathutil.Vec3{2, 0, 0}),
	}, linked(0, 3, 4))
	table, err := Build(simpleProject("body.smd"), importer.Files{"body.smd": body}, nil)
	if err != nil {
		t.Fatal(err)
	}
	before := append([]Bone(nil), table.Bones...)
	if n := table.Collapse(); n != 0 {
		t.Fatalf("second Collapse: removed %d, want 0", n)
	}
	if !reflect.DeepEqual(before, table.Bones) {
		t.Errorf("second Collapse changed the table:\nhave %+v\nwant %+v", table.Bones, before)
	}

	// Every parent chain ends at a root with strictly decreasing indices.
	for i, b := range table.Bones {
		if b.Parent >= i {
			t.Errorf("bone %d: parent %d is not earlier", i, b.Parent)
		}
	}
	if d := table.Bones[table.Index("d")]; d.Parent != 0 || !near(d.Position, mathutil.Vec3{1, 1, 1}) {
		t.Errorf("d: got parent %d position %v", d.Parent, d.Position)
	}
}

func TestRemoveReindexes(t *testing.T) {
	table := &Table{Bones: []Bone{
		{Name: "r", Parent: -1, Flags: UsedByVertex},
		{Name: "x", Parent: 0},
		{Name: "y", Parent: 1, Flags: UsedByVertex},
		{Name: "z", Parent: 2, Flags: UsedByVertex},
	}}
	for i := range table.Bones {
		table.Bones[i].Pose = mathutil.Mat4Identity()
	}
	table.remove(1)
	got := []int{table.Bones[0].Parent, table.Bones[1].Parent, table.Bones[2].Parent}
	if want := []int{-1, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("parents:\nhave %v\nwant %v", got, want)
	}
}

func TestRootCorrection(t *testing.T) {
	obj := &importer.FileData{
		Up:         mathutil.PositiveZ,
		Forward:    mathutil.PositiveX,
		Skeleton:   []importer.Bone{bone("default", -1, mathutil.Vec3{1, 0, 0})},
		Animations: []importer.Animation{{Name: "a", FrameCount: 1}},
		Parts:      []importer.Part{linked(0)},
	}
	table, err := Build(simpleProject("a.obj"), importer.Files{"a.obj": obj}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Bones[0].Position; !near(got, mathutil.Vec3{0, -1, 0}) {
		t.Errorf("corrected root: got %v, want [0 -1 0]", got)
	}
	if got := table.Bones[0].Rotation; math.Abs(got[2]+math.Pi/2) > 1e-9 {
		t.Errorf("corrected yaw: got %v, want -π/2", got[2])
	}
}

func TestSortedByName(t *testing.T) {
	body := smdData([]importer.Bone{
		bone("b", -1, mathutil.Vec3{}),
		bone("A", -1, mathutil.Vec3{}),
		bone("c", -1, mathutil.Vec3{}),
	}, linked(0, 1, 2))
	table, err := Build(simpleProject("x.smd"), importer.Files{"x.smd": body}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint8{1, 0, 2}; !reflect.DeepEqual(table.SortedByName, want) {
		t.Errorf("SortedByName:\nhave %v\nwant %v", table.SortedByName, want)
	}
}

func TestBuildErrors(t *testing.T) {
	many := make([]importer.Bone, MaxBones+2)
	var all []int
	for i := range many {
		many[i] = bone(string(rune('a'+i%26))+string(rune('a'+i/26)), -1, mathutil.Vec3{})
		all = append(all, i)
	}

	tests := []struct {
		name  string
		proj  *project.Project
		files importer.Files
		want  error
	}{
		{"not loaded", simpleProject("body.smd"), importer.Files{}, ErrFileNotLoaded},
		{"missing source", &project.Project{BodyGroups: []project.BodyGroup{{Models: []project.Model{{Name: "m"}}}}}, importer.Files{}, ErrMissingSource},
		{"no bones", simpleProject("body.smd"), importer.Files{"body.smd": smdData([]importer.Bone{bone("r", -1, mathutil.Vec3{})})}, ErrNoBones},
		{"too many", simpleProject("body.smd"), importer.Files{"body.smd": smdData(many, linked(all...))}, ErrTooManyBones},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.proj, tt.files, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
