package animation

import (
	"math"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"mdl-compiler/internal/bones"
	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/project"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	long := make([]int16, 600)
	for i := range long {
		long[i] = 7
	}
	ramp := make([]int16, 300)
	for i := range ramp {
		ramp[i] = int16(i * 3)
	}
	tests := [][]int16{
		{5},
		{1, 1, 1},
		{1, 2, 3},
		{1, 2, 2, 2, 3, 4, 4},
		{-32768, 32767, 32767, 0, 0, 0, 1},
		long,
		ramp,
	}
	for _, values := range tests {
		runs := Encode(values)
		for _, r := range runs {
			if int(r.Valid) != len(r.Values) || r.Total < r.Valid {
				t.Fatalf("bad run %+v", r)
			}
		}
		if got := Decode(runs); !reflect.DeepEqual(got, values) {
			t.Errorf("round trip of %d values:\nhave %v\nwant %v", len(values), got, values)
		}
	}
}

func TestEncodeRuns(t *testing.T) {
	got := Encode([]int16{1, 2, 2, 2, 3})
	want := []Run{
		{Valid: 2, Total: 4, Values: []int16{1, 2}},
		{Valid: 1, Total: 1, Values: []int16{3}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode:\nhave %+v\nwant %+v", got, want)
	}

	long := make([]int16, 600)
	if runs := Encode(long); len(runs) != 3 || runs[0].Total != 255 || runs[2].Total != 90 {
		t.Errorf("capped runs: got %+v", runs)
	}
}

func TestQuantize(t *testing.T) {
	scale := 4.0 / 32768
	tests := []struct {
		delta float64
		want  int16
	}{
		{0, 0},
		{1e-9, 0},
		{2, 16384},
		{4, 32767},
		{-4, -32768},
		{-1, -8192},
	}
	for _, tt := range tests {
		if got := Quantize(tt.delta, scale); got != tt.want {
			t.Errorf("Quantize(%v): got %d, want %d", tt.delta, got, tt.want)
		}
	}
	if got := Quantize(1, 0); got != 0 {
		t.Errorf("zero scale: got %d, want 0", got)
	}
}

func TestSectionRanges(t *testing.T) {
	if got := sectionRanges(10); !reflect.DeepEqual(got, [][2]int{{0, 9}}) {
		t.Errorf("10 frames: got %v", got)
	}
	got := sectionRanges(120)
	want := [][2]int{{0, 30}, {30, 60}, {60, 90}, {90, 119}, {119, 119}, {119, 119}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("120 frames:\nhave %v\nwant %v", got, want)
	}
	if SectionCount(119) != 1 || SectionCount(150) != 7 {
		t.Errorf("SectionCount: got %d/%d, want 1/7", SectionCount(119), SectionCount(150))
	}
}

func fixture(keys map[int]mathutil.Vec3, frames int) (importer.Files, *bones.Table) {
	file := &importer.FileData{
		Up:       mathutil.PositiveZ,
		Forward:  mathutil.NegativeY,
		Skeleton: []importer.Bone{{Name: "root", Parent: -1, Orientation: mathutil.QuatIdentity()}},
		Animations: []importer.Animation{{
			Name:       "walk",
			FrameCount: frames,
			Channels: map[int]*importer.Channel{0: {
				Position: keys,
				Rotation: map[int]mathutil.Quat{},
			}},
		}},
	}
	table := &bones.Table{Bones: []bones.Bone{{Name: "root", Parent: -1, Pose: mathutil.Mat4Identity()}}}
	return importer.Files{"walk.smd": file}, table
}

func walkProject(decl ...string) *project.Project {
	p := &project.Project{Sequences: []project.Sequence{{Name: "walk", Animations: [][]string{{"walk"}}}}}
	for _, name := range decl {
		p.Animations = append(p.Animations, project.Animation{Name: name, Source: "walk.smd"})
	}
	return p
}

func TestProcessBakeAndEncode(t *testing.T) {
	files, table := fixture(map[int]mathutil.Vec3{2: {0, 0, 4}}, 4)
	data, err := Process(walkProject("walk", "unused"), files, table, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Animations) != 1 {
		t.Fatalf("animations: got %d, want 1", len(data.Animations))
	}
	if i, ok := data.Remap("walk"); !ok || i != 0 {
		t.Errorf("Remap(walk): got %d/%v", i, ok)
	}
	if _, ok := data.Remap("unused"); ok {
		t.Error("Remap(unused): found, want skipped")
	}

	tr := data.Animations[0].Sections[0][0]
	zs := []float64{tr.DeltaPosition[0][2], tr.DeltaPosition[1][2], tr.DeltaPosition[2][2], tr.DeltaPosition[3][2]}
	if want := []float64{0, 0, 4, 4}; !reflect.DeepEqual(zs, want) {
		t.Errorf("baked z:\nhave %v\nwant %v", zs, want)
	}
	if got := data.Scales[0].Position[2]; got != 4.0/32768 {
		t.Errorf("scale: got %v, want %v", got, 4.0/32768)
	}

	enc := data.EncodeSection(data.Animations[0].Sections[0])
	if len(enc) != 1 {
		t.Fatalf("encoded bones: got %d, want 1", len(enc))
	}
	b := enc[0]
	if b.Flags() != FlagAnimPos {
		t.Errorf("flags: got %#x, want %#x", b.Flags(), FlagAnimPos)
	}
	if b.Position[0] != nil || b.Position[1] != nil || b.Position[2] == nil {
		t.Fatalf("axes: got %+v", b.Position)
	}
	if got := Decode(b.Position[2]); !reflect.DeepEqual(got, []int16{0, 0, 32767, 32767}) {
		t.Errorf("z stream: got %v", got)
	}
}

func TestEncodeStaticBoneIsEmpty(t *testing.T) {
	files, table := fixture(map[int]mathutil.Vec3{0: {}}, 3)
	data, err := Process(walkProject("walk"), files, table, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := data.EncodeSection(data.Animations[0].Sections[0])
	if len(enc) != 1 || enc[0].Bone != EmptyBone || enc[0].Flags() != 0 {
		t.Errorf("got %+v, want single empty marker", enc)
	}
}

func TestEncodeConstantOffsetIsRaw(t *testing.T) {
	files, table := fixture(map[int]mathutil.Vec3{0: {1, 2, 3}}, 5)
	data, err := Process(walkProject("walk"), files, table, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := data.EncodeSection(data.Animations[0].Sections[0])
	if len(enc) != 1 || enc[0].Flags() != FlagRawPosition {
		t.Fatalf("got %+v, want raw position", enc)
	}
	if *enc[0].RawPosition != (mathutil.Vec3{1, 2, 3}) {
		t.Errorf("raw position: got %v", *enc[0].RawPosition)
	}
}

func TestRotationDeltaWraps(t *testing.T) {
	files, table := fixture(nil, 1)
	file, _ := files.Get("walk.smd")
	file.Animations[0].Channels[0].Rotation[0] = mathutil.Angles{0, 0, 3}.ToQuat()
	table.Bones[0].Rotation = mathutil.Angles{0, 0, -3}

	data, err := Process(walkProject("walk"), files, table, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := data.Animations[0].Sections[0][0].DeltaRotation[0][2]
	if want := 6 - 2*math.Pi; math.Abs(got-want) > 1e-9 {
		t.Errorf("wrapped yaw: got %v, want %v", got, want)
	}
}

func TestProcessErrors(t *testing.T) {
	files, table := fixture(nil, 1)
	tests := []struct {
		name string
		proj *project.Project
		want error
	}{
		{"duplicate", walkProject("walk", "walk"), ErrDuplicateAnimationName},
		{"none used", &project.Project{Animations: []project.Animation{{Name: "a", Source: "walk.smd"}}}, ErrNoAnimations},
		{"not loaded", &project.Project{
			Animations: []project.Animation{{Name: "walk", Source: "gone.smd"}},
			Sequences:  []project.Sequence{{Name: "s", Animations: [][]string{{"walk"}}}},
		}, ErrFileNotLoaded},
		{"bad index", &project.Project{
			Animations: []project.Animation{{Name: "walk", Source: "walk.smd", SourceAnimation: 4}},
			Sequences:  []project.Sequence{{Name: "s", Animations: [][]string{{"walk"}}}},
		}, ErrUnknownSourceAnimation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Process(tt.proj, files, table, nil); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
