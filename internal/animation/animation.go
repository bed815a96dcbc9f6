// Package animation bakes source keyframes into per-section bone deltas and
// encodes them into the compressed streams stored in the model file.
package animation

import (
	"sort"

	"github.com/pkg/errors"

	"mdl-compiler/internal/bones"
	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/logging"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/project"
)

const (
	FramesPerSection = 30
	// SectionThreshold is the frame count from which animations are split.
	SectionThreshold = 120
	MaxAnimations    = 32768
	FPS              = 30
)

var (
	ErrDuplicateAnimationName = errors.New("animation: duplicate animation name")
	ErrTooManyAnimations      = errors.New("animation: too many animations")
	ErrNoAnimations           = errors.New("animation: no animations are used by a sequence")
	ErrMissingSource          = errors.New("animation: no source file selected")
	ErrFileNotLoaded          = errors.New("animation: source file not loaded")
	ErrUnknownSourceAnimation = errors.New("animation: source has no such animation")
)

// Track is one bone's samples over one section.
type Track struct {
	Bone          int
	RawPosition   []mathutil.Vec3
	RawRotation   []mathutil.Quat
	DeltaPosition []mathutil.Vec3
	DeltaRotation []mathutil.Angles
}

type Animation struct {
	Name       string
	FrameCount int
	// Sections hold tracks sorted by bone index.
	Sections [][]Track
}

// Scale is the per-bone quantization step for deltas.
type Scale struct {
	Position mathutil.Vec3
	Rotation mathutil.Vec3
}

// Data is the processed animation set of one model.
type Data struct {
	Animations []Animation
	// Scales is indexed by bone table index.
	Scales []Scale

	remap map[string]int
}

// Remap returns the compiled index of a declared animation name.
func (d *Data) Remap(name string) (int, bool) {
	i, ok := d.remap[name]
	return i, ok
}

type channel struct {
	position []mathutil.Vec3
	rotation []mathutil.Quat
}

// Process bakes every animation referenced by a sequence and derives the
// quantization scales.
func Process(p *project.Project, files importer.Files, table *bones.Table, log *logging.Logger) (*Data, error) {
	used := make(map[string]bool)
	for _, s := range p.Sequences {
		for _, row := range s.Animations {
			for _, name := range row {
				used[name] = true
			}
		}
	}

	data := &Data{remap: make(map[string]int)}
	declared := make(map[string]bool)
	totalFrames := 0
	for _, decl := range p.Animations {
		if declared[decl.Name] {
			return nil, errors.Wrapf(ErrDuplicateAnimationName, "%q", decl.Name)
		}
		declared[decl.Name] = true

		if !used[decl.Name] {
			log.Warnf("animation %q is not used by any sequence", decl.Name)
			continue
		}
		if decl.Source == "" {
			return nil, errors.Wrapf(ErrMissingSource, "animation %q", decl.Name)
		}
		file, err := files.Get(decl.Source)
		if err != nil {
			return nil, errors.Wrapf(ErrFileNotLoaded, "animation %q: %s", decl.Name, decl.Source)
		}
		if decl.SourceAnimation < 0 || decl.SourceAnimation >= len(file.Animations) {
			return nil, errors.Wrapf(ErrUnknownSourceAnimation, "animation %q index %d of %d",
				decl.Name, decl.SourceAnimation, len(file.Animations))
		}

		anim := bake(decl.Name, file, &file.Animations[decl.SourceAnimation], table)
		totalFrames += anim.FrameCount
		data.remap[decl.Name] = len(data.Animations)
		data.Animations = append(data.Animations, anim)
	}
	log.Debugf("model uses %d frames", totalFrames)

	if len(data.Animations) == 0 {
		return nil, ErrNoAnimations
	}
	if len(data.Animations) > MaxAnimations {
		return nil, errors.Wrapf(ErrTooManyAnimations, "%d animations, limit %d", len(data.Animations), MaxAnimations)
	}

	data.Scales = computeScales(data.Animations, len(table.Bones))
	return data, nil
}

func bake(name string, file *importer.FileData, src *importer.Animation, table *bones.Table) Animation {
	n := src.FrameCount
	correction := file.Correction().ToMat4()

	channels := make(map[int]channel)
	for boneIdx, ch := range src.Channels {
		if boneIdx < 0 || boneIdx >= len(file.Skeleton) {
			continue
		}
		srcBone := file.Skeleton[boneIdx]
		global := table.Index(srcBone.Name)
		if global < 0 {
			continue
		}

		pos := bakeKeys(ch.Position, n, srcBone.Position)
		rot := bakeKeys(ch.Rotation, n, srcBone.Orientation.Normalize())
		if srcBone.Parent < 0 {
			for f := 0; f < n; f++ {
				m := mathutil.Mat4Mul(correction, mathutil.FromQuatTranslation(rot[f], pos[f]))
				pos[f] = m.Translation()
				rot[f] = m.Quat()
			}
		}
		channels[global] = channel{position: pos, rotation: rot}
	}

	order := make([]int, 0, len(channels))
	for b := range channels {
		order = append(order, b)
	}
	sort.Ints(order)

	anim := Animation{Name: name, FrameCount: n}
	for _, r := range sectionRanges(n) {
		tracks := make([]Track, 0, len(order))
		for _, b := range order {
			ch := channels[b]
			bone := table.Bones[b]
			tr := Track{
				Bone:        b,
				RawPosition: append([]mathutil.Vec3(nil), ch.position[r[0]:r[1]+1]...),
				RawRotation: append([]mathutil.Quat(nil), ch.rotation[r[0]:r[1]+1]...),
			}
			for f := r[0]; f <= r[1]; f++ {
				tr.DeltaPosition = append(tr.DeltaPosition, ch.position[f].Sub(bone.Position))
				tr.DeltaRotation = append(tr.DeltaRotation, ch.rotation[f].ToAngles().Sub(bone.Rotation).Normalize())
			}
			tracks = append(tracks, tr)
		}
		anim.Sections = append(anim.Sections, tracks)
	}
	return anim
}

// bakeKeys expands sparse keys to one value per frame, holding the last key.
func bakeKeys[T any](keys map[int]T, frames int, bind T) []T {
	out := make([]T, frames)
	last := bind
	for f := 0; f < frames; f++ {
		if v, ok := keys[f]; ok {
			last = v
		}
		out[f] = last
	}
	return out
}

// SectionCount returns how many sections an animation of n frames uses.
func SectionCount(n int) int {
	if n >= SectionThreshold {
		return n/FramesPerSection + 2
	}
	return 1
}

// sectionRanges returns inclusive [start, end] frame ranges. Trailing
// sections past the last frame repeat it.
func sectionRanges(n int) [][2]int {
	count := SectionCount(n)
	size := n
	if count > 1 {
		size = FramesPerSection
	}
	ranges := make([][2]int, count)
	for s := range ranges {
		ranges[s] = [2]int{min(s*size, n-1), min((s+1)*size, n-1)}
	}
	return ranges
}

func computeScales(anims []Animation, boneCount int) []Scale {
	scales := make([]Scale, boneCount)
	for _, a := range anims {
		for _, section := range a.Sections {
			for _, tr := range section {
				s := &scales[tr.Bone]
				for _, d := range tr.DeltaPosition {
					s.Position = s.Position.Max(d.Abs())
				}
				for _, d := range tr.DeltaRotation {
					s.Rotation = s.Rotation.Max(mathutil.Vec3(d).Abs())
				}
			}
		}
	}
	for i := range scales {
		scales[i].Position = scales[i].Position.Scale(1.0 / 32768)
		scales[i].Rotation = scales[i].Rotation.Scale(1.0 / 32768)
	}
	return scales
}
