// Package bones merges the skeletons of every referenced source into one
// global bone table and collapses bones nothing depends on.
package bones

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/logging"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/project"
)

// MaxBones is the largest table the model format can index.
const MaxBones = 128

// Flags are accumulated per bone while scanning sources.
type Flags int32

const UsedByVertex Flags = 0x400

var (
	ErrMissingSource = errors.New("bones: no source file selected")
	ErrFileNotLoaded = errors.New("bones: source file not loaded")
	ErrUnknownParent = errors.New("bones: parent bone not in table")
	ErrTooManyBones  = errors.New("bones: too many bones")
	ErrNoBones       = errors.New("bones: no bones left after collapsing")
)

// Bone is one entry of the global table. Position and Rotation are local to
// the parent; Pose is the cached world transform.
type Bone struct {
	Name     string
	Parent   int
	Position mathutil.Vec3
	Rotation mathutil.Angles
	Flags    Flags
	Pose     mathutil.Mat4
}

// Table is the global skeleton in parent-first order.
type Table struct {
	Bones        []Bone
	SortedByName []uint8

	// lineage maps every bone name ever inserted to its parent's name, so
	// references to collapsed bones can be resolved.
	lineage map[string]string
}

// Build scans body group sources then animation sources, each once, and
// returns the collapsed table.
func Build(p *project.Project, files importer.Files, log *logging.Logger) (*Table, error) {
	t := &Table{lineage: make(map[string]string)}
	done := make(map[string]bool)

	for _, group := range p.BodyGroups {
		for _, model := range group.Models {
			if model.Blank {
				continue
			}
			if model.Source == "" {
				return nil, errors.Wrapf(ErrMissingSource, "model %q", model.Name)
			}
			if done[model.Source] {
				continue
			}
			data, err := files.Get(model.Source)
			if err != nil {
				return nil, errors.Wrapf(ErrFileNotLoaded, "model %q: %s", model.Name, model.Source)
			}
			if err := t.merge(data, usage(data, model)); err != nil {
				return nil, errors.WithMessagef(err, "model %q", model.Name)
			}
			done[model.Source] = true
		}
	}

	for _, anim := range p.Animations {
		if anim.Source == "" {
			return nil, errors.Wrapf(ErrMissingSource, "animation %q", anim.Name)
		}
		if done[anim.Source] {
			continue
		}
		data, err := files.Get(anim.Source)
		if err != nil {
			return nil, errors.Wrapf(ErrFileNotLoaded, "animation %q: %s", anim.Name, anim.Source)
		}
		if err := t.merge(data, nil); err != nil {
			return nil, errors.WithMessagef(err, "animation %q", anim.Name)
		}
		done[anim.Source] = true
	}
	log.Debugf("model uses %d source bones", len(t.Bones))

	t.computePoses()
	removed := t.Collapse()
	log.Debugf("collapsed %d bones", removed)

	if len(t.Bones) == 0 {
		return nil, ErrNoBones
	}
	if len(t.Bones) > MaxBones {
		return nil, errors.Wrapf(ErrTooManyBones, "%d bones, limit %d", len(t.Bones), MaxBones)
	}
	return t, nil
}

// usage flags the source bones linked by vertices of the model's enabled parts.
func usage(data *importer.FileData, model project.Model) []Flags {
	flags := make([]Flags, len(data.Skeleton))
	for pi, part := range data.Parts {
		if !model.PartEnabled(pi) {
			continue
		}
		for _, v := range part.Vertices {
			for _, l := range v.Links {
				if l.Bone >= 0 && l.Bone < len(flags) {
					flags[l.Bone] |= UsedByVertex
				}
			}
		}
	}
	return flags
}

func (t *Table) merge(data *importer.FileData, flags []Flags) error {
	correction := data.Correction().ToMat4()
	for i, src := range data.Skeleton {
		var f Flags
		if flags != nil {
			f = flags[i]
		}
		if idx := t.Index(src.Name); idx >= 0 {
			t.Bones[idx].Flags |= f
			continue
		}

		parent := -1
		parentName := ""
		if src.Parent >= 0 {
			parentName = data.Skeleton[src.Parent].Name
			parent = t.Index(parentName)
			if parent < 0 {
				return errors.Wrapf(ErrUnknownParent, "bone %q parent %q", src.Name, parentName)
			}
		}

		m := mathutil.FromQuatTranslation(src.Orientation, src.Position)
		if parent < 0 {
			m = mathutil.Mat4Mul(correction, m)
		}
		t.Bones = append(t.Bones, Bone{
			Name:     src.Name,
			Parent:   parent,
			Position: m.Translation(),
			Rotation: m.Quat().ToAngles(),
			Flags:    f,
		})
		t.lineage[src.Name] = parentName
	}
	return nil
}

// Local returns the bone's transform relative to its parent.
func (b Bone) Local() mathutil.Mat4 {
	return mathutil.FromQuatTranslation(b.Rotation.ToQuat(), b.Position)
}

func (t *Table) computePoses() {
	for i := range t.Bones {
		b := &t.Bones[i]
		if b.Parent >= 0 {
			b.Pose = mathutil.Mat4Mul(t.Bones[b.Parent].Pose, b.Local())
		} else {
			b.Pose = b.Local()
		}
	}
}

// Collapse removes every bone without flags, re-pointing its children to its
// parent, then recomputes local transforms from the cached poses and the
// name index. It returns the number of bones removed; running it again on
// the result removes nothing.
func (t *Table) Collapse() int {
	removed := 0
	for i := 0; i < len(t.Bones); {
		if t.Bones[i].Flags != 0 {
			i++
			continue
		}
		t.remove(i)
		removed++
	}

	for i := range t.Bones {
		b := &t.Bones[i]
		local := b.Pose
		if b.Parent >= 0 {
			local = mathutil.Mat4Mul(t.Bones[b.Parent].Pose.Inverse(), b.Pose)
		}
		b.Position = local.Translation()
		b.Rotation = local.Quat().ToAngles()
	}
	t.sortByName()
	return removed
}

func (t *Table) remove(i int) {
	parent := t.Bones[i].Parent
	t.Bones = append(t.Bones[:i], t.Bones[i+1:]...)
	for j := range t.Bones {
		switch p := t.Bones[j].Parent; {
		case p == i:
			t.Bones[j].Parent = parent
		case p > i:
			t.Bones[j].Parent = p - 1
		}
	}
}

func (t *Table) sortByName() {
	t.SortedByName = make([]uint8, len(t.Bones))
	for i := range t.SortedByName {
		t.SortedByName[i] = uint8(i)
	}
	sort.SliceStable(t.SortedByName, func(a, b int) bool {
		na := strings.ToLower(t.Bones[t.SortedByName[a]].Name)
		nb := strings.ToLower(t.Bones[t.SortedByName[b]].Name)
		return na < nb
	})
}

// Index returns the table index of name, or -1.
func (t *Table) Index(name string) int {
	for i := range t.Bones {
		if t.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// Resolve maps a bone name to its table index, walking up to the nearest
// surviving ancestor when the bone was collapsed.
func (t *Table) Resolve(name string) (int, bool) {
	for name != "" {
		if idx := t.Index(name); idx >= 0 {
			return idx, true
		}
		parent, known := t.lineage[name]
		if !known {
			return -1, false
		}
		name = parent
	}
	return -1, false
}
