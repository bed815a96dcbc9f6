// Package studio reads back the headers and index tables of compiled model,
// vertex and hardware mesh files for inspection.
package studio

import (
	"fmt"
	"os"
	"strings"

	"mdl-compiler/internal/mdl"
	"mdl-compiler/internal/vtx"
	"mdl-compiler/internal/vvd"
)

// Model summarizes a model file.
type Model struct {
	Version    int32
	Checksum   int32
	Name       string
	Length     int32
	HullMin    [3]float32
	HullMax    [3]float32
	Bones      []Bone
	Animations []Animation
	Sequences  []string
	Materials  []string
	BodyParts  []BodyPart
}

type Bone struct {
	Name   string
	Parent int
}

type Animation struct {
	Name   string
	FPS    float32
	Frames int
}

type BodyPart struct {
	Name   string
	Models []SubModel
}

type SubModel struct {
	Name     string
	Meshes   int
	Vertices int
}

// Vertices summarizes a vertex file.
type Vertices struct {
	Version  int32
	Checksum int32
	LODs     int
	Vertices int
	Fixups   int
}

// Meshes summarizes a hardware mesh file. Counts are totals over the tree.
type Meshes struct {
	Version          int32
	Checksum         int32
	CacheSize        int32
	MaxBonesPerStrip int
	BodyParts        int
	Models           int
	Meshes           int
	StripGroups      int
	Strips           int
	Vertices         int
	Indices          int
}

// ParseModel decodes the model file header and its named tables.
func ParseModel(data []byte) (*Model, error) {
	r := &reader{data: data}
	if len(data) < 240 || r.i32() != mdl.ID {
		return nil, fmt.Errorf("studio: not a model file")
	}
	m := &Model{Version: r.i32(), Checksum: r.i32()}
	if m.Version != mdl.Version {
		return nil, fmt.Errorf("studio: model version %d, want %d", m.Version, mdl.Version)
	}
	m.Name = r.fixedStr(mdl.NameLength)
	m.Length = r.i32()
	r.skip(2 * 12) // eye position, illumination position
	for i := range m.HullMin {
		m.HullMin[i] = r.f32()
	}
	for i := range m.HullMax {
		m.HullMax[i] = r.f32()
	}

	r.seek(156)
	bones, bonesAt := r.table(0)
	r.seek(180)
	anims, animsAt := r.table(0)
	seqs, seqsAt := r.table(0)
	r.seek(204)
	mats, matsAt := r.table(0)
	r.seek(232)
	parts, partsAt := r.table(0)
	if int(m.Length) > len(data) {
		return nil, fmt.Errorf("studio: model length %d exceeds file size %d", m.Length, len(data))
	}

	const (
		boneSize     = 216
		animSize     = 100
		sequenceSize = 212
		materialSize = 64
		partSize     = 16
		modelSize    = 148
	)
	for i := 0; i < bones; i++ {
		base := bonesAt + i*boneSize
		r.seek(base)
		name := r.str(base, r.i32())
		m.Bones = append(m.Bones, Bone{Name: name, Parent: int(r.i32())})
	}
	for i := 0; i < anims; i++ {
		base := animsAt + i*animSize
		r.seek(base + 4)
		a := Animation{Name: r.str(base, r.i32()), FPS: r.f32()}
		r.skip(4) // flags
		a.Frames = int(r.i32())
		m.Animations = append(m.Animations, a)
	}
	for i := 0; i < seqs; i++ {
		base := seqsAt + i*sequenceSize
		r.seek(base + 4)
		m.Sequences = append(m.Sequences, r.str(base, r.i32()))
	}
	for i := 0; i < mats; i++ {
		base := matsAt + i*materialSize
		r.seek(base)
		m.Materials = append(m.Materials, r.str(base, r.i32()))
	}
	for i := 0; i < parts; i++ {
		base := partsAt + i*partSize
		r.seek(base)
		bp := BodyPart{Name: r.str(base, r.i32())}
		count := int(r.i32())
		r.skip(4) // base
		modelsAt := base + int(r.i32())
		for j := 0; j < count; j++ {
			r.seek(modelsAt + j*modelSize)
			sm := SubModel{Name: r.fixedStr(mdl.NameLength)}
			r.skip(8) // type, bounding radius
			sm.Meshes = int(r.i32())
			r.skip(4)
			sm.Vertices = int(r.i32())
			bp.Models = append(bp.Models, sm)
		}
		m.BodyParts = append(m.BodyParts, bp)
	}
	if r.overrun {
		return nil, fmt.Errorf("studio: model tables run past end of file")
	}
	return m, nil
}

// ParseVertices decodes the vertex file header.
func ParseVertices(data []byte) (*Vertices, error) {
	r := &reader{data: data}
	if len(data) < 64 || r.i32() != vvd.ID {
		return nil, fmt.Errorf("studio: not a vertex file")
	}
	v := &Vertices{Version: r.i32(), Checksum: r.i32(), LODs: int(r.i32())}
	if v.Version != vvd.Version {
		return nil, fmt.Errorf("studio: vertex version %d, want %d", v.Version, vvd.Version)
	}
	v.Vertices = int(r.i32())
	r.seek(48)
	v.Fixups = int(r.i32())
	return v, nil
}

// ParseMeshes decodes the hardware mesh file and walks its tree.
func ParseMeshes(data []byte) (*Meshes, error) {
	r := &reader{data: data}
	if len(data) < 36 {
		return nil, fmt.Errorf("studio: not a mesh file")
	}
	h := &Meshes{Version: r.i32(), CacheSize: r.i32()}
	if h.Version != vtx.Version {
		return nil, fmt.Errorf("studio: mesh version %d, want %d", h.Version, vtx.Version)
	}
	h.MaxBonesPerStrip = int(r.u16())
	r.skip(2 + 4) // bones per triangle, bones per vertex
	h.Checksum = r.i32()
	r.skip(4 + 4) // material replacement lists
	parts, partsAt := r.table(0)
	h.BodyParts = parts

	const (
		partSize  = 8
		modelSize = 8
		lodSize   = 12
		meshSize  = 9
		groupSize = 25
	)
	for i := 0; i < parts; i++ {
		base := partsAt + i*partSize
		models, modelsAt := r.seek(base).table(base)
		h.Models += models
		for j := 0; j < models; j++ {
			base := modelsAt + j*modelSize
			lods, lodsAt := r.seek(base).table(base)
			for k := 0; k < lods; k++ {
				base := lodsAt + k*lodSize
				meshes, meshesAt := r.seek(base).table(base)
				h.Meshes += meshes
				for l := 0; l < meshes; l++ {
					base := meshesAt + l*meshSize
					groups, groupsAt := r.seek(base).table(base)
					h.StripGroups += groups
					for g := 0; g < groups; g++ {
						r.seek(groupsAt + g*groupSize)
						h.Vertices += int(r.i32())
						r.skip(4)
						h.Indices += int(r.i32())
						r.skip(4)
						h.Strips += int(r.i32())
					}
				}
			}
		}
	}
	if r.overrun {
		return nil, fmt.Errorf("studio: mesh tree runs past end of file")
	}
	return h, nil
}

// Set is a model file with its companions, as written by one compile.
type Set struct {
	Model    *Model
	Vertices *Vertices
	Meshes   *Meshes
}

// Matched reports whether both companion files carry the model checksum.
func (s *Set) Matched() bool {
	return s.Vertices.Checksum == s.Model.Checksum && s.Meshes.Checksum == s.Model.Checksum
}

// ReadSet loads path (a model file) and its companions next to it.
func ReadSet(path string) (*Set, error) {
	base := strings.TrimSuffix(path, ".mdl")
	var s Set
	var err error
	if s.Model, err = readFile(base+".mdl", ParseModel); err != nil {
		return nil, err
	}
	if s.Vertices, err = readFile(base+".vvd", ParseVertices); err != nil {
		return nil, err
	}
	if s.Meshes, err = readFile(base+".dx90.vtx", ParseMeshes); err != nil {
		return nil, err
	}
	return &s, nil
}

func readFile[T any](path string, parse func([]byte) (*T, error)) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("studio: read %s: %w", path, err)
	}
	v, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return v, nil
}
