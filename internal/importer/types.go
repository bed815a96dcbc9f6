// Package importer reads model sources into the immutable FileData snapshot
// consumed by the compiler, and tracks loaded files in a shared registry.
package importer

import (
	"errors"
	"fmt"

	"mdl-compiler/internal/mathutil"
)

// DefaultMaterial is assigned to faces that name no material.
const DefaultMaterial = "debug/debugempty"

// Bone is one skeleton entry. Parent is -1 for roots, otherwise an index
// lower than the bone's own.
type Bone struct {
	Name        string
	Parent      int
	Position    mathutil.Vec3
	Orientation mathutil.Quat
}

// Channel holds sparse keyframes for one bone, keyed by frame.
type Channel struct {
	Position map[int]mathutil.Vec3
	Rotation map[int]mathutil.Quat
}

func newChannel() *Channel {
	return &Channel{
		Position: make(map[int]mathutil.Vec3),
		Rotation: make(map[int]mathutil.Quat),
	}
}

// Animation is a named clip. Channels are keyed by skeleton index.
type Animation struct {
	Name       string
	FrameCount int
	Channels   map[int]*Channel
}

// Link binds a vertex to a skeleton bone.
type Link struct {
	Bone   int
	Weight float64
}

type Vertex struct {
	Position mathutil.Vec3
	Normal   mathutil.Vec3
	UV       mathutil.Vec2
	Links    []Link
}

// MaterialFaces groups the polygons of one material. Each face lists vertex
// indices into the owning Part.
type MaterialFaces struct {
	Material string
	Faces    [][]int
}

// Part is a named mesh piece.
type Part struct {
	Name      string
	Vertices  []Vertex
	Materials []MaterialFaces
}

// AddFace appends a polygon under material, keeping first-seen material order.
func (p *Part) AddFace(material string, face []int) {
	for i := range p.Materials {
		if p.Materials[i].Material == material {
			p.Materials[i].Faces = append(p.Materials[i].Faces, face)
			return
		}
	}
	p.Materials = append(p.Materials, MaterialFaces{Material: material, Faces: [][]int{face}})
}

// FileData is everything read from one source file. It is never mutated
// after loading completes.
type FileData struct {
	Up         mathutil.AxisDirection
	Forward    mathutil.AxisDirection
	Skeleton   []Bone
	Animations []Animation
	Parts      []Part
}

// BoneIndex returns the skeleton index of name, or -1.
func (f *FileData) BoneIndex(name string) int {
	for i := range f.Skeleton {
		if f.Skeleton[i].Name == name {
			return i
		}
	}
	return -1
}

// AnimationIndex returns the index of the named animation, or -1.
func (f *FileData) AnimationIndex(name string) int {
	for i := range f.Animations {
		if f.Animations[i].Name == name {
			return i
		}
	}
	return -1
}

// PartIndex returns the index of the named part, or -1.
func (f *FileData) PartIndex(name string) int {
	for i := range f.Parts {
		if f.Parts[i].Name == name {
			return i
		}
	}
	return -1
}

// Correction is the rotation from the file's basis into engine space.
func (f *FileData) Correction() mathutil.Mat3 {
	return mathutil.Correction(f.Up, f.Forward)
}

var (
	ErrEmptySkeleton   = errors.New("importer: source has no bones")
	ErrNoAnimations    = errors.New("importer: source has no animations")
	ErrParallelAxes    = errors.New("importer: up and forward axes are parallel")
	ErrForwardParent   = errors.New("importer: bone parent is not declared before the bone")
	ErrFrameCount      = errors.New("importer: animation has no frames")
	ErrLinkOutOfRange  = errors.New("importer: vertex links an unknown bone")
	ErrFaceOutOfRange  = errors.New("importer: face references an unknown vertex")
	ErrUnsupportedFile = errors.New("importer: unsupported file format")
)

// Validate checks the structural guarantees the compiler relies on.
func (f *FileData) Validate() error {
	if len(f.Skeleton) == 0 {
		return ErrEmptySkeleton
	}
	if len(f.Animations) == 0 {
		return ErrNoAnimations
	}
	if f.Up.IsParallel(f.Forward) {
		return ErrParallelAxes
	}
	for i, b := range f.Skeleton {
		if b.Parent >= i || b.Parent < -1 {
			return fmt.Errorf("%w: %q", ErrForwardParent, b.Name)
		}
	}
	for _, a := range f.Animations {
		if a.FrameCount < 1 {
			return fmt.Errorf("%w: %q", ErrFrameCount, a.Name)
		}
	}
	for _, p := range f.Parts {
		for _, v := range p.Vertices {
			for _, l := range v.Links {
				if l.Bone < 0 || l.Bone >= len(f.Skeleton) {
					return fmt.Errorf("%w: part %q bone %d", ErrLinkOutOfRange, p.Name, l.Bone)
				}
			}
		}
		for _, m := range p.Materials {
			for _, face := range m.Faces {
				for _, idx := range face {
					if idx < 0 || idx >= len(p.Vertices) {
						return fmt.Errorf("%w: part %q index %d", ErrFaceOutOfRange, p.Name, idx)
					}
				}
			}
		}
	}
	return nil
}
