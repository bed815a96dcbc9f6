// Package mesh turns source polygons into welded, skinned vertices and
// partitions them into strip groups sized for hardware skinning.
package mesh

import (
	"github.com/pkg/errors"

	"mdl-compiler/internal/mathutil"
)

const (
	// MaxHardwareBonesPerStrip is the number of skinning matrices a strip
	// may keep resident.
	MaxHardwareBonesPerStrip = 53
	// MaxGroupVertices is the 16-bit index space of one strip group.
	MaxGroupVertices = 65536
	VertexCacheSize  = 16
	MaxWeights       = 3
	MaxMaterials     = 32768
	MaxModelName     = 64
)

var (
	ErrIncompleteFace     = errors.New("mesh: face has fewer than three vertices")
	ErrVertexNoWeights    = errors.New("mesh: vertex has no bone weights left")
	ErrTooManyMaterials   = errors.New("mesh: too many materials")
	ErrDuplicateBodyGroup = errors.New("mesh: duplicate body group name")
	ErrMissingSource      = errors.New("mesh: no source file selected")
	ErrFileNotLoaded      = errors.New("mesh: source file not loaded")
	ErrUnknownBone        = errors.New("mesh: vertex links a bone missing from the table")
)

// Vertex is a fully processed vertex as stored in the vertex file.
type Vertex struct {
	Weights   [MaxWeights]float32
	Bones     [MaxWeights]uint8
	BoneCount uint8
	Position  mathutil.Vec3
	Normal    mathutil.Vec3
	UV        mathutil.Vec2
	Tangent   mathutil.Vec4
}

// StripVertex references a mesh vertex and its hardware bone slots.
type StripVertex struct {
	BoneCount   uint8
	VertexIndex uint16
	Bones       [MaxWeights]uint8
}

// BoneStateChange loads a bone table entry into a hardware slot.
type BoneStateChange struct {
	HardwareBone  int32
	BoneTableBone int32
}

// Strip is a range of a strip group's indices and vertices sharing one set
// of resident hardware bones.
type Strip struct {
	IndexOffset  int32
	IndexCount   int32
	VertexOffset int32
	VertexCount  int32
	BoneCount    int16
	BoneChanges  []BoneStateChange
}

type StripGroup struct {
	Vertices []StripVertex
	Indices  []uint16
	Strips   []Strip
}

// Mesh is the geometry of one material within one model.
type Mesh struct {
	Material    int
	Vertices    []Vertex
	StripGroups []StripGroup
}

type Model struct {
	Name   string
	Meshes []Mesh
}

// VertexCount sums the vertices of every mesh.
func (m Model) VertexCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += len(mesh.Vertices)
	}
	return n
}

type BodyPart struct {
	Name   string
	Models []Model
}

// Hitbox bounds the weighted, bone-local vertices of one bone.
type Hitbox struct {
	Bone int
	Box  mathutil.BoundingBox
}

// Stats counts what the processor produced.
type Stats struct {
	Meshes         int
	Strips         int
	Vertices       int
	Triangles      int
	BadVertices    int
	CulledVertices int
}

// Data is the processed geometry of a whole model.
type Data struct {
	BodyParts   []BodyPart
	Materials   []string
	BoundingBox mathutil.BoundingBox
	Hitboxes    []Hitbox
	Stats       Stats
}
