// Package mdl serializes the compiled skeleton, animations, sequences and
// body part tree into the studio model file (IDST, version 48).
package mdl

import (
	"github.com/pkg/errors"

	"mdl-compiler/internal/animation"
	"mdl-compiler/internal/binwriter"
	"mdl-compiler/internal/bones"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/mesh"
	"mdl-compiler/internal/sequence"
)

const (
	ID      = 'I' | 'D'<<8 | 'S'<<16 | 'T'<<24
	Version = 48

	// ChecksumOffset is where the checksum sits in the header.
	ChecksumOffset = 8
	NameLength     = 64
	MaxLODs        = 8

	FlagAutoGeneratedHitbox = 0x01
	FlagForceOpaque         = 0x04
	ContentsSolid           = 0x01

	// VertexSize and TangentSize are the strides of the vertex file arrays
	// that model records point into.
	VertexSize  = 48
	TangentSize = 16

	SurfaceProperty = "default"
	HitboxSetName   = "default"
	FadeTime        = 0.2
)

// Input is everything the model file describes.
type Input struct {
	Name       string
	Bones      *bones.Table
	Animations *animation.Data
	Sequences  []sequence.Sequence
	Meshes     *mesh.Data
}

type encoder struct {
	w   *binwriter.Writer
	in  Input
	err error
}

func (e *encoder) check(err error) {
	if e.err == nil && err != nil {
		e.err = err
	}
}

func (e *encoder) count(n int) {
	e.check(e.w.Count32(n))
}

// header placeholder slots, in write order.
const (
	slotBones = iota
	slotBoneControllers
	slotHitboxSets
	slotAnimations
	slotSequences
	slotMaterials
	slotMaterialPaths
	slotSkins
	slotBodyParts
	slotAttachments
	slotNodes
	slotNodeNames
	slotFlexDescs
	slotFlexControllers
	slotFlexRules
	slotIKChains
	slotMouths
	slotPoseParameters
	slotIKLocks
	slotIncludeModels
	slotAnimBlocks
	slotBoneTableByName
	slotFlexControllerUI
	slotSecondHeader
)

// Write lays out the model file and returns it with its checksum.
func Write(in Input) ([]byte, int32, error) {
	e := &encoder{w: binwriter.New(), in: in}
	w := e.w

	hull := in.Meshes.BoundingBox.OrZero()
	hdr := w.Begin()
	w.I32(ID)
	w.I32(Version)
	checksumAt := w.ReserveI32()
	w.CharArray(in.Name, NameLength)
	lengthAt := w.ReserveI32()
	w.Vec3(mathutil.Vec3{}) // eye position
	w.Vec3(hull.Center())
	w.Vec3(hull.Min)
	w.Vec3(hull.Max)
	w.Vec3(mathutil.Vec3{}) // view box
	w.Vec3(mathutil.Vec3{})
	w.I32(FlagAutoGeneratedHitbox | FlagForceOpaque)

	e.count(len(in.Bones.Bones))
	hdr.Reserve(w)
	e.count(0)
	hdr.Reserve(w)
	e.count(1)
	hdr.Reserve(w)
	e.count(len(in.Animations.Animations))
	hdr.Reserve(w)
	e.count(len(in.Sequences))
	hdr.Reserve(w)
	w.I32(0) // activity list version
	w.I32(0) // events indexed
	e.count(len(in.Meshes.Materials))
	hdr.Reserve(w)
	e.count(1) // material paths
	hdr.Reserve(w)
	e.count(len(in.Meshes.Materials))
	e.count(1) // skin families
	hdr.Reserve(w)
	e.count(len(in.Meshes.BodyParts))
	hdr.Reserve(w)
	e.count(0) // attachments
	hdr.Reserve(w)
	e.count(0) // nodes
	hdr.Reserve(w)
	hdr.Reserve(w)
	for i := 0; i < 6; i++ { // flex descs, flex controllers, flex rules, ik chains, mouths, pose parameters
		e.count(0)
		hdr.Reserve(w)
	}
	w.String(hdr.Base, SurfaceProperty)
	w.String(hdr.Base, "") // key values
	w.I32(0)
	e.count(0) // ik locks
	hdr.Reserve(w)
	w.F32(0) // mass
	w.I32(ContentsSolid)
	e.count(0) // include models
	hdr.Reserve(w)
	w.I32(0)
	w.String(hdr.Base, "") // animation block name
	e.count(0)
	hdr.Reserve(w)
	w.I32(0)
	hdr.Reserve(w) // bone table by name
	w.I32(0)       // vertex base
	w.I32(0)       // index base
	w.U8(0)        // constant directional light dot
	w.U8(0)        // root lod
	w.U8(0)        // allowed root lods
	w.U8(0)
	w.I32(0)
	e.count(0) // flex controller ui
	hdr.Reserve(w)
	w.F32(0) // flex scale
	w.I32(0)
	hdr.Reserve(w)
	w.I32(0)

	e.check(hdr.Patch(w, slotSecondHeader))
	e.secondHeader()
	e.bones(hdr)
	e.hitboxes(hdr)
	e.check(hdr.Patch(w, slotBoneTableByName))
	w.U8s(in.Bones.SortedByName)
	w.Align(4)
	e.animations(hdr)
	e.sequences(hdr)
	e.bodyParts(hdr)
	e.materials(hdr)
	if e.err != nil {
		return nil, 0, errors.Wrap(e.err, "mdl")
	}
	if err := w.FlushStrings(); err != nil {
		return nil, 0, errors.Wrap(err, "mdl")
	}

	sum := w.Checksum()
	w.PatchI32(checksumAt, sum)
	w.PatchI32(lengthAt, int32(w.Pos()))
	return w.Bytes(), sum, nil
}

func (e *encoder) secondHeader() {
	w := e.w
	r := w.Begin()
	e.count(0) // source bone transforms
	w.I32(0)
	w.I32(0) // illumination position attachment
	w.F32(0) // max eye deflection
	w.I32(0) // linear bones
	w.String(r.Base, e.in.Name)
	e.count(0) // bone flex drivers
	w.I32(0)
	w.Zeros(4 * 8) // virtual model, animation block model, vertex base, index base
	w.Zeros(48 * 4)
}

func (e *encoder) bones(hdr binwriter.Record) {
	w := e.w
	e.check(hdr.Patch(w, slotBones))
	for i, b := range e.in.Bones.Bones {
		r := w.Begin()
		w.String(r.Base, b.Name)
		w.I32(int32(b.Parent))
		w.I32s([]int32{-1, -1, -1, -1, -1, -1})
		w.Vec3(b.Position)
		w.Quat(b.Rotation.ToQuat())
		w.Angles(b.Rotation)
		var scale animation.Scale
		if i < len(e.in.Animations.Scales) {
			scale = e.in.Animations.Scales[i]
		}
		w.Vec3(scale.Position)
		w.Vec3(scale.Rotation)
		inv := b.Pose.Inverse()
		for k := 0; k < 12; k++ {
			w.F32(float32(inv[k]))
		}
		w.Quat(mathutil.QuatIdentity()) // alignment
		w.I32(int32(b.Flags))
		w.I32(0) // procedural type
		w.I32(0) // procedural index
		w.I32(-1)
		w.String(r.Base, SurfaceProperty)
		w.I32(ContentsSolid)
		w.Zeros(8 * 4)
	}
	w.Align(4)
}

func (e *encoder) hitboxes(hdr binwriter.Record) {
	w := e.w
	e.check(hdr.Patch(w, slotHitboxSets))
	set := w.Begin()
	w.String(set.Base, HitboxSetName)
	e.count(len(e.in.Meshes.Hitboxes))
	set.Reserve(w)
	w.Align(4)

	e.check(set.Patch(w, 0))
	for _, h := range e.in.Meshes.Hitboxes {
		box := h.Box.OrZero()
		w.I32(int32(h.Bone))
		w.I32(0) // group
		w.Vec3(box.Min)
		w.Vec3(box.Max)
		w.I32(0) // name
		w.Zeros(8 * 4)
	}
	w.Align(4)
}

func (e *encoder) sequences(hdr binwriter.Record) {
	w := e.w
	e.check(hdr.Patch(w, slotSequences))
	records := make([]binwriter.Record, len(e.in.Sequences))
	for i, s := range e.in.Sequences {
		r := w.Begin()
		e.check(w.NegativeOffset(r.Base))
		w.String(r.Base, s.Name)
		w.String(r.Base, "") // activity
		w.I32(0)             // flags
		w.I32(0)             // activity
		w.I32(-1)            // activity weight
		e.count(0)           // events
		w.I32(0)
		w.Vec3(mathutil.Vec3{})
		w.Vec3(mathutil.Vec3{})
		e.count(s.Rows * s.Cols)
		r.Reserve(w) // animation grid
		w.I32(0)     // movement
		w.I32s([]int32{int32(s.Rows), int32(s.Cols)})
		w.I32s([]int32{-1, -1}) // parameters
		w.F32s([]float32{0, 0, 0, 0})
		w.I32(0) // parameter parent
		w.F32(FadeTime)
		w.F32(FadeTime)
		w.I32(0) // entry node
		w.I32(0) // exit node
		w.I32(0) // node flags
		w.F32s([]float32{0, 0, 0})
		w.I32(0) // next sequence
		w.I32(0) // pose
		w.I32(0) // ik rules
		e.count(0)
		w.I32(0)     // auto layers
		r.Reserve(w) // weight list
		w.I32(0)     // pose keys
		e.count(0)
		w.I32(0) // ik locks
		w.String(r.Base, "")
		w.I32(0)
		w.I32(0) // cycle pose
		e.count(0)
		w.I32(0) // activity modifiers
		w.Zeros(5 * 4)
		records[i] = r
	}

	weights := make([]float32, len(e.in.Bones.Bones))
	for i := range weights {
		weights[i] = 1
	}
	for i, s := range e.in.Sequences {
		e.check(records[i].Patch(w, 0))
		w.I16s(s.Animations)
		w.Align(4)
		e.check(records[i].Patch(w, 1))
		w.F32s(weights)
		w.Align(4)
	}
}

func (e *encoder) materials(hdr binwriter.Record) {
	w := e.w
	e.check(hdr.Patch(w, slotMaterials))
	for _, name := range e.in.Meshes.Materials {
		r := w.Begin()
		w.String(r.Base, name)
		w.I32(0) // flags
		w.I32(0) // used
		w.I32(0)
		w.U64(0) // material
		w.U64(0) // client material
		w.Zeros(8 * 4)
	}
	w.Align(4)

	e.check(hdr.Patch(w, slotMaterialPaths))
	w.String(hdr.Base, "")
	w.Align(4)

	e.check(hdr.Patch(w, slotSkins))
	skins := make([]int16, len(e.in.Meshes.Materials))
	for i := range skins {
		skins[i] = int16(i)
	}
	w.I16s(skins)
	w.Align(4)
}
