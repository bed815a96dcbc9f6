// Package vtx writes the hardware mesh file (version 7): body parts, models,
// LODs, meshes, strip groups and strips, each level addressed by offsets
// relative to its own header.
package vtx

import (
	"github.com/pkg/errors"

	"mdl-compiler/internal/binwriter"
	"mdl-compiler/internal/mesh"
)

const (
	Version           = 7
	MaxBonesPerTri    = 9
	MaxBonesPerVertex = mesh.MaxWeights
	LODs              = 1

	StripGroupHardwareSkinned = 0x02
	StripTriangleList         = 0x01
)

// Write lays out the mesh file for data. checksum must be the model file's.
func Write(data *mesh.Data, checksum int32) ([]byte, error) {
	w := binwriter.New()
	e := &encoder{w: w}

	hdr := w.Begin()
	w.I32(Version)
	w.I32(mesh.VertexCacheSize)
	w.U16(mesh.MaxHardwareBonesPerStrip)
	w.U16(MaxBonesPerTri)
	w.I32(MaxBonesPerVertex)
	w.I32(checksum)
	w.I32(LODs) // material replacement lists
	hdr.Reserve(w)
	e.count(len(data.BodyParts))
	hdr.Reserve(w)
	if e.err != nil {
		return nil, errors.WithMessage(e.err, "vtx: header")
	}

	e.tree(hdr, data.BodyParts)
	e.materialReplacements(hdr)
	e.check(w.FlushStrings())
	if e.err != nil {
		return nil, errors.WithMessage(e.err, "vtx")
	}
	return w.Bytes(), nil
}

type encoder struct {
	w   *binwriter.Writer
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

// record starts a header holding count and one offset placeholder.
func (e *encoder) record(count int) (binwriter.Record, error) {
	r := e.w.Begin()
	err := e.w.Count32(count)
	r.Reserve(e.w)
	return r, err
}

func (e *encoder) tree(hdr binwriter.Record, parts []mesh.BodyPart) {
	w := e.w
	var models []mesh.Model
	for _, bp := range parts {
		models = append(models, bp.Models...)
	}
	var meshes []mesh.Mesh
	for _, m := range models {
		meshes = append(meshes, m.Meshes...)
	}
	var groups []mesh.StripGroup
	for _, ms := range meshes {
		groups = append(groups, ms.StripGroups...)
	}
	var strips []mesh.Strip
	for _, g := range groups {
		strips = append(strips, g.Strips...)
	}

	partRecs, err := binwriter.Level(w, []binwriter.Record{hdr}, 1,
		func(int) []mesh.BodyPart { return parts },
		func(bp mesh.BodyPart) (binwriter.Record, error) { return e.record(len(bp.Models)) })
	e.check(err)
	if e.err != nil {
		return
	}
	modelRecs, err := binwriter.Level(w, partRecs, 0,
		func(i int) []mesh.Model { return parts[i].Models },
		func(mesh.Model) (binwriter.Record, error) { return e.record(LODs) })
	e.check(err)
	if e.err != nil {
		return
	}
	lodRecs, err := binwriter.Level(w, modelRecs, 0,
		func(i int) []mesh.Model { return models[i : i+1] },
		func(m mesh.Model) (binwriter.Record, error) {
			r, err := e.record(len(m.Meshes))
			w.F32(0) // switch point
			return r, err
		})
	e.check(err)
	if e.err != nil {
		return
	}
	meshRecs, err := binwriter.Level(w, lodRecs, 0,
		func(i int) []mesh.Mesh { return models[i].Meshes },
		func(ms mesh.Mesh) (binwriter.Record, error) {
			r, err := e.record(len(ms.StripGroups))
			w.U8(0) // flags
			return r, err
		})
	e.check(err)
	if e.err != nil {
		return
	}
	groupRecs, err := binwriter.Level(w, meshRecs, 0,
		func(i int) []mesh.StripGroup { return meshes[i].StripGroups },
		func(g mesh.StripGroup) (binwriter.Record, error) {
			r := w.Begin()
			for _, n := range []int{len(g.Vertices), len(g.Indices), len(g.Strips)} {
				if err := w.Count32(n); err != nil {
					return r, err
				}
				r.Reserve(w)
			}
			w.U8(StripGroupHardwareSkinned)
			return r, nil
		})
	e.check(err)
	if e.err != nil {
		return
	}

	const (
		slotVertices = iota
		slotIndices
		slotStrips
	)
	stripRecs, err := binwriter.Level(w, groupRecs, slotStrips,
		func(i int) []mesh.Strip { return groups[i].Strips },
		func(s mesh.Strip) (binwriter.Record, error) {
			r := w.Begin()
			w.I32(s.IndexCount)
			w.I32(s.IndexOffset)
			w.I32(s.VertexCount)
			w.I32(s.VertexOffset)
			w.I16(s.BoneCount)
			w.U8(StripTriangleList)
			err := w.Count32(len(s.BoneChanges))
			r.Reserve(w)
			return r, err
		})
	e.check(err)
	if e.err != nil {
		return
	}
	_, err = binwriter.Level(w, groupRecs, slotVertices,
		func(i int) []mesh.StripVertex { return groups[i].Vertices },
		func(v mesh.StripVertex) (binwriter.Record, error) {
			r := w.Begin()
			w.U8s([]uint8{0, 1, 2}) // weight index
			w.U8(v.BoneCount)
			w.U16(v.VertexIndex)
			w.U8s(v.Bones[:])
			return r, nil
		})
	e.check(err)
	_, err = binwriter.Level(w, groupRecs, slotIndices,
		func(i int) []uint16 { return groups[i].Indices },
		func(idx uint16) (binwriter.Record, error) {
			w.U16(idx)
			return binwriter.Record{}, nil
		})
	e.check(err)
	_, err = binwriter.Level(w, stripRecs, 0,
		func(i int) []mesh.BoneStateChange { return strips[i].BoneChanges },
		func(c mesh.BoneStateChange) (binwriter.Record, error) {
			w.I32(c.HardwareBone)
			w.I32(c.BoneTableBone)
			return binwriter.Record{}, nil
		})
	e.check(err)
}

// materialReplacements writes one empty replacement list per LOD.
func (e *encoder) materialReplacements(hdr binwriter.Record) {
	if e.err != nil {
		return
	}
	lists, err := binwriter.Level(e.w, []binwriter.Record{hdr}, 0,
		func(int) []int { return make([]int, LODs) },
		func(int) (binwriter.Record, error) { return e.record(0) })
	e.check(err)
	if e.err != nil {
		return
	}
	_, err = binwriter.Level(e.w, lists, 0,
		func(int) []string { return nil },
		func(string) (binwriter.Record, error) { return binwriter.Record{}, nil })
	e.check(err)
}
