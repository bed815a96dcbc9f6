package mdl

import (
	"mdl-compiler/internal/binwriter"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/mesh"
)

// bodyParts writes body part headers, then every model, then every mesh.
// Model vertex offsets index the vertex file, which stores vertices in the
// same body part, model, mesh order.
func (e *encoder) bodyParts(hdr binwriter.Record) {
	w := e.w
	parts := e.in.Meshes.BodyParts
	base := 1
	partRecords, err := binwriter.Level(w, []binwriter.Record{hdr}, slotBodyParts,
		func(int) []mesh.BodyPart { return parts },
		func(bp mesh.BodyPart) (binwriter.Record, error) {
			r := w.Begin()
			w.String(r.Base, bp.Name)
			if err := w.Count32(len(bp.Models)); err != nil {
				return r, err
			}
			w.I32(int32(base))
			r.Reserve(w)
			base *= len(bp.Models)
			return r, nil
		})
	e.check(err)
	if e.err != nil {
		return
	}

	var models []mesh.Model
	for _, bp := range parts {
		models = append(models, bp.Models...)
	}
	vertices := 0
	modelRecords, err := binwriter.Level(w, partRecords, 0,
		func(i int) []mesh.Model { return parts[i].Models },
		func(m mesh.Model) (binwriter.Record, error) {
			r := w.Begin()
			w.CharArray(m.Name, NameLength)
			w.I32(0) // type
			w.F32(0) // bounding radius
			if err := w.Count32(len(m.Meshes)); err != nil {
				return r, err
			}
			r.Reserve(w)
			count := m.VertexCount()
			w.I32(int32(count))
			w.I32(int32(vertices * VertexSize))
			w.I32(int32(vertices * TangentSize))
			vertices += count
			w.I32(0) // attachments
			w.I32(0)
			w.I32(0) // eyeballs
			w.I32(0)
			w.U64(0) // vertex data
			w.U64(0) // tangent data
			w.Zeros(6 * 4)
			return r, nil
		})
	e.check(err)
	w.Align(4)
	if e.err != nil {
		return
	}

	id := 0
	for i, m := range models {
		r := modelRecords[i]
		e.check(r.Patch(w, 0))
		offset := 0
		for _, ms := range m.Meshes {
			start := w.Pos()
			w.I32(int32(ms.Material))
			e.check(w.NegativeOffset(start - r.Base))
			w.I32(int32(len(ms.Vertices)))
			w.I32(int32(offset))
			e.count(0) // flexes
			w.I32(0)
			w.I32(0) // material type
			w.I32(0) // material param
			w.I32(int32(id))
			w.Vec3(mathutil.Vec3{}) // center
			w.I32(0)
			for lod := 0; lod < MaxLODs; lod++ {
				w.I32(int32(len(ms.Vertices)))
			}
			w.U64(0)
			w.Zeros(6 * 4)
			offset += len(ms.Vertices)
			id++
		}
	}
	w.Align(4)
}
