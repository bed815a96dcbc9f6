// Package vvd writes the vertex file (IDSV, version 4) that backs the model
// file's vertex and tangent offsets.
package vvd

import (
	"github.com/pkg/errors"

	"mdl-compiler/internal/binwriter"
	"mdl-compiler/internal/mesh"
)

const (
	ID      = 'I' | 'D'<<8 | 'S'<<16 | 'V'<<24
	Version = 4
	MaxLODs = 8
)

// Write emits every vertex in body part, model, mesh order, followed by the
// matching tangents. checksum must be the model file's.
func Write(data *mesh.Data, checksum int32) ([]byte, error) {
	var vertices []mesh.Vertex
	for _, bp := range data.BodyParts {
		for _, m := range bp.Models {
			for _, ms := range m.Meshes {
				vertices = append(vertices, ms.Vertices...)
			}
		}
	}

	w := binwriter.New()
	hdr := w.Begin()
	w.I32(ID)
	w.I32(Version)
	w.I32(checksum)
	w.I32(1) // lods
	for lod := 0; lod < MaxLODs; lod++ {
		if err := w.Count32(len(vertices)); err != nil {
			return nil, errors.WithMessage(err, "vvd: vertex count")
		}
	}
	w.I32(0) // fixups
	hdr.Reserve(w)
	hdr.Reserve(w)
	hdr.Reserve(w)

	if err := hdr.Patch(w, 0); err != nil {
		return nil, err
	}
	if err := hdr.Patch(w, 1); err != nil {
		return nil, err
	}
	for _, v := range vertices {
		w.F32s(v.Weights[:])
		w.U8s(v.Bones[:])
		w.U8(v.BoneCount)
		w.Vec3(v.Position)
		w.Vec3(v.Normal)
		w.Vec2(v.UV)
	}
	if err := hdr.Patch(w, 2); err != nil {
		return nil, err
	}
	for _, v := range vertices {
		w.Vec4(v.Tangent)
	}
	return w.Bytes(), nil
}
