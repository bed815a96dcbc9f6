// Package compiler runs the full pipeline from loaded sources to the three
// output buffers: bones, animations, sequences, meshes, then the model,
// vertex and mesh files.
package compiler

import (
	"context"

	"github.com/pkg/errors"

	"mdl-compiler/internal/animation"
	"mdl-compiler/internal/bones"
	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/logging"
	"mdl-compiler/internal/mdl"
	"mdl-compiler/internal/mesh"
	"mdl-compiler/internal/project"
	"mdl-compiler/internal/sequence"
	"mdl-compiler/internal/vtx"
	"mdl-compiler/internal/vvd"
)

// Context carries what a compile needs besides the project. Files must hold
// every source the project references, fully loaded.
type Context struct {
	Log   *logging.Logger
	Files importer.Files
}

// Stats summarizes one compile.
type Stats struct {
	Bones      int `json:"bones"`
	Animations int `json:"animations"`
	Sequences  int `json:"sequences"`
	Materials  int `json:"materials"`
	BodyParts  int `json:"body_parts"`

	Meshes         int `json:"meshes"`
	Strips         int `json:"strips"`
	Vertices       int `json:"vertices"`
	Triangles      int `json:"triangles"`
	BadVertices    int `json:"bad_vertices"`
	CulledVertices int `json:"culled_vertices"`
}

// Output holds the three compiled files. Bones and Meshes are kept for
// previews and reports.
type Output struct {
	MDL      []byte
	VVD      []byte
	VTX      []byte
	Checksum int32

	Bones  *bones.Table
	Meshes *mesh.Data
	Stats  Stats
}

// Compile runs every stage in order and stops at the first error. Nothing is
// written to disk.
func Compile(ctx Context, p *project.Project) (*Output, error) {
	log := ctx.Log

	log.Verbosef("processing bones")
	table, err := bones.Build(p, ctx.Files, log)
	if err != nil {
		return nil, errors.WithMessage(err, "compile bones")
	}

	log.Verbosef("processing animations")
	anims, err := animation.Process(p, ctx.Files, table, log)
	if err != nil {
		return nil, errors.WithMessage(err, "compile animations")
	}

	log.Verbosef("processing sequences")
	seqs, err := sequence.Process(p, anims)
	if err != nil {
		return nil, errors.WithMessage(err, "compile sequences")
	}

	log.Verbosef("processing meshes")
	meshes, err := mesh.Process(p, ctx.Files, table, log)
	if err != nil {
		return nil, errors.WithMessage(err, "compile meshes")
	}

	out := &Output{Bones: table, Meshes: meshes}
	out.MDL, out.Checksum, err = mdl.Write(mdl.Input{
		Name:       p.ModelName,
		Bones:      table,
		Animations: anims,
		Sequences:  seqs,
		Meshes:     meshes,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "write model")
	}
	if out.VVD, err = vvd.Write(meshes, out.Checksum); err != nil {
		return nil, errors.WithMessage(err, "write vertices")
	}
	if out.VTX, err = vtx.Write(meshes, out.Checksum); err != nil {
		return nil, errors.WithMessage(err, "write meshes")
	}

	out.Stats = Stats{
		Bones:          len(table.Bones),
		Animations:     len(anims.Animations),
		Sequences:      len(seqs),
		Materials:      len(meshes.Materials),
		BodyParts:      len(meshes.BodyParts),
		Meshes:         meshes.Stats.Meshes,
		Strips:         meshes.Stats.Strips,
		Vertices:       meshes.Stats.Vertices,
		Triangles:      meshes.Stats.Triangles,
		BadVertices:    meshes.Stats.BadVertices,
		CulledVertices: meshes.Stats.CulledVertices,
	}
	log.Infof("compiled %s: %d bones, %d animations, %d sequences, %d meshes, %d vertices",
		p.ModelName, out.Stats.Bones, out.Stats.Animations, out.Stats.Sequences,
		out.Stats.Meshes, out.Stats.Vertices)
	return out, nil
}

// LoadSources reads every source the project references on reg's workers,
// waits for all of them, and returns the loaded snapshot. The references are
// released before returning; the snapshot stays valid.
func LoadSources(ctx context.Context, reg *importer.Registry, p *project.Project) (importer.Files, error) {
	paths := p.Sources()
	for _, path := range paths {
		reg.Acquire(path)
	}
	defer func() {
		for _, path := range paths {
			reg.Release(path)
		}
	}()
	if err := reg.Await(ctx); err != nil {
		return nil, err
	}
	return reg.Snapshot(paths...)
}
