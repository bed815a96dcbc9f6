package mesh

import (
	"github.com/pkg/errors"

	"mdl-compiler/internal/bones"
	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/logging"
	"mdl-compiler/internal/mathutil"
	"mdl-compiler/internal/project"
)

// Tolerance is used for welding, weight culling and attribute comparison.
const Tolerance = mathutil.Float32Epsilon

// Process builds the body parts of p from the loaded sources. Bone links are
// mapped through table, which must be the collapsed table of the same project.
func Process(p *project.Project, files importer.Files, table *bones.Table, log *logging.Logger) (*Data, error) {
	data := &Data{BoundingBox: mathutil.NewBoundingBox()}
	materials := make(map[string]int)
	strips := newStripper(table, data)

	seen := make(map[string]bool)
	for gi, group := range p.BodyGroups {
		if seen[group.Name] {
			return nil, errors.Wrapf(ErrDuplicateBodyGroup, "body group %d %q", gi+1, group.Name)
		}
		seen[group.Name] = true

		part := BodyPart{Name: group.Name}
		for _, model := range group.Models {
			m, err := processModel(model, files, table, materials, data, strips, log)
			if err != nil {
				return nil, errors.WithMessagef(err, "body group %q", group.Name)
			}
			part.Models = append(part.Models, m)
		}
		data.BodyParts = append(data.BodyParts, part)
	}

	if len(data.Materials) > MaxMaterials {
		return nil, errors.Wrapf(ErrTooManyMaterials, "%d materials, limit %d", len(data.Materials), MaxMaterials)
	}
	return data, nil
}

func processModel(model project.Model, files importer.Files, table *bones.Table, materials map[string]int,
	data *Data, strips *stripper, log *logging.Logger) (Model, error) {
	if model.Blank {
		return Model{}, nil
	}
	name := model.Name
	if len(name) > MaxModelName {
		log.Warnf("model name %q longer than %d bytes, truncating", name, MaxModelName)
		name = name[:MaxModelName]
	}
	if model.Source == "" {
		return Model{}, errors.Wrapf(ErrMissingSource, "model %q", model.Name)
	}
	src, err := files.Get(model.Source)
	if err != nil {
		return Model{}, errors.Wrapf(ErrFileNotLoaded, "model %q: %s", model.Name, model.Source)
	}

	lists, err := triangleLists(model, src, table, materials, data)
	if err != nil {
		return Model{}, errors.WithMessagef(err, "model %q", model.Name)
	}
	if len(lists) == 0 {
		log.Warnf("model %q has no triangles, leaving it blank", model.Name)
		return Model{}, nil
	}

	out := Model{Name: name}
	var bad, culled, triangles int
	for _, list := range lists {
		for i := range list.triangles {
			t := &list.triangles[i]
			t[0], t[2] = t[2], t[0]
		}

		var n int
		list.tangents, n = computeTangents(list.vertices, list.triangles)
		bad += n

		for i := range list.vertices {
			links, cut, err := cullWeights(list.vertices[i].links, Tolerance)
			if err != nil {
				return Model{}, errors.WithMessagef(err, "model %q vertex %d", model.Name, i)
			}
			list.vertices[i].links = links
			if cut {
				culled++
			}
		}

		triangles += len(list.triangles)
		out.Meshes = append(out.Meshes, strips.convert(list)...)
	}

	data.Stats.BadVertices += bad
	data.Stats.CulledVertices += culled
	if bad > 0 {
		log.Warnf("model %q has %d bad vertices", model.Name, bad)
	}
	if culled > 0 {
		log.Warnf("model %q has %d weight culled vertices", model.Name, culled)
	}
	log.Verbosef("model %q has %d faces, %d vertices and %d indices", model.Name, triangles, out.VertexCount(), triangles*3)
	return out, nil
}

// triangleLists triangulates and welds the enabled parts of src, one list per
// material in order of first use.
func triangleLists(model project.Model, src *importer.FileData, table *bones.Table,
	materials map[string]int, data *Data) ([]*triangleList, error) {
	correction := src.Correction()

	boneMap := make([]int, len(src.Skeleton))
	for i, b := range src.Skeleton {
		boneMap[i] = -1
		if idx, ok := table.Resolve(b.Name); ok {
			boneMap[i] = idx
		}
	}

	var lists []*triangleList
	byMaterial := make(map[int]*triangleList)
	for pi, part := range src.Parts {
		if !model.PartEnabled(pi) {
			continue
		}
		position := func(i int) mathutil.Vec3 { return part.Vertices[i].Position }

		for _, mf := range part.Materials {
			mat, ok := materials[mf.Material]
			if !ok {
				mat = len(data.Materials)
				materials[mf.Material] = mat
				data.Materials = append(data.Materials, mf.Material)
			}
			list := byMaterial[mat]
			if list == nil {
				list = &triangleList{material: mat}
				byMaterial[mat] = list
				lists = append(lists, list)
			}

			for fi, face := range mf.Faces {
				if len(face) < 3 {
					return nil, errors.Wrapf(ErrIncompleteFace, "part %q face %d", part.Name, fi)
				}
				for _, tri := range Triangulate(face, position) {
					var out [3]int
					for k, vi := range tri {
						v, err := prepare(part.Vertices[vi], correction, src, boneMap)
						if err != nil {
							return nil, errors.WithMessagef(err, "part %q face %d", part.Name, fi)
						}
						out[k] = len(list.vertices)
						list.vertices = append(list.vertices, v)
					}
					list.triangles = append(list.triangles, out)
				}
			}
		}
	}

	kept := lists[:0]
	for _, list := range lists {
		if len(list.triangles) == 0 {
			continue
		}
		var remap []int
		list.vertices, remap = weld(list.vertices, Tolerance)
		for i, t := range list.triangles {
			list.triangles[i] = [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
		}
		kept = append(kept, list)
	}
	return kept, nil
}

func prepare(v importer.Vertex, correction mathutil.Mat3, src *importer.FileData, boneMap []int) (rawVertex, error) {
	out := rawVertex{
		position: correction.MulVec3(v.Position),
		normal:   correction.MulVec3(v.Normal.Normalize()),
		uv:       mathutil.Vec2{v.UV[0], 1 - v.UV[1]},
		links:    make([]link, 0, len(v.Links)),
	}
	for _, l := range v.Links {
		bone := boneMap[l.Bone]
		if bone < 0 {
			return rawVertex{}, errors.Wrapf(ErrUnknownBone, "bone %q", src.Skeleton[l.Bone].Name)
		}
		out.links = append(out.links, link{bone: bone, weight: l.Weight})
	}
	return out, nil
}
