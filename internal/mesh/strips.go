package mesh

import (
	"mdl-compiler/internal/bones"
	"mdl-compiler/internal/mathutil"
)

// triangleList is the welded geometry of one material within one model.
type triangleList struct {
	material  int
	vertices  []rawVertex
	tangents  []mathutil.Vec4
	triangles [][3]int
}

// stripper cuts triangle lists into meshes, strip groups and strips while
// accumulating the model-wide bounds.
type stripper struct {
	table   *bones.Table
	inverse []mathutil.Mat4
	data    *Data
	hitbox  map[int]int
}

func newStripper(table *bones.Table, data *Data) *stripper {
	s := &stripper{
		table:   table,
		inverse: make([]mathutil.Mat4, len(table.Bones)),
		data:    data,
		hitbox:  make(map[int]int),
	}
	for i, b := range table.Bones {
		s.inverse[i] = b.Pose.Inverse()
	}
	return s
}

// residency tracks which vertices and hardware bones the current strip holds.
type residency struct {
	mapped map[int]uint16
	slot   map[int]int
}

func newResidency() residency {
	return residency{mapped: make(map[int]uint16), slot: make(map[int]int)}
}

// newVertices counts the distinct vertices of tri not yet in the group.
func (r residency) newVertices(tri [3]int) int {
	n := 0
	for i, idx := range tri {
		if _, ok := r.mapped[idx]; ok || repeats(tri, i) {
			continue
		}
		n++
	}
	return n
}

func repeats(tri [3]int, i int) bool {
	for j := 0; j < i; j++ {
		if tri[j] == tri[i] {
			return true
		}
	}
	return false
}

// convert partitions the list. A new mesh with its own strip group starts
// when the 16-bit index space would overflow, a new strip when the resident
// hardware bones would exceed MaxHardwareBonesPerStrip.
func (s *stripper) convert(list *triangleList) []Mesh {
	var meshes []Mesh
	mesh := Mesh{Material: list.material}
	var group StripGroup
	var strip Strip
	res := newResidency()

	for _, tri := range list.triangles {
		newBones := make(map[int]bool)
		for _, idx := range tri {
			for _, l := range list.vertices[idx].links {
				if _, ok := res.slot[l.bone]; !ok {
					newBones[l.bone] = true
				}
			}
		}
		if len(res.slot)+len(newBones) > MaxHardwareBonesPerStrip {
			next := Strip{
				IndexOffset:  strip.IndexOffset + strip.IndexCount,
				VertexOffset: strip.VertexOffset + strip.VertexCount,
			}
			group.Strips = append(group.Strips, strip)
			s.data.Stats.Strips++
			strip = next
			res = newResidency()
		}

		if len(group.Vertices)+res.newVertices(tri) > MaxGroupVertices {
			if strip.IndexCount > 0 {
				group.Strips = append(group.Strips, strip)
				s.data.Stats.Strips++
			}
			mesh.StripGroups = append(mesh.StripGroups, group)
			meshes = append(meshes, mesh)

			mesh = Mesh{Material: list.material}
			group = StripGroup{}
			strip = Strip{}
			res = newResidency()
		}

		for _, idx := range tri {
			if local, ok := res.mapped[idx]; ok {
				group.Indices = append(group.Indices, local)
				strip.IndexCount++
				continue
			}

			v := s.vertex(list, idx)
			sv := StripVertex{BoneCount: v.BoneCount, VertexIndex: uint16(len(group.Vertices))}
			for k := 0; k < int(v.BoneCount); k++ {
				bone := int(v.Bones[k])
				slot, ok := res.slot[bone]
				if !ok {
					slot = len(res.slot)
					res.slot[bone] = slot
					strip.BoneChanges = append(strip.BoneChanges, BoneStateChange{
						HardwareBone:  int32(slot),
						BoneTableBone: int32(bone),
					})
				}
				sv.Bones[k] = uint8(slot)
			}
			if int16(v.BoneCount) > strip.BoneCount {
				strip.BoneCount = int16(v.BoneCount)
			}

			res.mapped[idx] = sv.VertexIndex
			group.Indices = append(group.Indices, sv.VertexIndex)
			group.Vertices = append(group.Vertices, sv)
			mesh.Vertices = append(mesh.Vertices, v)
			strip.IndexCount++
			strip.VertexCount++
			s.data.Stats.Vertices++
		}
		s.data.Stats.Triangles++
	}

	group.Strips = append(group.Strips, strip)
	mesh.StripGroups = append(mesh.StripGroups, group)
	meshes = append(meshes, mesh)
	s.data.Stats.Strips++
	s.data.Stats.Meshes += len(meshes)

	for mi := range meshes {
		for gi := range meshes[mi].StripGroups {
			g := &meshes[mi].StripGroups[gi]
			for _, st := range g.Strips {
				span := g.Indices[st.IndexOffset : st.IndexOffset+st.IndexCount]
				copy(span, Forsyth(span, VertexCacheSize))
			}
		}
	}
	return meshes
}

// vertex builds the output vertex for list.vertices[idx] and folds it into
// the bounding box and the hitboxes of the bones it follows.
func (s *stripper) vertex(list *triangleList, idx int) Vertex {
	src := list.vertices[idx]
	v := Vertex{
		BoneCount: uint8(len(src.links)),
		Position:  src.position,
		Normal:    src.normal,
		UV:        src.uv,
		Tangent:   list.tangents[idx],
	}
	for k, l := range src.links {
		v.Weights[k] = float32(l.weight)
		v.Bones[k] = uint8(l.bone)
	}

	s.data.BoundingBox.AddPoint(v.Position)
	for k := 0; k < int(v.BoneCount); k++ {
		bone := int(v.Bones[k])
		local := s.inverse[bone].MulPoint(v.Position).Scale(float64(v.Weights[k]))
		hi, ok := s.hitbox[bone]
		if !ok {
			hi = len(s.data.Hitboxes)
			s.hitbox[bone] = hi
			s.data.Hitboxes = append(s.data.Hitboxes, Hitbox{Bone: bone, Box: mathutil.NewBoundingBox()})
		}
		s.data.Hitboxes[hi].Box.AddPoint(local)
	}
	return v
}
