// Package gltfimport adds glTF 2.0 sources (.gltf and .glb) to the importer.
//
// Import it for its side effect:
//
//	import _ "mdl-compiler/internal/importer/gltfimport"
package gltfimport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"

	"mdl-compiler/internal/importer"
	"mdl-compiler/internal/mathutil"
)

func init() {
	importer.RegisterFormat(".gltf", Load)
	importer.RegisterFormat(".glb", Load)
}

var (
	ErrAccessorRange = errors.New("gltfimport: accessor reads past its buffer")
	ErrBadReference  = errors.New("gltfimport: dangling index")
)

// Load opens a glTF file and converts its node tree and meshes.
func Load(path string) (*importer.FileData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltfimport: open %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := Decode(doc, stem)
	if err != nil {
		return nil, fmt.Errorf("gltfimport: %s: %w", path, err)
	}
	return data, nil
}

func deref[T ~int | ~uint32](p *T) (int, bool) {
	if p == nil {
		return 0, false
	}
	return int(*p), true
}

// Decode converts a parsed document. Every node becomes a bone; the bind
// pose is the only animation frame.
func Decode(doc *gltf.Document, name string) (*importer.FileData, error) {
	data := &importer.FileData{
		Up:      mathutil.PositiveY,
		Forward: mathutil.PositiveZ,
		Animations: []importer.Animation{{
			Name:       name,
			FrameCount: 1,
			Channels:   map[int]*importer.Channel{},
		}},
	}

	order, parents := nodeOrder(doc)
	boneOf := make(map[int]int, len(order))
	world := make(map[int]mathutil.Mat4, len(order))
	used := make(map[string]int)
	for _, ni := range order {
		node := doc.Nodes[ni]
		pos, rot := localTransform(node)

		parent := -1
		local := mathutil.FromQuatTranslation(rot, pos)
		if pi, ok := parents[ni]; ok {
			parent = boneOf[pi]
			world[ni] = mathutil.Mat4Mul(world[pi], local)
		} else {
			world[ni] = local
		}

		boneOf[ni] = len(data.Skeleton)
		data.Skeleton = append(data.Skeleton, importer.Bone{
			Name:        uniqueName(used, node.Name, "node", ni),
			Parent:      parent,
			Position:    pos,
			Orientation: rot,
		})
	}

	partOf := make(map[int]int)
	partNames := make(map[string]int)
	for _, ni := range order {
		node := doc.Nodes[ni]
		mi, ok := deref(node.Mesh)
		if !ok {
			continue
		}
		if mi >= len(doc.Meshes) {
			return nil, fmt.Errorf("%w: mesh %d", ErrBadReference, mi)
		}
		var joints []int
		if si, skinned := deref(node.Skin); skinned {
			if si >= len(doc.Skins) {
				return nil, fmt.Errorf("%w: skin %d", ErrBadReference, si)
			}
			for _, j := range doc.Skins[si].Joints {
				joints = append(joints, boneOf[int(j)])
			}
		}

		pi, seen := partOf[mi]
		if !seen {
			pi = len(data.Parts)
			partOf[mi] = pi
			data.Parts = append(data.Parts, importer.Part{
				Name: uniqueName(partNames, doc.Meshes[mi].Name, "mesh", mi),
			})
		}
		for _, prim := range doc.Meshes[mi].Primitives {
			if err := addPrimitive(doc, prim, &data.Parts[pi], world[ni], boneOf[ni], joints); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

// nodeOrder lists node indices parents-first and maps each child to its parent.
func nodeOrder(doc *gltf.Document) ([]int, map[int]int) {
	parents := make(map[int]int)
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			parents[int(c)] = i
		}
	}
	var order []int
	var visit func(i int)
	visit = func(i int) {
		order = append(order, i)
		for _, c := range doc.Nodes[i].Children {
			visit(int(c))
		}
	}
	for i := range doc.Nodes {
		if _, child := parents[i]; !child {
			visit(i)
		}
	}
	return order, parents
}

func localTransform(n *gltf.Node) (mathutil.Vec3, mathutil.Quat) {
	var m mathutil.Mat4
	identity, zero := true, true
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			v := float64(n.Matrix[c*4+r])
			m[r*4+c] = v
			want := 0.0
			if r == c {
				want = 1
			}
			if v != want {
				identity = false
			}
			if v != 0 {
				zero = false
			}
		}
	}
	if !identity && !zero {
		return m.Translation(), m.Quat().Normalize()
	}

	pos := mathutil.Vec3{float64(n.Translation[0]), float64(n.Translation[1]), float64(n.Translation[2])}
	rot := mathutil.Quat{float64(n.Rotation[0]), float64(n.Rotation[1]), float64(n.Rotation[2]), float64(n.Rotation[3])}
	return pos, rot.Normalize()
}

func uniqueName(used map[string]int, name, prefix string, idx int) string {
	if name == "" {
		name = fmt.Sprintf("%s%d", prefix, idx)
	}
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s.%d", name, n)
}

func addPrimitive(doc *gltf.Document, prim *gltf.Primitive, part *importer.Part, world mathutil.Mat4, nodeBone int, joints []int) error {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil
	}
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil
	}
	positions, err := readAccessor(doc, int(posIdx))
	if err != nil {
		return err
	}
	attr := func(name string) ([][]float64, error) {
		idx, ok := prim.Attributes[name]
		if !ok {
			return nil, nil
		}
		return readAccessor(doc, int(idx))
	}
	normals, err := attr("NORMAL")
	if err != nil {
		return err
	}
	uvs, err := attr("TEXCOORD_0")
	if err != nil {
		return err
	}
	jointIdx, err := attr("JOINTS_0")
	if err != nil {
		return err
	}
	weights, err := attr("WEIGHTS_0")
	if err != nil {
		return err
	}
	skinned := len(joints) > 0 && len(jointIdx) == len(positions) && len(weights) == len(positions)
	rot := world.Rotation()

	base := len(part.Vertices)
	for i, p := range positions {
		v := importer.Vertex{Position: mathutil.Vec3{p[0], p[1], p[2]}}
		if i < len(normals) {
			v.Normal = mathutil.Vec3{normals[i][0], normals[i][1], normals[i][2]}
		}
		if i < len(uvs) {
			// glTF texture rows run top-down.
			v.UV = mathutil.Vec2{uvs[i][0], 1 - uvs[i][1]}
		}
		if skinned {
			for k := 0; k < 4; k++ {
				w := weights[i][k]
				j := int(jointIdx[i][k])
				if w <= 0 || j >= len(joints) {
					continue
				}
				v.Links = append(v.Links, importer.Link{Bone: joints[j], Weight: w})
			}
		} else {
			v.Position = world.MulPoint(v.Position)
			v.Normal = rot.MulVec3(v.Normal)
		}
		if len(v.Links) == 0 {
			v.Links = []importer.Link{{Bone: nodeBone, Weight: 1}}
		}
		part.Vertices = append(part.Vertices, v)
	}

	material := importer.DefaultMaterial
	if mi, ok := deref(prim.Material); ok && mi < len(doc.Materials) && doc.Materials[mi].Name != "" {
		material = doc.Materials[mi].Name
	}

	var indices []int
	if ai, ok := deref(prim.Indices); ok {
		vals, err := readAccessor(doc, ai)
		if err != nil {
			return err
		}
		for _, v := range vals {
			indices = append(indices, int(v[0]))
		}
	} else {
		for i := range positions {
			indices = append(indices, i)
		}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if a >= len(positions) || b >= len(positions) || c >= len(positions) {
			return fmt.Errorf("%w: vertex %d", ErrBadReference, max(a, b, c))
		}
		part.AddFace(material, []int{base + a, base + b, base + c})
	}
	return nil
}

func readAccessor(doc *gltf.Document, idx int) ([][]float64, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", ErrBadReference, idx)
	}
	acc := doc.Accessors[idx]
	comps := componentCount(acc.Type)
	size := componentSize(acc.ComponentType)
	count := int(acc.Count)
	out := make([][]float64, count)
	for i := range out {
		out[i] = make([]float64, comps)
	}

	vi, ok := deref(acc.BufferView)
	if !ok {
		return out, nil
	}
	if vi >= len(doc.BufferViews) {
		return nil, fmt.Errorf("%w: buffer view %d", ErrBadReference, vi)
	}
	view := doc.BufferViews[vi]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer %d", ErrBadReference, int(view.Buffer))
	}
	buf := doc.Buffers[int(view.Buffer)].Data

	stride := int(view.ByteStride)
	if stride == 0 {
		stride = comps * size
	}
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	if count > 0 && start+(count-1)*stride+comps*size > len(buf) {
		return nil, fmt.Errorf("%w: accessor %d", ErrAccessorRange, idx)
	}

	for i := 0; i < count; i++ {
		at := start + i*stride
		for c := 0; c < comps; c++ {
			out[i][c] = component(buf[at+c*size:], acc.ComponentType, acc.Normalized)
		}
	}
	return out, nil
}

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 1
}

func componentSize(t gltf.ComponentType) int {
	switch t {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	}
	return 4
}

func component(b []byte, t gltf.ComponentType, normalized bool) float64 {
	switch t {
	case gltf.ComponentByte:
		v := float64(int8(b[0]))
		if normalized {
			return math.Max(v/127, -1)
		}
		return v
	case gltf.ComponentUbyte:
		v := float64(b[0])
		if normalized {
			return v / 255
		}
		return v
	case gltf.ComponentShort:
		v := float64(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return math.Max(v/32767, -1)
		}
		return v
	case gltf.ComponentUshort:
		v := float64(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case gltf.ComponentUint:
		return float64(binary.LittleEndian.Uint32(b))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}
