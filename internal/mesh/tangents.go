package mesh

import (
	"math"

	"mdl-compiler/internal/mathutil"
)

// badTangentDot is the |tangent . normal| past which a vertex is reported.
const badTangentDot = 0.95

// computeTangents accumulates per-triangle UV tangents onto each vertex,
// orthogonalizes them against the normal and stores handedness in W. It
// returns the number of vertices whose tangent stays nearly parallel to the
// normal.
func computeTangents(vertices []rawVertex, triangles [][3]int) ([]mathutil.Vec4, int) {
	tangents := make([]mathutil.Vec3, len(vertices))
	bitangents := make([]mathutil.Vec3, len(vertices))

	for _, tri := range triangles {
		v0, v1, v2 := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]
		edge1 := v1.position.Sub(v0.position)
		edge2 := v2.position.Sub(v0.position)
		duv1 := v1.uv.Sub(v0.uv)
		duv2 := v2.uv.Sub(v0.uv)

		t := mathutil.Vec3{1, 0, 0}
		b := mathutil.Vec3{0, 1, 0}
		if den := duv1[0]*duv2[1] - duv2[0]*duv1[1]; math.Abs(den) >= epsilon64 {
			r := 1 / den
			t = edge1.Scale(duv2[1]).Sub(edge2.Scale(duv1[1])).Scale(r)
			b = edge2.Scale(duv1[0]).Sub(edge1.Scale(duv2[0])).Scale(r)
		}
		for _, i := range tri {
			tangents[i] = tangents[i].Add(t)
			bitangents[i] = bitangents[i].Add(b)
		}
	}

	out := make([]mathutil.Vec4, len(vertices))
	bad := 0
	for i, v := range vertices {
		t := tangents[i].Normalize()
		b := bitangents[i].Normalize()
		n := v.normal

		ortho := t.Sub(n.Scale(t.Dot(n))).Normalize()
		sign := 1.0
		if n.Cross(t).Dot(b) < 0 {
			sign = -1
		}
		out[i] = mathutil.Vec4{ortho[0], ortho[1], ortho[2], sign}

		if math.Abs(ortho.Dot(n)) > badTangentDot {
			bad++
		}
	}
	return out, bad
}

// epsilon64 is the float64 machine epsilon.
const epsilon64 = 2.220446049250313e-16
