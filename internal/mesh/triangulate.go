package mesh

import (
	"math"

	"mdl-compiler/internal/mathutil"
)

// Triangulate splits a polygon into triangles. Quads split along 0-2; larger
// polygons fan from the corner whose summed distance to the non-adjacent
// corners is smallest.
func Triangulate(face []int, position func(int) mathutil.Vec3) [][3]int {
	n := len(face)
	switch n {
	case 3:
		return [][3]int{{face[0], face[1], face[2]}}
	case 4:
		return [][3]int{{face[0], face[1], face[2]}, {face[2], face[3], face[0]}}
	}

	root, best := 0, math.MaxFloat64
	for i := 0; i < n; i++ {
		center := position(face[i])
		var dist float64
		for k := 2; k < n-1; k++ {
			dist += position(face[(i+k)%n]).Sub(center).Len()
		}
		if dist < best {
			root, best = i, dist
		}
	}

	tris := make([][3]int, 0, n-2)
	for k := 1; k < n-1; k++ {
		tris = append(tris, [3]int{face[root], face[(root+k)%n], face[(root+k+1)%n]})
	}
	return tris
}
