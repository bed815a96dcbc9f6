package mesh

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"mdl-compiler/internal/mathutil"
)

// link is a vertex influence mapped to the global bone table.
type link struct {
	bone   int
	weight float64
}

type rawVertex struct {
	position mathutil.Vec3
	normal   mathutil.Vec3
	uv       mathutil.Vec2
	links    []link
}

// weldPoint is a kd-tree entry carrying the index of the vertex it stands for.
type weldPoint struct {
	pos   r3.Vec
	index int
}

func (p weldPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.pos.X
	case 1:
		return p.pos.Y
	}
	return p.pos.Z
}

func (p weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(weldPoint).coord(d)
}

func (p weldPoint) Dims() int { return 3 }

// Distance is squared Euclidean, as kdtree keepers expect.
func (p weldPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.pos, c.(weldPoint).pos))
}

type weldPoints []weldPoint

func (p weldPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p weldPoints) Len() int                              { return len(p) }
func (p weldPoints) Pivot(d kdtree.Dim) int                { return weldPlane{weldPoints: p, Dim: d}.Pivot() }
func (p weldPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type weldPlane struct {
	kdtree.Dim
	weldPoints
}

func (p weldPlane) Less(i, j int) bool {
	return p.weldPoints[i].coord(p.Dim) < p.weldPoints[j].coord(p.Dim)
}
func (p weldPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p weldPlane) Slice(start, end int) kdtree.SortSlicer {
	p.weldPoints = p.weldPoints[start:end]
	return p
}
func (p weldPlane) Swap(i, j int) {
	p.weldPoints[i], p.weldPoints[j] = p.weldPoints[j], p.weldPoints[i]
}

// weld maps every vertex to the earliest equal vertex within tol and returns
// the surviving vertices plus the old-to-new index map.
func weld(vertices []rawVertex, tol float64) ([]rawVertex, []int) {
	points := make(weldPoints, len(vertices))
	for i, v := range vertices {
		points[i] = weldPoint{pos: r3.Vec{X: v.position[0], Y: v.position[1], Z: v.position[2]}, index: i}
	}
	var tree *kdtree.Tree
	if len(points) > 0 {
		tree = kdtree.New(append(weldPoints(nil), points...), false)
	}

	canonical := make([]int, len(vertices))
	remap := make([]int, len(vertices))
	var out []rawVertex
	for i, v := range vertices {
		canonical[i] = -1
		keep := kdtree.NewDistKeeper(tol)
		tree.NearestSet(keep, points[i])

		match := -1
		for _, c := range keep.Heap {
			if c.Comparable == nil {
				continue
			}
			j := c.Comparable.(weldPoint).index
			if j >= i || canonical[j] >= 0 || (match >= 0 && j > match) {
				continue
			}
			if vertexEquals(v, vertices[j], tol) {
				match = j
			}
		}
		if match >= 0 {
			canonical[i] = match
			remap[i] = remap[match]
			continue
		}
		remap[i] = len(out)
		out = append(out, v)
	}
	return out, remap
}

func vertexEquals(a, b rawVertex, tol float64) bool {
	if !a.normal.Near(b.normal, tol) || !a.uv.Near(b.uv, tol) {
		return false
	}
	if len(a.links) != len(b.links) {
		return false
	}
	la, lb := sortedLinks(a.links), sortedLinks(b.links)
	for i := range la {
		if la[i].bone != lb[i].bone || math.Abs(la[i].weight-lb[i].weight) > tol {
			return false
		}
	}
	return true
}

func sortedLinks(l []link) []link {
	out := append([]link(nil), l...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].bone < out[j].bone })
	return out
}
