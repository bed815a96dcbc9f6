package mesh

import "math"

const (
	cacheDecayPower   = 1.5
	lastTriangleScore = 0.75
	valenceBoostScale = 2.0
	valenceBoostPower = 0.5
	maxValenceTable   = 32
)

// forsythScores holds the two lookup tables of the vertex score: one by
// cache position, one by remaining live triangle count.
type forsythScores struct {
	cache   []float64
	valence [maxValenceTable]float64
}

func newForsythScores(cacheSize int) *forsythScores {
	s := &forsythScores{cache: make([]float64, cacheSize)}
	for i := range s.cache {
		switch {
		case i < 3:
			s.cache[i] = lastTriangleScore
		default:
			scaler := 1 / float64(cacheSize-3)
			s.cache[i] = math.Pow(1-float64(i-3)*scaler, cacheDecayPower)
		}
	}
	for i := 1; i < maxValenceTable; i++ {
		s.valence[i] = valenceBoostScale * math.Pow(float64(i), -valenceBoostPower)
	}
	return s
}

func (s *forsythScores) vertex(cachePos, live int) float64 {
	if live == 0 {
		return -1
	}
	score := 0.0
	if cachePos >= 0 && cachePos < len(s.cache) {
		score = s.cache[cachePos]
	}
	if live < maxValenceTable {
		return score + s.valence[live]
	}
	return score + valenceBoostScale*math.Pow(float64(live), -valenceBoostPower)
}

type forsythVertex struct {
	cachePos  int
	score     float64
	triangles []int
}

// Forsyth reorders whole triangles of indices to improve post-transform
// vertex cache hits. Triangles keep their winding. The result is a new slice.
func Forsyth(indices []uint16, cacheSize int) []uint16 {
	count := len(indices) / 3
	out := make([]uint16, 0, len(indices))
	if count == 0 || cacheSize <= 3 {
		return append(out, indices...)
	}
	scores := newForsythScores(cacheSize)

	verts := make(map[uint16]*forsythVertex)
	for t := 0; t < count; t++ {
		for _, idx := range indices[t*3 : t*3+3] {
			v, ok := verts[idx]
			if !ok {
				v = &forsythVertex{cachePos: -1}
				verts[idx] = v
			}
			if n := len(v.triangles); n == 0 || v.triangles[n-1] != t {
				v.triangles = append(v.triangles, t)
			}
		}
	}
	for _, v := range verts {
		v.score = scores.vertex(v.cachePos, len(v.triangles))
	}

	triScore := func(t int) float64 {
		var sum float64
		for _, idx := range indices[t*3 : t*3+3] {
			sum += verts[idx].score
		}
		return sum
	}

	emitted := make([]bool, count)
	var cache []uint16
	cursor := 0
	best := -1

	for fired := 0; fired < count; fired++ {
		if best < 0 {
			for emitted[cursor] {
				cursor++
			}
			best = cursor
		}

		tri := indices[best*3 : best*3+3]
		out = append(out, tri...)
		emitted[best] = true

		next := make([]uint16, 0, len(cache)+3)
		for _, idx := range tri {
			if !containsIndex(next, idx) {
				next = append(next, idx)
				v := verts[idx]
				v.triangles = removeTriangle(v.triangles, best)
			}
		}
		for _, idx := range cache {
			if !containsIndex(next, idx) {
				next = append(next, idx)
			}
		}

		for pos, idx := range next {
			v := verts[idx]
			v.cachePos = pos
			if pos >= cacheSize {
				v.cachePos = -1
			}
			v.score = scores.vertex(v.cachePos, len(v.triangles))
		}

		best = -1
		bestScore := math.Inf(-1)
		for _, idx := range next {
			for _, t := range verts[idx].triangles {
				if sc := triScore(t); sc > bestScore {
					best, bestScore = t, sc
				}
			}
		}

		if len(next) > cacheSize {
			next = next[:cacheSize]
		}
		cache = next
	}
	return out
}

func containsIndex(s []uint16, v uint16) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeTriangle(s []int, t int) []int {
	for i, x := range s {
		if x == t {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
