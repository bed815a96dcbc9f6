package mesh

import (
	"sort"

	"github.com/pkg/errors"
)

// cullWeights merges links to the same bone, drops links below tol, keeps
// the MaxWeights heaviest and renormalizes them to sum to one. culled reports
// whether links beyond MaxWeights were discarded.
func cullWeights(links []link, tol float64) (out []link, culled bool, err error) {
	merged := make([]link, 0, len(links))
	for _, l := range links {
		found := false
		for i := range merged {
			if merged[i].bone == l.bone {
				merged[i].weight += l.weight
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, l)
		}
	}

	out = merged[:0]
	for _, l := range merged {
		if l.weight >= tol {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, false, errors.WithStack(ErrVertexNoWeights)
	}

	if len(out) > MaxWeights {
		sort.SliceStable(out, func(i, j int) bool { return out[i].weight > out[j].weight })
		out = out[:MaxWeights]
		culled = true
	}

	var sum float64
	for _, l := range out {
		sum += l.weight
	}
	for i := range out {
		out[i].weight /= sum
	}
	return out, culled, nil
}
