// Package sequence resolves blend grids of animation names to compiled
// animation indices.
package sequence

import (
	"math"

	"github.com/pkg/errors"

	"mdl-compiler/internal/project"
)

var (
	ErrDuplicateSequenceName     = errors.New("sequence: duplicate sequence name")
	ErrSequenceAnimationNotFound = errors.New("sequence: animation not found")
	ErrNoSequences               = errors.New("sequence: model has no sequences")
	ErrTooManySequences          = errors.New("sequence: too many sequences")
	ErrEmptyGrid                 = errors.New("sequence: empty animation grid")
)

// Remapper maps a declared animation name to its compiled index.
type Remapper interface {
	Remap(name string) (int, bool)
}

// Sequence is a compiled blend grid stored row-major.
type Sequence struct {
	Name       string
	Rows, Cols int
	Animations []int16
}

// Process resolves every sequence of the project.
func Process(p *project.Project, anims Remapper) ([]Sequence, error) {
	if len(p.Sequences) == 0 {
		return nil, ErrNoSequences
	}
	if len(p.Sequences) > math.MaxInt32 {
		return nil, ErrTooManySequences
	}

	seen := make(map[string]bool, len(p.Sequences))
	out := make([]Sequence, 0, len(p.Sequences))
	for i, s := range p.Sequences {
		if seen[s.Name] {
			return nil, errors.Wrapf(ErrDuplicateSequenceName, "sequence %d %q", i+1, s.Name)
		}
		seen[s.Name] = true

		if len(s.Animations) == 0 || len(s.Animations[0]) == 0 {
			return nil, errors.Wrapf(ErrEmptyGrid, "sequence %q", s.Name)
		}
		seq := Sequence{Name: s.Name, Rows: len(s.Animations), Cols: len(s.Animations[0])}
		for _, row := range s.Animations {
			if len(row) != seq.Cols {
				return nil, errors.Wrapf(ErrEmptyGrid, "sequence %q has ragged rows", s.Name)
			}
			for _, name := range row {
				idx, ok := anims.Remap(name)
				if !ok {
					return nil, errors.Wrapf(ErrSequenceAnimationNotFound, "sequence %q animation %q", s.Name, name)
				}
				seq.Animations = append(seq.Animations, int16(idx))
			}
		}
		out = append(out, seq)
	}
	return out, nil
}
