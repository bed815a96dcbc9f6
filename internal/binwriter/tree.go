package binwriter

// Record is a fixed header already written to the buffer together with the
// offset placeholders it owns. Placeholders are patched relative to Base.
type Record struct {
	Base  int
	Slots []int
}

// Begin starts a record at the current position.
func (w *Writer) Begin() Record {
	return Record{Base: w.Pos()}
}

// Reserve appends a 32-bit placeholder to r.
func (r *Record) Reserve(w *Writer) {
	r.Slots = append(r.Slots, w.ReserveI32())
}

// Patch points placeholder slot of r at the current position.
func (r Record) Patch(w *Writer, slot int) error {
	return w.PatchHere(r.Slots[slot], r.Base)
}

// Level writes one level of a record tree. For every parent in order it
// patches the parent's placeholder slot to the current position, then writes
// that parent's children back to back. The children's records come back in
// the same flattened order, ready for the next level.
func Level[T any](w *Writer, parents []Record, slot int, children func(parent int) []T,
	write func(T) (Record, error)) ([]Record, error) {
	var out []Record
	for i, p := range parents {
		if err := p.Patch(w, slot); err != nil {
			return nil, err
		}
		for _, c := range children(i) {
			r, err := write(c)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}
