package mdl

import (
	"mdl-compiler/internal/animation"
	"mdl-compiler/internal/binwriter"
)

func (e *encoder) animations(hdr binwriter.Record) {
	w := e.w
	e.check(hdr.Patch(w, slotAnimations))

	const (
		slotAnimData = iota
		slotSections
	)
	records := make([]binwriter.Record, len(e.in.Animations.Animations))
	for i, a := range e.in.Animations.Animations {
		r := w.Begin()
		e.check(w.NegativeOffset(r.Base))
		w.String(r.Base, a.Name)
		w.F32(animation.FPS)
		w.I32(0) // flags
		w.I32(int32(a.FrameCount))
		e.count(0) // movements
		w.I32(0)
		w.Zeros(6 * 4)
		w.I32(0) // animation block
		r.Reserve(w)
		e.count(0) // ik rules
		w.I32(0)
		w.I32(0)   // ik rule block
		e.count(0) // local hierarchies
		w.I32(0)
		r.Reserve(w)
		if len(a.Sections) > 1 {
			w.I32(animation.FramesPerSection)
		} else {
			w.I32(0)
		}
		w.I16(0) // zero frame span
		e.check(w.Count16(0))
		w.I32(0)
		w.F32(0) // zero frame stall time
		records[i] = r
	}
	w.Align(4)

	for i, a := range e.in.Animations.Animations {
		r := records[i]
		var sections []binwriter.Record
		if len(a.Sections) > 1 {
			e.check(r.Patch(w, slotSections))
			for range a.Sections {
				s := binwriter.Record{Base: r.Base}
				w.I32(0) // animation block
				s.Reserve(w)
				sections = append(sections, s)
			}
		}
		w.Align(16)

		e.check(r.Patch(w, slotAnimData))
		for si, tracks := range a.Sections {
			if sections != nil {
				e.check(sections[si].Patch(w, 0))
			}
			e.section(e.in.Animations.EncodeSection(tracks))
		}
		w.Align(4)
	}
}

// section writes the linked list of per-bone streams. Each entry's next
// field is its own length, zero on the last.
func (e *encoder) section(list []animation.Bone) {
	w := e.w
	last := -1
	for _, b := range list {
		start := w.Pos()
		w.U8(b.Bone)
		w.U8(b.Flags())
		next := w.ReserveI16()

		var rot, pos []int
		switch {
		case b.RawRotation != nil:
			w.Quaternion64(*b.RawRotation)
		case b.Rotation != nil:
			rot = e.reserveAxes()
		}
		switch {
		case b.RawPosition != nil:
			w.Vector48(*b.RawPosition)
		case b.Position != nil:
			pos = e.reserveAxes()
		}
		if rot != nil {
			e.axes(rot, b.Rotation)
		}
		if pos != nil {
			e.axes(pos, b.Position)
		}
		e.check(w.PatchOffset16(next, w.Pos()-start))
		last = next
	}
	if last >= 0 {
		e.check(w.PatchOffset16(last, 0))
	}
	w.I32(0)
}

// reserveAxes writes the three per-axis offsets and returns their positions.
// The first position is also the base the offsets are relative to.
func (e *encoder) reserveAxes() []int {
	return []int{e.w.ReserveI16(), e.w.ReserveI16(), e.w.ReserveI16()}
}

func (e *encoder) axes(at []int, axes *animation.Axes) {
	w := e.w
	base := at[0]
	for axis, runs := range axes {
		if runs == nil {
			continue
		}
		e.check(w.PatchOffset16(at[axis], w.Pos()-base))
		for _, r := range runs {
			w.U8(r.Valid)
			w.U8(r.Total)
			w.I16s(r.Values)
		}
	}
}
