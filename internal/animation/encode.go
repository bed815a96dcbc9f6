package animation

import (
	"math"

	"mdl-compiler/internal/mathutil"
)

// Run is one compressed unit: Valid literal values covering Total frames.
// Frames past Valid repeat the last literal.
type Run struct {
	Valid  uint8
	Total  uint8
	Values []int16
}

// Encode run-length compresses one quantized axis.
func Encode(values []int16) []Run {
	var runs []Run
	var cur Run
	flush := func() {
		cur.Valid = uint8(len(cur.Values))
		runs = append(runs, cur)
		cur = Run{}
	}

	for _, v := range values {
		if cur.Total == math.MaxUint8 {
			flush()
		}
		if len(cur.Values) == 0 {
			cur.Total = 1
			cur.Values = append(cur.Values, v)
			continue
		}
		if cur.Values[len(cur.Values)-1] == v {
			cur.Total++
			continue
		}
		// A differing value after a repeat closes the run.
		if len(cur.Values) != int(cur.Total) {
			flush()
			cur.Total = 1
			cur.Values = []int16{v}
			continue
		}
		cur.Total++
		cur.Values = append(cur.Values, v)
	}
	flush()
	return runs
}

// Decode expands runs back to one value per frame.
func Decode(runs []Run) []int16 {
	var out []int16
	for _, r := range runs {
		valid := int(r.Valid)
		out = append(out, r.Values[:valid]...)
		if valid == 0 {
			continue
		}
		last := r.Values[valid-1]
		for i := valid; i < int(r.Total); i++ {
			out = append(out, last)
		}
	}
	return out
}

// singleValue reports whether the axis is one run of one literal, and the literal.
func singleValue(runs []Run) (int16, bool) {
	if len(runs) == 1 && len(runs[0].Values) == 1 {
		return runs[0].Values[0], true
	}
	return 0, false
}

// Quantize converts a delta to fixed point. Deltas within tolerance are zero
// and results saturate at the int16 range.
func Quantize(delta, scale float64) int16 {
	if math.Abs(delta) <= mathutil.Float32Epsilon || scale == 0 {
		return 0
	}
	q := math.Trunc(delta / scale)
	return int16(max(math.MinInt16, min(math.MaxInt16, q)))
}

// Flags of an encoded bone header.
const (
	FlagRawPosition = 0x01
	FlagAnimPos     = 0x04
	FlagAnimRot     = 0x08
	FlagDelta       = 0x10
	FlagRawRotation = 0x20
)

// EmptyBone marks a section with no animated bones.
const EmptyBone = 0xFF

// Axes holds compressed streams for x, y and z; a nil axis is omitted.
type Axes [3][]Run

// Bone is the encoded form of one track.
type Bone struct {
	Bone        uint8
	RawRotation *mathutil.Quat
	RawPosition *mathutil.Vec3
	Rotation    *Axes
	Position    *Axes
}

// Flags returns the header flag byte.
func (b Bone) Flags() uint8 {
	var f uint8
	if b.RawPosition != nil {
		f |= FlagRawPosition
	}
	if b.Position != nil {
		f |= FlagAnimPos
	}
	if b.Rotation != nil {
		f |= FlagAnimRot
	}
	if b.RawRotation != nil {
		f |= FlagRawRotation
	}
	return f
}

// EncodeSection quantizes and compresses the tracks of one section. Bones
// with nothing to store are omitted; an empty result becomes a single
// EmptyBone marker.
func (d *Data) EncodeSection(tracks []Track) []Bone {
	var out []Bone
	for _, tr := range tracks {
		scale := d.Scales[tr.Bone]
		rot := quantizeAxes(len(tr.DeltaRotation), func(f, axis int) float64 { return tr.DeltaRotation[f][axis] }, scale.Rotation)
		pos := quantizeAxes(len(tr.DeltaPosition), func(f, axis int) float64 { return tr.DeltaPosition[f][axis] }, scale.Position)

		b := Bone{Bone: uint8(tr.Bone)}
		if constant(rot) && constant(pos) {
			if !zero(rot) {
				q := tr.RawRotation[0]
				b.RawRotation = &q
			}
			if !zero(pos) {
				p := tr.RawPosition[0]
				b.RawPosition = &p
			}
		} else {
			b.Rotation = keepAxes(rot)
			b.Position = keepAxes(pos)
		}
		if b.Flags() == 0 {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		out = append(out, Bone{Bone: EmptyBone})
	}
	return out
}

func quantizeAxes(frames int, value func(f, axis int) float64, scale mathutil.Vec3) Axes {
	var axes Axes
	for axis := 0; axis < 3; axis++ {
		q := make([]int16, frames)
		for f := range q {
			q[f] = Quantize(value(f, axis), scale[axis])
		}
		axes[axis] = Encode(q)
	}
	return axes
}

func constant(a Axes) bool {
	for _, runs := range a {
		if _, ok := singleValue(runs); !ok {
			return false
		}
	}
	return true
}

func zero(a Axes) bool {
	for _, runs := range a {
		if v, _ := singleValue(runs); v != 0 {
			return false
		}
	}
	return true
}

// keepAxes drops axes that are a single zero; nil if none remain.
func keepAxes(a Axes) *Axes {
	var kept Axes
	found := false
	for i, runs := range a {
		if v, ok := singleValue(runs); ok && v == 0 {
			continue
		}
		kept[i] = runs
		found = true
	}
	if !found {
		return nil
	}
	return &kept
}
