// Package binwriter is the append-only little-endian buffer shared by the
// model, vertex and mesh file writers. Offsets to data that is not yet known
// are reserved as zero placeholders and patched once the target is written.
package binwriter

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"mdl-compiler/internal/mathutil"
)

var (
	ErrOffsetTooLarge32 = errors.New("binwriter: offset larger than 2,147,483,647")
	ErrOffsetTooLarge16 = errors.New("binwriter: offset larger than 32,767")
	ErrNegativeOffset   = errors.New("binwriter: offset smaller than -2,147,483,648")
	ErrCountTooLarge32  = errors.New("binwriter: array size larger than 2,147,483,647")
	ErrCountTooLarge16  = errors.New("binwriter: array size larger than 32,767")
)

type stringRef struct {
	base int
	at   int
}

// Writer accumulates one output file in memory.
type Writer struct {
	buf     []byte
	strings map[string][]stringRef
	enc     *encoding.Encoder
}

func New() *Writer {
	return &Writer{
		strings: make(map[string][]stringRef),
		enc:     encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()),
	}
}

// Pos is the current write position, used as the base of relative offsets.
func (w *Writer) Pos() int { return len(w.buf) }

// Bytes returns the buffer. It is only meaningful after FlushStrings.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) I16(v int16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v)) }

func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *Writer) I32(v int32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }

func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *Writer) F32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

func (w *Writer) U8s(vs []uint8) { w.buf = append(w.buf, vs...) }

func (w *Writer) I16s(vs []int16) {
	for _, v := range vs {
		w.I16(v)
	}
}

func (w *Writer) U16s(vs []uint16) {
	for _, v := range vs {
		w.U16(v)
	}
}

func (w *Writer) I32s(vs []int32) {
	for _, v := range vs {
		w.I32(v)
	}
}

// Zeros appends n zero bytes, for reserved and unused fields.
func (w *Writer) Zeros(n int) {
	w.buf = append(w.buf, make([]byte, n)...)
}

func (w *Writer) F32s(vs []float32) {
	for _, v := range vs {
		w.F32(v)
	}
}

// CharArray writes s into a fixed n-byte field, zero padded or truncated.
func (w *Writer) CharArray(s string, n int) {
	b := w.encode(s)
	if len(b) > n {
		b = b[:n]
	}
	w.buf = append(w.buf, b...)
	w.Zeros(n - len(b))
}

func (w *Writer) Vec2(v mathutil.Vec2) {
	w.F32(float32(v[0]))
	w.F32(float32(v[1]))
}

func (w *Writer) Vec3(v mathutil.Vec3) {
	w.F32(float32(v[0]))
	w.F32(float32(v[1]))
	w.F32(float32(v[2]))
}

func (w *Writer) Vec4(v mathutil.Vec4) {
	for _, c := range v {
		w.F32(float32(c))
	}
}

func (w *Writer) Quat(q mathutil.Quat) {
	for _, c := range q {
		w.F32(float32(c))
	}
}

func (w *Writer) Angles(a mathutil.Angles) {
	w.Vec3(mathutil.Vec3(a))
}

// Half writes an IEEE 754 binary16 value.
func (w *Writer) Half(v float64) {
	w.U16(float16.Fromfloat32(float32(v)).Bits())
}

// Vector48 writes three half floats.
func (w *Writer) Vector48(v mathutil.Vec3) {
	w.Half(v[0])
	w.Half(v[1])
	w.Half(v[2])
}

// Quaternion64 packs x, y and z as 21-bit fixed point and the sign of w in
// the top bit.
func (w *Writer) Quaternion64(q mathutil.Quat) {
	w.U64(PackQuaternion64(q))
}

func PackQuaternion64(q mathutil.Quat) uint64 {
	pack := func(v float64) uint64 {
		i := int64(v*1048576) + 1048576
		if i < 0 {
			i = 0
		}
		if i > 2097151 {
			i = 2097151
		}
		return uint64(i)
	}
	var sign uint64
	if q[3] < 0 {
		sign = 1
	}
	return sign<<63 | pack(q[2])<<42 | pack(q[1])<<21 | pack(q[0])
}

// ReserveI32 writes a 32-bit placeholder and returns its position.
func (w *Writer) ReserveI32() int {
	at := w.Pos()
	w.I32(0)
	return at
}

// ReserveI16 writes a 16-bit placeholder and returns its position.
func (w *Writer) ReserveI16() int {
	at := w.Pos()
	w.I16(0)
	return at
}

// PatchOffset32 stores offset into the 32-bit placeholder at.
func (w *Writer) PatchOffset32(at, offset int) error {
	if offset > math.MaxInt32 {
		return errors.Wrapf(ErrOffsetTooLarge32, "patch at %d", at)
	}
	binary.LittleEndian.PutUint32(w.buf[at:], uint32(int32(offset)))
	return nil
}

// PatchHere points the 32-bit placeholder at to the current position,
// relative to base.
func (w *Writer) PatchHere(at, base int) error {
	return w.PatchOffset32(at, w.Pos()-base)
}

// PatchOffset16 stores offset into the 16-bit placeholder at.
func (w *Writer) PatchOffset16(at, offset int) error {
	if offset > math.MaxInt16 {
		return errors.Wrapf(ErrOffsetTooLarge16, "patch at %d", at)
	}
	binary.LittleEndian.PutUint16(w.buf[at:], uint16(int16(offset)))
	return nil
}

// PatchI32 overwrites a 32-bit value.
func (w *Writer) PatchI32(at int, v int32) {
	binary.LittleEndian.PutUint32(w.buf[at:], uint32(v))
}

// NegativeOffset writes -offset, pointing a child record back at its owner.
func (w *Writer) NegativeOffset(offset int) error {
	if offset > -math.MinInt32 {
		return errors.Wrapf(ErrNegativeOffset, "offset %d", offset)
	}
	w.I32(int32(-int64(offset)))
	return nil
}

// Count32 writes an array length as int32.
func (w *Writer) Count32(n int) error {
	if n > math.MaxInt32 {
		return errors.Wrapf(ErrCountTooLarge32, "count %d", n)
	}
	w.I32(int32(n))
	return nil
}

// Count16 writes an array length as int16.
func (w *Writer) Count16(n int) error {
	if n > math.MaxInt16 {
		return errors.Wrapf(ErrCountTooLarge16, "count %d", n)
	}
	w.I16(int16(n))
	return nil
}

// String reserves a 32-bit placeholder that FlushStrings patches with the
// offset of s relative to base.
func (w *Writer) String(base int, s string) {
	at := w.ReserveI32()
	w.strings[s] = append(w.strings[s], stringRef{base: base, at: at})
}

// FlushStrings appends every pending string once, sorted by content, and
// patches all references to it.
func (w *Writer) FlushStrings() error {
	keys := make([]string, 0, len(w.strings))
	for s := range w.strings {
		keys = append(keys, s)
	}
	sort.Strings(keys)

	for _, s := range keys {
		pos := w.Pos()
		w.buf = append(w.buf, w.encode(s)...)
		w.buf = append(w.buf, 0)
		for _, ref := range w.strings[s] {
			if err := w.PatchOffset32(ref.at, pos-ref.base); err != nil {
				return errors.Wrapf(err, "string %q", s)
			}
		}
	}
	w.strings = make(map[string][]stringRef)
	return nil
}

// Align pads with zeros up to a multiple of n.
func (w *Writer) Align(n int) {
	if r := len(w.buf) % n; r != 0 {
		w.Zeros(n - r)
	}
}

// Checksum is the wrapping sum of every byte written so far.
func (w *Writer) Checksum() int32 {
	var sum int32
	for _, b := range w.buf {
		sum += int32(b)
	}
	return sum
}

func (w *Writer) encode(s string) []byte {
	b, err := w.enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}
