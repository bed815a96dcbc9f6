package binwriter

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"

	"mdl-compiler/internal/mathutil"
)

func TestScalars(t *testing.T) {
	w := New()
	w.U8(0xAB)
	w.I16(-2)
	w.U16(0x1234)
	w.I32(-1)
	w.F32(1)
	want := []byte{
		0xAB,
		0xFE, 0xFF,
		0x34, 0x12,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x80, 0x3F,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("scalars:\nhave % x\nwant % x", w.Bytes(), want)
	}
}

func TestCharArray(t *testing.T) {
	w := New()
	w.CharArray("abc", 6)
	w.CharArray("toolong", 3)
	want := []byte{'a', 'b', 'c', 0, 0, 0, 't', 'o', 'o'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("CharArray:\nhave % x\nwant % x", w.Bytes(), want)
	}
}

func TestPatchOffsets(t *testing.T) {
	w := New()
	base := w.Pos()
	at32 := w.ReserveI32()
	at16 := w.ReserveI16()
	w.Zeros(10)
	if err := w.PatchHere(at32, base); err != nil {
		t.Fatal(err)
	}
	if err := w.PatchOffset16(at16, 7); err != nil {
		t.Fatal(err)
	}
	if got := int32(binary.LittleEndian.Uint32(w.Bytes()[at32:])); got != 16 {
		t.Fatalf("PatchHere: got %d, want 16", got)
	}
	if got := int16(binary.LittleEndian.Uint16(w.Bytes()[at16:])); got != 7 {
		t.Fatalf("PatchOffset16: got %d, want 7", got)
	}
}

func TestOverflow(t *testing.T) {
	w := New()
	at16 := w.ReserveI16()
	at32 := w.ReserveI32()
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"offset16", w.PatchOffset16(at16, math.MaxInt16+1), ErrOffsetTooLarge16},
		{"offset32", w.PatchOffset32(at32, math.MaxInt32+1), ErrOffsetTooLarge32},
		{"negative", w.NegativeOffset(1<<31 + 1), ErrNegativeOffset},
		{"count16", w.Count16(math.MaxInt16 + 1), ErrCountTooLarge16},
		{"count32", w.Count32(math.MaxInt32 + 1), ErrCountTooLarge32},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, c.err, c.want)
		}
	}
	if err := w.PatchOffset16(at16, math.MaxInt16); err != nil {
		t.Errorf("offset16 at limit: %v", err)
	}
	if err := w.NegativeOffset(1 << 31); err != nil {
		t.Errorf("negative at limit: %v", err)
	}
}

func TestNegativeOffset(t *testing.T) {
	w := New()
	w.Zeros(12)
	if err := w.NegativeOffset(w.Pos()); err != nil {
		t.Fatal(err)
	}
	if got := int32(binary.LittleEndian.Uint32(w.Bytes()[12:])); got != -12 {
		t.Fatalf("NegativeOffset: got %d, want -12", got)
	}
}

func TestStringTable(t *testing.T) {
	w := New()
	w.Zeros(4)
	baseA := w.Pos()
	w.String(baseA, "zeta")
	w.String(baseA, "alpha")
	baseB := w.Pos()
	w.String(baseB, "zeta")
	if err := w.FlushStrings(); err != nil {
		t.Fatal(err)
	}

	buf := w.Bytes()
	// Sorted, deduplicated and null terminated.
	tail := buf[16:]
	if want := []byte("alpha\x00zeta\x00"); !bytes.Equal(tail, want) {
		t.Fatalf("table:\nhave %q\nwant %q", tail, want)
	}
	read := func(at, base int) string {
		off := int(int32(binary.LittleEndian.Uint32(buf[at:])))
		s := buf[base+off:]
		return string(s[:bytes.IndexByte(s, 0)])
	}
	if got := read(4, baseA); got != "zeta" {
		t.Errorf("first ref: got %q", got)
	}
	if got := read(8, baseA); got != "alpha" {
		t.Errorf("second ref: got %q", got)
	}
	if got := read(12, baseB); got != "zeta" {
		t.Errorf("third ref: got %q", got)
	}
}

func TestAlignAndChecksum(t *testing.T) {
	w := New()
	w.U8(200)
	w.U8(100)
	w.Align(4)
	if w.Pos() != 4 {
		t.Fatalf("Align(4): got %d, want 4", w.Pos())
	}
	w.Align(4)
	if w.Pos() != 4 {
		t.Fatalf("Align on boundary moved to %d", w.Pos())
	}
	w.Align(16)
	if w.Pos() != 16 {
		t.Fatalf("Align(16): got %d, want 16", w.Pos())
	}
	if got := w.Checksum(); got != 300 {
		t.Fatalf("Checksum: got %d, want 300", got)
	}
}

func TestQuaternion64(t *testing.T) {
	if got := PackQuaternion64(mathutil.QuatIdentity()); got != 1048576<<42|1048576<<21|1048576 {
		t.Fatalf("identity: got %#x", got)
	}
	got := PackQuaternion64(mathutil.Quat{1, -1, 0, -1})
	if x := got & 0x1FFFFF; x != 2097151 {
		t.Errorf("x clamp: got %d", x)
	}
	if y := got >> 21 & 0x1FFFFF; y != 0 {
		t.Errorf("y: got %d", y)
	}
	if got>>63 != 1 {
		t.Error("w sign bit not set")
	}
}

func TestVector48(t *testing.T) {
	w := New()
	w.Vector48(mathutil.Vec3{1, -2, 0.5})
	want := []byte{0x00, 0x3C, 0x00, 0xC0, 0x00, 0x38}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("Vector48:\nhave % x\nwant % x", w.Bytes(), want)
	}
}

func TestLevel(t *testing.T) {
	w := New()
	root := w.Begin()
	w.I32(2)
	root.Reserve(w)

	groups := [][]int32{{7, 8}, {9}}
	parents, err := Level(w, []Record{root}, 0, func(int) [][]int32 { return groups }, func(g []int32) (Record, error) {
		r := w.Begin()
		if err := w.Count32(len(g)); err != nil {
			return r, err
		}
		r.Reserve(w)
		return r, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Level(w, parents, 0, func(i int) []int32 { return groups[i] }, func(v int32) (Record, error) {
		r := w.Begin()
		w.I32(v)
		return r, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	buf := w.Bytes()
	i32 := func(at int) int { return int(int32(binary.LittleEndian.Uint32(buf[at:]))) }
	if got := i32(4); got != 8 {
		t.Fatalf("root offset: got %d, want 8", got)
	}
	// Both group headers come before any of their values.
	if got := 8 + i32(12); got != 24 {
		t.Errorf("first group values at %d, want 24", got)
	}
	if got := 16 + i32(20); got != 32 {
		t.Errorf("second group values at %d, want 32", got)
	}
	if got := i32(32); got != 9 {
		t.Errorf("second group value: got %d, want 9", got)
	}
}
