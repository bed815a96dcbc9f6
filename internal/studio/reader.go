package studio

import (
	"encoding/binary"
	"math"
)

// reader walks a little-endian buffer. Reads past the end return zero and
// set overrun; callers check it once after a table.
type reader struct {
	data    []byte
	off     int
	overrun bool
}

func (r *reader) seek(off int) *reader {
	if off < 0 || off > len(r.data) {
		off = len(r.data)
		r.overrun = true
	}
	r.off = off
	return r
}

func (r *reader) short(n int) bool {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		r.overrun = true
		return true
	}
	return false
}

func (r *reader) skip(n int) {
	r.seek(r.off + n)
}

func (r *reader) fixedStr(n int) string {
	if r.short(n) {
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

// str reads the null-terminated string at base+rel without moving the reader.
func (r *reader) str(base int, rel int32) string {
	at := base + int(rel)
	if rel == 0 || at < 0 || at >= len(r.data) {
		return ""
	}
	s := r.data[at:]
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) u16() uint16 {
	if r.short(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) i32() int32 {
	if r.short(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(uint32(r.i32()))
}

// table reads a count and offset pair, the offset relative to base.
func (r *reader) table(base int) (count, at int) {
	count = int(r.i32())
	at = base + int(r.i32())
	return count, at
}
