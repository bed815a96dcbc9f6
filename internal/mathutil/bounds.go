package mathutil

import "math"

// BoundingBox is an axis-aligned box. The zero value is not empty; use
// NewBoundingBox for an accumulator.
type BoundingBox struct {
	Min Vec3
	Max Vec3
}

// NewBoundingBox returns an empty box that the first AddPoint will snap to.
func NewBoundingBox() BoundingBox {
	inf := math.Inf(1)
	return BoundingBox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Valid reports whether the box contains at least one point.
func (b BoundingBox) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

func (b *BoundingBox) AddPoint(p Vec3) {
	if !b.Valid() {
		b.Min, b.Max = p, p
		return
	}
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Merge grows b to enclose o.
func (b *BoundingBox) Merge(o BoundingBox) {
	if !o.Valid() {
		return
	}
	b.AddPoint(o.Min)
	b.AddPoint(o.Max)
}

func (b BoundingBox) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// OrZero returns b, or the degenerate box at the origin when b is empty.
func (b BoundingBox) OrZero() BoundingBox {
	if !b.Valid() {
		return BoundingBox{}
	}
	return b
}
