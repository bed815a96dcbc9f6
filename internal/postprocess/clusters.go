// Package postprocess cleans up and frames rendered previews.
package postprocess

import "image"

var (
	neighborX = [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	neighborY = [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
)

// RemoveSmallClusters clears 8-connected groups of visible pixels smaller
// than minRatio of all visible pixels. Stray slivers from sub-pixel
// triangles end up here.
func RemoveSmallClusters(img *image.NRGBA, minRatio float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	visible := func(i int) bool { return img.Pix[(i/w)*img.Stride+(i%w)*4+3] > 0 }

	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var sizes []int
	total := 0
	queue := make([]int, 0, 1024)
	for start := range labels {
		if labels[start] >= 0 || !visible(start) {
			continue
		}
		id := len(sizes)
		labels[start] = id
		queue = append(queue[:0], start)
		for head := 0; head < len(queue); head++ {
			cx, cy := queue[head]%w, queue[head]/w
			for d := range neighborX {
				nx, ny := cx+neighborX[d], cy+neighborY[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if labels[ni] < 0 && visible(ni) {
					labels[ni] = id
					queue = append(queue, ni)
				}
			}
		}
		sizes = append(sizes, len(queue))
		total += len(queue)
	}
	if len(sizes) <= 1 {
		return img
	}

	minSize := int(float64(total) * minRatio)
	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)
	for i, l := range labels {
		if l >= 0 && sizes[l] < minSize {
			p := (i/w)*out.Stride + (i%w)*4
			copy(out.Pix[p:p+4], []uint8{0, 0, 0, 0})
		}
	}
	return out
}
