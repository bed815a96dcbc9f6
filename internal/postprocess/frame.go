package postprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// CropAndCenter crops to the visible pixels, scales them to fillRatio of a
// size square and centers them on a transparent canvas.
func CropAndCenter(img *image.NRGBA, size int, fillRatio float64) *image.NRGBA {
	return scaleAndCenter(cropAlpha(img), size, fillRatio)
}

func cropAlpha(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	box := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)+3] > 0 {
				box = box.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	if box.Dx() < 2 || box.Dy() < 2 {
		return img
	}
	return img.SubImage(box).(*image.NRGBA)
}

func scaleAndCenter(img *image.NRGBA, canvasSize int, fillRatio float64) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return canvas
	}

	maxDim := float64(canvasSize) * fillRatio
	scale := maxDim / math.Max(float64(b.Dx()), float64(b.Dy()))
	newW := max(int(float64(b.Dx())*scale+0.5), 1)
	newH := max(int(float64(b.Dy())*scale+0.5), 1)

	offX := (canvasSize - newW) / 2
	offY := (canvasSize - newH) / 2
	dst := image.Rect(offX, offY, offX+newW, offY+newH).Intersect(canvas.Bounds())
	draw.CatmullRom.Scale(canvas, dst, img, b, draw.Src, nil)
	return canvas
}
