// Package preview renders a compiled model to a WebP thumbnail.
package preview

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"

	"mdl-compiler/internal/mesh"
	"mdl-compiler/internal/postprocess"
	"mdl-compiler/internal/raster"
	"mdl-compiler/internal/texture"
	"mdl-compiler/internal/viewmatrix"
)

const (
	DefaultSize      = 256
	DefaultFillRatio = 0.85
	// ClusterRatio is the smallest island kept, as a share of visible pixels.
	ClusterRatio = 0.02
)

// Options control one preview.
type Options struct {
	Size        int
	Supersample int
	FillRatio   float64
	Camera      viewmatrix.Camera
	Textures    texture.Resolver
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Supersample <= 0 {
		o.Supersample = 1
	}
	if o.FillRatio <= 0 {
		o.FillRatio = DefaultFillRatio
	}
	return o
}

// Render draws data and frames the result.
func Render(data *mesh.Data, opts Options) *image.NRGBA {
	opts = opts.withDefaults()
	img := raster.RenderModel(data, opts.Camera, opts.Textures, opts.Size, opts.Supersample)
	if opts.Supersample > 1 {
		img = postprocess.Downsample(img, opts.Size)
	}
	img = postprocess.RemoveSmallClusters(img, ClusterRatio)
	return postprocess.CropAndCenter(img, opts.Size, opts.FillRatio)
}

// Write renders data to a WebP file at path.
func Write(path string, data *mesh.Data, opts Options) error {
	img := Render(data, opts)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
