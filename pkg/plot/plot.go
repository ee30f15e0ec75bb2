// Package plot renders flux maps as false-color PNG images.
//
// Images are drawn with row 0 of the grid at the bottom, matching the
// physical detector orientation, and upscaled with nearest-neighbour
// sampling so individual bins stay visible.
package plot

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
)

// Output file names written by [WriteAll].
const (
	FluxFile      = "flux.png"
	ReferenceFile = "reference_flux.png"
	ContrastFile  = "contrast.png"
)

// DefaultMinSize is the smallest edge, in pixels, of a rendered image.
const DefaultMinSize = 512

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	minSize int
}

// WithMinSize sets the smallest image edge in pixels. The grid is scaled
// up by a whole factor until its shorter edge reaches size.
func WithMinSize(size int) Option {
	return func(r *renderer) { r.minSize = size }
}

func newRenderer(opts []Option) renderer {
	r := renderer{minSize: DefaultMinSize}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Flux renders g with a sequential colormap spanning its min and max.
func Flux(g *fluxmap.Grid, opts ...Option) *image.NRGBA {
	lo, hi := g.MinMax()
	return newRenderer(opts).render(g, func(v float64) color.NRGBA {
		return Viridis.At(unit(v, lo, hi))
	})
}

// Contrast renders (flux-ref)/ref with a diverging colormap symmetric
// around zero. Bins with a zero reference are drawn as zero contrast.
func Contrast(flux, ref *fluxmap.Grid, opts ...Option) (*image.NRGBA, error) {
	c, err := ContrastGrid(flux, ref)
	if err != nil {
		return nil, err
	}
	lo, hi := c.MinMax()
	lim := math.Max(math.Abs(lo), math.Abs(hi))
	return newRenderer(opts).render(c, func(v float64) color.NRGBA {
		return Diverging.At(unit(v, -lim, lim))
	}), nil
}

// ContrastGrid returns (flux-ref)/ref element-wise.
func ContrastGrid(flux, ref *fluxmap.Grid) (*fluxmap.Grid, error) {
	if !flux.SameShape(ref) {
		return nil, perr.New(perr.ErrCodeInvalidInput,
			"contrast: flux %v and reference %v differ in shape", flux, ref)
	}
	out := fluxmap.New(flux.Rows, flux.Cols)
	for i, r := range ref.Data {
		if r != 0 {
			out.Data[i] = (flux.Data[i] - r) / r
		}
	}
	return out, nil
}

// WriteAll writes flux.png, reference_flux.png and contrast.png into dir,
// creating it if needed, and returns the written paths.
func WriteAll(dir string, flux, ref *fluxmap.Grid, opts ...Option) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.FileError(err, dir)
	}
	contrast, err := Contrast(flux, ref, opts...)
	if err != nil {
		return nil, err
	}
	// Reference and flux share the flux color range so they compare directly.
	lo, hi := flux.MinMax()
	rr := newRenderer(opts)
	refImg := rr.render(ref, func(v float64) color.NRGBA { return Viridis.At(unit(v, lo, hi)) })

	images := []struct {
		name string
		img  image.Image
	}{
		{FluxFile, Flux(flux, opts...)},
		{ReferenceFile, refImg},
		{ContrastFile, contrast},
	}
	paths := make([]string, 0, len(images))
	for _, it := range images {
		path := filepath.Join(dir, it.name)
		if err := imaging.Save(it.img, path); err != nil {
			return paths, perr.Wrap(perr.ErrCodeInvalidInput, err, "save %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (r renderer) render(g *fluxmap.Grid, colorOf func(float64) color.NRGBA) *image.NRGBA {
	if g.Rows == 0 || g.Cols == 0 {
		return imaging.New(1, 1, color.NRGBA{A: 255})
	}
	img := imaging.New(g.Cols, g.Rows, color.NRGBA{})
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			img.SetNRGBA(col, row, colorOf(g.At(row, col)))
		}
	}
	// Image y grows downward; grid row 0 is the bottom of the detector.
	img = imaging.FlipV(img)

	if k := r.factor(g.Rows, g.Cols); k > 1 {
		img = imaging.Resize(img, g.Cols*k, g.Rows*k, imaging.NearestNeighbor)
	}
	return img
}

func (r renderer) factor(rows, cols int) int {
	short := min(rows, cols)
	if short >= r.minSize || short == 0 {
		return 1
	}
	return (r.minSize + short - 1) / short
}

// unit maps v from [lo, hi] onto [0, 1]. A flat range maps to 0.5.
func unit(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if !(hi > lo) {
		return 0.5
	}
	t := (v - lo) / (hi - lo)
	return math.Min(1, math.Max(0, t))
}
