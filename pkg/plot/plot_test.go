package plot

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
)

func TestFluxOrientation(t *testing.T) {
	// Bright bottom row, dark top row.
	g, _ := fluxmap.FromRows([][]float64{{10, 10}, {0, 0}})
	img := Flux(g, WithMinSize(1))

	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("bounds = %v, want 2x2", b)
	}
	if got := img.NRGBAAt(0, 1); got != Viridis.At(1) {
		t.Errorf("bottom pixel = %v, want max color %v", got, Viridis.At(1))
	}
	if got := img.NRGBAAt(0, 0); got != Viridis.At(0) {
		t.Errorf("top pixel = %v, want min color %v", got, Viridis.At(0))
	}
}

func TestUpscale(t *testing.T) {
	g := fluxmap.Uniform(3, 5, 1)
	img := Flux(g, WithMinSize(10))
	// ceil(10/3) = 4
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 12 {
		t.Errorf("bounds = %v, want 20x12", b)
	}
}

func TestContrastGrid(t *testing.T) {
	flux, _ := fluxmap.FromRows([][]float64{{2, 1, 5}})
	ref, _ := fluxmap.FromRows([][]float64{{1, 2, 0}})
	c, err := ContrastGrid(flux, ref)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, -0.5, 0}
	for i, v := range want {
		if c.Data[i] != v {
			t.Errorf("contrast[%d] = %g, want %g", i, c.Data[i], v)
		}
	}
	if _, err := ContrastGrid(flux, fluxmap.New(2, 2)); !perr.Is(err, perr.ErrCodeInvalidInput) {
		t.Errorf("ContrastGrid(mismatch) error = %v, want INVALID_INPUT", err)
	}
}

func TestWriteAll(t *testing.T) {
	flux, _ := fluxmap.FromRows([][]float64{{1, 2}, {3, 4}})
	dir := filepath.Join(t.TempDir(), "plots")

	paths, err := WriteAll(dir, flux, fluxmap.UniformMean(flux), WithMinSize(8))
	if err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	for _, name := range []string{FluxFile, ReferenceFile, ContrastFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		img, err := imaging.Open(path)
		if err != nil {
			t.Fatalf("Open(%s) error = %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
			t.Errorf("%s bounds = %v, want 8x8", name, b)
		}
	}
}

func TestColormap(t *testing.T) {
	m := Colormap{{0, 0, 0, 255}, {200, 100, 50, 255}}
	if got := m.At(0.5); got != (color.NRGBA{100, 50, 25, 255}) {
		t.Errorf("At(0.5) = %v", got)
	}
	if m.At(-1) != m[0] || m.At(2) != m[1] {
		t.Error("At() should clamp")
	}
}
