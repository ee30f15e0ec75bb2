package fluxmap

import (
	"math"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

// binTolerance absorbs float round-off in width/bin (e.g. 5.0/0.1) so an
// exact multiple is not floored one bin short.
const binTolerance = 1e-9

// Point is a particle position on the detector plane, in cm, with the origin
// at the detector center.
type Point struct {
	X float64
	Y float64
}

// Histogram is the output of [Bin].
type Histogram struct {
	Flux   *Grid     // protons per bin
	Areal  *Grid     // protons per cm^2
	XEdges []float64 // n+1 column edges, cm
	YEdges []float64 // n+1 row edges, cm
	BinCM  float64   // bin edge length, cm
}

// Bins returns the number of square bins of edge binCM that fit across
// widthCM. It fails with GEOMETRY_DEGENERATE when either length is not
// positive and finite or when the count is zero.
func Bins(widthCM, binCM float64) (int, error) {
	if !positive(widthCM) || !positive(binCM) {
		return 0, perr.New(perr.ErrCodeGeometryDegenerate,
			"width %g cm and bin %g cm must be positive and finite", widthCM, binCM)
	}
	n := int(math.Floor(widthCM/binCM + binTolerance))
	if n <= 0 {
		return 0, perr.New(perr.ErrCodeGeometryDegenerate,
			"bin %g cm is larger than width %g cm", binCM, widthCM)
	}
	return n, nil
}

// Edges returns the n+1 bin edges -width/2 + k*bin for k = 0..n.
func Edges(widthCM, binCM float64) ([]float64, error) {
	n, err := Bins(widthCM, binCM)
	if err != nil {
		return nil, err
	}
	return edges(widthCM, binCM, n), nil
}

func edges(widthCM, binCM float64, n int) []float64 {
	e := make([]float64, n+1)
	for k := range e {
		e[k] = -widthCM/2 + float64(k)*binCM
	}
	return e
}

// Bin histograms points into an n×n grid with n = floor(width/bin).
// The result is in "xy" orientation: column index from x, row index from y.
// Points outside the binned square are excluded.
func Bin(points []Point, widthCM, binCM float64) (*Histogram, error) {
	n, err := Bins(widthCM, binCM)
	if err != nil {
		return nil, err
	}

	half := widthCM / 2
	flux := New(n, n)
	for _, p := range points {
		col, ok := index(p.X+half, binCM, n)
		if !ok {
			continue
		}
		row, ok := index(p.Y+half, binCM, n)
		if !ok {
			continue
		}
		flux.Add(row, col, 1)
	}

	e := edges(widthCM, binCM, n)
	return &Histogram{
		Flux:   flux,
		Areal:  flux.Scale(1 / (binCM * binCM)),
		XEdges: e,
		YEdges: append([]float64(nil), e...),
		BinCM:  binCM,
	}, nil
}

// index maps an offset from the lower detector edge to a bin index,
// reporting false when it falls outside [0, n).
func index(offset, binCM float64, n int) (int, bool) {
	f := math.Floor(offset / binCM)
	if math.IsNaN(f) || f < 0 || f >= float64(n) {
		return 0, false
	}
	return int(f), true
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
