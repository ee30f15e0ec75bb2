// Package carlo reads simulation proton lists: an ASCII file whose "#"
// header carries the source geometry and whose body is a whitespace table
// with one row per detected proton.
//
// Header keys read (value is the third whitespace field):
//
//	# Tkin: 14.7 MeV     proton energy (optional)
//	# rs: 10.0           source-to-detector distance, cm
//	# ri: 2.0            source-to-object distance, cm
//	# raperture: 0.1     aperture radius, cm
//	# Columns: ...       end of header
//
// The detector is the largest square inscribed in the undeflected aperture
// image, shrunk by 2%. Reference flux is the uniform fluence of every
// recorded proton spread over that image.
package carlo

import (
	"context"
	"math"
	"strconv"
	"strings"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/source"
)

// Table columns (0-based).
const (
	colX  = 3
	colY  = 4
	colJ  = 8
	colB0 = 9
	colB1 = 10
)

// insetFactor shrinks the inscribed square so edge bins are fully lit.
const insetFactor = 0.98

// Geometry is the detector layout derived from the header.
type Geometry struct {
	Radius float64 // undeflected aperture image radius at the detector, cm
	DMax   float64 // half-width of the binned square, cm
	NBins  int     // bins per axis
	Delta  float64 // bin edge that tiles 2*DMax exactly, cm
}

// Derive computes the detector layout from the aperture radius, the
// source distances, and the requested bin edge.
func Derive(raperture, rs, ri, binCM float64) (Geometry, error) {
	if !(ri > 0) || !(rs > 0) || !(raperture > 0) {
		return Geometry{}, perr.New(perr.ErrCodeGeometryDegenerate,
			"raperture %g, rs %g and ri %g must be positive", raperture, rs, ri)
	}
	radius := raperture * rs / ri
	dmax := insetFactor * radius / math.Sqrt2
	n, err := fluxmap.Bins(2*dmax, binCM)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Radius: radius,
		DMax:   dmax,
		NBins:  n,
		Delta:  2 * dmax / float64(n),
	}, nil
}

// ReferenceMean is the expected protons per bin of edge Delta with no
// deflection, given total protons recorded.
func (g Geometry) ReferenceMean(total int) float64 {
	return float64(total) * g.Delta * g.Delta / (math.Pi * g.Radius * g.Radius)
}

// Reader implements source.Reader for carlo proton lists.
type Reader struct{}

// New returns a carlo reader.
func New() *Reader { return &Reader{} }

// Format returns source.Carlo.
func (*Reader) Format() source.Format { return source.Carlo }

// Supports matches the ".out" files the simulation writes.
func (*Reader) Supports(filename string) bool { return strings.HasSuffix(filename, ".out") }

// Rebinnable is true: the proton list can be histogrammed again.
func (*Reader) Rebinnable() bool { return true }

// Parse reads the header and proton table, culls protons outside the
// binned square, and histograms them.
//
// By default the histogram uses the derived bin edge Delta so the flux and
// reference maps share one binning and the record's bin size is Delta.
// With opts.LegacyBinning the requested bin edge is used for culling and
// histogramming and the reference is broadcast to the flux shape.
func (r *Reader) Parse(ctx context.Context, path string, opts source.Options) (*source.Fragment, error) {
	binCM, err := opts.BinCM(source.Carlo)
	if err != nil {
		return nil, err
	}
	t, err := scan(ctx, path, binCM, opts.PathIntegrals)
	if err != nil {
		return nil, err
	}
	g := t.geom

	step, binUm := g.Delta, g.Delta*1e4
	if opts.LegacyBinning {
		step, binUm = binCM, opts.BinUm
	}

	kept := cull(t.points, g.DMax, step, g.NBins)
	opts.Log().Debug("carlo table", "path", path, "protons", len(t.points), "kept", len(kept),
		"nbins", g.NBins, "delta_cm", g.Delta)

	h, err := fluxmap.Bin(kept, 2*g.DMax, step)
	if err != nil {
		return nil, err
	}
	ref := fluxmap.Uniform(h.Flux.Rows, h.Flux.Cols, g.ReferenceMean(len(t.points)))

	geo := geometry.Record{
		S2RCm: geometry.Some(t.ri),
		S2DCm: geometry.Some(t.rs),
		BinUm: geometry.Some(binUm),
	}
	if t.hasTkin {
		geo.EpMeV = geometry.Some(t.tkin)
	}

	frag := &source.Fragment{
		Geometry:  geo,
		Flux:      h.Flux,
		Reference: ref,
		Meta:      t.meta,
	}
	frag.Meta["radius_cm"] = ftoa(g.Radius)
	frag.Meta["dmax_cm"] = ftoa(g.DMax)
	frag.Meta["delta_cm"] = ftoa(g.Delta)
	frag.Meta["nbins"] = strconv.Itoa(g.NBins)
	frag.Meta["protons"] = strconv.Itoa(len(t.points))
	if opts.LegacyBinning {
		frag.Meta["binning"] = "legacy"
	} else {
		frag.Meta["binning"] = "reconciled"
	}

	if opts.PathIntegrals {
		pi, err := t.pathIntegrals(path)
		if err != nil {
			return nil, err
		}
		if !h.Flux.SameShape(pi.J) {
			return nil, perr.New(perr.ErrCodeGeometryDegenerate,
				"%s: path-integral grid %v does not match flux %v", path, pi.J, h.Flux)
		}
		frag.Fields = pi.Fields()
		frag.Meta["avg_fluence"] = ftoa(pi.AvgFluence)
		frag.Meta["image_fluence"] = ftoa(pi.ImageFluence)
	}
	return frag, nil
}

// cull keeps points whose bin index along both axes is in [0, n).
func cull(points []fluxmap.Point, dmax, step float64, n int) []fluxmap.Point {
	kept := make([]fluxmap.Point, 0, len(points))
	for _, p := range points {
		if inRange(p.X, dmax, step, n) && inRange(p.Y, dmax, step, n) {
			kept = append(kept, p)
		}
	}
	return kept
}

func inRange(c, dmax, step float64, n int) bool {
	i := math.Floor((c + dmax) / step)
	return i >= 0 && i < float64(n)
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

var _ source.Reader = (*Reader)(nil)
