package carlo

import (
	"context"
	"math"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/source"
)

// Field names used when path integrals are attached to a fragment.
const (
	FieldJ      = "J"
	FieldBperp0 = "Bperp0"
	FieldBperp1 = "Bperp1"
)

// PathIntegrals are per-pixel averages of the line-integrated current and
// perpendicular magnetic field carried by each proton row.
type PathIntegrals struct {
	Geometry Geometry
	Count    *fluxmap.Grid // protons per bin
	J        *fluxmap.Grid // mean current path integral
	B0       *fluxmap.Grid // mean Bperp, first component
	B1       *fluxmap.Grid // mean Bperp, second component

	AvgFluence   float64 // all protons / aperture image area, per cm^2
	ImageFluence float64 // binned protons / square area, per cm^2
}

// Fields returns the averaged maps keyed by field name.
func (p *PathIntegrals) Fields() map[string]*fluxmap.Grid {
	return map[string]*fluxmap.Grid{
		FieldJ:      p.J,
		FieldBperp0: p.B0,
		FieldBperp1: p.B1,
	}
}

// ReadPathIntegrals reads a carlo file and averages the path-integral
// columns per bin of edge Delta. Every bin must hold at least one proton;
// an empty bin fails with GEOMETRY_DEGENERATE.
func ReadPathIntegrals(ctx context.Context, path string, opts source.Options) (*PathIntegrals, error) {
	binCM, err := opts.BinCM(source.Carlo)
	if err != nil {
		return nil, err
	}
	t, err := scan(ctx, path, binCM, true)
	if err != nil {
		return nil, err
	}
	pi, err := t.pathIntegrals(path)
	if err != nil {
		return nil, err
	}
	opts.Log().Debug("carlo path integrals", "path", path,
		"avg_fluence", pi.AvgFluence, "image_fluence", pi.ImageFluence)
	return pi, nil
}

func (t *table) pathIntegrals(path string) (*PathIntegrals, error) {
	g := t.geom
	n := g.NBins
	count := fluxmap.New(n, n)
	j := fluxmap.New(n, n)
	b0 := fluxmap.New(n, n)
	b1 := fluxmap.New(n, n)

	for i, p := range t.points {
		col := math.Floor((p.X + g.DMax) / g.Delta)
		row := math.Floor((p.Y + g.DMax) / g.Delta)
		if col < 0 || col >= float64(n) || row < 0 || row >= float64(n) {
			continue
		}
		r, c := int(row), int(col)
		count.Add(r, c, 1)
		j.Add(r, c, t.aux[i][0])
		b0.Add(r, c, t.aux[i][1])
		b1.Add(r, c, t.aux[i][2])
	}

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			k := count.At(r, c)
			if k == 0 {
				return nil, perr.New(perr.ErrCodeGeometryDegenerate,
					"%s: bin (row %d, col %d) has no protons; path integrals are undefined", path, r, c)
			}
			j.Set(r, c, j.At(r, c)/k)
			b0.Set(r, c, b0.At(r, c)/k)
			b1.Set(r, c, b1.At(r, c)/k)
		}
	}

	return &PathIntegrals{
		Geometry:     g,
		Count:        count,
		J:            j,
		B0:           b0,
		B1:           b1,
		AvgFluence:   float64(len(t.points)) / (math.Pi * g.Radius * g.Radius),
		ImageFluence: count.Sum() / (4 * g.DMax * g.DMax),
	}, nil
}
