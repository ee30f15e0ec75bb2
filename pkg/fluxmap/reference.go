package fluxmap

import "math"

// UniformMean returns a grid shaped like flux with every element equal to
// the mean of flux. It is the reference model for pre-binned images, which
// carry no per-particle information.
func UniformMean(flux *Grid) *Grid {
	return Uniform(flux.Rows, flux.Cols, flux.Mean())
}

// Disk returns a grid with value at every bin whose center lies strictly
// inside radius (cm) of the detector origin, and zero elsewhere. Bin centers
// are the midpoints of consecutive edges.
func Disk(xEdges, yEdges []float64, radiusCM, value float64) *Grid {
	xc := centers(xEdges)
	yc := centers(yEdges)
	g := New(len(yc), len(xc))
	for r, y := range yc {
		for c, x := range xc {
			if math.Hypot(x, y) < radiusCM {
				g.Set(r, c, value)
			}
		}
	}
	return g
}

func centers(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = (edges[i] + edges[i+1]) / 2
	}
	return c
}
