package fluxmap

import (
	"math"
	"math/rand"
	"testing"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

func TestBins(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		bin   float64
		want  int
	}{
		{"exact", 4, 0.5, 8},
		{"round-off", 5.0, 0.1, 50},
		{"partial bin dropped", 5.0, 0.3, 16},
		{"single", 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bins(tt.width, tt.bin)
			if err != nil {
				t.Fatalf("Bins() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Bins(%g, %g) = %d, want %d", tt.width, tt.bin, got, tt.want)
			}
		})
	}
}

func TestBinsDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		bin   float64
	}{
		{"bin larger than width", 1, 2},
		{"zero bin", 1, 0},
		{"negative width", -1, 0.1},
		{"nan", math.NaN(), 0.1},
		{"inf bin", 1, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bins(tt.width, tt.bin)
			if !perr.Is(err, perr.ErrCodeGeometryDegenerate) {
				t.Errorf("Bins(%g, %g) error = %v, want GEOMETRY_DEGENERATE", tt.width, tt.bin, err)
			}
		})
	}
}

func TestEdges(t *testing.T) {
	e, err := Edges(2, 0.5)
	if err != nil {
		t.Fatalf("Edges() error = %v", err)
	}
	want := []float64{-1, -0.5, 0, 0.5, 1}
	if len(e) != len(want) {
		t.Fatalf("len(Edges) = %d, want %d", len(e), len(want))
	}
	for i := range want {
		if math.Abs(e[i]-want[i]) > 1e-12 {
			t.Errorf("Edges[%d] = %g, want %g", i, e[i], want[i])
		}
	}
}

func TestBinOrientation(t *testing.T) {
	// One particle in the bottom-right quadrant of a 2x2 grid.
	h, err := Bin([]Point{{X: 0.5, Y: -0.5}}, 2, 1)
	if err != nil {
		t.Fatalf("Bin() error = %v", err)
	}
	if got := h.Flux.At(0, 1); got != 1 {
		t.Errorf("Flux[0][1] = %g, want 1", got)
	}
	if got := h.Flux.Sum(); got != 1 {
		t.Errorf("Flux sum = %g, want 1", got)
	}
}

func TestBinDropsOutside(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0},
		{X: -1, Y: -1},    // lower edge is inclusive
		{X: 1, Y: 0},      // upper edge is exclusive
		{X: 0, Y: 5},      // outside
		{X: math.NaN(), Y: 0},
	}
	h, err := Bin(points, 2, 0.5)
	if err != nil {
		t.Fatalf("Bin() error = %v", err)
	}
	if got := h.Flux.Sum(); got != 2 {
		t.Errorf("Flux sum = %g, want 2", got)
	}
	if got := h.Flux.At(0, 0); got != 1 {
		t.Errorf("Flux[0][0] = %g, want 1", got)
	}
}

func TestBinConservesInsideCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([]Point, 5000)
	inside := 0
	for i := range points {
		p := Point{X: rng.Float64()*6 - 3, Y: rng.Float64()*6 - 3}
		points[i] = p
		if p.X >= -2 && p.X < 2 && p.Y >= -2 && p.Y < 2 {
			inside++
		}
	}

	h, err := Bin(points, 4, 0.5)
	if err != nil {
		t.Fatalf("Bin() error = %v", err)
	}
	if r, c := h.Flux.Shape(); r != 8 || c != 8 {
		t.Fatalf("shape = (%d, %d), want (8, 8)", r, c)
	}
	if got := h.Flux.Sum(); got != float64(inside) {
		t.Errorf("Flux sum = %g, want %d", got, inside)
	}
	if len(h.XEdges) != 9 || len(h.YEdges) != 9 {
		t.Errorf("edges = %d, %d, want 9, 9", len(h.XEdges), len(h.YEdges))
	}
}

func TestBinAreal(t *testing.T) {
	h, err := Bin([]Point{{0.1, 0.1}, {0.2, 0.2}}, 1, 0.5)
	if err != nil {
		t.Fatalf("Bin() error = %v", err)
	}
	if got := h.Areal.At(1, 1); math.Abs(got-8) > 1e-12 {
		t.Errorf("Areal[1][1] = %g, want 8", got)
	}
	if h.BinCM != 0.5 {
		t.Errorf("BinCM = %g, want 0.5", h.BinCM)
	}
}

func TestBinEmpty(t *testing.T) {
	h, err := Bin(nil, 1, 0.25)
	if err != nil {
		t.Fatalf("Bin() error = %v", err)
	}
	if h.Flux.Len() != 16 || h.Flux.Sum() != 0 {
		t.Errorf("empty Bin = %v sum %g, want (4, 4) sum 0", h.Flux, h.Flux.Sum())
	}
}

func TestDisk(t *testing.T) {
	e, _ := Edges(4, 1)
	g := Disk(e, e, 1, 3)

	// Centers at +-0.5 are inside r=1; centers at +-1.5 are not.
	if got := g.Sum(); got != 12 {
		t.Errorf("Disk sum = %g, want 12", got)
	}
	if g.At(1, 1) != 3 || g.At(2, 2) != 3 {
		t.Error("inner bins should hold the disk value")
	}
	if g.At(0, 0) != 0 || g.At(3, 1) != 0 {
		t.Error("outer bins should be zero")
	}
}

func TestUniformMean(t *testing.T) {
	g, _ := FromRows([][]float64{{1, 2}, {3, 6}})
	ref := UniformMean(g)
	if !ref.SameShape(g) {
		t.Fatalf("UniformMean shape = %v, want %v", ref, g)
	}
	for _, v := range ref.Data {
		if v != 3 {
			t.Fatalf("UniformMean value = %g, want 3", v)
		}
	}
}
