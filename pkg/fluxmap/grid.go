package fluxmap

import (
	"encoding/json"
	"fmt"
	"math"
)

// Grid is a dense 2D array of float64 values in "xy" orientation.
// Data is row-major; the element at (row, col) lives at Data[row*Cols+col].
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// New returns a zero-filled grid of the given shape.
func New(rows, cols int) *Grid {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// FromRows builds a grid from a slice of equal-length rows. rows[0] becomes
// row 0 of the grid.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	cols := len(rows[0])
	g := New(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", r, len(row), cols)
		}
		copy(g.Data[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

// Uniform returns a grid of the given shape with every element set to v.
func Uniform(rows, cols int, v float64) *Grid {
	g := New(rows, cols)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// Shape returns (rows, cols).
func (g *Grid) Shape() (int, int) { return g.Rows, g.Cols }

// Len returns the number of elements.
func (g *Grid) Len() int { return len(g.Data) }

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.Data[row*g.Cols+col] }

// Set stores v at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.Data[row*g.Cols+col] = v }

// Add adds v to the value at (row, col).
func (g *Grid) Add(row, col int, v float64) { g.Data[row*g.Cols+col] += v }

// Row returns a view of row r. Mutating the slice mutates the grid.
func (g *Grid) Row(r int) []float64 { return g.Data[r*g.Cols : (r+1)*g.Cols] }

// SameShape reports whether g and o have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	if g == nil || o == nil {
		return false
	}
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{Rows: g.Rows, Cols: g.Cols, Data: make([]float64, len(g.Data))}
	copy(c.Data, g.Data)
	return c
}

// Sum returns the sum of all elements.
func (g *Grid) Sum() float64 {
	var s float64
	for _, v := range g.Data {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean, or 0 for an empty grid.
func (g *Grid) Mean() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	return g.Sum() / float64(len(g.Data))
}

// MinMax returns the smallest and largest elements.
// Both are 0 for an empty grid.
func (g *Grid) MinMax() (float64, float64) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Scale returns a new grid with every element multiplied by f.
func (g *Grid) Scale(f float64) *Grid {
	c := g.Clone()
	for i := range c.Data {
		c.Data[i] *= f
	}
	return c
}

// FlipUD returns a new grid with the row order reversed.
func (g *Grid) FlipUD() *Grid {
	c := New(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		copy(c.Row(g.Rows-1-r), g.Row(r))
	}
	return c
}

// Transpose returns a new grid with rows and columns swapped.
func (g *Grid) Transpose() *Grid {
	c := New(g.Cols, g.Rows)
	for r := 0; r < g.Rows; r++ {
		for col := 0; col < g.Cols; col++ {
			c.Set(col, r, g.At(r, col))
		}
	}
	return c
}

// ToRows copies the grid into a slice of rows.
func (g *Grid) ToRows() [][]float64 {
	out := make([][]float64, g.Rows)
	for r := range out {
		out[r] = append([]float64(nil), g.Row(r)...)
	}
	return out
}

// MarshalJSON encodes the grid as a nested array of rows.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.ToRows())
}

// UnmarshalJSON decodes a nested array of rows.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := FromRows(rows)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}

// String returns the grid shape, e.g. "(501, 500)".
func (g *Grid) String() string {
	return fmt.Sprintf("(%d, %d)", g.Rows, g.Cols)
}
