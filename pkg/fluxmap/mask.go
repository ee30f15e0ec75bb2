package fluxmap

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Selection is a [Start, End] range in percent of one grid axis.
type Selection struct {
	Start float64 `json:"start" toml:"start" validate:"gte=0,lte=100,ltefield=End"`
	End   float64 `json:"end" toml:"end" validate:"gte=0,lte=100"`
}

// FullSelection spans the whole axis.
var FullSelection = Selection{Start: 0, End: 100}

// Valid reports whether 0 <= Start <= End <= 100.
func (s Selection) Valid() bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= 100
}

// IsZero reports whether s is the zero value, which callers treat as unset.
func (s Selection) IsZero() bool { return s == Selection{} }

// String renders s as "a % - b %".
func (s Selection) String() string {
	return fmt.Sprintf("%s %% - %s %%", ftoa(s.Start), ftoa(s.End))
}

var selectionPattern = regexp.MustCompile(`^\s*([-+0-9.eE]+)\s*%?\s*(?:-|\s)\s*([-+0-9.eE]+)\s*%?\s*$`)

// ParseSelection parses "a % - b %", "a - b" or "a b".
func ParseSelection(text string) (Selection, error) {
	m := selectionPattern.FindStringSubmatch(text)
	if m == nil {
		return Selection{}, fmt.Errorf("invalid selection %q, want \"start - end\"", strings.TrimSpace(text))
	}
	start, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Selection{}, fmt.Errorf("invalid selection start %q: %w", m[1], err)
	}
	end, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Selection{}, fmt.Errorf("invalid selection end %q: %w", m[2], err)
	}
	s := Selection{Start: start, End: end}
	if !s.Valid() {
		return Selection{}, fmt.Errorf("selection %s out of range 0..100", s)
	}
	return s, nil
}

// Mask returns a grid of ones shaped rows x cols with the rectangle
// selected by x and y set to zero. x is measured along the first axis
// (rows) and y along the second (cols). Boundaries round half to even.
func Mask(rows, cols int, x, y Selection) *Grid {
	m := Uniform(rows, cols, 1)
	r0, r1 := span(x, rows)
	c0, c1 := span(y, cols)
	for r := r0; r < r1; r++ {
		for c := c0; c < c1; c++ {
			m.Set(r, c, 0)
		}
	}
	return m
}

func span(s Selection, n int) (int, int) {
	lo := clamp(int(math.RoundToEven(s.Start/100*float64(n))), n)
	hi := clamp(int(math.RoundToEven(s.End/100*float64(n))), n)
	return lo, hi
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
