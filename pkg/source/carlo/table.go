package carlo

import (
	"context"
	"strconv"
	"strings"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/source"
)

// ctxCheckEvery is how many table rows are read between cancellation checks.
const ctxCheckEvery = 1 << 16

// table is the parsed content of one carlo file.
type table struct {
	tkin, rs, ri, rap float64
	hasTkin           bool
	geom              Geometry
	points            []fluxmap.Point
	aux               [][3]float64 // J, B0, B1 per point; only when requested
	meta              map[string]string
}

// scan reads the header, derives the geometry, and loads every table row.
func scan(ctx context.Context, path string, binCM float64, withAux bool) (*table, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t := &table{meta: map[string]string{}}
	have := map[string]bool{}
	inHeader := true
	minCols := colY + 1
	if withAux {
		minCols = colB1 + 1
	}

	sc := source.NewScanner(rc)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if !inHeader {
				continue
			}
			if strings.HasPrefix(line, "# Columns:") {
				inHeader = false
				if err := t.derive(path, have, binCM); err != nil {
					return nil, err
				}
				continue
			}
			if err := t.header(path, lineNo, line, have); err != nil {
				return nil, err
			}
			continue
		}

		if inHeader {
			return nil, source.Mismatch(path, lineNo, "proton table starts before the \"# Columns:\" line")
		}

		if len(t.points)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		f := strings.Fields(line)
		if len(f) < minCols {
			return nil, source.Mismatch(path, lineNo, "expected at least %d columns, got %d", minCols, len(f))
		}
		x, errX := strconv.ParseFloat(f[colX], 64)
		y, errY := strconv.ParseFloat(f[colY], 64)
		if errX != nil || errY != nil {
			return nil, source.Mismatch(path, lineNo, "non-numeric position %q %q", f[colX], f[colY])
		}
		t.points = append(t.points, fluxmap.Point{X: x, Y: y})

		if withAux {
			v, err := source.ParseFloats([]string{f[colJ], f[colB0], f[colB1]})
			if err != nil {
				return nil, source.Mismatch(path, lineNo, "non-numeric path integral: %v", err)
			}
			t.aux = append(t.aux, [3]float64{v[0], v[1], v[2]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(perr.ErrCodeInvalidInput, err, "read %s", path)
	}
	if inHeader {
		return nil, perr.New(perr.ErrCodeFormatMismatch, "%s: no \"# Columns:\" line found", path)
	}
	return t, nil
}

// header records one "# key: value ..." line.
func (t *table) header(path string, lineNo int, line string, have map[string]bool) error {
	f := strings.Fields(line)
	if len(f) < 3 || !strings.HasSuffix(f[1], ":") {
		return nil
	}
	key := strings.TrimSuffix(f[1], ":")
	t.meta[key] = strings.Join(f[2:], " ")

	var dst *float64
	switch key {
	case "Tkin":
		dst = &t.tkin
		t.hasTkin = true
	case "rs":
		dst = &t.rs
	case "ri":
		dst = &t.ri
	case "raperture":
		dst = &t.rap
	default:
		return nil
	}
	v, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return source.Mismatch(path, lineNo, "header %s: %q is not a number", key, f[2])
	}
	*dst = v
	have[key] = true
	return nil
}

// derive checks the required keys and computes the detector layout.
func (t *table) derive(path string, have map[string]bool, binCM float64) error {
	for _, key := range []string{"rs", "ri", "raperture"} {
		if !have[key] {
			return perr.New(perr.ErrCodeMissingMetadata, "%s: header key %q not found", path, key)
		}
	}
	g, err := Derive(t.rap, t.rs, t.ri, binCM)
	if err != nil {
		return perr.Wrap(perr.ErrCodeGeometryDegenerate, err, "%s", path)
	}
	t.geom = g
	return nil
}
