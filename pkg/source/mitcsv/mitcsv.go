// Package mitcsv reads pre-binned proton images exported as CSV by the
// MIT CR-39 scanning software.
//
// Layout:
//
//	line 1   ignored
//	line 2   "... = <cols> x <rows>"
//	line 3   "... = <pixel size in um>"
//	line 4-5 ignored
//	line 6+  <rows> lines of <cols> comma-separated counts, top row first
//
// The header grammar is enforced strictly: a malformed dimension or pixel
// line, a non-positive pixel size, an image larger than maxCells bins,
// a non-numeric cell, or a grid that disagrees with the declared
// dimensions fails with FORMAT_MISMATCH.
package mitcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/source"
)

// headerLines precede the pixel grid.
const headerLines = 5

// maxCells bounds the declared image size. Scanner exports are a few
// thousand bins on a side.
const maxCells = 1 << 26

// maxRowHint caps the row capacity reserved from the header.
const maxRowHint = 4096

var (
	dimPattern   = regexp.MustCompile(`=\s*(\d+)\s*x\s*(\d+)\s*$`)
	pixelPattern = regexp.MustCompile(`=\s*((?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)\s*$`)
)

// Reader implements source.Reader for MIT CSV images.
type Reader struct{}

// New returns an MIT CSV reader.
func New() *Reader { return &Reader{} }

// Format returns source.MITCSV.
func (*Reader) Format() source.Format { return source.MITCSV }

// Supports matches ".csv" files.
func (*Reader) Supports(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

// Rebinnable is false: the image is already binned.
func (*Reader) Rebinnable() bool { return false }

// Header is the parsed CSV preamble.
type Header struct {
	Cols    int
	Rows    int
	PixelUm float64
}

// Parse reads the image, flips it so row 0 is the bottom, and builds a
// uniform reference at the image mean. The bin size is the declared pixel
// size; opts.BinUm is ignored.
func (r *Reader) Parse(ctx context.Context, path string, opts source.Options) (*source.Fragment, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	hdr, grid, err := Read(ctx, path, rc)
	if err != nil {
		return nil, err
	}
	flux := grid.FlipUD()
	opts.Log().Debug("mit csv image", "path", path, "rows", hdr.Rows, "cols", hdr.Cols, "pixel_um", hdr.PixelUm)

	return &source.Fragment{
		Geometry:  geometry.Record{BinUm: geometry.Some(hdr.PixelUm)},
		Flux:      flux,
		Reference: fluxmap.UniformMean(flux),
		Meta: map[string]string{
			"pixel_um": strconv.FormatFloat(hdr.PixelUm, 'g', -1, 64),
		},
	}, nil
}

// Read parses the header and the grid as stored, top row first.
func Read(ctx context.Context, path string, rd io.Reader) (Header, *fluxmap.Grid, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var hdr Header
	for line := 1; line <= headerLines; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return hdr, nil, perr.New(perr.ErrCodeFormatMismatch, "%s: header ends at line %d, want %d lines", path, line, headerLines)
		}
		if err != nil {
			return hdr, nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s:%d", path, line)
		}
		switch line {
		case 2:
			m := dimPattern.FindStringSubmatch(first(rec))
			if m == nil {
				return hdr, nil, source.Mismatch(path, line, "dimension line %q does not match \"= <cols> x <rows>\"", first(rec))
			}
			cols, cerr := strconv.Atoi(m[1])
			rows, rerr := strconv.Atoi(m[2])
			if cerr != nil || rerr != nil {
				return hdr, nil, source.Mismatch(path, line, "dimension %s x %s out of range", m[1], m[2])
			}
			if cols == 0 || rows == 0 {
				return hdr, nil, source.Mismatch(path, line, "empty image %d x %d", cols, rows)
			}
			if cols > maxCells/rows {
				return hdr, nil, source.Mismatch(path, line, "image %d x %d exceeds %d bins", cols, rows, maxCells)
			}
			hdr.Cols, hdr.Rows = cols, rows
		case 3:
			m := pixelPattern.FindStringSubmatch(first(rec))
			if m == nil {
				return hdr, nil, source.Mismatch(path, line, "pixel line %q does not match \"= <float>\"", first(rec))
			}
			px, err := strconv.ParseFloat(m[1], 64)
			if err != nil || !(px > 0) || math.IsInf(px, 0) {
				return hdr, nil, source.Mismatch(path, line, "pixel size %s must be a positive finite number", m[1])
			}
			hdr.PixelUm = px
		}
	}

	rows := make([][]float64, 0, min(hdr.Rows, maxRowHint))
	for {
		if err := ctx.Err(); err != nil {
			return hdr, nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return hdr, nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s", path)
		}
		line, _ := cr.FieldPos(0)
		rec = trimTrailingEmpty(rec)
		if len(rec) == 0 {
			continue
		}
		if len(rec) != hdr.Cols {
			return hdr, nil, source.Mismatch(path, line, "row has %d values, header declares %d columns", len(rec), hdr.Cols)
		}
		vals, err := source.ParseFloats(rec)
		if err != nil {
			return hdr, nil, source.Mismatch(path, line, "%v", err)
		}
		rows = append(rows, vals)
	}
	if len(rows) != hdr.Rows {
		return hdr, nil, perr.New(perr.ErrCodeFormatMismatch,
			"%s: found %d rows, header declares %d", path, len(rows), hdr.Rows)
	}

	grid, err := fluxmap.FromRows(rows)
	if err != nil {
		return hdr, nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s", path)
	}
	return hdr, grid, nil
}

func first(rec []string) string {
	if len(rec) == 0 {
		return ""
	}
	return rec[0]
}

func trimTrailingEmpty(rec []string) []string {
	for len(rec) > 0 && strings.TrimSpace(rec[len(rec)-1]) == "" {
		rec = rec[:len(rec)-1]
	}
	return rec
}

var _ source.Reader = (*Reader)(nil)
