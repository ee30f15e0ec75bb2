package io

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/source"
)

const (
	keyDate      = "Date generated:"
	keyRecordID  = "record_id"
	keyFlux      = "flux2D"
	keyReference = "flux2D_ref"
	keyXMask     = "x-mask"
	keyYMask     = "y-mask"
)

var shapePattern = regexp.MustCompile(`^\(\s*(\d+)\s*,\s*(\d+)\s*\)$`)

// ReadPRR decodes a PRR stream. name is used in error messages only.
//
// The version line must match [PRRVersionLine]. Every geometry key and
// both shape lines are required; a missing one fails with
// MISSING_METADATA. The mask lines are optional and default to the full
// axis. Row and column counts must match the declared shapes exactly.
func ReadPRR(r io.Reader, name string) (*Document, error) {
	sc := source.NewScanner(r)
	line := 0

	if !sc.Scan() {
		return nil, perr.New(perr.ErrCodeFormatMismatch, "%s: empty file", name)
	}
	line++
	if strings.TrimSpace(sc.Text()) != PRRVersionLine {
		return nil, source.Mismatch(name, line, "unsupported PRR version line %q", sc.Text())
	}

	header := map[string]string{}
	var first string
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if !strings.HasPrefix(text, "#") {
			first = text
			break
		}
		body := strings.TrimSpace(strings.TrimPrefix(text, "#"))
		if rest, ok := strings.CutPrefix(body, keyDate); ok {
			header[keyDate] = strings.TrimSpace(rest)
			continue
		}
		key, val, _ := strings.Cut(body, " ")
		header[key] = strings.TrimSpace(val)
	}

	doc := &Document{ID: header[keyRecordID]}
	if d, ok := header[keyDate]; ok {
		if t, err := time.ParseInLocation(dateLayout, d, time.Local); err == nil {
			doc.Generated = t
		}
	}
	for _, f := range geometry.Fields {
		raw, ok := header[f]
		if !ok {
			return nil, perr.New(perr.ErrCodeMissingMetadata, "%s: header key %q not found", name, f)
		}
		var s geometry.Scalar
		if err := s.UnmarshalText([]byte(raw)); err != nil {
			return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: header key %q", name, f)
		}
		doc.Geometry, _ = doc.Geometry.With(f, s)
	}
	var err error
	if doc.XMask, err = selection(header, keyXMask, name); err != nil {
		return nil, err
	}
	if doc.YMask, err = selection(header, keyYMask, name); err != nil {
		return nil, err
	}

	fr, fc, err := shape(header, keyFlux, name)
	if err != nil {
		return nil, err
	}
	rr, rc, err := shape(header, keyReference, name)
	if err != nil {
		return nil, err
	}

	var rows [][]float64
	addRow := func(text string) error {
		if text == "" {
			return nil
		}
		vals, err := source.ParseFloats(strings.Split(text, ","))
		if err != nil {
			return source.Mismatch(name, line, "%v", err)
		}
		rows = append(rows, vals)
		return nil
	}
	if err := addRow(first); err != nil {
		return nil, err
	}
	for sc.Scan() {
		line++
		if err := addRow(strings.TrimSpace(sc.Text())); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: read", name)
	}

	if len(rows) != fr+rr {
		return nil, perr.New(perr.ErrCodeFormatMismatch,
			"%s: found %d data rows, header declares %d + %d", name, len(rows), fr, rr)
	}
	if doc.Flux, err = grid(rows[:fr], fc, keyFlux, name); err != nil {
		return nil, err
	}
	if doc.Reference, err = grid(rows[fr:], rc, keyReference, name); err != nil {
		return nil, err
	}
	return doc, nil
}

// ImportPRR reads the PRR file at path.
func ImportPRR(path string) (*Document, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadPRR(rc, path)
}

func shape(header map[string]string, key, name string) (int, int, error) {
	raw, ok := header[key]
	if !ok {
		return 0, 0, perr.New(perr.ErrCodeMissingMetadata, "%s: header key %q not found", name, key)
	}
	m := shapePattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, perr.New(perr.ErrCodeFormatMismatch, "%s: %s shape %q does not match \"(rows, cols)\"", name, key, raw)
	}
	r, _ := strconv.Atoi(m[1])
	c, _ := strconv.Atoi(m[2])
	return r, c, nil
}

func selection(header map[string]string, key, name string) (fluxmap.Selection, error) {
	raw, ok := header[key]
	if !ok {
		return fluxmap.FullSelection, nil
	}
	s, err := fluxmap.ParseSelection(raw)
	if err != nil {
		return fluxmap.Selection{}, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: %s", name, key)
	}
	return s, nil
}

func grid(rows [][]float64, cols int, key, name string) (*fluxmap.Grid, error) {
	for i, row := range rows {
		if len(row) != cols {
			return nil, perr.New(perr.ErrCodeFormatMismatch,
				"%s: %s row %d has %d values, header declares %d", name, key, i, len(row), cols)
		}
	}
	g, err := fluxmap.FromRows(rows)
	if err != nil {
		return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: %s", name, key)
	}
	if len(rows) == 0 {
		g = fluxmap.New(0, cols)
	}
	return g, nil
}

// PRRReader implements source.Reader for PRR files written by [WritePRR].
type PRRReader struct{}

// NewPRRReader returns a PRR reader.
func NewPRRReader() *PRRReader { return &PRRReader{} }

// Format returns source.PRR.
func (*PRRReader) Format() source.Format { return source.PRR }

// Supports matches ".prr" files.
func (*PRRReader) Supports(filename string) bool {
	n := strings.TrimSuffix(strings.ToLower(filename), ".gz")
	return strings.HasSuffix(n, ".prr")
}

// Rebinnable is false.
func (*PRRReader) Rebinnable() bool { return false }

// Parse reads a PRR file. The record id and mask selections are returned
// in Meta under "record_id", "x_mask" and "y_mask".
func (*PRRReader) Parse(ctx context.Context, path string, opts source.Options) (*source.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := ImportPRR(path)
	if err != nil {
		return nil, err
	}
	opts.Log().Debug("prr file", "path", path, "flux", doc.Flux.String(), "id", doc.ID)

	meta := map[string]string{
		MetaXMask: doc.XMask.String(),
		MetaYMask: doc.YMask.String(),
	}
	if doc.ID != "" {
		meta[MetaRecordID] = doc.ID
	}
	if !doc.Generated.IsZero() {
		meta["generated"] = doc.Generated.Format(time.RFC3339)
	}
	return &source.Fragment{
		Geometry:  doc.Geometry,
		Flux:      doc.Flux,
		Reference: doc.Reference,
		Meta:      meta,
	}, nil
}

// Meta keys set by PRRReader.
const (
	MetaRecordID = "record_id"
	MetaXMask    = "x_mask"
	MetaYMask    = "y_mask"
)

var _ source.Reader = (*PRRReader)(nil)
