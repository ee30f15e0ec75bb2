// Package delimited reads a flux image stored as plain rows of numbers,
// one image row per line.
package delimited

import (
	"context"
	"strconv"
	"strings"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/source"
)

// Reader implements source.Reader for delimited text images.
type Reader struct{}

// New returns a delimited text reader.
func New() *Reader { return &Reader{} }

// Format returns source.CSV.
func (*Reader) Format() source.Format { return source.CSV }

// Supports matches ".txt", ".dat" and ".tsv" files, optionally gzipped.
func (*Reader) Supports(filename string) bool {
	name := strings.TrimSuffix(strings.ToLower(filename), ".gz")
	for _, ext := range []string{".txt", ".dat", ".tsv"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Rebinnable is false.
func (*Reader) Rebinnable() bool { return false }

// Parse reads the image as stored (no flip) with a uniform reference at the
// image mean. No geometry is set.
func (r *Reader) Parse(ctx context.Context, path string, opts source.Options) (*source.Fragment, error) {
	rc, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	split := splitter(opts.Delimiter)
	sc := source.NewScanner(rc)

	var rows [][]float64
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		vals, err := source.ParseFloats(split(text))
		if err != nil {
			return nil, source.Mismatch(path, line, "%v", err)
		}
		if len(rows) > 0 && len(vals) != len(rows[0]) {
			return nil, source.Mismatch(path, line, "row has %d values, previous rows have %d", len(vals), len(rows[0]))
		}
		rows = append(rows, vals)
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: read", path)
	}
	if len(rows) == 0 {
		return nil, perr.New(perr.ErrCodeFormatMismatch, "%s: no data rows", path)
	}

	flux, err := fluxmap.FromRows(rows)
	if err != nil {
		return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s", path)
	}
	opts.Log().Debug("delimited image", "path", path, "rows", flux.Rows, "cols", flux.Cols)

	return &source.Fragment{
		Flux:      flux,
		Reference: fluxmap.UniformMean(flux),
		Meta: map[string]string{
			"delimiter": strconv.Quote(opts.Delimiter),
		},
	}, nil
}

func splitter(delim string) func(string) []string {
	if delim == "" {
		return strings.Fields
	}
	return func(s string) []string {
		cells := strings.Split(s, delim)
		for len(cells) > 1 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		return cells
	}
}

var _ source.Reader = (*Reader)(nil)
