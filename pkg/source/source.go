// Package source defines the contract every radiograph file reader
// implements, and the shared helpers readers use to open and scan files.
//
// Each format lives in its own subpackage (carlo, flash4, mitcsv,
// delimited); the PRR reader lives in pkg/io. A [Reader] turns one file into
// a [Fragment]: the geometry the format carries, the flux map, and the
// reference flux map, all in "xy" orientation.
package source

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pradreader/pkg/cache"
	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
)

// DefaultBinUm is the bin size used when neither flags nor config set one.
const DefaultBinUm = 320.0

// Reader parses one radiograph file format.
type Reader interface {
	// Parse reads the file at path and returns its normalized contents.
	Parse(ctx context.Context, path string, opts Options) (*Fragment, error)
	// Supports reports whether this reader plausibly handles the filename.
	Supports(filename string) bool
	// Format returns the canonical format tag.
	Format() Format
	// Rebinnable reports whether the format is a particle list that can be
	// histogrammed again at a different bin size.
	Rebinnable() bool
}

// Options control a single Parse call.
type Options struct {
	// BinUm is the requested histogram bin edge in micrometres. Required by
	// list-based formats, ignored by pre-binned ones.
	BinUm float64

	// Delimiter separates cells in the generic delimited format.
	// Empty means any run of whitespace.
	Delimiter string

	// LegacyBinning makes the carlo reader histogram with the requested bin
	// instead of the bin derived from the aperture geometry.
	LegacyBinning bool

	// PathIntegrals makes the carlo reader also compute per-pixel current
	// and magnetic path-integral maps.
	PathIntegrals bool

	// Cache stores parsed particle tables between runs. Nil disables it.
	Cache cache.Cache

	// Logger receives progress messages. Nil means log.Default().
	Logger *log.Logger
}

// Log returns the configured logger or the package default.
func (o Options) Log() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// CacheOrNull returns the configured cache or a NullCache.
func (o Options) CacheOrNull() cache.Cache {
	if o.Cache != nil {
		return o.Cache
	}
	return cache.NewNullCache()
}

// BinCM returns the requested bin size in centimetres. It fails with
// INVALID_INPUT when no positive bin size was given.
func (o Options) BinCM(f Format) (float64, error) {
	if !(o.BinUm > 0) {
		return 0, perr.New(perr.ErrCodeInvalidInput,
			"%s: a positive bin size is required, got %g um", f, o.BinUm)
	}
	return o.BinUm * 1e-4, nil
}

// Fragment is what a Reader extracts from one file.
type Fragment struct {
	Geometry  geometry.Record
	Flux      *fluxmap.Grid
	Reference *fluxmap.Grid

	// Fields holds auxiliary per-pixel maps keyed by name, e.g. carlo path
	// integrals. Each has the same shape as Flux.
	Fields map[string]*fluxmap.Grid

	// Meta holds format-specific key/value metadata.
	Meta map[string]string
}

// Check verifies the invariants every reader must uphold.
func (f *Fragment) Check(path string) error {
	if f.Flux == nil || f.Reference == nil {
		return perr.New(perr.ErrCodeInternal, "%s: reader returned no flux map", path)
	}
	if !f.Flux.SameShape(f.Reference) {
		return perr.New(perr.ErrCodeInternal, "%s: flux %v and reference %v differ in shape",
			path, f.Flux, f.Reference)
	}
	for name, g := range f.Fields {
		if !f.Flux.SameShape(g) {
			return perr.New(perr.ErrCodeInternal, "%s: field %s %v differs from flux %v",
				path, name, g, f.Flux)
		}
	}
	return nil
}

// Detect finds a reader that supports the given file path.
// Returns an error if no reader matches.
func Detect(path string, readers ...Reader) (Reader, error) {
	name := filepath.Base(path)
	for _, r := range readers {
		if r.Supports(name) {
			return r, nil
		}
	}
	return nil, perr.New(perr.ErrCodeUnsupportedFormat,
		"cannot detect format of %s; pass --format", name)
}
