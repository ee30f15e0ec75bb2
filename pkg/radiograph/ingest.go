package radiograph

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pradreader/pkg/cache"
	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	prio "github.com/matzehuels/pradreader/pkg/io"
	"github.com/matzehuels/pradreader/pkg/observability"
	"github.com/matzehuels/pradreader/pkg/source"
	"github.com/matzehuels/pradreader/pkg/source/carlo"
	"github.com/matzehuels/pradreader/pkg/source/delimited"
	"github.com/matzehuels/pradreader/pkg/source/flash4"
	"github.com/matzehuels/pradreader/pkg/source/mitcsv"
)

// Ingestor reads radiograph files through a registry of format readers.
// It is safe for concurrent use once constructed.
type Ingestor struct {
	readers map[source.Format]source.Reader
	order   []source.Reader // detection order
	cache   cache.Cache
	logger  *log.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithCache sets the cache used by readers that store parsed tables.
func WithCache(c cache.Cache) Option {
	return func(i *Ingestor) { i.cache = c }
}

// WithLogger sets the logger handed to readers.
func WithLogger(l *log.Logger) Option {
	return func(i *Ingestor) { i.logger = l }
}

// WithReader registers r, replacing any reader for the same format.
func WithReader(r source.Reader) Option {
	return func(i *Ingestor) { i.register(r) }
}

// NewIngestor returns an ingestor with every built-in format registered.
func NewIngestor(opts ...Option) *Ingestor {
	i := &Ingestor{readers: make(map[source.Format]source.Reader)}
	// Detection order: most specific filename patterns first.
	for _, r := range []source.Reader{
		flash4.New(),
		carlo.New(),
		prio.NewPRRReader(),
		mitcsv.New(),
		delimited.New(),
	} {
		i.register(r)
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.cache == nil {
		i.cache = cache.NewNullCache()
	}
	if i.logger == nil {
		i.logger = log.Default()
	}
	return i
}

func (i *Ingestor) register(r source.Reader) {
	if _, ok := i.readers[r.Format()]; ok {
		for k, old := range i.order {
			if old.Format() == r.Format() {
				i.order[k] = r
			}
		}
	} else {
		i.order = append(i.order, r)
	}
	i.readers[r.Format()] = r
}

// Reader returns the reader registered for a format tag or alias.
func (i *Ingestor) Reader(tag string) (source.Reader, error) {
	f, err := source.ParseFormat(tag)
	if err != nil {
		return nil, err
	}
	r, ok := i.readers[f]
	if !ok {
		return nil, perr.New(perr.ErrCodeUnsupportedFormat, "format %q has no registered reader", f)
	}
	return r, nil
}

// Detect returns the reader whose filename pattern matches path.
func (i *Ingestor) Detect(path string) (source.Reader, error) {
	return source.Detect(path, i.order...)
}

// IngestOption tunes a single Ingest call.
type IngestOption func(*ingestParams)

type ingestParams struct {
	binUm         float64
	delimiter     string
	legacy        bool
	pathIntegrals bool
}

// WithBinUm sets the histogram bin size for list-based formats.
// Defaults to source.DefaultBinUm.
func WithBinUm(um float64) IngestOption {
	return func(p *ingestParams) { p.binUm = um }
}

// WithDelimiter sets the cell separator for the delimited format.
func WithDelimiter(d string) IngestOption {
	return func(p *ingestParams) { p.delimiter = d }
}

// WithLegacyBinning histograms carlo lists with the requested bin size
// instead of the derived one.
func WithLegacyBinning() IngestOption {
	return func(p *ingestParams) { p.legacy = true }
}

// WithPathIntegrals adds carlo current and magnetic path-integral maps to
// the record's Fields.
func WithPathIntegrals() IngestOption {
	return func(p *ingestParams) { p.pathIntegrals = true }
}

// Ingest reads path as the given format and returns a new Record. An empty
// format detects the reader from the filename.
func (i *Ingestor) Ingest(ctx context.Context, path, format string, opts ...IngestOption) (*Record, error) {
	p := ingestParams{binUm: source.DefaultBinUm}
	for _, opt := range opts {
		opt(&p)
	}

	var (
		r   source.Reader
		err error
	)
	if format == "" {
		r, err = i.Detect(path)
	} else {
		r, err = i.Reader(format)
	}
	if err != nil {
		return nil, err
	}
	return i.ingest(ctx, r, path, p)
}

func (i *Ingestor) ingest(ctx context.Context, r source.Reader, path string, p ingestParams) (rec *Record, err error) {
	hooks := observability.Pipeline()
	tag := string(r.Format())
	hooks.OnIngestStart(ctx, tag, path)
	start := time.Now()
	defer func() {
		rows, cols := 0, 0
		if rec != nil {
			rows, cols = rec.Flux.Shape()
		}
		hooks.OnIngestComplete(ctx, tag, path, rows, cols, time.Since(start), err)
	}()

	frag, err := r.Parse(ctx, path, source.Options{
		BinUm:         p.binUm,
		Delimiter:     p.delimiter,
		LegacyBinning: p.legacy,
		PathIntegrals: p.pathIntegrals,
		Cache:         i.cache,
		Logger:        i.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := frag.Check(path); err != nil {
		return nil, err
	}
	if err := frag.Geometry.Validate(); err != nil {
		if perr.Is(err, perr.ErrCodeInvalidInput) {
			return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s", path)
		}
		return nil, err
	}

	rec = &Record{
		ID:        uuid.NewString(),
		Path:      absPath(path),
		Format:    r.Format(),
		Geometry:  frag.Geometry,
		Flux:      frag.Flux,
		Reference: frag.Reference,
		Fields:    frag.Fields,
		Meta:      frag.Meta,
		XSelect:   fluxmap.FullSelection,
		YSelect:   fluxmap.FullSelection,
		params:    p,
	}
	if id, ok := frag.Meta[prio.MetaRecordID]; ok {
		if _, uerr := uuid.Parse(id); uerr == nil {
			rec.ID = id
		}
	}
	if s, ok := frag.Meta[prio.MetaXMask]; ok {
		if sel, err := fluxmap.ParseSelection(s); err == nil {
			rec.XSelect = sel
		}
	}
	if s, ok := frag.Meta[prio.MetaYMask]; ok {
		if sel, err := fluxmap.ParseSelection(s); err == nil {
			rec.YSelect = sel
		}
	}
	return rec, nil
}

// Rebin reads rec's source file again with a new bin size. Geometry values
// filled in after ingestion are carried over, except the bin size. Formats
// that store pre-binned images fail with UNSUPPORTED.
func (i *Ingestor) Rebin(ctx context.Context, rec *Record, binUm float64) (*Record, error) {
	if !(binUm > 0) {
		return nil, perr.New(perr.ErrCodeInvalidInput, "bin size must be positive, got %g um", binUm)
	}
	r, ok := i.readers[rec.Format]
	if !ok {
		return nil, perr.New(perr.ErrCodeUnsupportedFormat, "format %q has no registered reader", rec.Format)
	}
	if !r.Rebinnable() {
		return nil, perr.New(perr.ErrCodeUnsupported,
			"%s: %s images are pre-binned and cannot be rebinned", rec.Path, rec.Format)
	}

	p := rec.params
	p.binUm = binUm
	out, err := i.ingest(ctx, r, rec.Path, p)
	if err != nil {
		return nil, err
	}
	fill := rec.Geometry
	fill.BinUm = out.Geometry.BinUm
	out.Geometry = out.Geometry.Fill(fill)
	out.ID = rec.ID
	out.XSelect, out.YSelect = rec.XSelect, rec.YSelect
	return out, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
