package radiograph

import (
	"maps"

	"github.com/google/uuid"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	prio "github.com/matzehuels/pradreader/pkg/io"
	"github.com/matzehuels/pradreader/pkg/source"
)

// Selection is a percentage range along one flux map axis.
type Selection = fluxmap.Selection

// Record is the canonical form of one radiograph.
type Record struct {
	ID        string                   `json:"id"`
	Path      string                   `json:"path"`
	Format    source.Format            `json:"format"`
	Geometry  geometry.Record          `json:"geometry"`
	Flux      *fluxmap.Grid            `json:"flux2D"`
	Reference *fluxmap.Grid            `json:"flux2D_ref"`
	Fields    map[string]*fluxmap.Grid `json:"fields,omitempty"`
	Meta      map[string]string        `json:"meta,omitempty"`

	// XSelect and YSelect choose the masked rectangle, in percent of the
	// first and second flux axis.
	XSelect Selection `json:"x_select"`
	YSelect Selection `json:"y_select"`

	params ingestParams
}

// Missing lists the geometry fields the record does not carry.
func (r *Record) Missing() []string { return r.Geometry.Missing() }

// Complete returns a copy of r whose unset geometry fields are taken from
// fill. A fill that would change an already-set bin size fails with
// INVALID_INPUT; the flux map was binned at that size, so use
// [Ingestor.Rebin] instead.
func (r *Record) Complete(fill geometry.Record) (*Record, error) {
	cur, curSet := r.Geometry.BinUm.Get()
	want, wantSet := fill.BinUm.Get()
	if curSet && wantSet && cur != want {
		return nil, perr.New(perr.ErrCodeInvalidInput,
			"%s: bin size is %g um; cannot change it to %g um without rebinning", r.Path, cur, want)
	}
	out := r.clone()
	out.Geometry = r.Geometry.Fill(fill)
	return out, nil
}

// WithSelection returns a copy of r with new mask selections.
func (r *Record) WithSelection(x, y Selection) (*Record, error) {
	for _, s := range []Selection{x, y} {
		if !s.Valid() {
			return nil, perr.New(perr.ErrCodeInvalidInput, "mask selection %s out of range 0..100", s)
		}
	}
	out := r.clone()
	out.XSelect, out.YSelect = x, y
	return out, nil
}

// Mask returns ones shaped like the flux map with the selected rectangle
// zeroed.
func (r *Record) Mask() *fluxmap.Grid {
	return fluxmap.Mask(r.Flux.Rows, r.Flux.Cols, orFull(r.XSelect), orFull(r.YSelect))
}

// Validate checks the record before it is serialized: every set geometry
// value is positive and finite, the flux, reference and auxiliary maps
// share one shape, and the mask selections are in range.
func (r *Record) Validate() error {
	if err := r.Geometry.Validate(); err != nil {
		return perr.Wrap(perr.ErrCodeInvalidInput, err, "%s", r.Path)
	}
	if r.Flux == nil || r.Reference == nil {
		return perr.New(perr.ErrCodeInvalidInput, "%s: flux map missing", r.Path)
	}
	if !r.Flux.SameShape(r.Reference) {
		return perr.New(perr.ErrCodeInvalidInput, "%s: flux %v and reference %v differ in shape",
			r.Path, r.Flux, r.Reference)
	}
	for name, g := range r.Fields {
		if !r.Flux.SameShape(g) {
			return perr.New(perr.ErrCodeInvalidInput, "%s: field %s %v differs from flux %v",
				r.Path, name, g, r.Flux)
		}
	}
	for _, s := range []Selection{orFull(r.XSelect), orFull(r.YSelect)} {
		if !s.Valid() {
			return perr.New(perr.ErrCodeInvalidInput, "%s: mask selection %s out of range", r.Path, s)
		}
	}
	return nil
}

// Document converts r to its PRR form.
func (r *Record) Document() *prio.Document {
	return &prio.Document{
		ID:        r.ID,
		Geometry:  r.Geometry,
		Flux:      r.Flux,
		Reference: r.Reference,
		XMask:     orFull(r.XSelect),
		YMask:     orFull(r.YSelect),
	}
}

// Snapshot converts r to its snapshot form.
func (r *Record) Snapshot() *prio.Snapshot {
	return &prio.Snapshot{
		ID:        r.ID,
		Path:      r.Path,
		Format:    string(r.Format),
		Geometry:  r.Geometry,
		Flux:      r.Flux,
		Reference: r.Reference,
		Fields:    r.Fields,
		Meta:      r.Meta,
		XMask:     orFull(r.XSelect),
		YMask:     orFull(r.YSelect),
	}
}

// FromSnapshot rebuilds a record from a snapshot.
func FromSnapshot(s *prio.Snapshot) (*Record, error) {
	f, err := source.ParseFormat(s.Format)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		ID:        s.ID,
		Path:      s.Path,
		Format:    f,
		Geometry:  s.Geometry,
		Flux:      s.Flux,
		Reference: s.Reference,
		Fields:    s.Fields,
		Meta:      s.Meta,
		XSelect:   s.XMask,
		YSelect:   s.YMask,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return rec, rec.Validate()
}

// clone copies the record. Grids are shared; they are never mutated after
// ingestion.
func (r *Record) clone() *Record {
	out := *r
	out.Fields = maps.Clone(r.Fields)
	out.Meta = maps.Clone(r.Meta)
	return &out
}

func orFull(s Selection) Selection {
	if s.IsZero() {
		return fluxmap.FullSelection
	}
	return s
}
