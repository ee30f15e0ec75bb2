package io

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matzehuels/pradreader/pkg/buildinfo"
	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
)

// SnapshotVersion is bumped whenever the Snapshot layout changes.
// Snapshots of another version are rejected.
const SnapshotVersion = 1

// Snapshot is a full record as stored by [SaveSnapshot].
type Snapshot struct {
	Version int
	Build   buildinfo.Info
	Created time.Time

	ID        string
	Path      string
	Format    string
	Geometry  geometry.Record
	Flux      *fluxmap.Grid
	Reference *fluxmap.Grid
	Fields    map[string]*fluxmap.Grid
	Meta      map[string]string
	XMask     fluxmap.Selection
	YMask     fluxmap.Selection
}

// WriteSnapshot gob-encodes s, stamping the current version, build and
// creation time.
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	out := *s
	out.Version = SnapshotVersion
	out.Build = buildinfo.Current()
	if out.Created.IsZero() {
		out.Created = time.Now()
	}
	for name, g := range out.Fields {
		if g == nil {
			return perr.New(perr.ErrCodeInvalidInput, "snapshot: field %q is nil", name)
		}
	}
	if err := gob.NewEncoder(w).Encode(&out); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot. name is used in error messages only.
func ReadSnapshot(r io.Reader, name string) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: not a snapshot", name)
	}
	if s.Version != SnapshotVersion {
		return nil, perr.New(perr.ErrCodeFormatMismatch,
			"%s: snapshot version %d, this build reads version %d", name, s.Version, SnapshotVersion)
	}
	return &s, nil
}

// SaveSnapshot writes s to path atomically.
func SaveSnapshot(s *Snapshot, path string) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteSnapshot(w, s) })
}

// LoadSnapshot reads the snapshot at path.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.FileError(err, path)
	}
	defer f.Close()
	return ReadSnapshot(f, path)
}
