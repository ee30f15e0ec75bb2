package io

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
)

// PRRVersionLine is the first line of every PRR file.
const PRRVersionLine = "# PRadReader (PRR) Generated Input File v1.01a"

// dateLayout matches the "date time" form of the original tool.
const dateLayout = "2006-01-02 15:04:05.000000"

// Document is the content of a PRR file.
type Document struct {
	ID        string
	Generated time.Time
	Geometry  geometry.Record
	Flux      *fluxmap.Grid
	Reference *fluxmap.Grid
	XMask     fluxmap.Selection
	YMask     fluxmap.Selection
}

// WritePRR encodes doc in PRR form. It refuses a document whose flux and
// reference shapes differ. A zero Generated time is replaced by the
// current time, and zero mask selections by [fluxmap.FullSelection].
func WritePRR(w io.Writer, doc *Document) error {
	if doc.Flux == nil || doc.Reference == nil {
		return perr.New(perr.ErrCodeInvalidInput, "prr: flux and reference are required")
	}
	if !doc.Flux.SameShape(doc.Reference) {
		return perr.New(perr.ErrCodeInvalidInput,
			"prr: flux %v and reference %v differ in shape", doc.Flux, doc.Reference)
	}

	generated := doc.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	xm, ym := orFull(doc.XMask), orFull(doc.YMask)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, PRRVersionLine)
	fmt.Fprintf(bw, "# Date generated: %s\n", generated.Format(dateLayout))
	if doc.ID != "" {
		fmt.Fprintf(bw, "# record_id %s\n", doc.ID)
	}
	for _, name := range geometry.Fields {
		s, _ := doc.Geometry.Get(name)
		fmt.Fprintf(bw, "# %s %s\n", name, s)
	}
	fmt.Fprintf(bw, "# flux2D %v\n", doc.Flux)
	fmt.Fprintf(bw, "# flux2D_ref %v\n", doc.Reference)
	fmt.Fprintf(bw, "# x-mask %s\n", xm)
	fmt.Fprintf(bw, "# y-mask %s\n", ym)

	writeRows(bw, doc.Flux)
	writeRows(bw, doc.Reference)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write prr: %w", err)
	}
	return nil
}

// writeRows emits g one row per line with the "%.18e" layout.
func writeRows(bw *bufio.Writer, g *fluxmap.Grid) {
	buf := make([]byte, 0, 32)
	for r := 0; r < g.Rows; r++ {
		for c, v := range g.Row(r) {
			if c > 0 {
				bw.WriteByte(',')
			}
			buf = strconv.AppendFloat(buf[:0], v, 'e', 18, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
}

// ExportPRR writes doc to a PRR file at path, replacing it atomically.
func ExportPRR(doc *Document, path string) error {
	return writeAtomic(path, func(w io.Writer) error { return WritePRR(w, doc) })
}

// writeAtomic writes through a temp file in the target directory and
// renames it over path once fn succeeds.
func writeAtomic(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.FileError(err, dir)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return perr.FileError(err, path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func orFull(s fluxmap.Selection) fluxmap.Selection {
	if s.IsZero() {
		return fluxmap.FullSelection
	}
	return s
}
