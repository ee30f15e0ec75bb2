package radiograph

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	prio "github.com/matzehuels/pradreader/pkg/io"
	"github.com/matzehuels/pradreader/pkg/observability"
	"github.com/matzehuels/pradreader/pkg/source"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mitFile(t *testing.T) string {
	return writeFile(t, "scan.csv", "export\n= 4 x 2\n= 320\n\n\n1,2,3,4\n5,6,7,8\n")
}

// carloFile writes a proton list with a 0.5 cm aperture image and a few
// protons near the center.
func carloFile(t *testing.T) string {
	var b strings.Builder
	b.WriteString("# Tkin: 14.7 MeV\n# rs: 10.0 cm\n# ri: 2.0 cm\n# raperture: 0.1 cm\n")
	b.WriteString("# Columns: id t z x y vx vy vz J B0 B1\n")
	for i := 0; i < 50; i++ {
		x := float64(i%10)*0.05 - 0.25
		y := float64(i/10)*0.05 - 0.1
		fmt.Fprintf(&b, "%d 0 0 %g %g 0 0 0 0 0 0\n", i, x, y)
	}
	return writeFile(t, "blob.out", b.String())
}

func TestIngest(t *testing.T) {
	ing := NewIngestor()
	rec, err := ing.Ingest(context.Background(), mitFile(t), "mit")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if rec.Format != source.MITCSV {
		t.Errorf("Format = %q, want mitcsv", rec.Format)
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", rec.ID, err)
	}
	if !filepath.IsAbs(rec.Path) {
		t.Errorf("Path %q should be absolute", rec.Path)
	}
	if r, c := rec.Flux.Shape(); r != 2 || c != 4 {
		t.Errorf("flux shape = (%d, %d), want (2, 4)", r, c)
	}
	want := []string{geometry.FieldS2R, geometry.FieldS2D, geometry.FieldEp}
	if got := rec.Missing(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Missing() = %v, want %v", got, want)
	}
	if rec.XSelect != fluxmap.FullSelection || rec.YSelect != fluxmap.FullSelection {
		t.Errorf("selections = %v, %v", rec.XSelect, rec.YSelect)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestIngestDetect(t *testing.T) {
	ing := NewIngestor()
	tests := []struct {
		path string
		want source.Format
	}{
		{mitFile(t), source.MITCSV},
		{writeFile(t, "img.txt", "1 2\n3 4\n"), source.CSV},
		{carloFile(t), source.Carlo},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			rec, err := ing.Ingest(context.Background(), tt.path, "")
			if err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
			if rec.Format != tt.want {
				t.Errorf("Format = %q, want %q", rec.Format, tt.want)
			}
		})
	}

	_, err := ing.Ingest(context.Background(), writeFile(t, "photo.jpg", "x"), "")
	if !perr.Is(err, perr.ErrCodeUnsupportedFormat) {
		t.Errorf("Ingest(jpg) error = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestIngestUnknownFormat(t *testing.T) {
	_, err := NewIngestor().Ingest(context.Background(), mitFile(t), "jpeg")
	if !perr.Is(err, perr.ErrCodeUnsupportedFormat) {
		t.Fatalf("Ingest() error = %v, want UNSUPPORTED_FORMAT", err)
	}
	for _, s := range []string{"jpeg", "carlo", "flash4", "mitcsv", "csv", "prr"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("error %q should mention %q", err, s)
		}
	}
}

// geometryReader returns a fixed 2x2 image with the given geometry.
type geometryReader struct{ geo geometry.Record }

func (g geometryReader) Parse(context.Context, string, source.Options) (*source.Fragment, error) {
	return &source.Fragment{Geometry: g.geo, Flux: fluxmap.New(2, 2), Reference: fluxmap.New(2, 2)}, nil
}
func (geometryReader) Supports(string) bool  { return false }
func (geometryReader) Format() source.Format { return source.CSV }
func (geometryReader) Rebinnable() bool      { return false }

func TestIngestRejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		geo  geometry.Record
	}{
		{"negative source distance", geometry.Record{S2RCm: geometry.Some(-1), S2DCm: geometry.Some(20), EpMeV: geometry.Some(14.7), BinUm: geometry.Some(320)}},
		{"negative detector distance", geometry.Record{S2RCm: geometry.Some(1), S2DCm: geometry.Some(-20)}},
		{"infinite energy", geometry.Record{EpMeV: geometry.Some(math.Inf(1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := NewIngestor(WithReader(geometryReader{geo: tt.geo}))
			rec, err := ing.Ingest(context.Background(), "scan.txt", "csv")
			if !perr.Is(err, perr.ErrCodeFormatMismatch) {
				t.Fatalf("Ingest() error = %v, want FORMAT_MISMATCH", err)
			}
			if rec != nil {
				t.Error("no record should be returned")
			}
			if !strings.Contains(err.Error(), "scan.txt") {
				t.Errorf("error %q should name the file", err)
			}
		})
	}

	ok := geometryReader{geo: geometry.Record{S2RCm: geometry.Some(1), BinUm: geometry.Some(320)}}
	if _, err := NewIngestor(WithReader(ok)).Ingest(context.Background(), "scan.txt", "csv"); err != nil {
		t.Errorf("partial valid geometry should ingest: %v", err)
	}
}

func TestIngestNegativePixelSize(t *testing.T) {
	path := writeFile(t, "scan.csv", "export\n= 4 x 2\n= -320\n\n\n1,2,3,4\n5,6,7,8\n")
	if _, err := NewIngestor().Ingest(context.Background(), path, ""); !perr.Is(err, perr.ErrCodeFormatMismatch) {
		t.Errorf("Ingest() error = %v, want FORMAT_MISMATCH", err)
	}
}

func TestIngestPathIntegralsOption(t *testing.T) {
	// The sparse list leaves most bins empty, which path integrals reject.
	_, err := NewIngestor().Ingest(context.Background(), carloFile(t), "carlo", WithPathIntegrals())
	if !perr.Is(err, perr.ErrCodeGeometryDegenerate) {
		t.Errorf("Ingest() error = %v, want GEOMETRY_DEGENERATE", err)
	}
}

func TestComplete(t *testing.T) {
	rec, err := NewIngestor().Ingest(context.Background(), mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}

	fill := geometry.Record{S2RCm: geometry.Some(0.1), S2DCm: geometry.Some(10), EpMeV: geometry.Some(14.7)}
	done, err := rec.Complete(fill)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !done.Geometry.Complete() {
		t.Errorf("Complete() left %v unset", done.Missing())
	}
	if rec.Geometry.S2RCm.IsSet() {
		t.Error("Complete() modified the receiver")
	}

	// The same bin size is accepted; a different one is not.
	fill.BinUm = geometry.Some(320)
	if _, err := rec.Complete(fill); err != nil {
		t.Errorf("Complete(same bin) error = %v", err)
	}
	fill.BinUm = geometry.Some(100)
	if _, err := rec.Complete(fill); !perr.Is(err, perr.ErrCodeInvalidInput) {
		t.Errorf("Complete(new bin) error = %v, want INVALID_INPUT", err)
	}
}

func TestRebin(t *testing.T) {
	ctx := context.Background()
	ing := NewIngestor()

	csv, err := ing.Ingest(ctx, mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ing.Rebin(ctx, csv, 100); !perr.Is(err, perr.ErrCodeUnsupported) {
		t.Errorf("Rebin(mitcsv) error = %v, want UNSUPPORTED", err)
	}

	rec, err := ing.Ingest(ctx, carloFile(t), "carlo", WithBinUm(320))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if n := rec.Flux.Rows; n != 21 {
		t.Fatalf("bins at 320 um = %d, want 21", n)
	}
	rec, _ = rec.WithSelection(Selection{Start: 10, End: 20}, fluxmap.FullSelection)

	fine, err := ing.Rebin(ctx, rec, 160)
	if err != nil {
		t.Fatalf("Rebin() error = %v", err)
	}
	if n := fine.Flux.Rows; n != 43 {
		t.Errorf("bins at 160 um = %d, want 43", n)
	}
	if fine.ID != rec.ID || fine.XSelect != rec.XSelect {
		t.Error("Rebin() should keep the record id and selections")
	}
	if fine.Flux.Sum() != rec.Flux.Sum() {
		t.Errorf("protons kept = %g, want %g", fine.Flux.Sum(), rec.Flux.Sum())
	}
	if rec.Flux.Rows != 21 {
		t.Error("Rebin() modified its input")
	}

	if _, err := ing.Rebin(ctx, rec, 0); !perr.Is(err, perr.ErrCodeInvalidInput) {
		t.Errorf("Rebin(0) error = %v, want INVALID_INPUT", err)
	}
}

func TestWithSelectionAndMask(t *testing.T) {
	rec, err := NewIngestor().Ingest(context.Background(), mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec.WithSelection(Selection{Start: 50, End: 10}, fluxmap.FullSelection); !perr.Is(err, perr.ErrCodeInvalidInput) {
		t.Errorf("WithSelection(reversed) error = %v, want INVALID_INPUT", err)
	}

	sel, err := rec.WithSelection(Selection{Start: 0, End: 50}, Selection{Start: 50, End: 100})
	if err != nil {
		t.Fatal(err)
	}
	m := sel.Mask()
	if !m.SameShape(rec.Flux) {
		t.Fatalf("mask %v, flux %v", m, rec.Flux)
	}
	if m.Sum() != 6 || m.At(0, 3) != 0 || m.At(1, 3) != 1 {
		t.Errorf("mask = %v", m.ToRows())
	}
}

func TestValidate(t *testing.T) {
	rec, err := NewIngestor().Ingest(context.Background(), mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}
	bad := rec.clone()
	bad.Reference = fluxmap.New(1, 1)
	if err := bad.Validate(); !perr.Is(err, perr.ErrCodeInvalidInput) {
		t.Errorf("Validate(shape) error = %v, want INVALID_INPUT", err)
	}
	bad = rec.clone()
	bad.Geometry.S2DCm = geometry.Some(-1)
	if err := bad.Validate(); !perr.Is(err, perr.ErrCodeInvalidInput) {
		t.Errorf("Validate(geometry) error = %v, want INVALID_INPUT", err)
	}
}

func TestPRRReingest(t *testing.T) {
	ctx := context.Background()
	ing := NewIngestor()
	rec, err := ing.Ingest(ctx, mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}
	rec, _ = rec.Complete(geometry.Record{S2RCm: geometry.Some(0.1)})
	rec, _ = rec.WithSelection(Selection{Start: 25, End: 75}, fluxmap.FullSelection)

	path := filepath.Join(t.TempDir(), "input.prr")
	if err := prio.ExportPRR(rec.Document(), path); err != nil {
		t.Fatalf("ExportPRR() error = %v", err)
	}
	back, err := ing.Ingest(ctx, path, "")
	if err != nil {
		t.Fatalf("Ingest(prr) error = %v", err)
	}
	if back.Format != source.PRR || back.ID != rec.ID {
		t.Errorf("format %q id %q, want prr %q", back.Format, back.ID, rec.ID)
	}
	if back.Geometry != rec.Geometry || back.XSelect != rec.XSelect {
		t.Errorf("got %v %v, want %v %v", back.Geometry, back.XSelect, rec.Geometry, rec.XSelect)
	}
	for i, v := range rec.Flux.Data {
		if back.Flux.Data[i] != v {
			t.Fatalf("flux[%d] = %g, want %g", i, back.Flux.Data[i], v)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rec, err := NewIngestor().Ingest(context.Background(), mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "rec.snap")
	if err := prio.SaveSnapshot(rec.Snapshot(), path); err != nil {
		t.Fatal(err)
	}
	snap, err := prio.LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot() error = %v", err)
	}
	if back.ID != rec.ID || back.Format != rec.Format || back.Geometry != rec.Geometry {
		t.Errorf("FromSnapshot() = %+v", back)
	}
}

func TestRecordJSON(t *testing.T) {
	rec, err := NewIngestor().Ingest(context.Background(), mitFile(t), "mitcsv")
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, want := range []string{`"s2r_cm":null`, `"bin_um":320`, `"flux2D":[[5,6,7,8],[1,2,3,4]]`, `"format":"mitcsv"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s should contain %s", data, want)
		}
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	starts []string
	ends   []string
}

func (h *recordingHooks) OnIngestStart(_ context.Context, format, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts = append(h.starts, format)
}

func (h *recordingHooks) OnIngestComplete(_ context.Context, format, _ string, rows, cols int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, fmt.Sprintf("%s %dx%d %v", format, rows, cols, err != nil))
}

func TestIngestHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	t.Cleanup(observability.Reset)

	ing := NewIngestor()
	if _, err := ing.Ingest(context.Background(), mitFile(t), "mitcsv"); err != nil {
		t.Fatal(err)
	}
	_, _ = ing.Ingest(context.Background(), writeFile(t, "bad.csv", "x\n"), "mitcsv")

	want := []string{"mitcsv 2x4 false", "mitcsv 0x0 true"}
	if strings.Join(h.ends, "|") != strings.Join(want, "|") {
		t.Errorf("completions = %v, want %v", h.ends, want)
	}
	if len(h.starts) != 2 {
		t.Errorf("starts = %v", h.starts)
	}
}
