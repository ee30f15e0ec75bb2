package mitcsv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/source"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validCSV = `MIT CR-39 scan export,,,
Image dimensions = 3 x 2,,,
Pixel size (um) = 10.5,,,
Scan date,2017-08-01,,
Units,counts,,
1,2,3,
4,5,9,
`

func TestParse(t *testing.T) {
	path := write(t, validCSV)
	frag, err := New().Parse(context.Background(), path, source.Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if r, c := frag.Flux.Shape(); r != 2 || c != 3 {
		t.Fatalf("shape = (%d, %d), want (2, 3)", r, c)
	}
	// The file's first data row is the top of the image.
	if got := frag.Flux.Row(1); got[0] != 1 || got[2] != 3 {
		t.Errorf("top row = %v, want [1 2 3]", got)
	}
	if got := frag.Flux.Row(0); got[2] != 9 {
		t.Errorf("bottom row = %v, want [4 5 9]", got)
	}

	if !frag.Reference.SameShape(frag.Flux) {
		t.Fatalf("reference shape %v != flux %v", frag.Reference, frag.Flux)
	}
	for _, v := range frag.Reference.Data {
		if v != 4 {
			t.Fatalf("reference = %g, want mean 4", v)
		}
	}

	if v, _ := frag.Geometry.BinUm.Get(); v != 10.5 {
		t.Errorf("bin_um = %v, want 10.5", frag.Geometry.BinUm)
	}
	if frag.Geometry.S2RCm.IsSet() || frag.Geometry.EpMeV.IsSet() {
		t.Error("distances and energy should be unset")
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mention string
	}{
		{
			name:    "dimension line",
			content: strings.Replace(validCSV, "= 3 x 2", "three by two", 1),
			mention: "dimension line",
		},
		{
			name:    "pixel line",
			content: strings.Replace(validCSV, "= 10.5", "= ten", 1),
			mention: "pixel line",
		},
		{
			name:    "too few rows",
			content: strings.Replace(validCSV, "= 3 x 2", "= 3 x 3", 1),
			mention: "found 2 rows",
		},
		{
			name:    "too few columns",
			content: strings.Replace(validCSV, "= 3 x 2", "= 4 x 2", 1),
			mention: "declares 4 columns",
		},
		{
			name:    "non-numeric cell",
			content: strings.Replace(validCSV, "4,5,9", "4,x,9", 1),
			mention: "scan.csv:7",
		},
		{
			name:    "short header",
			content: "a\n= 1 x 1\n",
			mention: "header ends",
		},
		{
			name:    "overflowing dimension",
			content: strings.Replace(validCSV, "= 3 x 2", "= 2 x 99999999999999999999", 1),
			mention: "out of range",
		},
		{
			name:    "huge dimension",
			content: strings.Replace(validCSV, "= 3 x 2", "= 100000 x 100000", 1),
			mention: "exceeds",
		},
		{
			name:    "zero dimension",
			content: strings.Replace(validCSV, "= 3 x 2", "= 0 x 2", 1),
			mention: "empty image",
		},
		{
			name:    "negative pixel",
			content: strings.Replace(validCSV, "= 10.5", "= -10.5", 1),
			mention: "pixel line",
		},
		{
			name:    "zero pixel",
			content: strings.Replace(validCSV, "= 10.5", "= 0", 1),
			mention: "positive",
		},
		{
			name:    "overflowing pixel",
			content: strings.Replace(validCSV, "= 10.5", "= 1e999", 1),
			mention: "positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Parse(context.Background(), write(t, tt.content), source.Options{})
			if !perr.Is(err, perr.ErrCodeFormatMismatch) {
				t.Fatalf("Parse() error = %v, want FORMAT_MISMATCH", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q should mention %q", err, tt.mention)
			}
		})
	}
}

func TestReadHugeDimensionsWithoutAllocating(t *testing.T) {
	in := "title\nsize = 2 x 99999999999999999999\npixel = 10.0\nx\ny\n1,2\n"
	_, grid, err := Read(context.Background(), "p.csv", strings.NewReader(in))
	if !perr.Is(err, perr.ErrCodeFormatMismatch) {
		t.Fatalf("Read() error = %v, want FORMAT_MISMATCH", err)
	}
	if grid != nil {
		t.Error("no grid should be returned")
	}
	if !strings.Contains(err.Error(), "p.csv:2") {
		t.Errorf("error %q should name line 2", err)
	}
}

func TestParseRoundTripShape(t *testing.T) {
	// R x C image of known dimensions.
	var b strings.Builder
	b.WriteString("x\n= 4 x 5\n= 2.0\n\n\n")
	for r := 0; r < 5; r++ {
		b.WriteString("1,1,1,1\n")
	}
	frag, err := New().Parse(context.Background(), write(t, b.String()), source.Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r, c := frag.Flux.Shape(); r != 5 || c != 4 {
		t.Errorf("shape = (%d, %d), want (5, 4)", r, c)
	}
	if frag.Reference.Mean() != frag.Flux.Mean() {
		t.Errorf("reference mean %g != flux mean %g", frag.Reference.Mean(), frag.Flux.Mean())
	}
}

func TestReaderMetadata(t *testing.T) {
	r := New()
	if r.Rebinnable() {
		t.Error("pre-binned images cannot be rebinned")
	}
	if !r.Supports("SCAN.CSV") || r.Supports("scan.txt") {
		t.Error("Supports() should match .csv files")
	}
}
