package delimited

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/source"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		delim   string
		content string
	}{
		{"whitespace", "", "# image\n1 2\t3\n\n4  5 6\n"},
		{"comma", ",", "1,2,3\n4,5,6,\n"},
		{"semicolon", ";", "# c\n1; 2; 3\n4; 5; 6\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, "img.txt", tt.content)
			frag, err := New().Parse(context.Background(), path, source.Options{Delimiter: tt.delim})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if r, c := frag.Flux.Shape(); r != 2 || c != 3 {
				t.Fatalf("shape = (%d, %d), want (2, 3)", r, c)
			}
			// Stored order is kept.
			if frag.Flux.At(0, 0) != 1 || frag.Flux.At(1, 2) != 6 {
				t.Errorf("flux = %v", frag.Flux.ToRows())
			}
			if frag.Reference.At(1, 1) != 3.5 {
				t.Errorf("reference = %g, want 3.5", frag.Reference.At(1, 1))
			}
			if missing := frag.Geometry.Missing(); len(missing) != 4 {
				t.Errorf("geometry should be unset, missing = %v", missing)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"ragged", "1 2 3\n4 5\n"},
		{"non-numeric", "1 2\n3 four\n"},
		{"empty", "# nothing\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Parse(context.Background(), write(t, "bad.txt", tt.content), source.Options{})
			if !perr.Is(err, perr.ErrCodeFormatMismatch) {
				t.Errorf("Parse() error = %v, want FORMAT_MISMATCH", err)
			}
		})
	}
}

func TestSupports(t *testing.T) {
	r := New()
	for name, want := range map[string]bool{
		"a.txt":    true,
		"a.DAT":    true,
		"a.tsv.gz": true,
		"a.csv":    false,
		"a.out":    false,
	} {
		if got := r.Supports(name); got != want {
			t.Errorf("Supports(%q) = %v, want %v", name, got, want)
		}
	}
}
