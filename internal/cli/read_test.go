package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/pipeline"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.txt")
	if err := os.WriteFile(path, []byte("# detector counts\n1 2 3\n4 5 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCommandJSON(t *testing.T) {
	in := writeImage(t)
	outDir := t.TempDir()
	prr := filepath.Join(outDir, "input.prr")
	snap := filepath.Join(outDir, "image.snap")

	out, err := newTestRoot(t, "read", in, "--no-cache", "--json",
		"-o", prr, "--snapshot", snap,
		"--s2r", "0.3", "--s2d", "30", "--ep", "14.7", "--bin", "25",
		"--y-mask", "0 - 50")
	if err != nil {
		t.Fatalf("read error = %v", err)
	}

	var got readSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if got.Format != "csv" || got.Shape != [2]int{2, 3} || got.FluxSum != 21 {
		t.Errorf("summary = %+v", got)
	}
	if len(got.Missing) != 0 {
		t.Errorf("missing = %v, want none", got.Missing)
	}
	if got.YSelect.End != 50 {
		t.Errorf("y select = %v", got.YSelect)
	}
	if paths := got.Artifacts[pipeline.ArtifactPRR]; len(paths) != 1 || paths[0] != prr {
		t.Errorf("prr artifacts = %v", paths)
	}
	for _, p := range []string{prr, snap} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("output %s not written: %v", p, err)
		}
	}

	data, err := os.ReadFile(prr)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{"# s2r_cm 0.3", "# bin_um 25", "# flux2D (2, 3)", "# y-mask 0 % - 50 %"} {
		if !strings.Contains(string(data), line+"\n") {
			t.Errorf("PRR file missing %q", line)
		}
	}

	t.Run("show prr", func(t *testing.T) {
		out, err := newTestRoot(t, "show", prr, "--no-cache", "--json")
		if err != nil {
			t.Fatalf("show error = %v", err)
		}
		var rec struct {
			Format  string `json:"format"`
			YSelect struct {
				End float64 `json:"end"`
			} `json:"y_select"`
		}
		if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Format != "prr" || rec.YSelect.End != 50 {
			t.Errorf("show prr = %+v", rec)
		}
	})

	t.Run("show snapshot", func(t *testing.T) {
		out, err := newTestRoot(t, "show", snap, "--json")
		if err != nil {
			t.Fatalf("show error = %v", err)
		}
		if !strings.Contains(out.String(), `"flux2D"`) || !strings.Contains(out.String(), `"format": "csv"`) {
			t.Errorf("show snapshot output:\n%s", out.String())
		}
	})
}

func TestReadCommandErrors(t *testing.T) {
	in := writeImage(t)
	tests := []struct {
		name string
		args []string
		code perr.Code
	}{
		{"missing file", []string{"read", filepath.Join(t.TempDir(), "nope.txt"), "--no-cache", "-o", ""}, perr.ErrCodeFileNotFound},
		{"unknown format", []string{"read", in, "--no-cache", "--format", "hdf5", "-o", ""}, perr.ErrCodeUnsupportedFormat},
		{"bad geometry", []string{"read", in, "--no-cache", "--s2d", "0", "-o", ""}, perr.ErrCodeInvalidInput},
		{"missing config", []string{"read", in, "--config", filepath.Join(t.TempDir(), "c.toml")}, perr.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestRoot(t, append(tt.args, "--json")...)
			if !perr.Is(err, tt.code) {
				t.Errorf("read error = %v, want %s", err, tt.code)
			}
		})
	}
}
