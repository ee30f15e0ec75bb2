package source

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

// maxLineBytes bounds a single text line. Particle tables from simulation
// codes can have very wide rows.
const maxLineBytes = 4 << 20

// Open opens path for reading, transparently decompressing it when the
// name ends in ".gz". Open failures are reported with FILE_NOT_FOUND or
// INVALID_INPUT.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.FileError(err, path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: not a gzip stream", path)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return zerr
}

// NewScanner returns a line scanner sized for wide numeric tables.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return sc
}

// ParseFloats parses every cell as a float64. The error names the first
// offending cell.
func ParseFloats(cells []string) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Mismatch builds a FORMAT_MISMATCH error pointing at a line of path.
func Mismatch(path string, line int, format string, args ...any) error {
	return perr.New(perr.ErrCodeFormatMismatch, "%s:%d: "+format, append([]any{path, line}, args...)...)
}
