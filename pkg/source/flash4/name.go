package flash4

import (
	"regexp"
	"strconv"
	"strings"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

var namePattern = regexp.MustCompile(`^(\w*?)ProtonDetectorFile([0-9]+)_(\S*?)(\.gz)?$`)

// Name is the information embedded in a detector file name.
type Name struct {
	Base       string // simulation basename, e.g. "lasslab_"
	Detector   int    // detector and beam index
	Time       string // simulation time as written, e.g. "2.201E-09"
	Compressed bool   // ".gz" suffix present
}

// ParseName splits a detector file base name. Names that do not match
// <base>ProtonDetectorFile<NN>_<time>[.gz] fail with FORMAT_MISMATCH, as
// do .npz caches of them.
func ParseName(filename string) (Name, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".npz") {
		return Name{}, perr.New(perr.ErrCodeFormatMismatch,
			"%s: numpy .npz caches are not read; pass the detector text file", filename)
	}
	m := namePattern.FindStringSubmatch(filename)
	if m == nil {
		return Name{}, perr.New(perr.ErrCodeFormatMismatch,
			"%s does not match <base>ProtonDetectorFile<NN>_<time>[.gz]", filename)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Name{}, perr.Wrap(perr.ErrCodeFormatMismatch, err, "%s: detector number", filename)
	}
	return Name{Base: m[1], Detector: n, Time: m[3], Compressed: m[4] != ""}, nil
}
