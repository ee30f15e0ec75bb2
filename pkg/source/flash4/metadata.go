package flash4

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	perr "github.com/matzehuels/pradreader/pkg/errors"
)

// Sibling file suffixes.
const (
	DetectorsFile = "ProtonImagingDetectors.txt"
	BeamsFile     = "ProtonBeamsPrint.txt"
	MainFile      = "ProtonImagingMainPrint.txt"
)

// Keys read from the detector and beam sections.
const (
	keyDetDistance = "Detector distance from beam capsule center"
	keyDetWidth    = "Detector square side length (cm)"
	keyEnergy      = "Proton energy (in MeV)"
	keyTarget      = "Distance capsule center --> target center"
	keyAperture    = "Beam aperture angle (rad)"
	keyProtons     = "Number of protons in beam"
)

var (
	keyValuePattern = regexp.MustCompile(`(?m)^\s*(.*?)\s*=\s*(.*?)\s*$`)
	detectorHeader  = regexp.MustCompile(`PROTON DETECTOR NR\s+(\d+)`)
	beamHeader      = regexp.MustCompile(`PROTON BEAM NR\s+(\d+)`)
)

// Detector holds the values used from one detector section.
type Detector struct {
	DistanceCM float64 // capsule center to detector
	WidthCM    float64 // side of the square detector
	Values     map[string]string
}

// Beam holds the values used from one beam section.
type Beam struct {
	EnergyMeV   float64
	TargetCM    float64 // capsule center to target center
	ApertureDeg float64 // full cone angle, rounded to 11 decimals
	Protons     float64
	Values      map[string]string
}

// ReadDetector parses section n of <dir>/<base>ProtonImagingDetectors.txt.
func ReadDetector(dir, base string, n int) (*Detector, error) {
	path := filepath.Join(dir, base+DetectorsFile)
	kv, err := readSection(path, detectorHeader, n)
	if err != nil {
		return nil, err
	}
	d := &Detector{Values: kv}
	if d.DistanceCM, err = number(path, kv, keyDetDistance); err != nil {
		return nil, err
	}
	if d.WidthCM, err = number(path, kv, keyDetWidth); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadBeam parses section n of <dir>/<base>ProtonBeamsPrint.txt.
func ReadBeam(dir, base string, n int) (*Beam, error) {
	path := filepath.Join(dir, base+BeamsFile)
	kv, err := readSection(path, beamHeader, n)
	if err != nil {
		return nil, err
	}
	b := &Beam{Values: kv}
	if b.EnergyMeV, err = number(path, kv, keyEnergy); err != nil {
		return nil, err
	}
	if b.TargetCM, err = number(path, kv, keyTarget); err != nil {
		return nil, err
	}
	rad, err := number(path, kv, keyAperture)
	if err != nil {
		return nil, err
	}
	b.ApertureDeg = math.Round(rad*180/math.Pi*1e11) / 1e11
	if b.Protons, err = number(path, kv, keyProtons); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadMain parses <dir>/<base>ProtonImagingMainPrint.txt into key/value pairs.
func ReadMain(dir, base string) (map[string]string, error) {
	path := filepath.Join(dir, base+MainFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.FileError(err, path)
	}
	return keyValues(string(data)), nil
}

// readSection returns the key/value pairs of the section headed by
// header with index n. Missing files and sections are MISSING_METADATA.
func readSection(path string, header *regexp.Regexp, n int) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrap(perr.ErrCodeMissingMetadata, err, "%s: sibling metadata file not readable", path)
	}
	text := string(data)

	idx := header.FindAllStringSubmatchIndex(text, -1)
	for i, m := range idx {
		num, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || num != n {
			continue
		}
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		return keyValues(text[m[1]:end]), nil
	}
	return nil, perr.New(perr.ErrCodeMissingMetadata, "%s: section %d not found", path, n)
}

func keyValues(text string) map[string]string {
	out := map[string]string{}
	for _, m := range keyValuePattern.FindAllStringSubmatch(text, -1) {
		out[m[1]] = m[2]
	}
	return out
}

func number(path string, kv map[string]string, key string) (float64, error) {
	s, ok := kv[key]
	if !ok {
		return 0, perr.New(perr.ErrCodeMissingMetadata, "%s: key %q not found", path, key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, perr.New(perr.ErrCodeFormatMismatch, "%s: key %q: %q is not a number", path, key, s)
	}
	return v, nil
}
