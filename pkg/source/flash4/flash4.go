// Package flash4 reads proton radiography output from the FLASH4
// simulation code.
//
// A run writes one detector file per detector,
//
//	<base>ProtonDetectorFile<NN>_<time>[.gz]
//
// holding one proton per line with fractional detector coordinates in the
// first two columns, plus three sibling text files sharing <base>:
//
//	<base>ProtonImagingDetectors.txt   detector distance and side length
//	<base>ProtonBeamsPrint.txt         beam energy, target distance, aperture, proton count
//	<base>ProtonImagingMainPrint.txt   run parameters (optional)
//
// Detector and beam NN are the same index. The reference flux is the
// undeflected cone of the beam at the detector plane in the small-angle
// approximation. A cone with no positive radius at the detector is
// GEOMETRY_DEGENERATE.
//
// Only the text detector files are read. Numpy .npz caches written next
// to them are rejected; repeated loads go through the table cache instead.
package flash4

import (
	"context"
	"math"
	"path/filepath"
	"strconv"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/source"
)

// Reader implements source.Reader for FLASH4 detector files.
type Reader struct{}

// New returns a FLASH4 reader.
func New() *Reader { return &Reader{} }

// Format returns source.Flash4.
func (*Reader) Format() source.Format { return source.Flash4 }

// Supports reports whether filename follows the detector file pattern.
func (*Reader) Supports(filename string) bool {
	_, err := ParseName(filename)
	return err == nil
}

// Rebinnable is true: the proton list can be histogrammed again.
func (*Reader) Rebinnable() bool { return true }

// Parse reads the detector file and its sibling metadata and histograms
// the protons over the full detector at the requested bin size.
func (r *Reader) Parse(ctx context.Context, path string, opts source.Options) (*source.Fragment, error) {
	binCM, err := opts.BinCM(source.Flash4)
	if err != nil {
		return nil, err
	}
	name, err := ParseName(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	logger := opts.Log()

	logger.Debug("reading beam/detector metadata", "base", name.Base, "detector", name.Detector)
	det, err := ReadDetector(dir, name.Base, name.Detector)
	if err != nil {
		return nil, err
	}
	beam, err := ReadBeam(dir, name.Base, name.Detector)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coords, err := loadTable(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	points := make([]fluxmap.Point, len(coords))
	for i, c := range coords {
		points[i] = fluxmap.Point{
			X: (c[0] - 0.5) * det.WidthCM,
			Y: (c[1] - 0.5) * det.WidthCM,
		}
	}
	h, err := fluxmap.Bin(points, det.WidthCM, binCM)
	if err != nil {
		return nil, err
	}

	protrad := det.DistanceCM * math.Tan(beam.ApertureDeg/2*math.Pi/180)
	if !(protrad > 0) || math.IsInf(protrad, 0) {
		return nil, perr.New(perr.ErrCodeGeometryDegenerate,
			"%s: undeflected beam radius %g cm from distance %g cm and aperture %g deg", path, protrad, det.DistanceCM, beam.ApertureDeg)
	}
	perBin := beam.Protons / (math.Pi * protrad * protrad) * binCM * binCM
	if !(perBin > 0) || math.IsInf(perBin, 0) {
		return nil, perr.New(perr.ErrCodeGeometryDegenerate,
			"%s: reference flux %g per bin from %g protons over radius %g cm", path, perBin, beam.Protons, protrad)
	}
	ref := fluxmap.Disk(h.XEdges, h.YEdges, protrad, perBin)

	meta := map[string]string{
		"basename":   name.Base,
		"detector":   strconv.Itoa(name.Detector),
		"time":       name.Time,
		"width_cm":   ftoa(det.WidthCM),
		"aperture":   ftoa(beam.ApertureDeg),
		"protons":    ftoa(beam.Protons),
		"protrad_cm": ftoa(protrad),
	}
	if mainKV, err := ReadMain(dir, name.Base); err != nil {
		logger.Debug("no main print file", "base", name.Base, "err", err)
	} else {
		for k, v := range mainKV {
			meta["main."+k] = v
		}
	}

	return &source.Fragment{
		Geometry: geometry.Record{
			S2RCm: geometry.Some(beam.TargetCM),
			S2DCm: geometry.Some(det.DistanceCM),
			EpMeV: geometry.Some(beam.EnergyMeV),
			BinUm: geometry.Some(opts.BinUm),
		},
		Flux:      h.Flux,
		Reference: ref,
		Meta:      meta,
	}, nil
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

var _ source.Reader = (*Reader)(nil)
