// Package pipeline runs the staged radiograph ingestion used by the CLI.
//
// # Stages
//
//  1. Ingest: parse the input file into a canonical record
//  2. Complete: fill unset geometry from configured values, then from a
//     [Prompter] if one is set
//  3. Validate: check geometry values and array shapes
//  4. Mask: apply the x/y percentage selections
//  5. Export: write the PRR intermediate file
//  6. Snapshot: write the quick-reload snapshot
//  7. Plot: write flux, reference and contrast PNGs
//
// Export, snapshot and plot run only when their output path is set. Every
// stage returns a new record; nothing is modified in place.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, logger)
//	defer runner.Close()
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Path:   "blob.out",
//	    Format: "carlo",
//	    Output: "input.prr",
//	})
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	perr "github.com/matzehuels/pradreader/pkg/errors"
	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/radiograph"
	"github.com/matzehuels/pradreader/pkg/source"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config files
// =============================================================================

const (
	// DefaultBinUm is the histogram bin size for list-based formats.
	DefaultBinUm = source.DefaultBinUm

	// DefaultOutput is the PRR file name the CLI writes when none is given.
	DefaultOutput = "input.prr"

	// DefaultPlotDir is the plot directory the CLI uses with --plot.
	DefaultPlotDir = "plots"
)

// Artifact kinds, also used as observability export kinds.
const (
	ArtifactPRR      = "prr"
	ArtifactSnapshot = "snapshot"
	ArtifactPlot     = "plot"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
type Options struct {
	// Ingest options
	Path          string  `json:"path" validate:"required"`
	Format        string  `json:"format,omitempty"`
	BinUm         float64 `json:"bin_um,omitempty" validate:"gte=0,finite"`
	Delimiter     string  `json:"delimiter,omitempty"`
	LegacyBinning bool    `json:"legacy_binning,omitempty"`
	PathIntegrals bool    `json:"path_integrals,omitempty"`

	// Completion options. Zero selections keep the record's own.
	Geometry geometry.Record   `json:"geometry"`
	XSelect  fluxmap.Selection `json:"x_select"`
	YSelect  fluxmap.Selection `json:"y_select"`

	// Output options; empty disables the stage
	Output   string `json:"output,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
	PlotDir  string `json:"plot_dir,omitempty"`

	// Runtime options (not serialized)
	Prompter Prompter    `json:"-" validate:"-"`
	Logger   *log.Logger `json:"-" validate:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Prompter asks the user for values the input file did not carry.
type Prompter interface {
	// Geometry returns values for the named unset fields. Fields left unset
	// in the result stay unset.
	Geometry(ctx context.Context, missing []string) (geometry.Record, error)

	// Selection confirms or edits the mask selections.
	Selection(ctx context.Context, x, y fluxmap.Selection) (fluxmap.Selection, fluxmap.Selection, error)
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Record is the completed, validated record.
	Record *radiograph.Record

	// Mask is the selection mask, shaped like the flux map.
	Mask *fluxmap.Grid

	// Artifacts maps artifact kind to the written paths.
	Artifacts map[string][]string

	// Stats contains timing information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Rows       int
	Cols       int
	IngestTime time.Duration
	ExportTime time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.BinUm == 0 {
		o.BinUm = DefaultBinUm
	}
	if o.Format != "" {
		if _, err := source.ParseFormat(o.Format); err != nil {
			return err
		}
	}
	if err := geometry.Validator().Struct(o); err != nil {
		return invalidOptions(err)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// IngestOptions translates o into radiograph ingest options.
func (o *Options) IngestOptions() []radiograph.IngestOption {
	opts := []radiograph.IngestOption{
		radiograph.WithBinUm(o.BinUm),
		radiograph.WithDelimiter(o.Delimiter),
	}
	if o.LegacyBinning {
		opts = append(opts, radiograph.WithLegacyBinning())
	}
	if o.PathIntegrals {
		opts = append(opts, radiograph.WithPathIntegrals())
	}
	return opts
}

func invalidOptions(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return perr.Wrap(perr.ErrCodeInvalidInput, err, "invalid option %s (%s)", fe.Namespace(), fe.Tag())
	}
	return perr.Wrap(perr.ErrCodeInvalidInput, err, "invalid options")
}
