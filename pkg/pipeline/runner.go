package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pradreader/pkg/cache"
	perr "github.com/matzehuels/pradreader/pkg/errors"
	prio "github.com/matzehuels/pradreader/pkg/io"
	"github.com/matzehuels/pradreader/pkg/observability"
	"github.com/matzehuels/pradreader/pkg/plot"
	"github.com/matzehuels/pradreader/pkg/radiograph"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the ingestor, cache and logger; it
// doesn't store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache    cache.Cache
	Ingestor *radiograph.Ingestor
	Logger   *log.Logger
}

// NewRunner creates a runner whose ingestor stores parsed tables in c.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Ingestor: radiograph.NewIngestor(radiograph.WithCache(c), radiograph.WithLogger(logger)),
		Logger:   logger,
	}
}

// Execute runs every stage in order.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{Artifacts: make(map[string][]string)}

	// Stage 1: Ingest
	start := time.Now()
	rec, err := r.Ingest(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.IngestTime = time.Since(start)
	result.Stats.Rows, result.Stats.Cols = rec.Flux.Shape()
	r.Logger.Info("ingested radiograph",
		"format", rec.Format,
		"shape", rec.Flux.String(),
		"duration", result.Stats.IngestTime)

	// Stage 2: Complete
	if rec, err = r.Complete(ctx, rec, opts); err != nil {
		return nil, err
	}

	// Stage 3: Validate
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if missing := rec.Missing(); len(missing) > 0 {
		r.Logger.Warn("geometry incomplete; unset values are written as None", "missing", missing)
	}

	// Stage 4: Mask
	if rec, err = r.Select(ctx, rec, opts); err != nil {
		return nil, err
	}
	result.Record = rec
	result.Mask = rec.Mask()

	// Stages 5-7: Export, Snapshot, Plot
	start = time.Now()
	if err := r.Export(ctx, rec, opts, result.Artifacts); err != nil {
		return nil, err
	}
	result.Stats.ExportTime = time.Since(start)
	return result, nil
}

// Ingest reads opts.Path through the runner's ingestor.
func (r *Runner) Ingest(ctx context.Context, opts Options) (*radiograph.Record, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return r.Ingestor.Ingest(ctx, opts.Path, opts.Format, opts.IngestOptions()...)
}

// Complete fills unset geometry from opts.Geometry, then asks the
// prompter for whatever is still missing.
func (r *Runner) Complete(ctx context.Context, rec *radiograph.Record, opts Options) (*radiograph.Record, error) {
	rec, err := rec.Complete(opts.Geometry)
	if err != nil {
		return nil, err
	}
	missing := rec.Missing()
	if len(missing) == 0 || opts.Prompter == nil {
		return rec, nil
	}
	answers, err := opts.Prompter.Geometry(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("prompt geometry: %w", err)
	}
	return rec.Complete(answers)
}

// Select applies the mask selections, letting the prompter adjust them.
// An unset selection in opts keeps the record's own, which is the full
// axis unless the record was read from a PRR file.
func (r *Runner) Select(ctx context.Context, rec *radiograph.Record, opts Options) (*radiograph.Record, error) {
	x, y := opts.XSelect, opts.YSelect
	if x.IsZero() {
		x = rec.XSelect
	}
	if y.IsZero() {
		y = rec.YSelect
	}
	if opts.Prompter != nil {
		var err error
		if x, y, err = opts.Prompter.Selection(ctx, x, y); err != nil {
			return nil, fmt.Errorf("prompt selection: %w", err)
		}
	}
	return rec.WithSelection(x, y)
}

// Export writes each artifact whose output path is set in opts, recording
// the written paths in artifacts.
func (r *Runner) Export(ctx context.Context, rec *radiograph.Record, opts Options, artifacts map[string][]string) error {
	if opts.Output != "" {
		err := r.export(ctx, ArtifactPRR, opts.Output, func() ([]string, error) {
			return []string{opts.Output}, prio.ExportPRR(rec.Document(), opts.Output)
		}, artifacts)
		if err != nil {
			return err
		}
	}
	if opts.Snapshot != "" {
		err := r.export(ctx, ArtifactSnapshot, opts.Snapshot, func() ([]string, error) {
			return []string{opts.Snapshot}, prio.SaveSnapshot(rec.Snapshot(), opts.Snapshot)
		}, artifacts)
		if err != nil {
			return err
		}
	}
	if opts.PlotDir != "" {
		err := r.export(ctx, ArtifactPlot, opts.PlotDir, func() ([]string, error) {
			return plot.WriteAll(opts.PlotDir, rec.Flux, rec.Reference)
		}, artifacts)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) export(ctx context.Context, kind, path string, fn func() ([]string, error), artifacts map[string][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, kind, path)
	start := time.Now()
	paths, err := fn()
	hooks.OnExportComplete(ctx, kind, path, time.Since(start), err)
	if err != nil {
		var pe *perr.Error
		if errors.As(err, &pe) {
			return err
		}
		return perr.Wrap(perr.ErrCodeInvalidInput, err, "write %s %s", kind, path)
	}
	artifacts[kind] = paths
	r.Logger.Info("wrote "+kind, "path", path, "duration", time.Since(start))
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
