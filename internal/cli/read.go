package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pradreader/pkg/fluxmap"
	"github.com/matzehuels/pradreader/pkg/geometry"
	"github.com/matzehuels/pradreader/pkg/pipeline"
	"github.com/matzehuels/pradreader/pkg/radiograph"
)

// readFlags holds the flags of the read command.
type readFlags struct {
	format        string
	binUm         float64
	delimiter     string
	legacyBinning bool
	pathIntegrals bool

	s2r, s2d, ep, bin float64
	xMask, yMask      string

	output   string
	snapshot string
	plotDir  string

	prompt     bool
	accessible bool
	json       bool
}

// readCommand creates the read command: ingest one file and write the
// intermediate outputs.
func (c *CLI) readCommand() *cobra.Command {
	var flags readFlags

	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Read a radiograph and write a PRR file",
		Long: `Read a radiograph from any supported format, fill in missing geometry,
and write the PRR intermediate file.

The format is detected from the file name unless --format is given. Geometry
the file does not carry is taken from flags, then from the config file, then
asked for interactively with --prompt.`,
		Example: `  # Bin a simulation proton list at 320 um
  pradreader read blob.out --bin-um 320

  # Read a detector scan and supply the missing geometry
  pradreader read scan.csv --s2r 0.3 --s2d 30 --ep 14.7

  # Restrict the mask and write plots
  pradreader read blob.out --x-mask "10 - 90" --plot`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInputFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			opts, err := buildReadOptions(cmd.Flags(), &flags, cfg, args[0])
			if err != nil {
				return err
			}
			if flags.prompt {
				opts.Prompter = newPrompter(flags.accessible)
			}
			opts.Logger = c.Logger
			return c.runRead(cmd, cfg, opts, flags.json)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.format, "format", "f", "", "input format (default: detect from file name)")
	f.Float64Var(&flags.binUm, "bin-um", pipeline.DefaultBinUm, "histogram bin size in um for proton lists")
	f.StringVar(&flags.delimiter, "delimiter", "", "cell delimiter for delimited text (default: whitespace)")
	f.BoolVar(&flags.legacyBinning, "legacy-binning", false, "bin carlo lists at the requested size instead of the reconciled one")
	f.BoolVar(&flags.pathIntegrals, "path-integrals", false, "also bin carlo path-integral columns")
	f.Float64Var(&flags.s2r, "s2r", 0, "source-to-object distance in cm")
	f.Float64Var(&flags.s2d, "s2d", 0, "source-to-detector distance in cm")
	f.Float64Var(&flags.ep, "ep", 0, "proton energy in MeV")
	f.Float64Var(&flags.bin, "bin", 0, "detector bin size in um for pre-binned files")
	f.StringVar(&flags.xMask, "x-mask", "", `masked range along the first axis, e.g. "10 - 90"`)
	f.StringVar(&flags.yMask, "y-mask", "", `masked range along the second axis, e.g. "10 - 90"`)
	f.StringVarP(&flags.output, "output", "o", pipeline.DefaultOutput, `PRR output file ("" to skip)`)
	f.StringVar(&flags.snapshot, "snapshot", "", "also write a quick-reload snapshot to this path")
	f.StringVar(&flags.plotDir, "plot", "", "also write PNG plots to this directory")
	f.Lookup("plot").NoOptDefVal = pipeline.DefaultPlotDir
	f.BoolVar(&flags.prompt, "prompt", false, "ask for missing geometry and confirm the mask")
	f.BoolVar(&flags.accessible, "accessible", false, "use plain line prompts instead of forms")
	f.BoolVar(&flags.json, "json", false, "print the result as JSON")

	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// buildReadOptions merges config values and flags into pipeline options.
// Flags set on the command line take precedence over the config file.
func buildReadOptions(fs *pflag.FlagSet, flags *readFlags, cfg *Config, path string) (pipeline.Options, error) {
	opts := pipeline.Options{
		Path:          path,
		Format:        cfg.Ingest.Format,
		BinUm:         cfg.Ingest.BinUm,
		Delimiter:     cfg.Ingest.Delimiter,
		LegacyBinning: cfg.Ingest.LegacyBinning,
		PathIntegrals: cfg.Ingest.PathIntegrals,
		Geometry:      cfg.Geometry.Record(),
		XSelect:       cfg.Mask.X,
		YSelect:       cfg.Mask.Y,
		Output:        flags.output,
		Snapshot:      cfg.Output.Snapshot,
		PlotDir:       cfg.Output.PlotDir,
	}
	if cfg.Output.PRR != "" && !fs.Changed("output") {
		opts.Output = cfg.Output.PRR
	}

	if fs.Changed("format") {
		opts.Format = flags.format
	}
	if fs.Changed("bin-um") || opts.BinUm == 0 {
		opts.BinUm = flags.binUm
	}
	if fs.Changed("delimiter") {
		opts.Delimiter = flags.delimiter
	}
	if fs.Changed("legacy-binning") {
		opts.LegacyBinning = flags.legacyBinning
	}
	if fs.Changed("path-integrals") {
		opts.PathIntegrals = flags.pathIntegrals
	}
	if fs.Changed("snapshot") {
		opts.Snapshot = flags.snapshot
	}
	if fs.Changed("plot") {
		opts.PlotDir = flags.plotDir
	}

	for name, v := range map[string]struct {
		field string
		value float64
	}{
		"s2r": {geometry.FieldS2R, flags.s2r},
		"s2d": {geometry.FieldS2D, flags.s2d},
		"ep":  {geometry.FieldEp, flags.ep},
		"bin": {geometry.FieldBin, flags.bin},
	} {
		if !fs.Changed(name) {
			continue
		}
		var err error
		if opts.Geometry, err = opts.Geometry.With(v.field, geometry.Some(v.value)); err != nil {
			return opts, err
		}
	}
	if err := opts.Geometry.Validate(); err != nil {
		return opts, err
	}

	for name, dst := range map[string]*fluxmap.Selection{"x-mask": &opts.XSelect, "y-mask": &opts.YSelect} {
		if !fs.Changed(name) {
			continue
		}
		text, _ := fs.GetString(name)
		s, err := fluxmap.ParseSelection(text)
		if err != nil {
			return opts, fmt.Errorf("--%s: %w", name, err)
		}
		*dst = s
	}
	return opts, nil
}

// runRead executes the pipeline and reports the result.
func (c *CLI) runRead(cmd *cobra.Command, cfg *Config, opts pipeline.Options, asJSON bool) error {
	ctx := cmd.Context()
	runner, err := c.newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	var spinner *Spinner
	if opts.Prompter == nil && !asJSON {
		spinner = newSpinnerWithContext(ctx, ingestMessage(opts.Format, opts.Path))
		restore := trackStages(spinner)
		defer restore()
		spinner.Start()
	}
	prog := newProgress(loggerFromContext(ctx))
	result, err := runner.Execute(ctx, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.doneResult(result)

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(newReadSummary(result))
	}
	printReadResult(result)
	return nil
}

// readSummary is the JSON form of a read result. Grids are summarized by
// shape; the PRR and snapshot outputs carry the values.
type readSummary struct {
	ID        string              `json:"id"`
	Path      string              `json:"path"`
	Format    string              `json:"format"`
	Geometry  geometry.Record     `json:"geometry"`
	Shape     [2]int              `json:"shape"`
	FluxSum   float64             `json:"flux_sum"`
	XSelect   fluxmap.Selection   `json:"x_select"`
	YSelect   fluxmap.Selection   `json:"y_select"`
	Missing   []string            `json:"missing,omitempty"`
	Meta      map[string]string   `json:"meta,omitempty"`
	Artifacts map[string][]string `json:"artifacts,omitempty"`
}

func newReadSummary(result *pipeline.Result) readSummary {
	rec := result.Record
	return readSummary{
		ID:        rec.ID,
		Path:      rec.Path,
		Format:    rec.Format.String(),
		Geometry:  rec.Geometry,
		Shape:     [2]int{result.Stats.Rows, result.Stats.Cols},
		FluxSum:   rec.Flux.Sum(),
		XSelect:   rec.XSelect,
		YSelect:   rec.YSelect,
		Missing:   rec.Missing(),
		Meta:      rec.Meta,
		Artifacts: result.Artifacts,
	}
}

func printReadResult(result *pipeline.Result) {
	rec := result.Record
	printSuccess("Read %s radiograph", StyleHighlight.Render(rec.Format.String()))
	printRecord(rec)

	kinds := make([]string, 0, len(result.Artifacts))
	for kind := range result.Artifacts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	if len(kinds) > 0 {
		printNewline()
		printInfo("Wrote")
		for _, kind := range kinds {
			for _, p := range result.Artifacts[kind] {
				printFile(p)
			}
		}
	}
	if missing := rec.Missing(); len(missing) > 0 {
		printNewline()
		printWarning("Unset geometry written as None: %v", missing)
		printNextStep("Fill it in", "pradreader read "+rec.Path+" --prompt")
	}
}

// printRecord prints the identifying fields and geometry of a record.
func printRecord(rec *radiograph.Record) {
	printKeyValue("id", rec.ID)
	printKeyValue("path", rec.Path)
	printKeyValue("shape", rec.Flux.String())
	for _, name := range geometry.Fields {
		s, _ := rec.Geometry.Get(name)
		printScalar(name, s)
	}
	printKeyValue("x-mask", orFull(rec.XSelect).String())
	printKeyValue("y-mask", orFull(rec.YSelect).String())
}

func orFull(s fluxmap.Selection) fluxmap.Selection {
	if s.IsZero() {
		return fluxmap.FullSelection
	}
	return s
}
