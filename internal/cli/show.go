package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	prio "github.com/matzehuels/pradreader/pkg/io"
	"github.com/matzehuels/pradreader/pkg/pipeline"
	"github.com/matzehuels/pradreader/pkg/radiograph"
)

// snapshotExt marks files that show loads as snapshots instead of ingesting.
const snapshotExt = ".snap"

// showCommand creates the show command: display a record without writing
// anything.
func (c *CLI) showCommand() *cobra.Command {
	var (
		format string
		binUm  float64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Display a radiograph's geometry, maps and metadata",
		Long: `Display a radiograph read from any supported format, a PRR file, or a
snapshot written by "pradreader read --snapshot".`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInputFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			rec, err := c.loadRecord(cmd.Context(), cfg, args[0], format, binUm)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printShow(rec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "input format (default: detect from file name)")
	cmd.Flags().Float64Var(&binUm, "bin-um", pipeline.DefaultBinUm, "histogram bin size in um for proton lists")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full record, including maps, as JSON")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// loadRecord reads a snapshot or ingests path with the configured cache.
func (c *CLI) loadRecord(ctx context.Context, cfg *Config, path, format string, binUm float64) (*radiograph.Record, error) {
	if strings.EqualFold(filepath.Ext(path), snapshotExt) {
		snap, err := prio.LoadSnapshot(path)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("loaded snapshot", "path", path, "version", snap.Build.Version, "created", snap.Created)
		return radiograph.FromSnapshot(snap)
	}

	runner, err := c.newRunner(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	opts := pipeline.Options{
		Path:          path,
		Format:        format,
		BinUm:         binUm,
		Delimiter:     cfg.Ingest.Delimiter,
		LegacyBinning: cfg.Ingest.LegacyBinning,
		PathIntegrals: cfg.Ingest.PathIntegrals,
		Logger:        c.Logger,
	}
	if opts.Format == "" {
		opts.Format = cfg.Ingest.Format
	}
	return runner.Ingest(ctx, opts)
}

func printShow(rec *radiograph.Record) {
	printNewline()
	printKeyValue("format", StyleTitle.Render(rec.Format.String()))
	printRecord(rec)

	printNewline()
	printGridStats("flux2D", rec.Flux)
	printGridStats("flux2D_ref", rec.Reference)
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printGridStats(name, rec.Fields[name])
	}

	if len(rec.Meta) > 0 {
		keys := make([]string, 0, len(rec.Meta))
		for k := range rec.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, rec.Meta[k]})
		}
		printNewline()
		fmt.Println(renderTable([]string{"Key", "Value"}, rows))
	}
}
