package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pradreader/pkg/radiograph"
	"github.com/matzehuels/pradreader/pkg/source"
)

// formatInfo is one row of the formats listing.
type formatInfo struct {
	Tag        string
	Aliases    []string
	Rebinnable bool
	About      string
}

var formatAbout = map[source.Format]string{
	source.Carlo:  "simulation proton list (.out)",
	source.Flash4: "FLASH4 *ProtonDetectorFile* plus sibling prints",
	source.MITCSV: "pre-binned detector scan (.csv)",
	source.CSV:    "delimited text image (.txt, .dat, .tsv)",
	source.PRR:    "pradreader intermediate file (.prr)",
}

// formatsCommand creates the formats command.
func (c *CLI) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported input formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := listFormats(radiograph.NewIngestor())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(infos))
			for _, f := range infos {
				rebin := "no"
				if f.Rebinnable {
					rebin = "yes"
				}
				rows = append(rows, []string{f.Tag, strings.Join(f.Aliases, ", "), rebin, f.About})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Format", "Aliases", "Rebin", "Input"}, rows))
			return nil
		},
	}
}

// listFormats describes every format the ingestor can read, sorted by tag.
func listFormats(ing *radiograph.Ingestor) ([]formatInfo, error) {
	aliases := make(map[source.Format][]string)
	for alias, f := range source.Aliases() {
		aliases[f] = append(aliases[f], alias)
	}

	out := make([]formatInfo, 0, len(source.Formats()))
	for _, f := range source.Formats() {
		r, err := ing.Reader(f.String())
		if err != nil {
			return nil, err
		}
		a := aliases[f]
		sort.Strings(a)
		out = append(out, formatInfo{
			Tag:        f.String(),
			Aliases:    a,
			Rebinnable: r.Rebinnable(),
			About:      formatAbout[f],
		})
	}
	return out, nil
}

// completeFormats completes --format values.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, f := range source.Formats() {
		if strings.HasPrefix(f.String(), toComplete) {
			out = append(out, f.String()+"\t"+formatAbout[f])
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
