package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pradreader/pkg/radiograph"
)

var completionShells = map[string]func(cmd *cobra.Command) error{
	"bash": func(cmd *cobra.Command) error { return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true) },
	"zsh":  func(cmd *cobra.Command) error { return cmd.Root().GenZshCompletion(cmd.OutOrStdout()) },
	"fish": func(cmd *cobra.Command) error { return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true) },
	"powershell": func(cmd *cobra.Command) error {
		return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	},
}

func (c *CLI) completionCommand() *cobra.Command {
	shells := make([]string, 0, len(completionShells))
	for name := range completionShells {
		shells = append(shells, name)
	}
	sort.Strings(shells)

	return &cobra.Command{
		Use:   fmt.Sprintf("completion [%s]", strings.Join(shells, "|")),
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for pradreader.

Completion knows the input formats for --format and offers only files that
a reader recognizes (FLASH4 detector files, carlo .out lists, MIT .csv
scans, delimited text, .prr files and .snap snapshots) as the file
argument of read and show.

  $ source <(pradreader completion bash)
  $ pradreader completion zsh > "${fpath[1]}/_pradreader"
  $ pradreader completion fish > ~/.config/fish/completions/pradreader.fish
  PS> pradreader completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionShells[args[0]](cmd)
		},
	}
}

// completeInputFiles completes the file argument of read and show with
// directories and the files some registered reader detects.
func completeInputFiles(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	dir, prefix := filepath.Split(toComplete)
	entries, err := os.ReadDir(orDot(dir))
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}

	ing := radiograph.NewIngestor()
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case e.IsDir():
			out = append(out, dir+name+"/")
		case strings.HasSuffix(name, ".snap"):
			out = append(out, dir+name)
		default:
			if r, err := ing.Detect(name); err == nil {
				out = append(out, dir+name+"\t"+r.Format().String())
			}
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func orDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
