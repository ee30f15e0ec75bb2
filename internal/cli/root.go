package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pradreader/pkg/buildinfo"
	"github.com/matzehuels/pradreader/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "pradreader normalizes proton radiography data",
		Long: `pradreader reads proton radiography files from simulation codes and
detector scans, bins them into flux maps with a matching reference flux, and
writes a common intermediate file for reconstruction tools.`,
		Version:      buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			observability.SetPipelineHooks(observability.NewLogHooks(c.Logger))
			observability.SetCacheHooks(observability.NewLogHooks(c.Logger))
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pradreader/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the particle table cache")

	// Register all subcommands
	root.AddCommand(c.readCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.formatsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

