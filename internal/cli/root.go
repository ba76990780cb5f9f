// Package cli defines the starboard command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "starboard",
		Short: "Discord starboard bot",
		Long: `Mirrors messages that collect enough star reactions into a starboard
channel and announces newly verified speedrun.com runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "./config.yaml", "path to configuration file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))

	return cmd
}
