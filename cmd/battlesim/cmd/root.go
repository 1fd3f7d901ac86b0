package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "battlesim",
		Short: "Headless WEGO battle simulator",
		Long: `battlesim runs WEGO battles without the HTTP server.

Available commands:
  run      Play a scenario file turn by turn and print every resolution
  token    Mint a development player token

Use "battlesim [command] --help" for more information about a command.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newTokenCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
