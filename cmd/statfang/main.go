// Package main provides the entry point for the statfang CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/statfang/cmd/statfang/commands"
	"github.com/Sumatoshi-tech/statfang/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "statfang",
		Short: "Statfang - simulator statistics extraction engine",
		Long: `Statfang scans simulator output trees for statistics and extracts
selected variables from every run into one table.

Commands:
  scan      Discover which statistics exist across the output files
  parse     Extract selected statistics into a CSV table`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewScanCommand(&verbose, &quiet))
	rootCmd.AddCommand(commands.NewParseCommand(&verbose, &quiet))
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "statfang %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
