package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagfilePath string
	format       string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ff",
	Short: "Feature flagging for developers and devops",
	Long: `ff manages feature flags defined in a Flagfile.

It validates, lints, tests, and evaluates flag rules locally, finds
flag references in source code, and serves the Flagfile to remote
clients over HTTP with live update events.

Examples:
  ff init
  ff list -d
  ff check
  ff eval FF-premium-feature plan=premium
  ff serve -p 8080 --watch`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagfilePath, "flagfile", "f", "Flagfile", "Path to the Flagfile")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
}
