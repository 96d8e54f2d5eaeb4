// Package cmd provides the CLI commands for qcman.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build metadata, overwritten by main before Execute runs.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "qcman",
	Short: "qcman - detector board QC session manager",
	Long: `qcman runs quality-control procedures against detector boards and
records every result in a per-board session directory.

Each board gets a session under the results store. Procedures talk to the
board services (daq, pull, slow control), write their data files into
timestamped run directories, and always leave a status-coded entry in the
session file, even when they fail. The session also records which control
software environment produced it, via the environment manifest.`,
}

// Execute runs the CLI. Called once from main.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
	rootCmd.SetVersionTemplate("qcman {{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
