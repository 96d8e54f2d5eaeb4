package cmd

import (
	"github.com/spf13/cobra"

	"github.com/umdcms/qcmanager/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Print the qcman version together with the commit hash, build
date, and Go runtime details. Include this output when reporting
problems with a QC station.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(version.NewInfo(Version, Commit, Date).FullString())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
