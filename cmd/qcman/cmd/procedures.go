package cmd

import (
	"github.com/spf13/cobra"
)

// proceduresCmd represents the procedures command.
var proceduresCmd = &cobra.Command{
	Use:   "procedures",
	Short: "List registered QC procedures",
	Long: `List all registered QC procedures with their descriptions.

Procedures marked [hw] require a connection to the board services.

Examples:
  qcman procedures`,
	RunE: runProcedures,
}

func init() {
	rootCmd.AddCommand(proceduresCmd)
}

// runProcedures handles the procedures command.
func runProcedures(cmd *cobra.Command, args []string) error {
	for _, entry := range DefaultRegistry.Entries() {
		marker := "    "
		if entry.NeedsHardware {
			marker = "[hw]"
		}
		cmd.Printf("%-12s %s %s\n", entry.Name, marker, entry.Description)
	}
	return nil
}
