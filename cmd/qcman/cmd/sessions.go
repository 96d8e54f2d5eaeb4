package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umdcms/qcmanager/internal/session"
)

// sessionsCmd represents the sessions command.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List board sessions in the results store",
	Long: `List every board session under the results store, with the number
of recorded procedure results and failures.

Examples:
  qcman sessions`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

// runSessions handles the sessions command.
func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := session.NewStore(cfg.Store.Dir)
	infos, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(infos) == 0 {
		cmd.Printf("No sessions found under %s\n", cfg.Store.Dir)
		cmd.Println("Run 'qcman init <board_type> <board_id>' to create one.")
		return nil
	}

	cmd.Printf("%-30s %8s %8s\n", "BOARD", "RESULTS", "FAILED")
	for _, info := range infos {
		cmd.Printf("%-30s %8d %8d\n",
			info.BoardType+"."+info.BoardID, info.Results, info.Failed)
	}

	return nil
}
