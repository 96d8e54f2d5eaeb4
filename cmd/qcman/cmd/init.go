package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/umdcms/qcmanager/internal/config"
	"github.com/umdcms/qcmanager/internal/session"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init <board_type> <board_id>",
	Short: "Create a new board session",
	Long: `Create a new QC session for a board.

This creates the session directory under the results store and writes an
empty session file. If the config file does not exist yet, a default
.qcman/config.yaml is written alongside it.

When an environment manifest is configured, its fingerprint is recorded
in the session and a snapshot of the manifest is stored in the session
directory.

Creating a session for a board that already has one is an error: an
existing session directory is never clobbered.

Examples:
  qcman init tileboard TB001
  qcman init wagon W042`,
	Args: cobra.ExactArgs(2),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// runInit is the main entry point for the init command.
func runInit(cmd *cobra.Command, args []string) error {
	boardType, boardID := args[0], args[1]

	// Write a default config on first use so the shifter has something
	// to edit.
	if _, err := os.Stat(config.DefaultConfigPath); os.IsNotExist(err) {
		if err := config.Save(config.NewConfig(), config.DefaultConfigPath); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
		cmd.Printf("Created %s\n", config.DefaultConfigPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := session.NewStore(cfg.Store.Dir)
	sess, err := store.Create(boardType, boardID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if cfg.Environment.Manifest != "" {
		if err := sess.AttachManifest(cfg.Environment.Manifest); err != nil {
			return fmt.Errorf("failed to attach environment manifest: %w", err)
		}
		if err := sess.Save(); err != nil {
			return err
		}
	}

	cmd.Printf("Created session %s\n", sess.ID())
	cmd.Printf("  Session file: %s\n", sess.Path())
	if sess.EnvFingerprint != "" {
		cmd.Printf("  Environment:  %s\n", sess.EnvFingerprint)
	}
	cmd.Println("")
	cmd.Printf("Run 'qcman run --board %s <procedure>' to start taking data.\n", sess.ID())

	return nil
}
