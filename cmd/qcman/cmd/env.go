package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umdcms/qcmanager/internal/config"
	"github.com/umdcms/qcmanager/internal/manifest"
)

// envCmd groups the environment manifest commands.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect the control environment manifest",
	Long: `Commands for inspecting the control software environment manifest.

The manifest declares the packages the control environment is built from.
Sessions record its fingerprint so every result can be traced back to the
software that produced it.`,
}

// envValidateCmd represents the env validate command.
var envValidateCmd = &cobra.Command{
	Use:   "validate [manifest]",
	Short: "Validate an environment manifest",
	Long: `Validate an environment manifest.

Checks that the file parses, every dependency entry names a well-formed
package, version pins parse, and no package is declared twice. Without an
argument the manifest from the config file is used.

Examples:
  qcman env validate
  qcman env validate environment.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnvValidate,
}

// envShowCmd represents the env show command.
var envShowCmd = &cobra.Command{
	Use:   "show [manifest]",
	Short: "Show the parsed environment manifest",
	Long: `Show the parsed environment manifest: name, channels, dependencies,
and the fingerprint sessions record.

Examples:
  qcman env show
  qcman env show environment.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnvShow,
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envValidateCmd)
	envCmd.AddCommand(envShowCmd)
}

// manifestPath resolves the manifest path from the argument or config.
func manifestPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Environment.Manifest == "" {
		return "", fmt.Errorf("no manifest given and environment.manifest is not set in %s", config.DefaultConfigPath)
	}
	return cfg.Environment.Manifest, nil
}

// runEnvValidate handles the env validate command.
func runEnvValidate(cmd *cobra.Command, args []string) error {
	path, err := manifestPath(args)
	if err != nil {
		return err
	}

	rep, err := manifest.ValidateFile(path)
	if err != nil {
		return err
	}

	cmd.Printf("Environment: %s\n", rep.Name)
	cmd.Printf("Fingerprint: %s\n", rep.Fingerprint)

	if len(rep.Findings) == 0 {
		cmd.Println("✓ Manifest is valid.")
		return nil
	}

	for _, f := range rep.Findings {
		cmd.Println(f.String())
	}

	if !rep.Valid() {
		return fmt.Errorf("manifest %s failed validation with %d error(s)", path, len(rep.Errors()))
	}
	cmd.Printf("✓ Manifest is valid (%d warning(s)).\n", len(rep.Warnings()))
	return nil
}

// runEnvShow handles the env show command.
func runEnvShow(cmd *cobra.Command, args []string) error {
	path, err := manifestPath(args)
	if err != nil {
		return err
	}

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	cmd.Printf("Environment: %s\n", m.Name)
	cmd.Printf("Fingerprint: %s\n", m.Fingerprint())

	cmd.Println("Channels:")
	for _, ch := range m.Channels {
		cmd.Printf("  - %s\n", ch)
	}

	cmd.Printf("Dependencies (%d):\n", len(m.Dependencies))
	for _, dep := range m.Dependencies {
		pin := "(unpinned)"
		if dep.Pinned() {
			pin = dep.Version
		}
		cmd.Printf("  %-30s %-15s %s\n", dep.Name, pin, dep.Manager)
	}

	return nil
}
