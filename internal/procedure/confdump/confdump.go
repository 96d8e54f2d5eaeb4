// Package confdump implements the configuration dump procedure, which
// snapshots the full hardware configuration into the session so a run
// can later be reproduced from its recorded settings.
package confdump

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/umdcms/qcmanager/internal/procedure"
)

// OutputFile is the name of the configuration snapshot data file.
const OutputFile = "full_config.yaml"

// ConfDump writes the merged hardware configuration as a YAML data file.
type ConfDump struct{}

// Register adds the configuration dump procedure to a registry.
func Register(r *procedure.Registry) {
	r.Register(procedure.Entry{
		Name:          "confdump",
		Description:   "snapshot the full hardware configuration to a YAML data file",
		NeedsHardware: true,
	}, func() procedure.Procedure { return &ConfDump{} })
}

func (c *ConfDump) Name() string { return "confdump" }

func (c *ConfDump) Description() string {
	return "snapshot the full hardware configuration to a YAML data file"
}

func (c *ConfDump) Arguments() map[string]interface{} {
	return map[string]interface{}{}
}

// Run marshals the controller's merged configuration tree and stores it
// as a data file.
func (c *ConfDump) Run(ctx context.Context, env *procedure.RunEnv) error {
	if env.Controller == nil {
		return fmt.Errorf("confdump needs a connected hardware controller")
	}

	full := env.Controller.FullConfig()
	data, err := yaml.Marshal(full)
	if err != nil {
		return fmt.Errorf("failed to marshal hardware configuration: %w", err)
	}

	f, err := env.CreateDataFile(OutputFile, "full hardware configuration snapshot")
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration snapshot: %w", err)
	}
	env.Logger.Info("configuration snapshot written", "file", OutputFile, "bytes", len(data))
	return nil
}
