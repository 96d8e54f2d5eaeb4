// Package envcheck implements the environment check procedure. It
// validates the control software environment manifest and records the
// validation report with the session, so every data-taking session
// carries proof of which software environment produced it.
package envcheck

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/manifest"
	"github.com/umdcms/qcmanager/internal/procedure"
)

// ReportFile is the name of the stored validation report.
const ReportFile = "envcheck_report.yaml"

// EnvCheck validates an environment manifest and attaches it to the
// session.
type EnvCheck struct {
	// ManifestPath points at the environment manifest to validate.
	ManifestPath string `mapstructure:"manifest"`
	// Strict escalates warnings to run failures.
	Strict bool `mapstructure:"strict"`
}

// Register adds the environment check procedure to a registry.
func Register(r *procedure.Registry) {
	r.Register(procedure.Entry{
		Name:        "envcheck",
		Description: "validate the control environment manifest and record the report",
	}, func() procedure.Procedure { return &EnvCheck{} })
}

func (e *EnvCheck) Name() string { return "envcheck" }

func (e *EnvCheck) Description() string {
	return "validate the control environment manifest and record the report"
}

func (e *EnvCheck) Arguments() map[string]interface{} {
	return map[string]interface{}{
		"manifest": e.ManifestPath,
		"strict":   e.Strict,
	}
}

// Run validates the manifest, stores the report as a data file, and
// attaches the manifest snapshot to the session. Findings of error
// severity fail the run; warnings fail it only in strict mode.
func (e *EnvCheck) Run(ctx context.Context, env *procedure.RunEnv) error {
	if e.ManifestPath == "" {
		return qcerrors.WithSuggestion(qcerrors.ErrManifest,
			"no environment manifest configured",
			"pass manifest=<path> or set environment.manifest in the config file")
	}
	if _, err := os.Stat(e.ManifestPath); err != nil {
		return qcerrors.ManifestNotFound(e.ManifestPath)
	}

	rep, err := manifest.ValidateFile(e.ManifestPath)
	if err != nil {
		return err
	}
	for _, f := range rep.Findings {
		switch f.Severity {
		case manifest.SeverityError:
			env.Logger.Error("manifest finding", "package", f.Package, "message", f.Message)
		default:
			env.Logger.Warn("manifest finding", "package", f.Package, "message", f.Message)
		}
	}

	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal validation report: %w", err)
	}
	f, err := env.CreateDataFile(ReportFile, "environment manifest validation report")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if errs := rep.Errors(); len(errs) > 0 {
		return qcerrors.New(qcerrors.ErrManifest,
			fmt.Sprintf("manifest %s has %d validation errors, first: %s",
				e.ManifestPath, len(errs), errs[0].Message))
	}
	if warns := rep.Warnings(); e.Strict && len(warns) > 0 {
		return qcerrors.New(qcerrors.ErrManifest,
			fmt.Sprintf("manifest %s has %d warnings and strict mode is on, first: %s",
				e.ManifestPath, len(warns), warns[0].Message))
	}

	if err := env.Session.AttachManifest(e.ManifestPath); err != nil {
		return err
	}
	env.Logger.Info("environment verified",
		"manifest", e.ManifestPath, "fingerprint", rep.Fingerprint)
	return nil
}
