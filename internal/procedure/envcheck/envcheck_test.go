package envcheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/procedure"
	"github.com/umdcms/qcmanager/internal/report"
	"github.com/umdcms/qcmanager/internal/session"
)

const validManifest = `name: qca_control
channels:
  - conda-forge
dependencies:
  - python=3.9
  - pyyaml=6.0
  - pip
  - pip:
      - pyzmq==25.1.0
`

const brokenManifest = `channels:
  - conda-forge
dependencies:
  - python=3.9
  - python=3.10
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environment.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	store := session.NewStore(t.TempDir())
	sess, err := store.Create("tileboard", "TB007")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return sess
}

func TestRunValidManifest(t *testing.T) {
	sess := newTestSession(t)
	path := writeManifest(t, validManifest)

	result, err := procedure.Execute(context.Background(),
		&EnvCheck{ManifestPath: path},
		procedure.ExecuteOptions{Session: sess})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status.Code != report.StatusComplete {
		t.Fatalf("status = %v, want StatusComplete", result.Status.Code)
	}

	// Report data file stored with the run.
	if len(result.DataFiles) != 1 {
		t.Fatalf("DataFiles count = %d, want 1", len(result.DataFiles))
	}
	if _, err := os.Stat(filepath.Join(sess.Dir(), result.DataFiles[0].Path)); err != nil {
		t.Errorf("report file missing: %v", err)
	}

	// Manifest snapshot attached to the session.
	if _, err := os.Stat(filepath.Join(sess.Dir(), session.ManifestSnapshot)); err != nil {
		t.Errorf("manifest snapshot missing: %v", err)
	}
	if sess.EnvFingerprint == "" {
		t.Error("session fingerprint not set")
	}
}

func TestRunInvalidManifest(t *testing.T) {
	sess := newTestSession(t)
	path := writeManifest(t, brokenManifest)

	result, err := procedure.Execute(context.Background(),
		&EnvCheck{ManifestPath: path},
		procedure.ExecuteOptions{Session: sess})
	if !errors.Is(err, qcerrors.ErrManifest) {
		t.Fatalf("error = %v, want ErrManifest", err)
	}
	if result.Status.Code != report.StatusProcedureError {
		t.Errorf("status = %v, want StatusProcedureError", result.Status.Code)
	}

	// The report is still stored even when validation fails.
	if len(result.DataFiles) != 1 {
		t.Errorf("DataFiles count = %d, want 1", len(result.DataFiles))
	}
	// The invalid manifest must not be attached.
	if sess.EnvFingerprint != "" {
		t.Error("fingerprint set from invalid manifest")
	}
}

func TestRunStrictModeFailsOnWarnings(t *testing.T) {
	sess := newTestSession(t)
	// No channels listed triggers a warning finding.
	path := writeManifest(t, "name: qca_control\ndependencies:\n  - python=3.9\n")

	_, err := procedure.Execute(context.Background(),
		&EnvCheck{ManifestPath: path, Strict: true},
		procedure.ExecuteOptions{Session: sess})
	if !errors.Is(err, qcerrors.ErrManifest) {
		t.Fatalf("error = %v, want ErrManifest in strict mode", err)
	}

	// Without strict mode the same manifest passes.
	sess2 := newTestSession(t)
	_, err = procedure.Execute(context.Background(),
		&EnvCheck{ManifestPath: path},
		procedure.ExecuteOptions{Session: sess2})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestRunMissingManifest(t *testing.T) {
	sess := newTestSession(t)

	_, err := procedure.Execute(context.Background(),
		&EnvCheck{ManifestPath: filepath.Join(t.TempDir(), "nope.yaml")},
		procedure.ExecuteOptions{Session: sess})
	if !errors.Is(err, qcerrors.ErrManifest) {
		t.Fatalf("error = %v, want ErrManifest", err)
	}

	_, err = procedure.Execute(context.Background(),
		&EnvCheck{},
		procedure.ExecuteOptions{Session: sess})
	if !errors.Is(err, qcerrors.ErrManifest) {
		t.Fatalf("error = %v, want ErrManifest for unset path", err)
	}
}
