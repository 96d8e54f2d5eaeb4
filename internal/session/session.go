// Package session provides board session management. A session collects
// every procedure result for one physical board, persisted as YAML under
// <store>/<board_type>.<board_id>/ so the whole QC history of a board
// lives in one directory next to its data files.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	qcerrors "github.com/umdcms/qcmanager/internal/errors"
	"github.com/umdcms/qcmanager/internal/manifest"
	"github.com/umdcms/qcmanager/internal/report"
)

// Filename is the session file name inside the session directory.
const Filename = "session.yaml"

// ManifestSnapshot is the name of the manifest copy stored in the
// session directory.
const ManifestSnapshot = "environment.yaml"

// Session holds the QC state for one board.
type Session struct {
	// BoardType identifies the board hardware type.
	BoardType string `yaml:"board_type"`
	// BoardID is the serial identifier of the board.
	BoardID string `yaml:"board_id"`
	// EnvFingerprint is the fingerprint of the environment manifest the
	// session was created under.
	EnvFingerprint string `yaml:"env_fingerprint,omitempty"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `yaml:"created_at"`
	// Results holds every procedure result, in execution order.
	Results []*report.Result `yaml:"results"`

	dir string
	mu  sync.Mutex
}

// ID returns the session identifier, "<board_type>.<board_id>".
func (s *Session) ID() string {
	return s.BoardType + "." + s.BoardID
}

// Dir returns the session directory.
func (s *Session) Dir() string {
	return s.dir
}

// Path returns the path of the session file.
func (s *Session) Path() string {
	return filepath.Join(s.dir, Filename)
}

// ProcedureDir creates and returns a timestamped storage directory for a
// procedure run, under the session directory. Procedures write their data
// files there without any further directory management.
func (s *Session) ProcedureDir(procedureName string) (string, error) {
	dir := filepath.Join(s.dir, fmt.Sprintf("%s_%s", procedureName, time.Now().Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", qcerrors.Wrap(err, qcerrors.ErrSession, "failed to create procedure directory")
	}
	return dir, nil
}

// Append adds a result to the session.
func (s *Session) Append(r *report.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = append(s.Results, r)
}

// RelocateData rewrites the result's data file paths relative to the
// session file, so the session directory stays relocatable as a unit.
func (s *Session) RelocateData(r *report.Result) error {
	base := filepath.Dir(s.Path())
	for _, entry := range r.DataFiles {
		if !filepath.IsAbs(entry.Path) {
			continue
		}
		rel, err := filepath.Rel(base, entry.Path)
		if err != nil {
			return qcerrors.Wrap(err, qcerrors.ErrSession, "failed to relocate data path")
		}
		entry.Path = rel
	}
	return nil
}

// Save flushes the session to its session file.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return qcerrors.Wrap(err, qcerrors.ErrSession, "failed to marshal session")
	}
	if err := os.WriteFile(s.Path(), data, 0644); err != nil {
		return qcerrors.Wrap(err, qcerrors.ErrSession, "failed to write session file")
	}
	return nil
}

// AttachManifest validates the environment manifest at path, copies it
// into the session directory, and records its fingerprint.
// An invalid manifest is rejected.
func (s *Session) AttachManifest(path string) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	vr := manifest.Validate(m)
	if !vr.Valid() {
		msgs := make([]string, 0, len(vr.Errors()))
		for _, f := range vr.Errors() {
			msgs = append(msgs, f.String())
		}
		return qcerrors.New(qcerrors.ErrManifest,
			fmt.Sprintf("manifest %s failed validation", path)).
			WithDetails("findings", strings.Join(msgs, "; "))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return qcerrors.Wrap(err, qcerrors.ErrManifest, "failed to read manifest")
	}
	if err := os.WriteFile(filepath.Join(s.dir, ManifestSnapshot), raw, 0644); err != nil {
		return qcerrors.Wrap(err, qcerrors.ErrSession, "failed to store manifest snapshot")
	}

	s.EnvFingerprint = vr.Fingerprint
	return nil
}

// Counts returns the number of successful and failed results.
func (s *Session) Counts() (complete, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Results {
		if r.IsSuccess() {
			complete++
		} else {
			failed++
		}
	}
	return complete, failed
}
